package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/macrolog/internal/nutrition"
	"github.com/macrolog/internal/provider/openfoodfacts"
)

var (
	// ErrProductNotFound 条形码未收录
	ErrProductNotFound = openfoodfacts.ErrProductNotFound
	// ErrBarcodeUpstream 条形码数据库请求失败
	ErrBarcodeUpstream = errors.New("barcode lookup failed")
)

// BarcodeLookup 是条形码数据源
type BarcodeLookup interface {
	LookupBarcode(ctx context.Context, barcode string) (openfoodfacts.Product, error)
}

// BarcodeService 把条形码查询结果转换为一份食物营养
type BarcodeService struct {
	lookup BarcodeLookup
}

// NewBarcodeService 构造 BarcodeService
func NewBarcodeService(lookup BarcodeLookup) *BarcodeService {
	return &BarcodeService{lookup: lookup}
}

// Lookup 查询条形码，返回可直接记入日志的 MacroEntry
func (s *BarcodeService) Lookup(ctx context.Context, barcode string) (nutrition.MacroEntry, error) {
	barcode = strings.TrimSpace(barcode)
	if !openfoodfacts.ValidBarcode(barcode) {
		return nutrition.MacroEntry{}, fmt.Errorf("%w: %v", ErrValidation, openfoodfacts.ErrInvalidBarcode)
	}

	product, err := s.lookup.LookupBarcode(ctx, barcode)
	if err != nil {
		if errors.Is(err, openfoodfacts.ErrProductNotFound) {
			return nutrition.MacroEntry{}, err
		}
		return nutrition.MacroEntry{}, fmt.Errorf("%w: %w", ErrBarcodeUpstream, err)
	}

	name := product.Name
	if product.Brand != "" {
		name = fmt.Sprintf("%s (%s)", product.Name, product.Brand)
	}
	entry := nutrition.MacroEntry{
		Name:     name,
		Calories: product.Calories,
		Protein:  product.ProteinG,
		Carbs:    product.CarbsG,
		Fat:      product.FatG,
		Sugar:    product.SugarG,
	}
	if err := entry.Validate(); err != nil {
		return nutrition.MacroEntry{}, fmt.Errorf("%w: %w", ErrBarcodeUpstream, err)
	}
	return entry, nil
}
