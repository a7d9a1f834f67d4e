// Package openfoodfacts 通过 Open Food Facts 公共 API 按条形码查询商品营养
package openfoodfacts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const defaultBaseURL = "https://world.openfoodfacts.org"

var (
	// ErrProductNotFound 数据库中没有该条形码
	ErrProductNotFound = errors.New("product not found")
	// ErrInvalidBarcode 条形码必须是 8 到 14 位数字
	ErrInvalidBarcode = errors.New("barcode must be 8-14 digits")

	barcodePattern = regexp.MustCompile(`^[0-9]{8,14}$`)
)

// Product 是按份量（缺省为 100g）换算后的营养数据
type Product struct {
	Barcode       string
	Name          string
	Brand         string
	ServingAmount float64
	ServingUnit   string
	Calories      float64
	ProteinG      float64
	CarbsG        float64
	FatG          float64
	SugarG        float64
}

// Doer 是发起 HTTP 请求的最小接口
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client 调用 Open Food Facts v2 API
type Client struct {
	BaseURL    string
	HTTPClient Doer
	UserAgent  string
}

// NewClient 构造 Client，baseURL 为空时使用官方地址
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 12 * time.Second},
		UserAgent:  "macrolog/1.0",
	}
}

// ValidBarcode 校验条形码格式
func ValidBarcode(barcode string) bool {
	return barcodePattern.MatchString(barcode)
}

// LookupBarcode 查询条形码对应的商品
func (c *Client) LookupBarcode(ctx context.Context, barcode string) (Product, error) {
	barcode = strings.TrimSpace(barcode)
	if !ValidBarcode(barcode) {
		return Product{}, ErrInvalidBarcode
	}

	base := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	var httpClient Doer = c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 12 * time.Second}
	}

	url := fmt.Sprintf("%s/api/v2/product/%s.json", base, barcode)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Product{}, fmt.Errorf("create openfoodfacts request: %w", err)
	}
	ua := c.UserAgent
	if ua == "" {
		ua = "macrolog/1.0"
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return Product{}, fmt.Errorf("execute openfoodfacts request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return Product{}, fmt.Errorf("read openfoodfacts response: %w", err)
	}
	// 未收录的条形码返回 404 且 status=0
	if resp.StatusCode == http.StatusNotFound {
		return Product{}, fmt.Errorf("%w: %s", ErrProductNotFound, barcode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Product{}, fmt.Errorf("openfoodfacts request failed with status %d", resp.StatusCode)
	}

	var parsed offResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Product{}, fmt.Errorf("decode openfoodfacts response: %w", err)
	}
	name := strings.TrimSpace(parsed.Product.ProductName)
	if parsed.Status != 1 || name == "" {
		return Product{}, fmt.Errorf("%w: %s", ErrProductNotFound, barcode)
	}

	amount, unit := parseServing(parsed.Product)
	n := parsed.Product.Nutriments
	return Product{
		Barcode:       barcode,
		Name:          name,
		Brand:         strings.TrimSpace(parsed.Product.Brands),
		ServingAmount: amount,
		ServingUnit:   unit,
		Calories:      nutrientValue(n, "energy-kcal"),
		ProteinG:      nutrientValue(n, "proteins"),
		CarbsG:        nutrientValue(n, "carbohydrates"),
		FatG:          nutrientValue(n, "fat"),
		SugarG:        nutrientValue(n, "sugars"),
	}, nil
}

// nutrientValue 优先取每份数值，其次每 100g
func nutrientValue(n map[string]any, base string) float64 {
	for _, key := range []string{base + "_serving", base + "_100g"} {
		if v, ok := parseFloatAny(n[key]); ok && v >= 0 {
			return v
		}
	}
	return 0
}

func parseFloatAny(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func parseServing(p offProduct) (float64, string) {
	if qty, ok := parseFloatAny(p.ServingQuantity); ok && qty > 0 {
		unit := strings.TrimSpace(p.ServingQuantityUnit)
		if unit == "" {
			unit = "g"
		}
		return qty, unit
	}
	if parts := strings.Fields(strings.TrimSpace(p.ServingSize)); len(parts) >= 2 {
		if val, err := strconv.ParseFloat(strings.ReplaceAll(parts[0], ",", ""), 64); err == nil && val > 0 {
			return val, parts[1]
		}
	}
	return 100, "g"
}

type offResponse struct {
	Status  int        `json:"status"`
	Product offProduct `json:"product"`
}

type offProduct struct {
	Code                string         `json:"code"`
	ProductName         string         `json:"product_name"`
	Brands              string         `json:"brands"`
	ServingSize         string         `json:"serving_size"`
	ServingQuantity     any            `json:"serving_quantity"`
	ServingQuantityUnit string         `json:"serving_quantity_unit"`
	Nutriments          map[string]any `json:"nutriments"`
}
