package service

import (
	"context"
	"errors"
	"testing"

	"github.com/macrolog/internal/provider/openfoodfacts"
)

type fakeBarcodeLookup struct {
	product openfoodfacts.Product
	err     error
	calls   int
}

func (f *fakeBarcodeLookup) LookupBarcode(context.Context, string) (openfoodfacts.Product, error) {
	f.calls++
	return f.product, f.err
}

func TestBarcodeLookupMapsProduct(t *testing.T) {
	lookup := &fakeBarcodeLookup{product: openfoodfacts.Product{
		Name: "Greek Yogurt", Brand: "Dairy Co", Calories: 100, ProteinG: 17, CarbsG: 6, SugarG: 4,
	}}
	svc := NewBarcodeService(lookup)

	entry, err := svc.Lookup(context.Background(), " 5000112637922 ")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if entry.Name != "Greek Yogurt (Dairy Co)" || entry.Protein != 17 || entry.Sugar != 4 {
		t.Fatalf("unexpected entry %+v", entry)
	}
}

func TestBarcodeLookupErrors(t *testing.T) {
	lookup := &fakeBarcodeLookup{err: openfoodfacts.ErrProductNotFound}
	svc := NewBarcodeService(lookup)
	ctx := context.Background()

	if _, err := svc.Lookup(ctx, "12ab"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if lookup.calls != 0 {
		t.Fatal("malformed barcode should not reach the provider")
	}
	if _, err := svc.Lookup(ctx, "12345678"); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}

	lookup.err = errors.New("connection reset")
	if _, err := svc.Lookup(ctx, "12345678"); !errors.Is(err, ErrBarcodeUpstream) {
		t.Fatalf("expected ErrBarcodeUpstream, got %v", err)
	}
}
