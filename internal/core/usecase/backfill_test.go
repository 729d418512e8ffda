package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/processedornot/scanner/internal/core/domain"
)

func TestBackfillSkipsVanishedProduct(t *testing.T) {
	glycemic := &fakeGlycemicAnalyzer{}
	backfill := NewGlycemicBackfill(newFakeStore(), glycemic, "en", testLogger())

	if err := backfill.BackfillByBarcode(context.Background(), "5449000000996"); err != nil {
		t.Fatalf("a vanished product is not an error, got %v", err)
	}
	if glycemic.calls != 0 {
		t.Fatalf("no analysis expected for a missing record")
	}
}

func TestBackfillSkipsSettledProduct(t *testing.T) {
	index := 63.0
	settled := &domain.Product{
		Barcode:       "5449000000996",
		ProductName:   "Coca-Cola",
		Nutriments:    map[string]float64{"sugars_100g": 10.6},
		GlycemicIndex: &index,
	}
	glycemic := &fakeGlycemicAnalyzer{}
	backfill := NewGlycemicBackfill(newFakeStore(settled), glycemic, "en", testLogger())

	if err := backfill.BackfillByBarcode(context.Background(), "5449000000996"); err != nil {
		t.Fatalf("BackfillByBarcode() error = %v", err)
	}
	if glycemic.calls != 0 {
		t.Fatalf("replayed events must be harmless, analyzer called %d times", glycemic.calls)
	}
}

func TestBackfillEstimatesAndPersists(t *testing.T) {
	pending := &domain.Product{
		Barcode:     "5449000000996",
		ProductName: "Coca-Cola",
		Nutriments:  map[string]float64{"sugars_100g": 10.6},
	}
	store := newFakeStore(pending)
	glycemic := &fakeGlycemicAnalyzer{analysis: domain.GlycemicAnalysis{Index: 63, Load: 14, Explanation: "Sugary drink."}}
	backfill := NewGlycemicBackfill(store, glycemic, "en", testLogger())

	if err := backfill.BackfillByBarcode(context.Background(), "5449000000996"); err != nil {
		t.Fatalf("BackfillByBarcode() error = %v", err)
	}
	if len(store.glycemicUpdates) != 1 {
		t.Fatalf("expected one persisted estimate, got %d", len(store.glycemicUpdates))
	}
	if store.glycemicUpdates[0].Category != domain.GlycemicMedium {
		t.Fatalf("persisted category must come from the clamped index, got %q", store.glycemicUpdates[0].Category)
	}
}

func TestBackfillSurfacesAnalyzerFailure(t *testing.T) {
	pending := &domain.Product{
		Barcode:     "5449000000996",
		ProductName: "Coca-Cola",
		Nutriments:  map[string]float64{"sugars_100g": 10.6},
	}
	glycemic := &fakeGlycemicAnalyzer{err: errors.New("model down")}
	backfill := NewGlycemicBackfill(newFakeStore(pending), glycemic, "en", testLogger())

	if err := backfill.BackfillByBarcode(context.Background(), "5449000000996"); err == nil {
		t.Fatalf("analyzer failure must surface so the event can be retried")
	}
}
