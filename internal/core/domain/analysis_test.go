package domain

import "testing"

func TestClampProcessingScoreForcesRange(t *testing.T) {
	cases := []struct {
		raw  float64
		want int
	}{
		{-5, 0},
		{0, 0},
		{7.4, 7},
		{7.5, 8},
		{10, 10},
		{17.8, 10},
	}
	for _, tc := range cases {
		if got := ClampProcessingScore(tc.raw); got != tc.want {
			t.Fatalf("ClampProcessingScore(%v) = %d, want %d", tc.raw, got, tc.want)
		}
	}
}

func TestGlycemicCategoryIsPureFunctionOfIndex(t *testing.T) {
	cases := []struct {
		index float64
		want  GlycemicCategory
	}{
		{0, GlycemicLow},
		{55.9, GlycemicLow},
		{56, GlycemicMedium},
		{69.9, GlycemicMedium},
		{70, GlycemicHigh},
		{100, GlycemicHigh},
	}
	for _, tc := range cases {
		if got := GlycemicCategoryFor(tc.index); got != tc.want {
			t.Fatalf("GlycemicCategoryFor(%v) = %v, want %v", tc.index, got, tc.want)
		}
	}
}

func TestNormalizeIgnoresModelClaimedCategory(t *testing.T) {
	raw := GlycemicAnalysis{
		Index:    120,
		Load:     55,
		Category: GlycemicLow, // the model's own claim must not survive
	}
	got := raw.Normalize()
	if got.Index != 100 {
		t.Fatalf("index = %v, want clamped 100", got.Index)
	}
	if got.Load != 40 {
		t.Fatalf("load = %v, want clamped 40", got.Load)
	}
	if got.Category != GlycemicHigh {
		t.Fatalf("category = %v, want recomputed High", got.Category)
	}
}

func TestNormalizeClampsNegativeValues(t *testing.T) {
	got := GlycemicAnalysis{Index: -3, Load: -1, Category: GlycemicHigh}.Normalize()
	if got.Index != 0 || got.Load != 0 {
		t.Fatalf("expected zero clamps, got index=%v load=%v", got.Index, got.Load)
	}
	if got.Category != GlycemicLow {
		t.Fatalf("category = %v, want Low", got.Category)
	}
}

func TestHistoryRecordForSnapshotsProduct(t *testing.T) {
	score := 7
	result := LookupResult{
		Product: &Product{
			Barcode:         "5449000000996",
			ProductName:     "Coca-Cola",
			Brands:          "Coca-Cola",
			DataSource:      "OpenFoodFacts",
			ProcessingScore: &score,
		},
		Source: "OpenFoodFacts",
	}
	record := HistoryRecordFor("5449000000996", BarcodeInput, result)
	if !record.Found {
		t.Fatalf("expected found record")
	}
	if record.Barcode != "5449000000996" || record.ProductName != "Coca-Cola" {
		t.Fatalf("unexpected snapshot: %+v", record)
	}
	if record.ProcessingScore == nil || *record.ProcessingScore != 7 {
		t.Fatalf("expected processing score snapshot, got %+v", record.ProcessingScore)
	}
}

func TestHistoryRecordForKeepsErrorOnMiss(t *testing.T) {
	record := HistoryRecordFor("unknown thing", TextInput, LookupResult{
		Source: SourceNone,
		Err:    MessageNotFound,
	})
	if record.Found {
		t.Fatalf("expected not-found record")
	}
	if record.ErrorMessage != MessageNotFound {
		t.Fatalf("expected error message, got %q", record.ErrorMessage)
	}
}
