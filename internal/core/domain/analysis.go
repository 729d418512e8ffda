package domain

import "math"

// ProcessingCategories buckets ingredients by how industrially processed
// they are.
type ProcessingCategories struct {
	UltraProcessed     []string `json:"ultraProcessed"`
	Processed          []string `json:"processed"`
	MinimallyProcessed []string `json:"minimallyProcessed"`
}

// ProcessingAnalysis is the model's estimate of processing intensity.
// Score is always an integer in [0,10] after clamping.
type ProcessingAnalysis struct {
	Score       int                  `json:"score"`
	Explanation string               `json:"explanation"`
	Categories  ProcessingCategories `json:"categories"`
}

type GlycemicCategory string

const (
	GlycemicLow    GlycemicCategory = "Low"
	GlycemicMedium GlycemicCategory = "Medium"
	GlycemicHigh   GlycemicCategory = "High"
)

// GlycemicAnalysis is the model's estimate of blood-glucose impact.
// Category is derived from the clamped index, never taken from the model.
type GlycemicAnalysis struct {
	Index             float64          `json:"glycemicIndex"`
	Load              float64          `json:"glycemicLoad"`
	Category          GlycemicCategory `json:"category"`
	Explanation       string           `json:"explanation"`
	ImpactDescription string           `json:"impactDescription"`
}

// Placeholder explanations substituted when an analysis call fails.
const (
	ProcessingUnavailableExplanation = "Unable to analyze ingredients at this time"
	GlycemicUnavailableExplanation   = "Unable to analyze glycemic impact at this time"
)

// ClampProcessingScore rounds the raw model output and forces it into [0,10].
func ClampProcessingScore(raw float64) int {
	score := int(math.Round(raw))
	if score < 0 {
		return 0
	}
	if score > 10 {
		return 10
	}
	return score
}

// ClampGlycemicIndex forces the raw index into [0,100].
func ClampGlycemicIndex(raw float64) float64 {
	return clampFloat(raw, 0, 100)
}

// ClampGlycemicLoad forces the raw load into [0,40].
func ClampGlycemicLoad(raw float64) float64 {
	return clampFloat(raw, 0, 40)
}

// GlycemicCategoryFor maps a clamped index to its category: >=70 High,
// >=56 Medium, otherwise Low.
func GlycemicCategoryFor(index float64) GlycemicCategory {
	switch {
	case index >= 70:
		return GlycemicHigh
	case index >= 56:
		return GlycemicMedium
	default:
		return GlycemicLow
	}
}

// Normalize clamps all numeric fields and recomputes the category. Called on
// every analysis result regardless of what the model claimed.
func (g GlycemicAnalysis) Normalize() GlycemicAnalysis {
	g.Index = ClampGlycemicIndex(g.Index)
	g.Load = ClampGlycemicLoad(g.Load)
	g.Category = GlycemicCategoryFor(g.Index)
	return g
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
