package domain

import (
	"fmt"
	"strings"
	"time"
)

// Provenance separates records backed by an external food database from
// records fabricated by the language model for free-text queries.
type Provenance string

const (
	ProvenanceAuthoritative Provenance = "authoritative"
	ProvenanceSynthesized   Provenance = "synthesized"
)

// Well-known lookup sources that are not provider names.
const (
	SourceTextSearch        = "Text Search"
	SourceTextSearchGeneric = "Text Search (Generic)"
	SourceNone              = "none"
)

// Product is the unified record assembled by the cascade. Barcode is the
// cache key and stays stable for the life of the record; only the analysis
// fields may be filled in later by re-analysis.
type Product struct {
	Barcode         string             `json:"barcode"`
	ProductName     string             `json:"productName"`
	Brands          string             `json:"brands,omitempty"`
	ImageURL        string             `json:"imageUrl,omitempty"`
	IngredientsText string             `json:"ingredientsText,omitempty"`
	Nutriments      map[string]float64 `json:"nutriments,omitempty"`

	ProcessingScore       *int   `json:"processingScore,omitempty"`
	ProcessingExplanation string `json:"processingExplanation,omitempty"`

	GlycemicIndex       *float64 `json:"glycemicIndex,omitempty"`
	GlycemicLoad        *float64 `json:"glycemicLoad,omitempty"`
	GlycemicExplanation string   `json:"glycemicExplanation,omitempty"`

	DataSource  string     `json:"dataSource"`
	Provenance  Provenance `json:"provenance"`
	LastUpdated time.Time  `json:"lastUpdated"`
}

func (p *Product) IsSynthesized() bool {
	return p != nil && p.Provenance == ProvenanceSynthesized
}

// NeedsGlycemicBackfill reports whether the record has nutrient data but no
// glycemic estimate yet.
func (p *Product) NeedsGlycemicBackfill() bool {
	return p != nil && p.GlycemicIndex == nil && len(p.Nutriments) > 0
}

// SyntheticBarcode builds the identifier used for free-text results.
func SyntheticBarcode(now time.Time) string {
	return fmt.Sprintf("text-%d", now.UnixMilli())
}

// LookupResult is the resolver output. When Product is nil, Err carries the
// user-facing failure message and Source is SourceNone.
type LookupResult struct {
	Product *Product `json:"product"`
	Source  string   `json:"source"`
	Err     string   `json:"error,omitempty"`
}

// BrandFilters narrows free-text results by brand. Matching is
// case-insensitive substring in both directions, inherited behavior.
type BrandFilters struct {
	IncludeBrands []string `json:"includeBrands,omitempty"`
	ExcludeBrands []string `json:"excludeBrands,omitempty"`
}

func (f BrandFilters) Empty() bool {
	return len(f.IncludeBrands) == 0 && len(f.ExcludeBrands) == 0
}

// Allows checks the product's brand string against the filters. On
// rejection the returned reason names the rule that fired.
func (f BrandFilters) Allows(brands string) (string, bool) {
	for _, excluded := range f.ExcludeBrands {
		if brandMatches(brands, excluded) {
			return fmt.Sprintf("Product brand %q is excluded by filter %q", brands, excluded), false
		}
	}
	if len(f.IncludeBrands) == 0 {
		return "", true
	}
	for _, included := range f.IncludeBrands {
		if brandMatches(brands, included) {
			return "", true
		}
	}
	return fmt.Sprintf("Product brand %q does not match any included brand", brands), false
}

func brandMatches(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}
