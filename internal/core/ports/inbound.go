package ports

import (
	"context"

	"github.com/processedornot/scanner/internal/core/domain"
)

// ProductResolver runs the provider cascade for one query, without touching
// the cache or the history log.
type ProductResolver interface {
	Resolve(ctx context.Context, input string, filters domain.BrandFilters) domain.LookupResult
}

// ProductLookupService is the inbound contract the HTTP layer calls: cache
// check, resolve on miss, write-through, history record.
type ProductLookupService interface {
	Lookup(ctx context.Context, input string, filters domain.BrandFilters) (domain.LookupResult, error)
	CreateManual(ctx context.Context, product domain.Product) (*domain.Product, error)
	ReanalyzeProcessing(ctx context.Context, barcode string) (*domain.Product, error)
	ReanalyzeGlycemic(ctx context.Context, barcode string) (*domain.Product, error)
}

// GlycemicBackfiller fills missing glycemic estimates for cached products.
type GlycemicBackfiller interface {
	BackfillByBarcode(ctx context.Context, barcode string) error
}
