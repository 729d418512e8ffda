package ports

import (
	"context"

	"github.com/processedornot/scanner/internal/core/domain"
)

// ProductProvider adapts one external food database. A nil product with a
// nil error is an expected miss; errors are soft failures the cascade logs
// and skips.
type ProductProvider interface {
	Name() string
	FetchByBarcode(ctx context.Context, barcode string) (*domain.Product, error)
	SearchByName(ctx context.Context, name string) (*domain.Product, error)
}

// ProductStore is the read-through cache of resolved products.
type ProductStore interface {
	GetByBarcode(ctx context.Context, barcode string) (*domain.Product, error)
	Upsert(ctx context.Context, product *domain.Product) (*domain.Product, error)
	UpdateProcessing(ctx context.Context, barcode string, analysis domain.ProcessingAnalysis) error
	UpdateGlycemic(ctx context.Context, barcode string, analysis domain.GlycemicAnalysis) error
}

// SearchHistoryStore is the append-only lookup audit log.
type SearchHistoryStore interface {
	Append(ctx context.Context, record domain.SearchHistoryRecord) error
	ListRecent(ctx context.Context, limit int) ([]domain.SearchHistoryRecord, error)
}

// IngredientAnalyzer scores industrial processing intensity.
type IngredientAnalyzer interface {
	AnalyzeIngredients(ctx context.Context, ingredientsText, productName, language string) (domain.ProcessingAnalysis, error)
}

// GlycemicAnalyzer estimates glycemic index and load.
type GlycemicAnalyzer interface {
	AnalyzeGlycemic(ctx context.Context, ingredientsText, productName string, nutriments map[string]float64, language string) (domain.GlycemicAnalysis, error)
}

// ProductSynthesizer exposes the model calls behind the free-text path.
type ProductSynthesizer interface {
	ExpandQuery(ctx context.Context, query string) (domain.QueryExpansion, error)
	SynthesizeProduct(ctx context.Context, query string) (domain.GenericProduct, error)
	FetchIngredients(ctx context.Context, productName string) (string, error)
}

// EventPublisher announces successfully resolved products for asynchronous
// enrichment.
type EventPublisher interface {
	PublishProductResolved(ctx context.Context, barcode string) error
}

// EventSubscriber feeds resolved-product events to the backfill worker.
type EventSubscriber interface {
	SubscribeProductResolved(ctx context.Context, handler func(context.Context, string) error) error
}
