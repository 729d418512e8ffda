package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/processedornot/scanner/internal/core/domain"
	"github.com/processedornot/scanner/internal/core/ports"
)

// Resolver walks the provider cascade for one query. It never touches the
// cache or the history log; LookupService layers those around it.
type Resolver struct {
	providers   []ports.ProductProvider
	synthesizer ports.ProductSynthesizer
	enricher    enricher
	logger      *slog.Logger
	observer    Observer
	service     string
	now         func() time.Time
}

// ResolverDeps carries the resolver's collaborators. Language defaults to
// "en", Now to time.Now.
type ResolverDeps struct {
	Providers   []ports.ProductProvider
	Synthesizer ports.ProductSynthesizer
	Ingredients ports.IngredientAnalyzer
	Glycemic    ports.GlycemicAnalyzer
	Language    string
	Logger      *slog.Logger
	Observer    Observer
	Service     string
	Now         func() time.Time
}

func NewResolver(deps ResolverDeps) *Resolver {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Language == "" {
		deps.Language = "en"
	}
	return &Resolver{
		providers:   deps.Providers,
		synthesizer: deps.Synthesizer,
		enricher: enricher{
			ingredients: deps.Ingredients,
			glycemic:    deps.Glycemic,
			language:    deps.Language,
			logger:      deps.Logger,
			now:         deps.Now,
		},
		logger:   deps.Logger,
		observer: observerOrNop(deps.Observer),
		service:  deps.Service,
		now:      deps.Now,
	}
}

// Resolve classifies the input and runs the matching path. The resolver is
// built to return something rather than fail: provider errors are soft
// misses and synthesizer failures fall back to a bare generic record.
func (r *Resolver) Resolve(ctx context.Context, input string, filters domain.BrandFilters) domain.LookupResult {
	query := strings.TrimSpace(input)
	if query == "" {
		return domain.LookupResult{Source: domain.SourceNone, Err: "empty query"}
	}
	if domain.DetectInputType(query) == domain.BarcodeInput {
		return r.resolveBarcode(ctx, domain.NormalizeBarcode(query))
	}
	return r.resolveText(ctx, query, filters)
}

func (r *Resolver) resolveBarcode(ctx context.Context, code string) domain.LookupResult {
	start := r.now()
	attempts := 0

	for _, provider := range r.providers {
		if ctx.Err() != nil {
			break
		}
		attempts++

		product, err := provider.FetchByBarcode(ctx, code)
		outcome := domain.OutcomeFor(provider.Name(), product, err)
		r.observer.RecordProviderAttempt(r.service, outcome.Provider, string(outcome.Status))

		switch outcome.Status {
		case domain.OutcomeHit:
			r.logger.Info("barcode resolved",
				slog.String("barcode", code),
				slog.String("provider", outcome.Provider),
				slog.Int("attempts", attempts),
			)
			r.enricher.enrich(ctx, outcome.Product)
			r.observer.RecordCascade(r.service, "barcode", attempts, time.Since(start))
			return domain.LookupResult{Product: outcome.Product, Source: outcome.Provider}
		case domain.OutcomeError:
			r.logger.Warn("provider lookup failed",
				slog.String("barcode", code),
				slog.String("provider", outcome.Provider),
				slog.String("error", outcome.Err.Error()),
			)
		}
	}

	r.observer.RecordCascade(r.service, "barcode", attempts, time.Since(start))
	return domain.LookupResult{Source: domain.SourceNone, Err: domain.MessageNotFound}
}

func (r *Resolver) resolveText(ctx context.Context, query string, filters domain.BrandFilters) domain.LookupResult {
	start := r.now()

	// Keyword expansion is diagnostics only; the terms are logged, not fed
	// back into provider search.
	if expansion, err := r.synthesizer.ExpandQuery(ctx, query); err != nil {
		r.logger.Debug("query expansion failed",
			slog.String("query", query),
			slog.String("error", err.Error()),
		)
	} else {
		r.logger.Info("query expanded",
			slog.String("query", query),
			slog.Any("keywords", expansion.Keywords),
			slog.String("category", expansion.Category),
			slog.String("language", expansion.Language),
		)
	}

	source := domain.SourceTextSearch
	product := &domain.Product{
		Barcode:    domain.SyntheticBarcode(r.now()),
		DataSource: source,
		Provenance: domain.ProvenanceSynthesized,
	}

	generic, err := r.synthesizer.SynthesizeProduct(ctx, query)
	if err != nil {
		r.logger.Warn("product fabrication failed, falling back to bare record",
			slog.String("query", query),
			slog.String("error", err.Error()),
		)
		source = domain.SourceTextSearchGeneric
		product.DataSource = source
		product.ProductName = query
	} else {
		product.ProductName = generic.Name
		product.Brands = generic.Brands
		product.IngredientsText = generic.IngredientsText
		product.Nutriments = generic.Nutriments
	}

	if reason, ok := filters.Allows(product.Brands); !ok {
		r.observer.RecordCascade(r.service, "text", 1, time.Since(start))
		return domain.LookupResult{Source: domain.SourceNone, Err: reason}
	}

	if product.IngredientsText == "" && len(product.Nutriments) == 0 {
		if ingredients, err := r.synthesizer.FetchIngredients(ctx, product.ProductName); err != nil {
			r.logger.Debug("ingredients lookup failed",
				slog.String("product", product.ProductName),
				slog.String("error", err.Error()),
			)
		} else {
			product.IngredientsText = ingredients
		}
	}

	r.enricher.enrich(ctx, product)
	r.observer.RecordCascade(r.service, "text", 1, time.Since(start))
	return domain.LookupResult{Product: product, Source: source}
}
