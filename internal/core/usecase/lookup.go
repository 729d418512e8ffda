package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/processedornot/scanner/internal/core/domain"
	"github.com/processedornot/scanner/internal/core/ports"
)

// SourceManualEntry marks records created through the manual-entry endpoint.
const SourceManualEntry = "Manual Entry"

// LookupService wraps the resolver with the read-through cache, the
// append-only history log and the resolved-product event stream. Exactly
// one history record is written per lookup, whatever the outcome.
type LookupService struct {
	resolver  ports.ProductResolver
	store     ports.ProductStore
	history   ports.SearchHistoryStore
	publisher ports.EventPublisher
	enricher  enricher
	logger    *slog.Logger
	observer  Observer
	service   string
	now       func() time.Time
	newID     func() string
}

type LookupServiceDeps struct {
	Resolver    ports.ProductResolver
	Store       ports.ProductStore
	History     ports.SearchHistoryStore
	Publisher   ports.EventPublisher
	Ingredients ports.IngredientAnalyzer
	Glycemic    ports.GlycemicAnalyzer
	Language    string
	Logger      *slog.Logger
	Observer    Observer
	Service     string
	Now         func() time.Time
	NewID       func() string
}

func NewLookupService(deps LookupServiceDeps) *LookupService {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	if deps.Language == "" {
		deps.Language = "en"
	}
	return &LookupService{
		resolver:  deps.Resolver,
		store:     deps.Store,
		history:   deps.History,
		publisher: deps.Publisher,
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
		newID:    deps.NewID,
	}
}

// Lookup serves one product query: cache check for barcodes, cascade on
// miss, write-through of resolved products, then the history record.
func (s *LookupService) Lookup(ctx context.Context, input string, filters domain.BrandFilters) (domain.LookupResult, error) {
	query := strings.TrimSpace(input)
	if query == "" {
		return domain.LookupResult{}, domain.WrapError(domain.ErrInvalidInput, "lookup", errors.New("empty query"))
	}
	inputType := domain.DetectInputType(query)

	var result domain.LookupResult
	if inputType == domain.BarcodeInput {
		code := domain.NormalizeBarcode(query)
		cached, err := s.store.GetByBarcode(ctx, code)
		switch {
		case err == nil:
			s.observer.RecordCacheHit(s.service)
			result = domain.LookupResult{Product: cached, Source: cached.DataSource}
		case !domain.IsKind(err, domain.ErrProductNotFound):
			// A broken cache must not take lookups down with it.
			s.logger.Warn("cache read failed, falling through to the cascade",
				slog.String("barcode", code),
				slog.String("error", err.Error()),
			)
		}
	}

	if result.Product == nil {
		result = s.resolver.Resolve(ctx, query, filters)
		if result.Product != nil {
			if stored, err := s.store.Upsert(ctx, result.Product); err != nil {
				s.logger.Error("product write-through failed",
					slog.String("barcode", result.Product.Barcode),
					slog.String("error", err.Error()),
				)
			} else {
				result.Product = stored
			}
			s.publishResolved(ctx, result.Product.Barcode)
		}
	}

	s.appendHistory(ctx, query, inputType, result)
	s.observer.RecordLookup(s.service, string(inputType), lookupOutcome(result))
	return result, nil
}

// CreateManual stores a user-supplied record, running the analyses inline
// when the payload carries ingredients or nutriments.
func (s *LookupService) CreateManual(ctx context.Context, product domain.Product) (*domain.Product, error) {
	code := domain.NormalizeBarcode(product.Barcode)
	if code == "" || strings.TrimSpace(product.ProductName) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "create manual product", errors.New("barcode and productName are required"))
	}

	if _, err := s.store.GetByBarcode(ctx, code); err == nil {
		return nil, domain.WrapError(domain.ErrDuplicateProduct, "create manual product", errors.New(code))
	} else if !domain.IsKind(err, domain.ErrProductNotFound) {
		return nil, err
	}

	product.Barcode = code
	product.DataSource = SourceManualEntry
	product.Provenance = domain.ProvenanceAuthoritative
	s.enricher.enrich(ctx, &product)

	return s.store.Upsert(ctx, &product)
}

// ReanalyzeProcessing re-runs the processing analysis on the cached
// ingredients and persists the refreshed score.
func (s *LookupService) ReanalyzeProcessing(ctx context.Context, barcode string) (*domain.Product, error) {
	product, err := s.store.GetByBarcode(ctx, domain.NormalizeBarcode(barcode))
	if err != nil {
		return nil, err
	}
	if product.IngredientsText == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "reanalyze processing", errors.New("product has no ingredients to analyze"))
	}

	analysis, err := s.enricher.ingredients.AnalyzeIngredients(ctx, product.IngredientsText, product.ProductName, s.enricher.language)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateProcessing(ctx, product.Barcode, analysis); err != nil {
		return nil, err
	}

	score := domain.ClampProcessingScore(float64(analysis.Score))
	product.ProcessingScore = &score
	product.ProcessingExplanation = analysis.Explanation
	return product, nil
}

// ReanalyzeGlycemic re-runs the glycemic estimate on the cached record and
// persists it.
func (s *LookupService) ReanalyzeGlycemic(ctx context.Context, barcode string) (*domain.Product, error) {
	product, err := s.store.GetByBarcode(ctx, domain.NormalizeBarcode(barcode))
	if err != nil {
		return nil, err
	}
	if product.IngredientsText == "" && len(product.Nutriments) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "reanalyze glycemic", errors.New("product has neither ingredients nor nutriments"))
	}

	analysis, err := s.enricher.glycemic.AnalyzeGlycemic(ctx, product.IngredientsText, product.ProductName, product.Nutriments, s.enricher.language)
	if err != nil {
		return nil, err
	}
	analysis = analysis.Normalize()
	if err := s.store.UpdateGlycemic(ctx, product.Barcode, analysis); err != nil {
		return nil, err
	}

	product.GlycemicIndex = &analysis.Index
	product.GlycemicLoad = &analysis.Load
	product.GlycemicExplanation = analysis.Explanation
	return product, nil
}

func (s *LookupService) publishResolved(ctx context.Context, barcode string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishProductResolved(ctx, barcode); err != nil {
		s.logger.Warn("resolved-product event publish failed",
			slog.String("barcode", barcode),
			slog.String("error", err.Error()),
		)
	}
}

func (s *LookupService) appendHistory(ctx context.Context, query string, inputType domain.InputType, result domain.LookupResult) {
	record := domain.HistoryRecordFor(query, inputType, result)
	record.ID = s.newID()
	record.CreatedAt = s.now()

	if err := s.history.Append(ctx, record); err != nil {
		// History is an audit trail, not a lookup dependency.
		s.logger.Error("history append failed",
			slog.String("query", query),
			slog.String("error", err.Error()),
		)
		return
	}
	s.observer.RecordHistoryRecord(s.service, record.Found)
}

func lookupOutcome(result domain.LookupResult) string {
	if result.Product != nil {
		return "found"
	}
	return "not_found"
}
