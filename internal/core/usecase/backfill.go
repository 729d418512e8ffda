package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/processedornot/scanner/internal/core/domain"
	"github.com/processedornot/scanner/internal/core/ports"
)

// GlycemicBackfill fills in missing glycemic estimates for cached products,
// driven by resolved-product events. A record that vanished or already has
// an estimate is skipped, not an error; replayed events stay harmless.
type GlycemicBackfill struct {
	store    ports.ProductStore
	glycemic ports.GlycemicAnalyzer
	language string
	logger   *slog.Logger
	now      func() time.Time
}

func NewGlycemicBackfill(store ports.ProductStore, glycemic ports.GlycemicAnalyzer, language string, logger *slog.Logger) *GlycemicBackfill {
	if logger == nil {
		logger = slog.Default()
	}
	if language == "" {
		language = "en"
	}
	return &GlycemicBackfill{
		store:    store,
		glycemic: glycemic,
		language: language,
		logger:   logger,
		now:      time.Now,
	}
}

func (b *GlycemicBackfill) BackfillByBarcode(ctx context.Context, barcode string) error {
	product, err := b.store.GetByBarcode(ctx, domain.NormalizeBarcode(barcode))
	if err != nil {
		if domain.IsKind(err, domain.ErrProductNotFound) {
			b.logger.Debug("backfill target vanished", slog.String("barcode", barcode))
			return nil
		}
		return err
	}
	if !product.NeedsGlycemicBackfill() {
		return nil
	}

	analysis, err := b.glycemic.AnalyzeGlycemic(ctx, product.IngredientsText, product.ProductName, product.Nutriments, b.language)
	if err != nil {
		return err
	}
	if err := b.store.UpdateGlycemic(ctx, product.Barcode, analysis.Normalize()); err != nil {
		return err
	}

	b.logger.Info("glycemic estimate backfilled",
		slog.String("barcode", product.Barcode),
		slog.Float64("index", domain.ClampGlycemicIndex(analysis.Index)),
	)
	return nil
}
