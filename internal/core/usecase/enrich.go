package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/processedornot/scanner/internal/core/domain"
	"github.com/processedornot/scanner/internal/core/ports"
)

// enricher attaches the model analyses to a resolved product. Analysis
// failures degrade to the fixed placeholder explanations and never block
// the base record.
type enricher struct {
	ingredients ports.IngredientAnalyzer
	glycemic    ports.GlycemicAnalyzer
	language    string
	logger      *slog.Logger
	now         func() time.Time
}

func (e *enricher) enrich(ctx context.Context, product *domain.Product) {
	if product == nil {
		return
	}

	if product.IngredientsText != "" && e.ingredients != nil {
		analysis, err := e.ingredients.AnalyzeIngredients(ctx, product.IngredientsText, product.ProductName, e.language)
		if err != nil {
			e.logger.Warn("processing analysis failed",
				slog.String("barcode", product.Barcode),
				slog.String("error", err.Error()),
			)
			product.ProcessingScore = nil
			product.ProcessingExplanation = domain.ProcessingUnavailableExplanation
		} else {
			score := domain.ClampProcessingScore(float64(analysis.Score))
			product.ProcessingScore = &score
			product.ProcessingExplanation = analysis.Explanation
		}
	}

	// The glycemic estimate works from ingredients alone as well as from
	// nutriment values, so either one unlocks the call.
	if (product.IngredientsText != "" || len(product.Nutriments) > 0) && e.glycemic != nil {
		analysis, err := e.glycemic.AnalyzeGlycemic(ctx, product.IngredientsText, product.ProductName, product.Nutriments, e.language)
		if err != nil {
			e.logger.Warn("glycemic analysis failed",
				slog.String("barcode", product.Barcode),
				slog.String("error", err.Error()),
			)
			product.GlycemicIndex = nil
			product.GlycemicLoad = nil
			product.GlycemicExplanation = domain.GlycemicUnavailableExplanation
		} else {
			normalized := analysis.Normalize()
			product.GlycemicIndex = &normalized.Index
			product.GlycemicLoad = &normalized.Load
			product.GlycemicExplanation = normalized.Explanation
		}
	}

	product.LastUpdated = e.now()
}
