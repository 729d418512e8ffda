package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/processedornot/scanner/internal/core/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeProvider struct {
	name    string
	product *domain.Product
	err     error
	calls   int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) FetchByBarcode(_ context.Context, barcode string) (*domain.Product, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.product != nil && f.product.Barcode == "" {
		f.product.Barcode = barcode
	}
	return f.product, nil
}

func (f *fakeProvider) SearchByName(context.Context, string) (*domain.Product, error) {
	return nil, nil
}

type fakeSynthesizer struct {
	expansion      domain.QueryExpansion
	expandErr      error
	generic        domain.GenericProduct
	genericErr     error
	ingredients    string
	ingredientsErr error

	expandCalls  int
	genericCalls int
	fetchCalls   int
}

func (f *fakeSynthesizer) ExpandQuery(context.Context, string) (domain.QueryExpansion, error) {
	f.expandCalls++
	return f.expansion, f.expandErr
}

func (f *fakeSynthesizer) SynthesizeProduct(context.Context, string) (domain.GenericProduct, error) {
	f.genericCalls++
	return f.generic, f.genericErr
}

func (f *fakeSynthesizer) FetchIngredients(context.Context, string) (string, error) {
	f.fetchCalls++
	return f.ingredients, f.ingredientsErr
}

type fakeIngredientAnalyzer struct {
	analysis domain.ProcessingAnalysis
	err      error
	calls    int
}

func (f *fakeIngredientAnalyzer) AnalyzeIngredients(context.Context, string, string, string) (domain.ProcessingAnalysis, error) {
	f.calls++
	return f.analysis, f.err
}

type fakeGlycemicAnalyzer struct {
	analysis domain.GlycemicAnalysis
	err      error
	calls    int
}

func (f *fakeGlycemicAnalyzer) AnalyzeGlycemic(context.Context, string, string, map[string]float64, string) (domain.GlycemicAnalysis, error) {
	f.calls++
	return f.analysis, f.err
}

type fakeStore struct {
	products map[string]*domain.Product
	getErr   error

	getCalls          int
	upserts           int
	processingUpdates []domain.ProcessingAnalysis
	glycemicUpdates   []domain.GlycemicAnalysis
}

func newFakeStore(products ...*domain.Product) *fakeStore {
	store := &fakeStore{products: make(map[string]*domain.Product)}
	for _, p := range products {
		store.products[p.Barcode] = p
	}
	return store
}

func (f *fakeStore) GetByBarcode(_ context.Context, barcode string) (*domain.Product, error) {
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	if product, ok := f.products[barcode]; ok {
		return product, nil
	}
	return nil, domain.WrapError(domain.ErrProductNotFound, "get product", errors.New(barcode))
}

func (f *fakeStore) Upsert(_ context.Context, product *domain.Product) (*domain.Product, error) {
	f.upserts++
	f.products[product.Barcode] = product
	return product, nil
}

func (f *fakeStore) UpdateProcessing(_ context.Context, _ string, analysis domain.ProcessingAnalysis) error {
	f.processingUpdates = append(f.processingUpdates, analysis)
	return nil
}

func (f *fakeStore) UpdateGlycemic(_ context.Context, _ string, analysis domain.GlycemicAnalysis) error {
	f.glycemicUpdates = append(f.glycemicUpdates, analysis)
	return nil
}

type fakeHistory struct {
	records []domain.SearchHistoryRecord
	err     error
}

func (f *fakeHistory) Append(_ context.Context, record domain.SearchHistoryRecord) error {
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, record)
	return nil
}

func (f *fakeHistory) ListRecent(context.Context, int) ([]domain.SearchHistoryRecord, error) {
	return f.records, nil
}

type fakePublisher struct {
	barcodes []string
	err      error
}

func (f *fakePublisher) PublishProductResolved(_ context.Context, barcode string) error {
	if f.err != nil {
		return f.err
	}
	f.barcodes = append(f.barcodes, barcode)
	return nil
}

type fakeResolver struct {
	result      domain.LookupResult
	calls       int
	lastInput   string
	lastFilters domain.BrandFilters
}

func (f *fakeResolver) Resolve(_ context.Context, input string, filters domain.BrandFilters) domain.LookupResult {
	f.calls++
	f.lastInput = input
	f.lastFilters = filters
	return f.result
}
