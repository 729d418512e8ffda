package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/processedornot/scanner/internal/core/domain"
)

type fakeLookupService struct {
	result      domain.LookupResult
	lookupErr   error
	lastInput   string
	lastFilters domain.BrandFilters

	created   *domain.Product
	createErr error

	reanalyzed   *domain.Product
	reanalyzeErr error
}

func (f *fakeLookupService) Lookup(_ context.Context, input string, filters domain.BrandFilters) (domain.LookupResult, error) {
	f.lastInput = input
	f.lastFilters = filters
	return f.result, f.lookupErr
}

func (f *fakeLookupService) CreateManual(_ context.Context, product domain.Product) (*domain.Product, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = &product
	return &product, nil
}

func (f *fakeLookupService) ReanalyzeProcessing(context.Context, string) (*domain.Product, error) {
	return f.reanalyzed, f.reanalyzeErr
}

func (f *fakeLookupService) ReanalyzeGlycemic(context.Context, string) (*domain.Product, error) {
	return f.reanalyzed, f.reanalyzeErr
}

type fakeHistoryStore struct {
	records   []domain.SearchHistoryRecord
	lastLimit int
}

func (f *fakeHistoryStore) Append(context.Context, domain.SearchHistoryRecord) error {
	return nil
}

func (f *fakeHistoryStore) ListRecent(_ context.Context, limit int) ([]domain.SearchHistoryRecord, error) {
	f.lastLimit = limit
	return f.records, nil
}

func newTestRouter(t *testing.T, service *fakeLookupService, history *fakeHistoryStore) http.Handler {
	t.Helper()
	router, err := NewRouter(RouterDeps{
		Service:     service,
		History:     history,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		ServiceName: "test",
	})
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}
	return router.Handler()
}

func TestLookupProductHit(t *testing.T) {
	score := 8
	service := &fakeLookupService{result: domain.LookupResult{
		Product: &domain.Product{
			Barcode:         "5449000000996",
			ProductName:     "Coca-Cola",
			ProcessingScore: &score,
			DataSource:      "OpenFoodFacts",
			Provenance:      domain.ProvenanceAuthoritative,
		},
		Source: "OpenFoodFacts",
	}}
	handler := newTestRouter(t, service, &fakeHistoryStore{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products/5449000000996", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Product domain.Product `json:"product"`
		Source  string         `json:"source"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Source != "OpenFoodFacts" || body.Product.ProductName != "Coca-Cola" {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected a request id header")
	}
}

func TestLookupProductMissInvitesManualEntry(t *testing.T) {
	service := &fakeLookupService{result: domain.LookupResult{
		Source: domain.SourceNone,
		Err:    domain.MessageNotFound,
	}}
	handler := newTestRouter(t, service, &fakeHistoryStore{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products/0000000000000", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Message          string `json:"message"`
		Source           string `json:"source"`
		AllowManualEntry bool   `json:"allowManualEntry"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !body.AllowManualEntry || body.Message != domain.MessageNotFound || body.Source != domain.SourceNone {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestLookupProductRejectsNonBarcode(t *testing.T) {
	service := &fakeLookupService{}
	handler := newTestRouter(t, service, &fakeHistoryStore{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products/12ab56", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if service.lastInput != "" {
		t.Fatalf("service must not be called for invalid input")
	}
}

func TestSearchProductsPassesFilters(t *testing.T) {
	service := &fakeLookupService{result: domain.LookupResult{
		Product: &domain.Product{
			Barcode:     "text-1700000000000",
			ProductName: "Greek Yogurt",
			DataSource:  domain.SourceTextSearch,
			Provenance:  domain.ProvenanceSynthesized,
		},
		Source: domain.SourceTextSearch,
	}}
	handler := newTestRouter(t, service, &fakeHistoryStore{})

	body := `{"query": "Greek Yogurt", "filters": {"excludeBrands": ["Lidl"]}}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/products/search", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if service.lastInput != "Greek Yogurt" {
		t.Fatalf("unexpected query %q", service.lastInput)
	}
	if len(service.lastFilters.ExcludeBrands) != 1 || service.lastFilters.ExcludeBrands[0] != "Lidl" {
		t.Fatalf("filters not passed through: %+v", service.lastFilters)
	}
}

func TestSearchProductsRequiresQuery(t *testing.T) {
	handler := newTestRouter(t, &fakeLookupService{}, &fakeHistoryStore{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/products/search", strings.NewReader(`{"filters": {}}`))
	req.Header.Set("Content-Type", "application/json")
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("contract violation must be a 400, got %d", rec.Code)
	}
}

func TestCreateProductDuplicate(t *testing.T) {
	service := &fakeLookupService{createErr: domain.WrapError(domain.ErrDuplicateProduct, "create manual product", errors.New("5449000000996"))}
	handler := newTestRouter(t, service, &fakeHistoryStore{})

	body := `{"barcode": "5449000000996", "productName": "Cola clone"}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/products", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate must map to 409, got %d", rec.Code)
	}
}

func TestCreateProductCreated(t *testing.T) {
	service := &fakeLookupService{}
	handler := newTestRouter(t, service, &fakeHistoryStore{})

	body := `{"barcode": "40840000101", "productName": "Homemade granola", "ingredientsText": "oats, honey"}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/products", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if service.created == nil || service.created.ProductName != "Homemade granola" {
		t.Fatalf("payload not passed through: %+v", service.created)
	}
}

func TestReanalyzeTemporaryFailureMapsTo503(t *testing.T) {
	service := &fakeLookupService{reanalyzeErr: domain.WrapError(domain.ErrTemporary, "llm.analyze_ingredients", errors.New("circuit open"))}
	handler := newTestRouter(t, service, &fakeHistoryStore{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products/5449000000996/analysis", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("open circuit must map to 503, got %d", rec.Code)
	}
}

func TestListHistoryUsesDefaultLimit(t *testing.T) {
	history := &fakeHistoryStore{records: []domain.SearchHistoryRecord{
		{ID: "h-1", Query: "5449000000996", InputType: domain.BarcodeInput, Found: true, Source: "OpenFoodFacts", CreatedAt: time.Now()},
	}}
	handler := newTestRouter(t, &fakeLookupService{}, history)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if history.lastLimit != 50 {
		t.Fatalf("expected the default limit, got %d", history.lastLimit)
	}
}

func TestExportHistoryWritesWorkbook(t *testing.T) {
	history := &fakeHistoryStore{records: []domain.SearchHistoryRecord{
		{ID: "h-1", Query: "Greek Yogurt", InputType: domain.TextInput, Found: true, ProductName: "Greek Yogurt", Source: domain.SourceTextSearch, CreatedAt: time.Now()},
	}}
	handler := newTestRouter(t, &fakeLookupService{}, history)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history/export", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "spreadsheetml") {
		t.Fatalf("unexpected content type %q", got)
	}

	workbook, err := excelize.OpenReader(rec.Body)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer workbook.Close()

	query, err := workbook.GetCellValue(exportSheet, "B2")
	if err != nil {
		t.Fatalf("read cell: %v", err)
	}
	if query != "Greek Yogurt" {
		t.Fatalf("unexpected cell value %q", query)
	}
}

func TestHealthz(t *testing.T) {
	handler := newTestRouter(t, &fakeLookupService{}, &fakeHistoryStore{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}
