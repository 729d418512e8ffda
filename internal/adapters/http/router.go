package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/processedornot/scanner/internal/core/domain"
	"github.com/processedornot/scanner/internal/core/ports"
	"github.com/processedornot/scanner/internal/observability/metrics"
)

type Router struct {
	service      ports.ProductLookupService
	history      ports.SearchHistoryStore
	metrics      *metrics.HTTPServerMetrics
	logger       *slog.Logger
	serviceName  string
	historyLimit int
	exportLimit  int
	validate     func(http.Handler) http.Handler
}

type RouterDeps struct {
	Service      ports.ProductLookupService
	History      ports.SearchHistoryStore
	Metrics      *metrics.HTTPServerMetrics
	Logger       *slog.Logger
	ServiceName  string
	HistoryLimit int
	ExportLimit  int
}

func NewRouter(deps RouterDeps) (*Router, error) {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.HistoryLimit <= 0 {
		deps.HistoryLimit = 50
	}
	if deps.ExportLimit <= 0 {
		deps.ExportLimit = 5000
	}
	validate, err := newOpenAPIValidator()
	if err != nil {
		return nil, err
	}
	return &Router{
		service:      deps.Service,
		history:      deps.History,
		metrics:      deps.Metrics,
		logger:       deps.Logger,
		serviceName:  deps.ServiceName,
		historyLimit: deps.HistoryLimit,
		exportLimit:  deps.ExportLimit,
		validate:     validate,
	}, nil
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}
	mux.HandleFunc("/api/products", rt.createProduct)
	mux.HandleFunc("/api/products/", rt.productSubtree)
	mux.HandleFunc("/api/history", rt.listHistory)
	mux.HandleFunc("/api/history/export", rt.exportHistory)

	var handler http.Handler = mux
	if rt.validate != nil {
		handler = rt.validate(handler)
	}
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// productSubtree fans /api/products/... out to search, lookup and the two
// reanalysis endpoints.
func (rt *Router) productSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/products/")
	if rest == "search" {
		rt.searchProducts(w, r)
		return
	}

	segments := strings.Split(strings.Trim(rest, "/"), "/")
	switch {
	case len(segments) == 1 && segments[0] != "":
		rt.lookupProduct(w, r, segments[0])
	case len(segments) == 2 && segments[1] == "analysis":
		rt.reanalyzeProcessing(w, r, segments[0])
	case len(segments) == 2 && segments[1] == "glycemic":
		rt.reanalyzeGlycemic(w, r, segments[0])
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown resource"})
	}
}

func (rt *Router) lookupProduct(w http.ResponseWriter, r *http.Request, barcode string) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if domain.DetectInputType(barcode) != domain.BarcodeInput {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "barcode must be 6-18 digits"})
		return
	}

	result, err := rt.service.Lookup(r.Context(), barcode, domain.BrandFilters{})
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.writeLookupResult(w, result)
}

func (rt *Router) searchProducts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Query   string              `json:"query"`
		Filters domain.BrandFilters `json:"filters"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return
	}

	result, err := rt.service.Lookup(r.Context(), req.Query, req.Filters)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.writeLookupResult(w, result)
}

func (rt *Router) reanalyzeProcessing(w http.ResponseWriter, r *http.Request, barcode string) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	product, err := rt.service.ReanalyzeProcessing(r.Context(), barcode)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (rt *Router) reanalyzeGlycemic(w http.ResponseWriter, r *http.Request, barcode string) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	product, err := rt.service.ReanalyzeGlycemic(r.Context(), barcode)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (rt *Router) createProduct(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var product domain.Product
	if err := json.NewDecoder(r.Body).Decode(&product); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	created, err := rt.service.CreateManual(r.Context(), product)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (rt *Router) listHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	limit := rt.historyLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = min(parsed, rt.exportLimit)
	}

	records, err := rt.history.ListRecent(r.Context(), limit)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

// writeLookupResult renders the cascade outcome: a total miss is a 404 that
// invites manual entry, everything else is the product with its source.
func (rt *Router) writeLookupResult(w http.ResponseWriter, result domain.LookupResult) {
	if result.Product == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"message":          result.Err,
			"source":           result.Source,
			"allowManualEntry": true,
		})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		rt.logger.Error("request failed",
			slog.String("request_id", requestIDFromContext(r.Context())),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
