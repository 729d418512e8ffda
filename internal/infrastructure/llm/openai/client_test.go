package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/processedornot/scanner/internal/core/domain"
)

func completionServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		body := map[string]any{
			"id":     "chatcmpl-test",
			"object": "chat.completion",
			"model":  "gpt-4o-mini",
			"choices": []map[string]any{
				{
					"index":         0,
					"finish_reason": "stop",
					"message": map[string]any{
						"role":    "assistant",
						"content": content,
					},
				},
			},
		}
		if err := json.NewEncoder(w).Encode(body); err != nil {
			t.Errorf("encode completion: %v", err)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestAnalyzeIngredientsClampsScore(t *testing.T) {
	server := completionServer(t, `{
		"score": 17.8,
		"explanation": "Mostly additives.",
		"categories": {"ultraProcessed": ["e150d"], "processed": [], "minimallyProcessed": ["water"]}
	}`)

	client := New("test-key", server.URL, "gpt-4o-mini", nil)
	analysis, err := client.AnalyzeIngredients(context.Background(), "water, e150d", "Cola", "en")
	if err != nil {
		t.Fatalf("AnalyzeIngredients() error = %v", err)
	}
	if analysis.Score != 10 {
		t.Fatalf("score must be clamped to 10, got %d", analysis.Score)
	}
	if analysis.Explanation != "Mostly additives." {
		t.Fatalf("unexpected explanation %q", analysis.Explanation)
	}
	if len(analysis.Categories.UltraProcessed) != 1 || analysis.Categories.Processed == nil {
		t.Fatalf("unexpected categories: %+v", analysis.Categories)
	}
}

func TestAnalyzeGlycemicRecomputesCategory(t *testing.T) {
	server := completionServer(t, `{
		"glycemicIndex": 104,
		"glycemicLoad": 55,
		"category": "Low",
		"explanation": "Pure glucose syrup.",
		"impactDescription": "Sharp blood sugar spike."
	}`)

	client := New("test-key", server.URL, "gpt-4o-mini", nil)
	analysis, err := client.AnalyzeGlycemic(context.Background(), "glucose syrup", "Syrup", nil, "en")
	if err != nil {
		t.Fatalf("AnalyzeGlycemic() error = %v", err)
	}
	if analysis.Index != 100 || analysis.Load != 40 {
		t.Fatalf("expected clamped index/load, got %v/%v", analysis.Index, analysis.Load)
	}
	if analysis.Category != domain.GlycemicHigh {
		t.Fatalf("category must be recomputed from the clamped index, got %q", analysis.Category)
	}
}

func TestSynthesizeProductMapsNutrients(t *testing.T) {
	server := completionServer(t, `{
		"name": "Greek Yogurt",
		"category": "Dairy",
		"description": "Strained yogurt with a thick texture.",
		"ingredients": "milk, live cultures",
		"nutriments": {
			"energyKcal": 97, "proteins": 9, "carbohydrates": 3.9,
			"sugars": 3.9, "fat": 5, "saturatedFat": 3.4, "fiber": 0, "salt": 0.1
		}
	}`)

	client := New("test-key", server.URL, "gpt-4o-mini", nil)
	generic, err := client.SynthesizeProduct(context.Background(), "greek yogurt")
	if err != nil {
		t.Fatalf("SynthesizeProduct() error = %v", err)
	}
	if generic.Name != "Greek Yogurt" {
		t.Fatalf("unexpected name %q", generic.Name)
	}
	if generic.Nutriments["proteins_100g"] != 9 {
		t.Fatalf("expected canonical nutrient keys, got %v", generic.Nutriments)
	}
}

func TestSynthesizeProductRejectsEmptyName(t *testing.T) {
	server := completionServer(t, `{"name": "  ", "category": "", "description": "", "ingredients": "", "nutriments": {}}`)

	client := New("test-key", server.URL, "gpt-4o-mini", nil)
	if _, err := client.SynthesizeProduct(context.Background(), "xyzzy"); err == nil {
		t.Fatalf("expected an error for an empty model answer")
	}
}

func TestFetchIngredientsTrims(t *testing.T) {
	server := completionServer(t, `{"ingredients": "  milk, live cultures  "}`)

	client := New("test-key", server.URL, "gpt-4o-mini", nil)
	got, err := client.FetchIngredients(context.Background(), "greek yogurt")
	if err != nil {
		t.Fatalf("FetchIngredients() error = %v", err)
	}
	if got != "milk, live cultures" {
		t.Fatalf("unexpected ingredients %q", got)
	}
}

type fakeObserver struct {
	events []string
}

func (f *fakeObserver) RecordLLMRequest(service, operation, status string) {
	f.events = append(f.events, service+"/"+operation+"/"+status)
}

func TestObserverSeesEveryModelCall(t *testing.T) {
	server := completionServer(t, `{"ingredients": "milk, live cultures"}`)
	observer := &fakeObserver{}

	client := New("test-key", server.URL, "gpt-4o-mini", nil).WithObserver(observer, "api")
	if _, err := client.FetchIngredients(context.Background(), "greek yogurt"); err != nil {
		t.Fatalf("FetchIngredients() error = %v", err)
	}
	if len(observer.events) != 1 || observer.events[0] != "api/llm.fetch_ingredients/ok" {
		t.Fatalf("unexpected events %v", observer.events)
	}

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error": {"message": "overloaded"}}`, http.StatusServiceUnavailable)
	}))
	t.Cleanup(failing.Close)

	client = New("test-key", failing.URL, "gpt-4o-mini", nil).WithObserver(observer, "api")
	if _, err := client.ExpandQuery(context.Background(), "cola"); err == nil {
		t.Fatalf("expected an error")
	}
	if len(observer.events) != 2 || observer.events[1] != "api/llm.expand_query/error" {
		t.Fatalf("failed calls must be recorded too, got %v", observer.events)
	}
}

func TestServerFailureIsTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error": {"message": "overloaded"}}`, http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	client := New("test-key", server.URL, "gpt-4o-mini", nil)
	_, err := client.ExpandQuery(context.Background(), "cola")
	if err == nil {
		t.Fatalf("expected an error")
	}
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("5xx from the model API must be tagged temporary, got %v", err)
	}
}
