package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"

	"github.com/processedornot/scanner/internal/core/domain"
	"github.com/processedornot/scanner/internal/infrastructure/resilience"
)

// Client implements the analyzer and synthesizer ports on the OpenAI chat
// completions API. Every call requests a strict JSON schema response and
// the numeric outputs are clamped in domain code no matter what the model
// returns.
type Client struct {
	api      openai.Client
	model    string
	executor *resilience.Executor
	observer Observer
	service  string
}

// Observer receives one event per model call, after retries settled.
type Observer interface {
	RecordLLMRequest(service, operation, status string)
}

func New(apiKey, baseURL, model string, executor *resilience.Executor) *Client {
	// Retries are handled by the executor, not by the SDK.
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Client{
		api:      openai.NewClient(opts...),
		model:    model,
		executor: executor,
	}
}

// WithObserver registers a metrics hook for model calls.
func (c *Client) WithObserver(observer Observer, service string) *Client {
	c.observer = observer
	c.service = service
	return c
}

type processingResponse struct {
	Score       float64 `json:"score" jsonschema:"description=Processing intensity from 0 (unprocessed) to 10 (ultra-processed)."`
	Explanation string  `json:"explanation" jsonschema:"description=Short consumer-facing explanation of the score."`
	Categories  struct {
		UltraProcessed     []string `json:"ultraProcessed" jsonschema:"description=Ingredients typical of ultra-processed food."`
		Processed          []string `json:"processed" jsonschema:"description=Ingredients typical of processed food."`
		MinimallyProcessed []string `json:"minimallyProcessed" jsonschema:"description=Whole or minimally processed ingredients."`
	} `json:"categories"`
}

func (c *Client) AnalyzeIngredients(ctx context.Context, ingredientsText, productName, language string) (domain.ProcessingAnalysis, error) {
	var raw processingResponse
	err := c.complete(ctx, "llm.analyze_ingredients",
		processingSystemPrompt,
		processingUserPrompt(ingredientsText, productName, language),
		schemaFor[processingResponse]("processing_analysis", "ingredient processing classification"),
		&raw,
	)
	if err != nil {
		return domain.ProcessingAnalysis{}, err
	}

	return domain.ProcessingAnalysis{
		Score:       domain.ClampProcessingScore(raw.Score),
		Explanation: raw.Explanation,
		Categories: domain.ProcessingCategories{
			UltraProcessed:     emptyIfNil(raw.Categories.UltraProcessed),
			Processed:          emptyIfNil(raw.Categories.Processed),
			MinimallyProcessed: emptyIfNil(raw.Categories.MinimallyProcessed),
		},
	}, nil
}

type glycemicResponse struct {
	GlycemicIndex     float64 `json:"glycemicIndex" jsonschema:"description=Estimated glycemic index 0-100."`
	GlycemicLoad      float64 `json:"glycemicLoad" jsonschema:"description=Estimated glycemic load per serving 0-40."`
	Category          string  `json:"category" jsonschema:"description=Low Medium or High."`
	Explanation       string  `json:"explanation" jsonschema:"description=Reasoning behind the estimate."`
	ImpactDescription string  `json:"impactDescription" jsonschema:"description=Plain-language blood sugar impact summary."`
}

func (c *Client) AnalyzeGlycemic(ctx context.Context, ingredientsText, productName string, nutriments map[string]float64, language string) (domain.GlycemicAnalysis, error) {
	var raw glycemicResponse
	err := c.complete(ctx, "llm.analyze_glycemic",
		glycemicSystemPrompt,
		glycemicUserPrompt(ingredientsText, productName, nutriments, language),
		schemaFor[glycemicResponse]("glycemic_analysis", "glycemic index and load estimation"),
		&raw,
	)
	if err != nil {
		return domain.GlycemicAnalysis{}, err
	}

	// The model's own category claim is discarded by Normalize.
	return domain.GlycemicAnalysis{
		Index:             raw.GlycemicIndex,
		Load:              raw.GlycemicLoad,
		Explanation:       raw.Explanation,
		ImpactDescription: raw.ImpactDescription,
	}.Normalize(), nil
}

type expansionResponse struct {
	Keywords []string `json:"keywords" jsonschema:"description=3 to 5 alternate search terms."`
	Category string   `json:"category" jsonschema:"description=Best-guess food category."`
	Language string   `json:"language" jsonschema:"description=Detected query language as ISO 639-1."`
}

func (c *Client) ExpandQuery(ctx context.Context, query string) (domain.QueryExpansion, error) {
	var raw expansionResponse
	err := c.complete(ctx, "llm.expand_query",
		expansionSystemPrompt,
		expansionUserPrompt(query),
		schemaFor[expansionResponse]("query_expansion", "search keyword expansion"),
		&raw,
	)
	if err != nil {
		return domain.QueryExpansion{}, err
	}
	return domain.QueryExpansion{
		Keywords: emptyIfNil(raw.Keywords),
		Category: raw.Category,
		Language: raw.Language,
	}, nil
}

type genericProductResponse struct {
	Name        string `json:"name" jsonschema:"description=Generic product name."`
	Brands      string `json:"brands" jsonschema:"description=Typical brand names if any, empty for truly generic food."`
	Category    string `json:"category" jsonschema:"description=Food category."`
	Description string `json:"description" jsonschema:"description=One-sentence product description."`
	Ingredients string `json:"ingredients" jsonschema:"description=Typical ingredient list, comma separated."`
	Nutriments  struct {
		EnergyKcal    float64 `json:"energyKcal"`
		Proteins      float64 `json:"proteins"`
		Carbohydrates float64 `json:"carbohydrates"`
		Sugars        float64 `json:"sugars"`
		Fat           float64 `json:"fat"`
		SaturatedFat  float64 `json:"saturatedFat"`
		Fiber         float64 `json:"fiber"`
		Salt          float64 `json:"salt"`
	} `json:"nutriments" jsonschema:"description=Typical values per 100g."`
}

func (c *Client) SynthesizeProduct(ctx context.Context, query string) (domain.GenericProduct, error) {
	var raw genericProductResponse
	err := c.complete(ctx, "llm.synthesize_product",
		genericSystemPrompt,
		genericUserPrompt(query),
		schemaFor[genericProductResponse]("generic_product", "generic product fabrication"),
		&raw,
	)
	if err != nil {
		return domain.GenericProduct{}, err
	}
	if strings.TrimSpace(raw.Name) == "" {
		return domain.GenericProduct{}, fmt.Errorf("synthesize product: empty name in model response")
	}

	// Zero means the model could not estimate the value; dropping those
	// keys keeps NeedsGlycemicBackfill honest for thin answers.
	nutriments := map[string]float64{}
	for key, value := range map[string]float64{
		"energy-kcal_100g":   raw.Nutriments.EnergyKcal,
		"proteins_100g":      raw.Nutriments.Proteins,
		"carbohydrates_100g": raw.Nutriments.Carbohydrates,
		"sugars_100g":        raw.Nutriments.Sugars,
		"fat_100g":           raw.Nutriments.Fat,
		"saturated-fat_100g": raw.Nutriments.SaturatedFat,
		"fiber_100g":         raw.Nutriments.Fiber,
		"salt_100g":          raw.Nutriments.Salt,
	} {
		if value > 0 {
			nutriments[key] = value
		}
	}

	return domain.GenericProduct{
		Name:            raw.Name,
		Brands:          raw.Brands,
		Category:        raw.Category,
		Description:     raw.Description,
		IngredientsText: raw.Ingredients,
		Nutriments:      nutriments,
	}, nil
}

type ingredientsResponse struct {
	Ingredients string `json:"ingredients" jsonschema:"description=Typical ingredient list for the product, comma separated, empty when unknown."`
}

func (c *Client) FetchIngredients(ctx context.Context, productName string) (string, error) {
	var raw ingredientsResponse
	err := c.complete(ctx, "llm.fetch_ingredients",
		ingredientsSystemPrompt,
		ingredientsUserPrompt(productName),
		schemaFor[ingredientsResponse]("ingredients_lookup", "ingredient list retrieval"),
		&raw,
	)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(raw.Ingredients), nil
}

func (c *Client) complete(ctx context.Context, operation, system, user string, format openai.ChatCompletionNewParamsResponseFormatUnion, out any) error {
	call := func(ctx context.Context) error {
		completion, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(system),
				openai.UserMessage(user),
			},
			Model:          shared.ChatModel(c.model),
			ResponseFormat: format,
			Temperature:    openai.Float(0.2),
		})
		if err != nil {
			return fmt.Errorf("%s request: %w", operation, err)
		}
		if len(completion.Choices) == 0 {
			return fmt.Errorf("%s: empty completion", operation)
		}
		content := completion.Choices[0].Message.Content
		if err := json.Unmarshal([]byte(extractJSONObject(content)), out); err != nil {
			return fmt.Errorf("parse %s response: %w", operation, err)
		}
		return nil
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, operation, call, classifyModelError)
	} else {
		err = call(ctx)
	}
	if c.observer != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		c.observer.RecordLLMRequest(c.service, operation, status)
	}
	return wrapTemporaryIfNeeded(operation, err)
}

func schemaFor[T any](name, description string) openai.ChatCompletionNewParamsResponseFormatUnion {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)

	return openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
			JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
				Name:        name,
				Description: openai.String(description),
				Schema:      schema,
				Strict:      openai.Bool(true),
			},
		},
	}
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
