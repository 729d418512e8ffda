package domain

// OutcomeStatus tags the result of a single provider attempt. Expected
// misses are data, not exceptions; only OutcomeError carries a cause.
type OutcomeStatus string

const (
	OutcomeHit   OutcomeStatus = "hit"
	OutcomeMiss  OutcomeStatus = "miss"
	OutcomeError OutcomeStatus = "error"
)

// ProviderOutcome is one step of the cascade walk.
type ProviderOutcome struct {
	Provider string
	Status   OutcomeStatus
	Product  *Product
	Err      error
}

// OutcomeFor converts a provider's (product, error) return into a tagged
// outcome: a nil product with a nil error is a miss.
func OutcomeFor(provider string, product *Product, err error) ProviderOutcome {
	switch {
	case err != nil:
		return ProviderOutcome{Provider: provider, Status: OutcomeError, Err: err}
	case product == nil:
		return ProviderOutcome{Provider: provider, Status: OutcomeMiss}
	default:
		return ProviderOutcome{Provider: provider, Status: OutcomeHit, Product: product}
	}
}

// QueryExpansion is the keyword-expansion result for a free-text query.
// Used for diagnostics only; the terms are not fed back into provider
// search.
type QueryExpansion struct {
	Keywords []string `json:"keywords"`
	Category string   `json:"category"`
	Language string   `json:"language"`
}

// GenericProduct is the model-fabricated draft for a free-text query before
// it is promoted to a synthesized Product.
type GenericProduct struct {
	Name            string             `json:"name"`
	Brands          string             `json:"brands"`
	Category        string             `json:"category"`
	Description     string             `json:"description"`
	IngredientsText string             `json:"ingredients"`
	Nutriments      map[string]float64 `json:"nutriments"`
}
