package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/processedornot/scanner/internal/core/domain"
)

// compositionAPI covers the national food-composition databases, which all
// sit behind the same lookup proxy shape: one GET per identifier, a found
// flag, and a flat per-100g nutrient table. The upstream adapters repeated
// this fetch/transform per provider; here it is one adapter parameterized
// by name and endpoint.
type compositionAPI struct {
	name       string
	baseURL    string
	httpClient *http.Client
}

func newCompositionAPI(name, baseURL string, timeout time.Duration) *compositionAPI {
	return &compositionAPI{
		name:       name,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: newHTTPClient(timeout),
	}
}

func (p *compositionAPI) Name() string { return p.name }

type compositionResponse struct {
	Found bool `json:"found"`
	Food  struct {
		Name            string             `json:"name"`
		Brands          string             `json:"brands"`
		ImageURL        string             `json:"image_url"`
		IngredientsText string             `json:"ingredients"`
		NutrientsPer100 map[string]float64 `json:"nutrients_per_100g"`
	} `json:"food"`
}

func (p *compositionAPI) FetchByBarcode(ctx context.Context, barcode string) (*domain.Product, error) {
	if p.baseURL == "" {
		return nil, nil
	}
	url := fmt.Sprintf("%s/foods/%s", p.baseURL, domain.NormalizeBarcode(barcode))

	var resp compositionResponse
	if err := getJSON(ctx, p.httpClient, p.name, url, &resp); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !resp.Found || resp.Food.Name == "" {
		return nil, nil
	}

	return &domain.Product{
		Barcode:         domain.NormalizeBarcode(barcode),
		ProductName:     resp.Food.Name,
		Brands:          resp.Food.Brands,
		ImageURL:        resp.Food.ImageURL,
		IngredientsText: resp.Food.IngredientsText,
		Nutriments:      normalizeNutrients(resp.Food.NutrientsPer100),
		DataSource:      p.name,
		Provenance:      domain.ProvenanceAuthoritative,
	}, nil
}

// SearchByName is stubbed across the composition databases; the free-text
// path synthesizes instead of searching them.
func (p *compositionAPI) SearchByName(context.Context, string) (*domain.Product, error) {
	return nil, nil
}

// Named constructors for the national databases the cascade knows about.
// Base URLs point at lookup proxies and are overridable per deployment
// through the registry configuration.

func NewKenniscentrum(baseURL string, timeout time.Duration) *compositionAPI {
	return newCompositionAPI("Kenniscentrum", withDefault(baseURL, "https://api.kenniscentrumvoeding.nl"), timeout)
}

func NewNEVO(baseURL string, timeout time.Duration) *compositionAPI {
	return newCompositionAPI("NEVO", withDefault(baseURL, "https://nevo-online.rivm.nl/api"), timeout)
}

func NewRIVM(baseURL string, timeout time.Duration) *compositionAPI {
	return newCompositionAPI("RIVM", withDefault(baseURL, "https://api.rivm.nl/food"), timeout)
}

func NewVoedingscentrum(baseURL string, timeout time.Duration) *compositionAPI {
	return newCompositionAPI("Voedingscentrum", withDefault(baseURL, "https://api.voedingscentrum.nl"), timeout)
}

func NewEFSA(baseURL string, timeout time.Duration) *compositionAPI {
	return newCompositionAPI("EFSA", withDefault(baseURL, "https://api.efsa.europa.eu/food"), timeout)
}

func NewHealthCanada(baseURL string, timeout time.Duration) *compositionAPI {
	return newCompositionAPI("Health Canada", withDefault(baseURL, "https://food-nutrition.canada.ca/api"), timeout)
}

func NewAustralianFoodDB(baseURL string, timeout time.Duration) *compositionAPI {
	return newCompositionAPI("Australian Food DB", withDefault(baseURL, "https://api.foodstandards.gov.au"), timeout)
}

// Name-search-only databases. They stay out of the barcode cascade but are
// registered so a future text path can reach them.

func NewCIQUAL(baseURL string, timeout time.Duration) *compositionAPI {
	return newCompositionAPI("CIQUAL", withDefault(baseURL, "https://ciqual.anses.fr/api"), timeout)
}

func NewBLS(baseURL string, timeout time.Duration) *compositionAPI {
	return newCompositionAPI("BLS", withDefault(baseURL, "https://www.blsdb.de/api"), timeout)
}

func NewFineli(baseURL string, timeout time.Duration) *compositionAPI {
	return newCompositionAPI("Fineli", withDefault(baseURL, "https://fineli.fi/fineli/api/v1"), timeout)
}

func NewDTUFood(baseURL string, timeout time.Duration) *compositionAPI {
	return newCompositionAPI("DTU Food", withDefault(baseURL, "https://frida.fooddata.dk/api"), timeout)
}

func NewBDAIEO(baseURL string, timeout time.Duration) *compositionAPI {
	return newCompositionAPI("BDA-IEO", withDefault(baseURL, "https://www.bda-ieo.it/api"), timeout)
}

func withDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
