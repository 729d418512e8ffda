package providers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/processedornot/scanner/internal/core/domain"
)

const usdaName = "USDA FoodData Central"

// USDA nutrient numbers for the macronutrients we surface.
const (
	usdaNutrientEnergy       = 1008
	usdaNutrientProtein      = 1003
	usdaNutrientCarbohydrate = 1005
	usdaNutrientTotalFat     = 1004
	usdaNutrientSugars       = 2000
	usdaNutrientFiber        = 1079
	usdaNutrientSodium       = 1093
)

// USDA searches FoodData Central branded foods by GTIN/UPC. Without an API
// key it degrades to a permanent miss.
type USDA struct {
	name       string
	apiKey     string
	baseURL    string
	httpClient *http.Client

	warnOnce sync.Once
}

func NewUSDA(apiKey, baseURL string, timeout time.Duration) *USDA {
	return newUSDANamed(usdaName, apiKey, baseURL, timeout)
}

// NewFoodDataCentral is the second registration of the same upstream kept
// from the inherited cascade order.
func NewFoodDataCentral(apiKey, baseURL string, timeout time.Duration) *USDA {
	return newUSDANamed("FoodData Central", apiKey, baseURL, timeout)
}

func newUSDANamed(name, apiKey, baseURL string, timeout time.Duration) *USDA {
	if baseURL == "" {
		baseURL = "https://api.nal.usda.gov/fdc"
	}
	return &USDA{
		name:       name,
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: newHTTPClient(timeout),
	}
}

func (p *USDA) Name() string { return p.name }

type usdaSearchResponse struct {
	Foods []struct {
		FdcID       int64  `json:"fdcId"`
		Description string `json:"description"`
		BrandOwner  string `json:"brandOwner"`
		GtinUpc     string `json:"gtinUpc"`
		Ingredients string `json:"ingredients"`
		Nutrients   []struct {
			NutrientID int     `json:"nutrientId"`
			UnitName   string  `json:"unitName"`
			Value      float64 `json:"value"`
		} `json:"foodNutrients"`
	} `json:"foods"`
}

func (p *USDA) FetchByBarcode(ctx context.Context, barcode string) (*domain.Product, error) {
	if p.apiKey == "" {
		p.warnOnce.Do(func() {
			slog.Warn("provider_disabled_missing_key", "provider", p.name)
		})
		return nil, nil
	}

	query := url.Values{}
	query.Set("api_key", p.apiKey)
	query.Set("query", barcode)
	query.Set("dataType", "Branded")
	query.Set("pageSize", "5")
	endpoint := fmt.Sprintf("%s/v1/foods/search?%s", p.baseURL, query.Encode())

	var resp usdaSearchResponse
	if err := getJSON(ctx, p.httpClient, p.name, endpoint, &resp); err != nil {
		return nil, err
	}

	variants := domain.BarcodeVariants(barcode)
	for _, food := range resp.Foods {
		if !containsCode(variants, domain.NormalizeBarcode(food.GtinUpc)) {
			continue
		}

		nutriments := map[string]float64{}
		for _, n := range food.Nutrients {
			value := n.Value
			switch n.NutrientID {
			case usdaNutrientEnergy:
				nutriments[KeyEnergyKcal] = value
			case usdaNutrientProtein:
				nutriments[KeyProteins] = value
			case usdaNutrientCarbohydrate:
				nutriments[KeyCarbohydrate] = value
			case usdaNutrientTotalFat:
				nutriments[KeyFat] = value
			case usdaNutrientSugars:
				nutriments[KeySugars] = value
			case usdaNutrientFiber:
				nutriments[KeyFiber] = value
			case usdaNutrientSodium:
				// FDC reports sodium in mg per 100g.
				nutriments[KeySodium] = value / 1000
			}
		}

		return &domain.Product{
			Barcode:         domain.NormalizeBarcode(barcode),
			ProductName:     food.Description,
			Brands:          food.BrandOwner,
			IngredientsText: strings.ToLower(food.Ingredients),
			Nutriments:      normalizeNutrients(nutriments),
			DataSource:      p.name,
			Provenance:      domain.ProvenanceAuthoritative,
		}, nil
	}
	return nil, nil
}

func (p *USDA) SearchByName(context.Context, string) (*domain.Product, error) {
	return nil, nil
}

func containsCode(codes []string, code string) bool {
	if code == "" {
		return false
	}
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}
