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

const openFoodFactsName = "OpenFoodFacts"

// OpenFoodFacts is the first provider in the default cascade. It is keyless
// and carries the richest ingredient data, so it also tries the barcode
// packaging variants.
type OpenFoodFacts struct {
	baseURL    string
	httpClient *http.Client
}

func NewOpenFoodFacts(baseURL string, timeout time.Duration) *OpenFoodFacts {
	if baseURL == "" {
		baseURL = "https://world.openfoodfacts.org"
	}
	return &OpenFoodFacts{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: newHTTPClient(timeout),
	}
}

func (p *OpenFoodFacts) Name() string { return openFoodFactsName }

type openFoodFactsResponse struct {
	Status  int `json:"status"`
	Product struct {
		ProductName     string             `json:"product_name"`
		Brands          string             `json:"brands"`
		ImageURL        string             `json:"image_url"`
		IngredientsText string             `json:"ingredients_text"`
		Nutriments      map[string]float64 `json:"nutriments"`
	} `json:"product"`
}

func (p *OpenFoodFacts) FetchByBarcode(ctx context.Context, barcode string) (*domain.Product, error) {
	for _, variant := range domain.BarcodeVariants(barcode) {
		product, err := p.fetchOne(ctx, variant)
		if err != nil {
			return nil, err
		}
		if product != nil {
			// Record keyed by the scanned code, not the variant that hit.
			product.Barcode = domain.NormalizeBarcode(barcode)
			return product, nil
		}
	}
	return nil, nil
}

func (p *OpenFoodFacts) fetchOne(ctx context.Context, code string) (*domain.Product, error) {
	url := fmt.Sprintf("%s/api/v2/product/%s.json", p.baseURL, code)

	var resp openFoodFactsResponse
	if err := getJSON(ctx, p.httpClient, openFoodFactsName, url, &resp); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if resp.Status != 1 || resp.Product.ProductName == "" {
		return nil, nil
	}

	return &domain.Product{
		Barcode:         code,
		ProductName:     resp.Product.ProductName,
		Brands:          resp.Product.Brands,
		ImageURL:        resp.Product.ImageURL,
		IngredientsText: resp.Product.IngredientsText,
		Nutriments:      normalizeNutrients(resp.Product.Nutriments),
		DataSource:      openFoodFactsName,
		Provenance:      domain.ProvenanceAuthoritative,
	}, nil
}

// SearchByName is a stub kept for interface parity: the free-text path
// synthesizes instead of searching providers.
func (p *OpenFoodFacts) SearchByName(context.Context, string) (*domain.Product, error) {
	return nil, nil
}
