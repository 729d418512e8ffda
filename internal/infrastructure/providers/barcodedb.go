package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/processedornot/scanner/internal/core/domain"
)

// The commercial barcode registries close out the cascade. They resolve
// name/brand/image for codes the food databases do not know, but carry no
// ingredient or nutrient data, so a hit from them is a thin record.
// All of them require an API key and degrade to a permanent miss without
// one.

type barcodeRegistry struct {
	name       string
	apiKey     string
	baseURL    string
	buildURL   func(baseURL, apiKey, barcode string) string
	parse      func(resp barcodeRegistryResponse) (name, brand, image string, ok bool)
	httpClient *http.Client

	warnOnce sync.Once
}

// barcodeRegistryResponse is the superset of the registries' payloads;
// each parse function picks its own fields.
type barcodeRegistryResponse struct {
	ItemResponse struct {
		Code  int `json:"code"`
		Items []struct {
			Title    string `json:"title"`
			Brand    string `json:"brand"`
			ImageURL string `json:"image_url"`
		} `json:"items"`
	} `json:"item_response,omitempty"`

	Product struct {
		Name     string `json:"name"`
		Issuer   string `json:"issuingCountry"`
		Title    string `json:"title"`
		Brand    string `json:"brand"`
		ImageURL string `json:"imageUrl"`
	} `json:"product,omitempty"`

	Items []struct {
		Title  string   `json:"title"`
		Brand  string   `json:"brand"`
		Images []string `json:"images"`
	} `json:"items,omitempty"`
}

func (p *barcodeRegistry) Name() string { return p.name }

func (p *barcodeRegistry) FetchByBarcode(ctx context.Context, barcode string) (*domain.Product, error) {
	if p.apiKey == "" {
		p.warnOnce.Do(func() {
			slog.Warn("provider_disabled_missing_key", "provider", p.name)
		})
		return nil, nil
	}

	code := domain.NormalizeBarcode(barcode)
	var resp barcodeRegistryResponse
	if err := getJSON(ctx, p.httpClient, p.name, p.buildURL(p.baseURL, p.apiKey, code), &resp); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		return nil, err
	}

	name, brand, image, ok := p.parse(resp)
	if !ok || name == "" {
		return nil, nil
	}
	return &domain.Product{
		Barcode:     code,
		ProductName: name,
		Brands:      brand,
		ImageURL:    image,
		DataSource:  p.name,
		Provenance:  domain.ProvenanceAuthoritative,
	}, nil
}

func (p *barcodeRegistry) SearchByName(context.Context, string) (*domain.Product, error) {
	return nil, nil
}

func NewBarcodeSpider(apiKey, baseURL string, timeout time.Duration) *barcodeRegistry {
	return &barcodeRegistry{
		name:    "Barcode Spider",
		apiKey:  apiKey,
		baseURL: withDefault(strings.TrimRight(baseURL, "/"), "https://api.barcodespider.com/v1"),
		buildURL: func(baseURL, apiKey, barcode string) string {
			return fmt.Sprintf("%s/lookup?token=%s&upc=%s", baseURL, url.QueryEscape(apiKey), barcode)
		},
		parse: func(resp barcodeRegistryResponse) (string, string, string, bool) {
			if len(resp.ItemResponse.Items) == 0 {
				return "", "", "", false
			}
			item := resp.ItemResponse.Items[0]
			return item.Title, item.Brand, item.ImageURL, true
		},
		httpClient: newHTTPClient(timeout),
	}
}

func NewEANSearch(apiKey, baseURL string, timeout time.Duration) *barcodeRegistry {
	return &barcodeRegistry{
		name:    "EAN Search",
		apiKey:  apiKey,
		baseURL: withDefault(strings.TrimRight(baseURL, "/"), "https://api.ean-search.org"),
		buildURL: func(baseURL, apiKey, barcode string) string {
			return fmt.Sprintf("%s/api?token=%s&op=barcode-lookup&ean=%s&format=json", baseURL, url.QueryEscape(apiKey), barcode)
		},
		parse: func(resp barcodeRegistryResponse) (string, string, string, bool) {
			if resp.Product.Name == "" {
				return "", "", "", false
			}
			return resp.Product.Name, resp.Product.Brand, "", true
		},
		httpClient: newHTTPClient(timeout),
	}
}

func NewProductAPI(apiKey, baseURL string, timeout time.Duration) *barcodeRegistry {
	return &barcodeRegistry{
		name:    "Product API",
		apiKey:  apiKey,
		baseURL: withDefault(strings.TrimRight(baseURL, "/"), "https://api.upcitemdb.com/prod/trial"),
		buildURL: func(baseURL, apiKey, barcode string) string {
			return fmt.Sprintf("%s/lookup?upc=%s&key=%s", baseURL, barcode, url.QueryEscape(apiKey))
		},
		parse: func(resp barcodeRegistryResponse) (string, string, string, bool) {
			if len(resp.Items) == 0 {
				return "", "", "", false
			}
			item := resp.Items[0]
			image := ""
			if len(item.Images) > 0 {
				image = item.Images[0]
			}
			return item.Title, item.Brand, image, true
		},
		httpClient: newHTTPClient(timeout),
	}
}

func NewUPCDatabase(apiKey, baseURL string, timeout time.Duration) *barcodeRegistry {
	return &barcodeRegistry{
		name:    "UPC Database",
		apiKey:  apiKey,
		baseURL: withDefault(strings.TrimRight(baseURL, "/"), "https://api.upcdatabase.org"),
		buildURL: func(baseURL, apiKey, barcode string) string {
			return fmt.Sprintf("%s/product/%s?apikey=%s", baseURL, barcode, url.QueryEscape(apiKey))
		},
		parse: func(resp barcodeRegistryResponse) (string, string, string, bool) {
			if resp.Product.Title == "" {
				return "", "", "", false
			}
			return resp.Product.Title, resp.Product.Brand, resp.Product.ImageURL, true
		},
		httpClient: newHTTPClient(timeout),
	}
}
