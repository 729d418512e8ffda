package providers

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/processedornot/scanner/internal/core/domain"
	"github.com/processedornot/scanner/internal/core/ports"
	"github.com/processedornot/scanner/internal/infrastructure/resilience"
)

//go:embed providers.yaml
var defaultProvidersYAML []byte

// ProviderSpec is one entry of the ordered cascade configuration.
type ProviderSpec struct {
	Name    string `yaml:"name"`
	Enabled *bool  `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
}

func (s ProviderSpec) enabled() bool {
	return s.Enabled == nil || *s.Enabled
}

type CascadeConfig struct {
	Cascade []ProviderSpec `yaml:"cascade"`
}

// LoadCascadeConfig reads the provider order from path, or the embedded
// default when path is empty.
func LoadCascadeConfig(path string) (CascadeConfig, error) {
	raw := defaultProvidersYAML
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return CascadeConfig{}, fmt.Errorf("read providers config: %w", err)
		}
		raw = data
	}

	var cfg CascadeConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return CascadeConfig{}, fmt.Errorf("parse providers config: %w", err)
	}
	if len(cfg.Cascade) == 0 {
		return CascadeConfig{}, fmt.Errorf("providers config: empty cascade")
	}
	return cfg, nil
}

// APIKeys carries the per-provider credentials; empty keys downgrade the
// owning adapter to a permanent miss.
type APIKeys struct {
	USDA          string
	BarcodeSpider string
	EANSearch     string
	ProductAPI    string
	UPCDatabase   string
}

type RegistryOptions struct {
	Timeout      time.Duration
	RateLimitRPS float64
	RateBurst    int
	Keys         APIKeys
	Executor     *resilience.Executor
	Logger       *slog.Logger
}

// BuildCascade turns the ordered configuration into the provider list the
// resolver walks. Every adapter is wrapped with its own rate limiter and
// the shared breaker-aware executor.
func BuildCascade(cfg CascadeConfig, opts RegistryOptions) ([]ports.ProductProvider, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 1
	}

	providers := make([]ports.ProductProvider, 0, len(cfg.Cascade))
	for _, spec := range cfg.Cascade {
		if !spec.enabled() {
			continue
		}
		adapter, err := construct(spec, opts)
		if err != nil {
			return nil, err
		}

		var limiter *rate.Limiter
		if opts.RateLimitRPS > 0 {
			limiter = rate.NewLimiter(rate.Limit(opts.RateLimitRPS), opts.RateBurst)
		}
		providers = append(providers, &guardedProvider{
			inner:    adapter,
			limiter:  limiter,
			executor: opts.Executor,
			logger:   opts.Logger,
		})
	}
	return providers, nil
}

func construct(spec ProviderSpec, opts RegistryOptions) (ports.ProductProvider, error) {
	switch spec.Name {
	case "OpenFoodFacts":
		return NewOpenFoodFacts(spec.BaseURL, opts.Timeout), nil
	case "USDA FoodData Central":
		return NewUSDA(opts.Keys.USDA, spec.BaseURL, opts.Timeout), nil
	case "FoodData Central":
		return NewFoodDataCentral(opts.Keys.USDA, spec.BaseURL, opts.Timeout), nil
	case "Kenniscentrum":
		return NewKenniscentrum(spec.BaseURL, opts.Timeout), nil
	case "NEVO":
		return NewNEVO(spec.BaseURL, opts.Timeout), nil
	case "RIVM":
		return NewRIVM(spec.BaseURL, opts.Timeout), nil
	case "Voedingscentrum":
		return NewVoedingscentrum(spec.BaseURL, opts.Timeout), nil
	case "EFSA":
		return NewEFSA(spec.BaseURL, opts.Timeout), nil
	case "Health Canada":
		return NewHealthCanada(spec.BaseURL, opts.Timeout), nil
	case "Australian Food DB":
		return NewAustralianFoodDB(spec.BaseURL, opts.Timeout), nil
	case "CIQUAL":
		return NewCIQUAL(spec.BaseURL, opts.Timeout), nil
	case "BLS":
		return NewBLS(spec.BaseURL, opts.Timeout), nil
	case "Fineli":
		return NewFineli(spec.BaseURL, opts.Timeout), nil
	case "DTU Food":
		return NewDTUFood(spec.BaseURL, opts.Timeout), nil
	case "BDA-IEO":
		return NewBDAIEO(spec.BaseURL, opts.Timeout), nil
	case "Barcode Spider":
		return NewBarcodeSpider(opts.Keys.BarcodeSpider, spec.BaseURL, opts.Timeout), nil
	case "EAN Search":
		return NewEANSearch(opts.Keys.EANSearch, spec.BaseURL, opts.Timeout), nil
	case "Product API":
		return NewProductAPI(opts.Keys.ProductAPI, spec.BaseURL, opts.Timeout), nil
	case "UPC Database":
		return NewUPCDatabase(opts.Keys.UPCDatabase, spec.BaseURL, opts.Timeout), nil
	default:
		return nil, fmt.Errorf("providers config: unknown provider %q", spec.Name)
	}
}

// guardedProvider enforces the per-provider rate limit and routes calls
// through the resilience executor. An open breaker reads as a miss so the
// cascade skips the provider without charging it an error.
type guardedProvider struct {
	inner    ports.ProductProvider
	limiter  *rate.Limiter
	executor *resilience.Executor
	logger   *slog.Logger
}

func (g *guardedProvider) Name() string { return g.inner.Name() }

func (g *guardedProvider) FetchByBarcode(ctx context.Context, barcode string) (*domain.Product, error) {
	return g.guarded(ctx, "fetch", func(ctx context.Context) (*domain.Product, error) {
		return g.inner.FetchByBarcode(ctx, barcode)
	})
}

func (g *guardedProvider) SearchByName(ctx context.Context, name string) (*domain.Product, error) {
	return g.guarded(ctx, "search", func(ctx context.Context) (*domain.Product, error) {
		return g.inner.SearchByName(ctx, name)
	})
}

func (g *guardedProvider) guarded(
	ctx context.Context,
	op string,
	fn func(context.Context) (*domain.Product, error),
) (*domain.Product, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	var product *domain.Product
	call := func(ctx context.Context) error {
		var err error
		product, err = fn(ctx)
		return err
	}

	var err error
	if g.executor != nil {
		err = g.executor.Execute(ctx, "provider."+g.inner.Name()+"."+op, call, classifyProviderError)
	} else {
		err = call(ctx)
	}
	if resilience.IsCircuitOpen(err) {
		g.logger.Debug("provider_circuit_open", "provider", g.inner.Name())
		return nil, nil
	}
	return product, err
}
