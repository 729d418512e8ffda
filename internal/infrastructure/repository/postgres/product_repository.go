package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/processedornot/scanner/internal/core/domain"
)

// ProductRepository is the read-through product cache on Postgres. Barcode
// is the primary key, including the synthetic text-<ms> identifiers.
type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *ProductRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026021002)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS products (
	barcode TEXT PRIMARY KEY,
	product_name TEXT NOT NULL,
	brands TEXT NOT NULL DEFAULT '',
	image_url TEXT NOT NULL DEFAULT '',
	ingredients_text TEXT NOT NULL DEFAULT '',
	nutriments JSONB NOT NULL DEFAULT '{}'::jsonb,
	processing_score INTEGER,
	processing_explanation TEXT NOT NULL DEFAULT '',
	glycemic_index DOUBLE PRECISION,
	glycemic_load DOUBLE PRECISION,
	glycemic_explanation TEXT NOT NULL DEFAULT '',
	data_source TEXT NOT NULL,
	provenance TEXT NOT NULL,
	last_updated TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_products_last_updated ON products(last_updated DESC);
CREATE INDEX IF NOT EXISTS idx_products_glycemic_pending ON products(barcode) WHERE glycemic_index IS NULL;
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *ProductRepository) GetByBarcode(ctx context.Context, barcode string) (*domain.Product, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT barcode, product_name, brands, image_url, ingredients_text, nutriments,
	processing_score, processing_explanation, glycemic_index, glycemic_load, glycemic_explanation,
	data_source, provenance, last_updated
FROM products
WHERE barcode = $1
`, barcode)

	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrProductNotFound, "get product", errors.New(barcode))
		}
		return nil, fmt.Errorf("get product by barcode: %w", err)
	}
	return product, nil
}

// Upsert writes a resolved product through to the cache, stamping
// LastUpdated.
func (r *ProductRepository) Upsert(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	nutrimentsJSON, err := json.Marshal(nutrimentsOrEmpty(product.Nutriments))
	if err != nil {
		return nil, fmt.Errorf("marshal nutriments: %w", err)
	}

	product.LastUpdated = time.Now().UTC()

	_, err = r.db.ExecContext(ctx, `
INSERT INTO products (
	barcode, product_name, brands, image_url, ingredients_text, nutriments,
	processing_score, processing_explanation, glycemic_index, glycemic_load, glycemic_explanation,
	data_source, provenance, last_updated
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
ON CONFLICT (barcode) DO UPDATE SET
	product_name = EXCLUDED.product_name,
	brands = EXCLUDED.brands,
	image_url = EXCLUDED.image_url,
	ingredients_text = EXCLUDED.ingredients_text,
	nutriments = EXCLUDED.nutriments,
	processing_score = EXCLUDED.processing_score,
	processing_explanation = EXCLUDED.processing_explanation,
	glycemic_index = EXCLUDED.glycemic_index,
	glycemic_load = EXCLUDED.glycemic_load,
	glycemic_explanation = EXCLUDED.glycemic_explanation,
	data_source = EXCLUDED.data_source,
	provenance = EXCLUDED.provenance,
	last_updated = EXCLUDED.last_updated
`,
		product.Barcode, product.ProductName, product.Brands, product.ImageURL, product.IngredientsText, nutrimentsJSON,
		product.ProcessingScore, product.ProcessingExplanation, product.GlycemicIndex, product.GlycemicLoad, product.GlycemicExplanation,
		product.DataSource, string(product.Provenance), product.LastUpdated,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert product: %w", err)
	}
	return product, nil
}

func (r *ProductRepository) UpdateProcessing(ctx context.Context, barcode string, analysis domain.ProcessingAnalysis) error {
	score := domain.ClampProcessingScore(float64(analysis.Score))
	result, err := r.db.ExecContext(ctx, `
UPDATE products
SET processing_score = $2, processing_explanation = $3, last_updated = $4
WHERE barcode = $1
`, barcode, score, analysis.Explanation, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update processing analysis: %w", err)
	}
	return requireRow(result, barcode)
}

func (r *ProductRepository) UpdateGlycemic(ctx context.Context, barcode string, analysis domain.GlycemicAnalysis) error {
	normalized := analysis.Normalize()
	result, err := r.db.ExecContext(ctx, `
UPDATE products
SET glycemic_index = $2, glycemic_load = $3, glycemic_explanation = $4, last_updated = $5
WHERE barcode = $1
`, barcode, normalized.Index, normalized.Load, normalized.Explanation, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update glycemic analysis: %w", err)
	}
	return requireRow(result, barcode)
}

func requireRow(result sql.Result, barcode string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrProductNotFound, "update product", errors.New(barcode))
	}
	return nil
}

type productScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row productScanner) (*domain.Product, error) {
	var product domain.Product
	var nutrimentsRaw []byte
	var provenance string
	var score sql.NullInt64
	var glycemicIndex, glycemicLoad sql.NullFloat64

	err := row.Scan(
		&product.Barcode, &product.ProductName, &product.Brands, &product.ImageURL, &product.IngredientsText, &nutrimentsRaw,
		&score, &product.ProcessingExplanation, &glycemicIndex, &glycemicLoad, &product.GlycemicExplanation,
		&product.DataSource, &provenance, &product.LastUpdated,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(nutrimentsRaw, &product.Nutriments); err != nil {
		return nil, fmt.Errorf("unmarshal nutriments: %w", err)
	}
	if len(product.Nutriments) == 0 {
		product.Nutriments = nil
	}
	product.Provenance = domain.Provenance(provenance)
	if score.Valid {
		v := int(score.Int64)
		product.ProcessingScore = &v
	}
	if glycemicIndex.Valid {
		product.GlycemicIndex = &glycemicIndex.Float64
	}
	if glycemicLoad.Valid {
		product.GlycemicLoad = &glycemicLoad.Float64
	}
	return &product, nil
}

func nutrimentsOrEmpty(m map[string]float64) map[string]float64 {
	if m == nil {
		return map[string]float64{}
	}
	return m
}
