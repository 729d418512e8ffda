package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/processedornot/scanner/internal/core/domain"
)

// SearchHistoryRepository is the append-only lookup audit log. Records are
// never updated or deleted.
type SearchHistoryRepository struct {
	db *sql.DB
}

func NewSearchHistoryRepository(db *sql.DB) *SearchHistoryRepository {
	return &SearchHistoryRepository{db: db}
}

func (r *SearchHistoryRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026021003)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS search_history (
	id TEXT PRIMARY KEY,
	query TEXT NOT NULL,
	input_type TEXT NOT NULL,
	found BOOLEAN NOT NULL,
	barcode TEXT NOT NULL DEFAULT '',
	product_name TEXT NOT NULL DEFAULT '',
	brands TEXT NOT NULL DEFAULT '',
	data_source TEXT NOT NULL DEFAULT '',
	processing_score INTEGER,
	source TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_search_history_created_at ON search_history(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *SearchHistoryRepository) Append(ctx context.Context, record domain.SearchHistoryRecord) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO search_history (
	id, query, input_type, found, barcode, product_name, brands, data_source, processing_score, source, error_message, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
`,
		record.ID, record.Query, string(record.InputType), record.Found,
		record.Barcode, record.ProductName, record.Brands, record.DataSource, record.ProcessingScore,
		record.Source, record.ErrorMessage, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append history record: %w", err)
	}
	return nil
}

func (r *SearchHistoryRepository) ListRecent(ctx context.Context, limit int) ([]domain.SearchHistoryRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, query, input_type, found, barcode, product_name, brands, data_source, processing_score, source, error_message, created_at
FROM search_history
ORDER BY created_at DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	out := make([]domain.SearchHistoryRecord, 0)
	for rows.Next() {
		var record domain.SearchHistoryRecord
		var inputType string
		var score sql.NullInt64

		err := rows.Scan(
			&record.ID, &record.Query, &inputType, &record.Found,
			&record.Barcode, &record.ProductName, &record.Brands, &record.DataSource, &score,
			&record.Source, &record.ErrorMessage, &record.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan history record: %w", err)
		}
		record.InputType = domain.InputType(inputType)
		if score.Valid {
			v := int(score.Int64)
			record.ProcessingScore = &v
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return out, nil
}
