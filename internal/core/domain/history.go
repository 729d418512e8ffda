package domain

import "time"

// SearchHistoryRecord is the append-only audit trail of the cascade. Every
// lookup reaching the HTTP layer produces exactly one record, whether it was
// served from cache, resolved, or failed.
type SearchHistoryRecord struct {
	ID        string    `json:"id"`
	Query     string    `json:"query"`
	InputType InputType `json:"inputType"`
	Found     bool      `json:"found"`

	// Denormalized snapshot of the resolved product, empty on a miss.
	Barcode         string `json:"barcode,omitempty"`
	ProductName     string `json:"productName,omitempty"`
	Brands          string `json:"brands,omitempty"`
	DataSource      string `json:"dataSource,omitempty"`
	ProcessingScore *int   `json:"processingScore,omitempty"`

	Source       string    `json:"source"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// HistoryRecordFor snapshots a lookup outcome into a history record. The
// caller assigns ID and CreatedAt.
func HistoryRecordFor(query string, inputType InputType, result LookupResult) SearchHistoryRecord {
	record := SearchHistoryRecord{
		Query:        query,
		InputType:    inputType,
		Source:       result.Source,
		ErrorMessage: result.Err,
	}
	if result.Product != nil {
		record.Found = true
		record.Barcode = result.Product.Barcode
		record.ProductName = result.Product.ProductName
		record.Brands = result.Product.Brands
		record.DataSource = result.Product.DataSource
		record.ProcessingScore = result.Product.ProcessingScore
	}
	return record
}
