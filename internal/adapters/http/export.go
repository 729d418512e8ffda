package httpadapter

import (
	"fmt"
	"net/http"

	"github.com/xuri/excelize/v2"

	"github.com/processedornot/scanner/internal/core/domain"
)

const exportSheet = "Search History"

// exportHistory streams the recent search history as an XLSX workbook.
func (rt *Router) exportHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	records, err := rt.history.ListRecent(r.Context(), rt.exportLimit)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	file, err := buildHistoryWorkbook(records)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	defer file.Close()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="search-history.xlsx"`)
	if err := file.Write(w); err != nil {
		// Headers are gone at this point; the broken download is all we
		// can report.
		rt.logger.Error("history export write failed", "error", err.Error())
	}
}

func buildHistoryWorkbook(records []domain.SearchHistoryRecord) (*excelize.File, error) {
	file := excelize.NewFile()
	if err := file.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	headers := []string{
		"Created At", "Query", "Input Type", "Found", "Barcode",
		"Product Name", "Brands", "Data Source", "Processing Score", "Lookup Source", "Error",
	}
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("header cell: %w", err)
		}
		if err := file.SetCellValue(exportSheet, cell, header); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	for i, record := range records {
		values := []any{
			record.CreatedAt.Format("2006-01-02 15:04:05"),
			record.Query,
			string(record.InputType),
			record.Found,
			record.Barcode,
			record.ProductName,
			record.Brands,
			record.DataSource,
			scoreCell(record.ProcessingScore),
			record.Source,
			record.ErrorMessage,
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, fmt.Errorf("data cell: %w", err)
			}
			if err := file.SetCellValue(exportSheet, cell, value); err != nil {
				return nil, fmt.Errorf("write record: %w", err)
			}
		}
	}
	return file, nil
}

func scoreCell(score *int) any {
	if score == nil {
		return ""
	}
	return *score
}
