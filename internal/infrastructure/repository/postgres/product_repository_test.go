package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/processedornot/scanner/internal/core/domain"
)

func productColumns() []string {
	return []string{
		"barcode", "product_name", "brands", "image_url", "ingredients_text", "nutriments",
		"processing_score", "processing_explanation", "glycemic_index", "glycemic_load", "glycemic_explanation",
		"data_source", "provenance", "last_updated",
	}
}

func TestProductRepositoryGetByBarcode(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewProductRepository(db)
	rows := sqlmock.NewRows(productColumns()).
		AddRow(
			"5449000000996", "Coca-Cola", "Coca-Cola", "", "water, sugar", []byte(`{"sugars_100g": 10.6}`),
			nil, "", nil, nil, "",
			"OpenFoodFacts", string(domain.ProvenanceAuthoritative), time.Now(),
		)

	mock.ExpectQuery("FROM products").
		WithArgs("5449000000996").
		WillReturnRows(rows)

	product, err := repo.GetByBarcode(context.Background(), "5449000000996")
	if err != nil {
		t.Fatalf("GetByBarcode() error = %v", err)
	}
	if product.ProductName != "Coca-Cola" || product.Nutriments["sugars_100g"] != 10.6 {
		t.Fatalf("unexpected product %+v", product)
	}
	if product.ProcessingScore != nil {
		t.Fatalf("null score must stay nil, got %v", *product.ProcessingScore)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestProductRepositoryGetByBarcodeNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewProductRepository(db)
	mock.ExpectQuery("FROM products").
		WithArgs("0000000000000").
		WillReturnRows(sqlmock.NewRows(productColumns()))

	_, err = repo.GetByBarcode(context.Background(), "0000000000000")
	if !domain.IsKind(err, domain.ErrProductNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestProductRepositoryUpsertStampsLastUpdated(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewProductRepository(db)
	mock.ExpectExec("INSERT INTO products").
		WillReturnResult(sqlmock.NewResult(0, 1))

	product := &domain.Product{
		Barcode:     "5449000000996",
		ProductName: "Coca-Cola",
		DataSource:  "OpenFoodFacts",
		Provenance:  domain.ProvenanceAuthoritative,
	}
	stored, err := repo.Upsert(context.Background(), product)
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if stored.LastUpdated.IsZero() {
		t.Fatalf("upsert must stamp LastUpdated")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestProductRepositoryUpdateGlycemicNormalizes(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewProductRepository(db)
	mock.ExpectExec("UPDATE products").
		WithArgs("5449000000996", 100.0, 40.0, "Very sugary.", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.UpdateGlycemic(context.Background(), "5449000000996", domain.GlycemicAnalysis{
		Index:       104,
		Load:        55,
		Explanation: "Very sugary.",
	})
	if err != nil {
		t.Fatalf("UpdateGlycemic() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestProductRepositoryUpdateProcessingUnknownBarcode(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewProductRepository(db)
	mock.ExpectExec("UPDATE products").
		WithArgs("0000000000000", 7, "Refined.", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.UpdateProcessing(context.Background(), "0000000000000", domain.ProcessingAnalysis{Score: 7, Explanation: "Refined."})
	if !domain.IsKind(err, domain.ErrProductNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
