package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/infrastructure/importer"
)

// ImportRow is one product record from a bulk import file
type ImportRow struct {
	Name        string   `json:"name" validate:"required,min=1,max=200"`
	Description string   `json:"description" validate:"max=2000"`
	Category    string   `json:"category" validate:"max=100"`
	Price       string   `json:"price" validate:"required"`
	Status      string   `json:"status" validate:"omitempty,oneof=published paused"`
	Images      []string `json:"images" validate:"omitempty,dive,max=500"`
}

// ImportResult summarizes a bulk import run
type ImportResult struct {
	Total    int                 `json:"total"`
	Imported int                 `json:"imported"`
	Failed   int                 `json:"failed"`
	Errors   []importer.RowError `json:"errors,omitempty"`
}

// ImportService ingests product catalogs from CSV and JSON files
type ImportService struct {
	productRepo catalog.ProductRepository
	notifier    ChangeNotifier
	validate    *validator.Validate
}

// NewImportService creates a new ImportService
func NewImportService(productRepo catalog.ProductRepository, notifier ChangeNotifier) *ImportService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &ImportService{
		productRepo: productRepo,
		notifier:    notifier,
		validate:    validator.New(),
	}
}

// ImportJSON imports products from a JSON array of records.
// Valid rows are saved even when others fail; failures are reported
// per row in the result
func (s *ImportService) ImportJSON(ctx context.Context, r io.Reader) (*ImportResult, error) {
	var rows []ImportRow
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&rows); err != nil {
		return nil, importer.NewRowError(0, "", importer.ErrCodeInvalidFile,
			fmt.Sprintf("invalid JSON: %v", err))
	}
	if len(rows) == 0 {
		return nil, importer.ErrNoDataRows
	}

	numbered := make([]numberedRow, len(rows))
	for i, row := range rows {
		// Row 1 is the first array element
		numbered[i] = numberedRow{line: i + 1, row: row}
	}

	return s.importRows(ctx, numbered)
}

// ImportCSV imports products from a CSV file with a header row.
// Expected columns: name, price, and optionally description, category,
// status, images (pipe-separated URLs)
func (s *ImportService) ImportCSV(ctx context.Context, r io.Reader) (*ImportResult, error) {
	parser, err := importer.NewCSVParser(r)
	if err != nil {
		return nil, err
	}
	if err := parser.ParseHeader(); err != nil {
		return nil, err
	}
	for _, required := range []string{"name", "price"} {
		if !parser.HasHeader(required) {
			return nil, importer.NewRowError(1, required, importer.ErrCodeMissingHeader,
				fmt.Sprintf("required column %q is missing", required))
		}
	}

	csvRows, err := parser.ReadAllRows()
	if err != nil {
		return nil, err
	}

	numbered := make([]numberedRow, len(csvRows))
	for i, row := range csvRows {
		numbered[i] = numberedRow{
			line: row.LineNumber,
			row: ImportRow{
				Name:        row.Get("name"),
				Description: row.Get("description"),
				Category:    row.Get("category"),
				Price:       row.Get("price"),
				Status:      row.Get("status"),
				Images:      splitImageList(row.Get("images")),
			},
		}
	}

	return s.importRows(ctx, numbered)
}

type numberedRow struct {
	line int
	row  ImportRow
}

// importRows validates each row, builds products for the valid ones,
// and saves them in a single batch
func (s *ImportService) importRows(ctx context.Context, rows []numberedRow) (*ImportResult, error) {
	result := &ImportResult{Total: len(rows)}
	var products []*catalog.Product

	for _, nr := range rows {
		product, rowErr := s.buildProduct(nr.line, nr.row)
		if rowErr != nil {
			result.Failed++
			result.Errors = append(result.Errors, *rowErr)
			continue
		}
		products = append(products, product)
	}

	if len(products) > 0 {
		if err := s.productRepo.SaveBatch(ctx, products); err != nil {
			return nil, err
		}
		for _, product := range products {
			s.notifier.ProductCreated(ctx, product.ID.String())
		}
	}

	result.Imported = len(products)
	return result, nil
}

// buildProduct validates one row and converts it into a Product
func (s *ImportService) buildProduct(line int, row ImportRow) (*catalog.Product, *importer.RowError) {
	if err := s.validate.Struct(row); err != nil {
		column := ""
		message := err.Error()
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
			column = strings.ToLower(validationErrs[0].Field())
			message = fmt.Sprintf("failed %q validation", validationErrs[0].Tag())
		}
		rowErr := importer.NewRowError(line, column, importer.ErrCodeInvalidValue, message)
		return nil, &rowErr
	}

	price, err := decimal.NewFromString(row.Price)
	if err != nil {
		rowErr := importer.NewRowError(line, "price", importer.ErrCodeInvalidValue,
			fmt.Sprintf("%q is not a valid price", row.Price))
		return nil, &rowErr
	}

	product, err := catalog.NewProduct(row.Name, price)
	if err != nil {
		rowErr := importer.NewRowError(line, "", importer.ErrCodeInvalidValue, err.Error())
		return nil, &rowErr
	}

	if row.Description != "" {
		product.SetDescription(row.Description)
	}
	if row.Category != "" {
		if err := product.SetCategory(row.Category); err != nil {
			rowErr := importer.NewRowError(line, "category", importer.ErrCodeInvalidValue, err.Error())
			return nil, &rowErr
		}
	}
	if len(row.Images) > 0 {
		if err := product.SetImages(row.Images); err != nil {
			rowErr := importer.NewRowError(line, "images", importer.ErrCodeInvalidValue, err.Error())
			return nil, &rowErr
		}
	}
	if row.Status == string(catalog.ProductStatusPaused) {
		if err := product.Pause(); err != nil {
			rowErr := importer.NewRowError(line, "status", importer.ErrCodeInvalidValue, err.Error())
			return nil, &rowErr
		}
	}

	return product, nil
}

// splitImageList splits a pipe-separated image URL list from a CSV cell
func splitImageList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, "|")
	urls := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			urls = append(urls, trimmed)
		}
	}
	return urls
}
