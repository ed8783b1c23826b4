// Package report builds downloadable catalog exports.
package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	catalogapp "github.com/storefront/backend/internal/application/catalog"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/export"
	"go.uber.org/zap"
)

// exportPageSize is how many products are fetched per repository call
// while streaming an export
const exportPageSize = 500

// csvHeader is the column layout of the CSV export
var csvHeader = []string{"id", "name", "description", "category", "price", "status", "images", "created_at", "updated_at"}

// PDFRenderer renders an HTML document to PDF bytes
type PDFRenderer interface {
	Render(ctx context.Context, html string) ([]byte, error)
}

// ReportService exports the product catalog as CSV or PDF
type ReportService struct {
	productRepo catalog.ProductRepository
	renderer    PDFRenderer
	logger      *zap.Logger
}

// NewReportService creates a new report service. A nil renderer disables
// PDF export
func NewReportService(productRepo catalog.ProductRepository, renderer PDFRenderer, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		productRepo: productRepo,
		renderer:    renderer,
		logger:      logger,
	}
}

// ExportCSV streams all products matching the filter to w as CSV
func (s *ReportService) ExportCSV(ctx context.Context, filter catalogapp.ProductListFilter, w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	count := 0
	err := s.forEachProduct(ctx, filter, func(p *catalog.Product) error {
		record := []string{
			p.ID.String(),
			p.Name,
			p.Description,
			p.Category,
			p.Price.StringFixed(2),
			string(p.Status),
			strings.Join(p.ImageURLs(), "|"),
			p.CreatedAt.UTC().Format(time.RFC3339),
			p.UpdatedAt.UTC().Format(time.RFC3339),
		}
		count++
		return writer.Write(record)
	})
	if err != nil {
		return err
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}

	s.logger.Info("Catalog CSV exported", zap.Int("products", count))
	return nil
}

// ExportPDF renders all products matching the filter into a PDF catalog
// report
func (s *ReportService) ExportPDF(ctx context.Context, filter catalogapp.ProductListFilter, title string) ([]byte, error) {
	if s.renderer == nil {
		return nil, shared.NewDomainError("PDF_EXPORT_DISABLED", "PDF export is not enabled")
	}
	if title == "" {
		title = "Product Catalog"
	}

	report := export.CatalogReport{
		Title:       title,
		GeneratedAt: time.Now(),
	}

	err := s.forEachProduct(ctx, filter, func(p *catalog.Product) error {
		report.Rows = append(report.Rows, export.CatalogRow{
			Name:        p.Name,
			Description: p.Description,
			Category:    p.Category,
			Price:       p.Price.StringFixed(2),
			Status:      string(p.Status),
			CreatedAt:   p.CreatedAt,
		})
		report.Total++
		if p.IsPublished() {
			report.Published++
		} else {
			report.Paused++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	html, err := export.RenderCatalogHTML(report)
	if err != nil {
		return nil, err
	}

	pdf, err := s.renderer.Render(ctx, html)
	if err != nil {
		s.logger.Error("Catalog PDF rendering failed", zap.Error(err))
		return nil, err
	}

	s.logger.Info("Catalog PDF exported",
		zap.Int("products", report.Total),
		zap.Int("bytes", len(pdf)))

	return pdf, nil
}

// forEachProduct pages through the repository and invokes fn per product
func (s *ReportService) forEachProduct(ctx context.Context, filter catalogapp.ProductListFilter, fn func(*catalog.Product) error) error {
	sharedFilter := filter.ToSharedFilter()
	sharedFilter.Page = 1
	sharedFilter.PageSize = exportPageSize

	for {
		products, err := s.productRepo.FindAll(ctx, sharedFilter)
		if err != nil {
			return err
		}
		for i := range products {
			if err := fn(&products[i]); err != nil {
				return err
			}
		}
		if len(products) < sharedFilter.PageSize {
			return nil
		}
		sharedFilter.Page++
	}
}
