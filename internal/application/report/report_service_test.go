package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	catalogapp "github.com/storefront/backend/internal/application/catalog"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockProductRepository is a mock implementation of ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindAll(ctx context.Context, filter shared.Filter) ([]catalog.Product, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindByStatus(ctx context.Context, status catalog.ProductStatus, filter shared.Filter) ([]catalog.Product, error) {
	args := m.Called(ctx, status, filter)
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) SaveBatch(ctx context.Context, products []*catalog.Product) error {
	args := m.Called(ctx, products)
	return args.Error(0)
}

func (m *MockProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockProductRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockProductRepository) CountByStatus(ctx context.Context, status catalog.ProductStatus) (int64, error) {
	args := m.Called(ctx, status)
	return args.Get(0).(int64), args.Error(1)
}

// fakeRenderer captures the HTML it was asked to render
type fakeRenderer struct {
	html string
	err  error
}

func (r *fakeRenderer) Render(ctx context.Context, html string) ([]byte, error) {
	r.html = html
	if r.err != nil {
		return nil, r.err
	}
	return []byte("%PDF-fake"), nil
}

func testProducts(t *testing.T) []catalog.Product {
	t.Helper()
	published, err := catalog.NewProduct("Walnut Desk", decimal.NewFromFloat(349.00))
	assert.NoError(t, err)
	published.SetDescription("Solid walnut, 140cm")
	assert.NoError(t, published.SetCategory("furniture"))

	paused, err := catalog.NewProduct("Oak Chair", decimal.NewFromFloat(89.50))
	assert.NoError(t, err)
	assert.NoError(t, paused.Pause())

	return []catalog.Product{*published, *paused}
}

func TestReportService_ExportCSV(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := NewReportService(mockRepo, nil, nil)

	ctx := context.Background()
	mockRepo.On("FindAll", ctx, mock.AnythingOfType("shared.Filter")).Return(testProducts(t), nil)

	var buf bytes.Buffer
	err := service.ExportCSV(ctx, catalogapp.ProductListFilter{}, &buf)

	assert.NoError(t, err)

	records, err := csv.NewReader(&buf).ReadAll()
	assert.NoError(t, err)
	assert.Len(t, records, 3)
	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, "Walnut Desk", records[1][1])
	assert.Equal(t, "349.00", records[1][4])
	assert.Equal(t, "published", records[1][5])
	assert.Equal(t, "paused", records[2][5])
	mockRepo.AssertExpectations(t)
}

func TestReportService_ExportCSV_RepositoryError(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := NewReportService(mockRepo, nil, nil)

	ctx := context.Background()
	mockRepo.On("FindAll", ctx, mock.AnythingOfType("shared.Filter")).Return([]catalog.Product{}, errors.New("db down"))

	var buf bytes.Buffer
	err := service.ExportCSV(ctx, catalogapp.ProductListFilter{}, &buf)

	assert.Error(t, err)
}

func TestReportService_ExportPDF(t *testing.T) {
	mockRepo := new(MockProductRepository)
	renderer := &fakeRenderer{}
	service := NewReportService(mockRepo, renderer, nil)

	ctx := context.Background()
	mockRepo.On("FindAll", ctx, mock.AnythingOfType("shared.Filter")).Return(testProducts(t), nil)

	pdf, err := service.ExportPDF(ctx, catalogapp.ProductListFilter{}, "")

	assert.NoError(t, err)
	assert.NotEmpty(t, pdf)
	assert.Contains(t, renderer.html, "Product Catalog")
	assert.Contains(t, renderer.html, "Walnut Desk")
	assert.Contains(t, renderer.html, "2 products (1 published, 1 paused)")
	mockRepo.AssertExpectations(t)
}

func TestReportService_ExportPDF_CustomTitle(t *testing.T) {
	mockRepo := new(MockProductRepository)
	renderer := &fakeRenderer{}
	service := NewReportService(mockRepo, renderer, nil)

	ctx := context.Background()
	mockRepo.On("FindAll", ctx, mock.AnythingOfType("shared.Filter")).Return([]catalog.Product{}, nil)

	_, err := service.ExportPDF(ctx, catalogapp.ProductListFilter{}, "Spring Catalog")

	assert.NoError(t, err)
	assert.True(t, strings.Contains(renderer.html, "Spring Catalog"))
}

func TestReportService_ExportPDF_Disabled(t *testing.T) {
	service := NewReportService(new(MockProductRepository), nil, nil)

	pdf, err := service.ExportPDF(context.Background(), catalogapp.ProductListFilter{}, "")

	assert.Nil(t, pdf)
	var domainErr *shared.DomainError
	assert.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "PDF_EXPORT_DISABLED", domainErr.Code)
}

func TestReportService_ExportPDF_RendererFailure(t *testing.T) {
	mockRepo := new(MockProductRepository)
	renderer := &fakeRenderer{err: errors.New("chrome crashed")}
	service := NewReportService(mockRepo, renderer, nil)

	ctx := context.Background()
	mockRepo.On("FindAll", ctx, mock.AnythingOfType("shared.Filter")).Return(testProducts(t), nil)

	pdf, err := service.ExportPDF(ctx, catalogapp.ProductListFilter{}, "")

	assert.Nil(t, pdf)
	assert.Error(t, err)
}
