package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
)

// ProductService handles product-related business operations
type ProductService struct {
	productRepo catalog.ProductRepository
	notifier    ChangeNotifier
}

// NewProductService creates a new ProductService
func NewProductService(productRepo catalog.ProductRepository, notifier ChangeNotifier) *ProductService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &ProductService{
		productRepo: productRepo,
		notifier:    notifier,
	}
}

// Create creates a new product
func (s *ProductService) Create(ctx context.Context, req CreateProductRequest) (*ProductResponse, error) {
	product, err := catalog.NewProduct(req.Name, req.Price)
	if err != nil {
		return nil, err
	}

	if req.Description != "" {
		product.SetDescription(req.Description)
	}
	if req.Category != "" {
		if err := product.SetCategory(req.Category); err != nil {
			return nil, err
		}
	}
	if len(req.Images) > 0 {
		if err := product.SetImages(req.Images); err != nil {
			return nil, err
		}
	}
	if req.Status == string(catalog.ProductStatusPaused) {
		if err := product.Pause(); err != nil {
			return nil, err
		}
	}

	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}

	s.notifier.ProductCreated(ctx, product.ID.String())

	response := ToProductResponse(product)
	return &response, nil
}

// Get returns a product by ID
func (s *ProductService) Get(ctx context.Context, id uuid.UUID) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	response := ToProductResponse(product)
	return &response, nil
}

// GetPublished returns a product by ID only if it is published.
// Paused products are hidden from the public catalog
func (s *ProductService) GetPublished(ctx context.Context, id uuid.UUID) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !product.IsPublished() {
		return nil, shared.ErrNotFound
	}

	response := ToProductResponse(product)
	return &response, nil
}

// List returns a paginated product list matching the filter
func (s *ProductService) List(ctx context.Context, filter ProductListFilter) (*shared.Paginated[ProductResponse], error) {
	sharedFilter := filter.ToSharedFilter()

	products, err := s.productRepo.FindAll(ctx, sharedFilter)
	if err != nil {
		return nil, err
	}
	total, err := s.productRepo.Count(ctx, sharedFilter)
	if err != nil {
		return nil, err
	}

	result := shared.NewPaginated(ToProductResponses(products), total, sharedFilter.Page, sharedFilter.PageSize)
	return &result, nil
}

// ListPublished returns the public catalog: published products only,
// regardless of what the caller's filter asks for
func (s *ProductService) ListPublished(ctx context.Context, filter ProductListFilter) (*shared.Paginated[ProductResponse], error) {
	filter.Status = string(catalog.ProductStatusPublished)
	return s.List(ctx, filter)
}

// Update updates a product's fields
func (s *ProductService) Update(ctx context.Context, id uuid.UUID, req UpdateProductRequest) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	name := product.Name
	if req.Name != nil {
		name = *req.Name
	}
	description := product.Description
	if req.Description != nil {
		description = *req.Description
	}
	category := product.Category
	if req.Category != nil {
		category = *req.Category
	}
	price := product.Price
	if req.Price != nil {
		price = *req.Price
	}

	if err := product.Update(name, description, category, price); err != nil {
		return nil, err
	}
	if req.Images != nil {
		if err := product.SetImages(req.Images); err != nil {
			return nil, err
		}
	}
	if req.Status != nil && *req.Status != string(product.Status) {
		switch catalog.ProductStatus(*req.Status) {
		case catalog.ProductStatusPublished:
			err = product.Publish()
		case catalog.ProductStatusPaused:
			err = product.Pause()
		default:
			err = shared.NewDomainError("INVALID_STATUS", "Unknown product status")
		}
		if err != nil {
			return nil, err
		}
	}

	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}

	s.notifier.ProductUpdated(ctx, product.ID.String())

	response := ToProductResponse(product)
	return &response, nil
}

// SetStatus publishes or pauses a product
func (s *ProductService) SetStatus(ctx context.Context, id uuid.UUID, status catalog.ProductStatus) (*ProductResponse, error) {
	if !catalog.ValidStatus(status) {
		return nil, shared.NewDomainError("INVALID_STATUS", "Unknown product status")
	}

	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	switch status {
	case catalog.ProductStatusPublished:
		err = product.Publish()
	case catalog.ProductStatusPaused:
		err = product.Pause()
	}
	if err != nil {
		return nil, err
	}

	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}

	s.notifier.ProductUpdated(ctx, product.ID.String())

	response := ToProductResponse(product)
	return &response, nil
}

// Delete removes a product from the catalog
func (s *ProductService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.productRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.notifier.ProductDeleted(ctx, id.String())
	return nil
}
