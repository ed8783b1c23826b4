package catalog

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
)

// ProductStatus represents the publication status of a product
type ProductStatus string

const (
	ProductStatusPublished ProductStatus = "published"
	ProductStatusPaused    ProductStatus = "paused"
)

// ValidStatus reports whether s is a known product status
func ValidStatus(s ProductStatus) bool {
	return s == ProductStatusPublished || s == ProductStatusPaused
}

// Product represents an item in the storefront catalog
// It is the aggregate root for catalog operations
type Product struct {
	shared.BaseAggregateRoot
	Name        string          `gorm:"type:varchar(200);not null;index"`
	Description string          `gorm:"type:text"`
	Price       decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Category    string          `gorm:"type:varchar(100);index"`
	Images      string          `gorm:"type:jsonb;default:'[]'"` // JSON array of image URLs
	Status      ProductStatus   `gorm:"type:varchar(20);not null;default:'published';index"`
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// NewProduct creates a new published product
func NewProduct(name string, price decimal.Decimal) (*Product, error) {
	if err := validateProductName(name); err != nil {
		return nil, err
	}
	if err := validatePrice(price); err != nil {
		return nil, err
	}

	product := &Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              strings.TrimSpace(name),
		Price:             price,
		Images:            "[]",
		Status:            ProductStatusPublished,
	}

	product.AddDomainEvent(NewProductCreatedEvent(product))

	return product, nil
}

// Update updates the product's basic information
func (p *Product) Update(name, description, category string, price decimal.Decimal) error {
	if err := validateProductName(name); err != nil {
		return err
	}
	if err := validatePrice(price); err != nil {
		return err
	}

	p.Name = strings.TrimSpace(name)
	p.Description = description
	p.Category = category
	p.Price = price
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	p.AddDomainEvent(NewProductUpdatedEvent(p))

	return nil
}

// SetDescription sets the product description
func (p *Product) SetDescription(description string) {
	p.Description = description
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
}

// SetCategory sets the product category
func (p *Product) SetCategory(category string) error {
	if len(category) > 100 {
		return shared.NewDomainError("INVALID_CATEGORY", "Category cannot exceed 100 characters")
	}

	p.Category = strings.TrimSpace(category)
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return nil
}

// SetImages replaces the product's image URL list
func (p *Product) SetImages(urls []string) error {
	if urls == nil {
		urls = []string{}
	}
	data, err := json.Marshal(urls)
	if err != nil {
		return shared.NewDomainError("INVALID_IMAGES", "Images must be a list of URLs")
	}

	p.Images = string(data)
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return nil
}

// ImageURLs returns the product's image URLs decoded from storage
// Malformed stored data yields an empty list rather than an error
func (p *Product) ImageURLs() []string {
	if p.Images == "" {
		return []string{}
	}
	var urls []string
	if err := json.Unmarshal([]byte(p.Images), &urls); err != nil {
		return []string{}
	}
	return urls
}

// Publish makes the product visible in the public catalog
func (p *Product) Publish() error {
	if p.Status == ProductStatusPublished {
		return shared.NewDomainError("ALREADY_PUBLISHED", "Product is already published")
	}

	p.Status = ProductStatusPublished
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	p.AddDomainEvent(NewProductStatusChangedEvent(p, ProductStatusPaused, ProductStatusPublished))

	return nil
}

// Pause removes the product from the public catalog without deleting it
func (p *Product) Pause() error {
	if p.Status == ProductStatusPaused {
		return shared.NewDomainError("ALREADY_PAUSED", "Product is already paused")
	}

	p.Status = ProductStatusPaused
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	p.AddDomainEvent(NewProductStatusChangedEvent(p, ProductStatusPublished, ProductStatusPaused))

	return nil
}

// IsPublished returns true if the product is visible in the public catalog
func (p *Product) IsPublished() bool {
	return p.Status == ProductStatusPublished
}

// validateProductName validates the product name
func validateProductName(name string) error {
	if strings.TrimSpace(name) == "" {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot exceed 200 characters")
	}
	return nil
}

// validatePrice validates the product price
func validatePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Price cannot be negative")
	}
	return nil
}
