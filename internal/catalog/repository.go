package catalog

import (
	"context"
	"errors"

	pkgerrors "github.com/commercezen/engine/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository encapsulates catalog persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates the products table when missing.
func (r *Repository) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&Product{})
}

// FindByID loads a single product.
func (r *Repository) FindByID(ctx context.Context, id string) (*Product, error) {
	var product Product
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return &product, nil
}

// List returns the whole catalog ordered by name.
func (r *Repository) List(ctx context.Context) ([]Product, error) {
	var products []Product
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&products).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return products, nil
}

// ListFeatured returns the products flagged for the storefront highlight.
func (r *Repository) ListFeatured(ctx context.Context) ([]Product, error) {
	var products []Product
	if err := r.db.WithContext(ctx).Where("featured = ?", true).Order("name ASC").Find(&products).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list featured products")
	}
	return products, nil
}

// Seed upserts the provided products; existing rows are refreshed in place.
func (r *Repository) Seed(ctx context.Context, products []Product) error {
	if len(products) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&products).Error
}
