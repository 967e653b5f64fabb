package repository

import (
	"context"

	"github.com/timmy/catalogsync/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// upsertColumns are overwritten when a product with the same unique key already exists.
var upsertColumns = []string{
	"product_title",
	"product_description",
	"style_number",
	"mainframe_color",
	"size",
	"color_name",
	"piece_price",
	"file_upload_id",
	"updated_at",
}

// ProductRepository handles catalog product operations.
type ProductRepository struct {
	db *gorm.DB
}

// NewProductRepository creates a new ProductRepository.
func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// Upsert inserts the product or overwrites every mapped field of the existing row with the same unique key.
// Each call runs in its own transaction so a failing row never affects its siblings.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - product: product draft to create or update.
//
// Returns:
//   - error: wraps ErrStoreUnavailable for store-wide failures; any other error is row-scoped.
func (r *ProductRepository) Upsert(ctx context.Context, product *domain.Product) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Omit(clause.Associations).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "unique_key"}},
			DoUpdates: clause.AssignmentColumns(upsertColumns),
		}).Create(product).Error
	})
	return classify(err)
}

// GetByUniqueKey retrieves a product by its natural key.
func (r *ProductRepository) GetByUniqueKey(ctx context.Context, key string) (*domain.Product, error) {
	var product domain.Product
	if err := r.db.WithContext(ctx).First(&product, "unique_key = ?", key).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// Count returns the number of products in the catalog.
func (r *ProductRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Product{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountByUpload returns how many products were last written by the given upload.
func (r *ProductRepository) CountByUpload(ctx context.Context, uploadID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Product{}).
		Where("file_upload_id = ?", uploadID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
