package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog record keyed by its natural UniqueKey.
// A re-upload carrying the same key overwrites every mapped field.
type Product struct {
	ID             uint                `gorm:"primaryKey" json:"id"`
	UniqueKey      string              `gorm:"type:varchar(255);not null;uniqueIndex:idx_products_unique_key" json:"unique_key"`
	Title          *string             `gorm:"column:product_title;type:text" json:"product_title"`
	Description    *string             `gorm:"column:product_description;type:text" json:"product_description"`
	StyleNumber    *string             `gorm:"type:varchar(255)" json:"style_number"`
	ColorFamily    *string             `gorm:"column:mainframe_color;type:varchar(255)" json:"mainframe_color"`
	Size           *string             `gorm:"type:varchar(255)" json:"size"`
	ColorName      *string             `gorm:"type:varchar(255)" json:"color_name"`
	UnitPrice      decimal.NullDecimal `gorm:"column:piece_price;type:decimal(10,2)" json:"piece_price"`
	SourceUploadID *string             `gorm:"column:file_upload_id;type:text;index:idx_products_upload" json:"file_upload_id"`
	SourceUpload   *UploadJob          `gorm:"foreignKey:SourceUploadID;constraint:OnDelete:SET NULL" json:"-"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// TableName returns the database table name for Product.
func (Product) TableName() string {
	return "products"
}
