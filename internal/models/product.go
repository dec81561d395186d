package models

import (
	"time"

	"gorm.io/gorm"
)

// Product is the factory's product catalog. Managed elsewhere; the tracker
// only reads it to resolve a scanned code into code/description/photo.
type Product struct {
	ID          string         `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	DefaultCode string         `gorm:"uniqueIndex;not null" json:"defaultCode"` // SKU
	Barcode     string         `gorm:"index" json:"barcode"`                    // EAN13
	Name        string         `gorm:"not null" json:"name"`
	PhotoURL    string         `json:"photoUrl,omitempty"`
	Active      bool           `gorm:"default:true" json:"active"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for Product model
func (Product) TableName() string {
	return "products"
}
