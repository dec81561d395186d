package models

import (
	"time"

	"gorm.io/datatypes"
)

// ProductionDaySnapshot freezes a production day at finalize time. Exactly one
// row per session date. Reopening flips IsOpen and stamps the reopen metadata
// but never deletes the row, so the finalize record survives a reopen.
type ProductionDaySnapshot struct {
	ID            string         `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	SessionDate   time.Time      `gorm:"type:date;not null;uniqueIndex" json:"sessionDate"`
	TotalItems    int            `gorm:"not null" json:"totalItems"`
	TotalQuantity int            `gorm:"not null" json:"totalQuantity"`
	Payload       datatypes.JSON `gorm:"type:jsonb;not null" json:"payload"`
	FinalizedAt   time.Time      `gorm:"not null" json:"finalizedAt"`
	FinalizedByID *string        `gorm:"type:uuid" json:"finalizedById,omitempty"`
	IsOpen        bool           `gorm:"not null;default:false" json:"isOpen"`
	ReopenedAt    *time.Time     `json:"reopenedAt,omitempty"`
	ReopenedByID  *string        `gorm:"type:uuid" json:"reopenedById,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Relations
	FinalizedBy *UserAuth `gorm:"foreignKey:FinalizedByID" json:"finalizedBy,omitempty"`
	ReopenedBy  *UserAuth `gorm:"foreignKey:ReopenedByID" json:"reopenedBy,omitempty"`
}

// TableName specifies the table name for ProductionDaySnapshot model
func (ProductionDaySnapshot) TableName() string {
	return "production_day_snapshots"
}

// ProductHistory is the longitudinal analytics feed: one row per ledger entry,
// appended in the finalize transaction.
type ProductHistory struct {
	ID          string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	SessionDate time.Time `gorm:"type:date;not null;index" json:"sessionDate"`
	ProductID   string    `gorm:"type:uuid;not null;index" json:"productId"`
	ProductCode string    `gorm:"not null;index" json:"productCode"`
	Quantity    int       `gorm:"not null" json:"quantity"`
	Checked     bool      `gorm:"not null;default:false" json:"checked"`
	FinalizedAt time.Time `gorm:"not null" json:"finalizedAt"`
}

// TableName specifies the table name for ProductHistory model
func (ProductHistory) TableName() string {
	return "product_history"
}
