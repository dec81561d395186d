package models

import (
	"time"
)

// ProductionEntry is one live ledger row per (session date, product) while a
// production day is open. Rows for finalized days do not exist in this table;
// the day's snapshot payload is the historical record.
//
// Slot is 0 for grouped rows. Adds with grouping disabled take the next free
// slot, so the (session_date, product_id, slot) unique index both guards the
// grouped upsert race and still permits explicit duplicates.
type ProductionEntry struct {
	ID                 string     `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	SessionDate        time.Time  `gorm:"type:date;not null;uniqueIndex:idx_entries_session_product,priority:1" json:"sessionDate"`
	ProductID          string     `gorm:"type:uuid;not null;uniqueIndex:idx_entries_session_product,priority:2" json:"productId"`
	Slot               int        `gorm:"not null;default:0;uniqueIndex:idx_entries_session_product,priority:3" json:"-"`
	ProductCode        string     `gorm:"not null;index" json:"productCode"`
	ProductDescription string     `json:"productDescription"`
	PhotoURL           string     `json:"photoUrl,omitempty"`
	Quantity           int        `gorm:"not null" json:"quantity"`
	Checked            bool       `gorm:"not null;default:false" json:"checked"`
	InsertedAt         time.Time  `gorm:"not null;index" json:"insertedAt"`
	CreatedByID        *string    `gorm:"type:uuid" json:"createdById,omitempty"`
	CheckedByID        *string    `gorm:"type:uuid" json:"checkedById,omitempty"`
	CheckedAt          *time.Time `json:"checkedAt,omitempty"`

	// Relations
	CreatedBy *UserAuth `gorm:"foreignKey:CreatedByID" json:"createdBy,omitempty"`
	CheckedBy *UserAuth `gorm:"foreignKey:CheckedByID" json:"checkedBy,omitempty"`
}

// TableName specifies the table name for ProductionEntry model
func (ProductionEntry) TableName() string {
	return "production_entries"
}
