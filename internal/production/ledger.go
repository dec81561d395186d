package production

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tallix-com/prodgo/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductRef is the catalog data resolved at scan time. ID may be empty for
// codes not (yet) in the catalog; a fresh identifier is generated then.
type ProductRef struct {
	ID          string
	Code        string
	Description string
	PhotoURL    string
}

// AddEntryInput carries one "add" action from a scanner or form.
type AddEntryInput struct {
	Date     time.Time
	Product  ProductRef
	Quantity int
	Grouping bool
	ActorID  string
}

// Summary are the per-day ledger totals. TotalItems counts rows, not pieces.
type Summary struct {
	TotalItems    int `json:"totalItems"`
	TotalQuantity int `json:"totalQuantity"`
}

// AddEntry records a production quantity for a product on an open day.
//
// With grouping enabled and an unchecked row already present for the product,
// the quantity is incremented in place, so repeated scans of the same
// barcode accumulate. With grouping disabled a new row is always
// inserted. A product already conferred for the day is rejected outright.
func (s *Service) AddEntry(ctx context.Context, in AddEntryInput) (*models.ProductionEntry, error) {
	if in.Quantity < 1 {
		return nil, ErrBelowMinimum
	}
	if in.Product.Code == "" {
		return nil, fmt.Errorf("product code is required")
	}
	if in.Product.ID == "" {
		in.Product.ID = uuid.NewString()
	}
	date := SessionDate(in.Date)

	var entry models.ProductionEntry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockDate(tx, date); err != nil {
			return err
		}
		if err := ensureOpen(tx, date); err != nil {
			return err
		}

		// A conferred product must not come back, neither as a new row nor
		// as an increment.
		var checkedCount int64
		if err := tx.Model(&models.ProductionEntry{}).
			Where("session_date = ? AND product_id = ? AND checked", date, in.Product.ID).
			Count(&checkedCount).Error; err != nil {
			return err
		}
		if checkedCount > 0 {
			return ErrAlreadyChecked
		}

		if in.Grouping {
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("session_date = ? AND product_id = ? AND NOT checked", date, in.Product.ID).
				Order("slot ASC").
				First(&entry).Error
			if err == nil {
				entry.Quantity += in.Quantity
				return tx.Model(&entry).Update("quantity", entry.Quantity).Error
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}

		slot, err := nextSlot(tx, date, in.Product.ID)
		if err != nil {
			return err
		}

		actorID := in.ActorID
		entry = models.ProductionEntry{
			SessionDate:        date,
			ProductID:          in.Product.ID,
			Slot:               slot,
			ProductCode:        in.Product.Code,
			ProductDescription: in.Product.Description,
			PhotoURL:           in.Product.PhotoURL,
			Quantity:           in.Quantity,
			InsertedAt:         s.now(),
		}
		if actorID != "" {
			entry.CreatedByID = &actorID
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"date":    date.Format("2006-01-02"),
		"product": in.Product.Code,
		"qty":     in.Quantity,
	}).Info("entry recorded")

	s.recordAudit(ctx, models.AuditEntryAdd, in.ActorID, date, entry.ID, map[string]interface{}{
		"productCode": in.Product.Code,
		"quantity":    in.Quantity,
		"grouping":    in.Grouping,
	})
	s.publish(Event{Type: "entry.added", Date: date.Format("2006-01-02"), Data: entry})

	return &entry, nil
}

// nextSlot returns the lowest free slot for a product on a date. Safe without
// a row lock because all writers on the date hold the advisory lock.
func nextSlot(tx *gorm.DB, date time.Time, productID string) (int, error) {
	var slot int
	err := tx.Model(&models.ProductionEntry{}).
		Where("session_date = ? AND product_id = ?", date, productID).
		Select("COALESCE(MAX(slot) + 1, 0)").
		Scan(&slot).Error
	return slot, err
}

// SetQuantity replaces an entry's quantity with an explicit positive value.
func (s *Service) SetQuantity(ctx context.Context, entryID string, quantity int, actorID string) (*models.ProductionEntry, error) {
	if quantity < 1 {
		return nil, ErrBelowMinimum
	}
	return s.mutateEntry(ctx, entryID, actorID, models.AuditEntryUpdate, func(tx *gorm.DB, entry *models.ProductionEntry) error {
		entry.Quantity = quantity
		return tx.Model(entry).Update("quantity", quantity).Error
	})
}

// AdjustQuantity applies a signed delta to an entry's quantity. The result
// may never drop below 1; delete the entry instead.
func (s *Service) AdjustQuantity(ctx context.Context, entryID string, delta int, actorID string) (*models.ProductionEntry, error) {
	return s.mutateEntry(ctx, entryID, actorID, models.AuditEntryUpdate, func(tx *gorm.DB, entry *models.ProductionEntry) error {
		next := entry.Quantity + delta
		if next < 1 {
			return ErrBelowMinimum
		}
		entry.Quantity = next
		return tx.Model(entry).Update("quantity", next).Error
	})
}

// DeleteEntry removes a single ledger row.
func (s *Service) DeleteEntry(ctx context.Context, entryID string, actorID string) error {
	_, err := s.mutateEntry(ctx, entryID, actorID, models.AuditEntryDelete, func(tx *gorm.DB, entry *models.ProductionEntry) error {
		return tx.Delete(entry).Error
	})
	return err
}

// CheckEntry confers an entry: a one-way latch that freezes it against all
// further edits. There is no unchecking.
func (s *Service) CheckEntry(ctx context.Context, entryID string, actorID string) (*models.ProductionEntry, error) {
	return s.mutateEntry(ctx, entryID, actorID, models.AuditEntryCheck, func(tx *gorm.DB, entry *models.ProductionEntry) error {
		now := s.now()
		entry.Checked = true
		entry.CheckedAt = &now
		if actorID != "" {
			entry.CheckedByID = &actorID
		}
		return tx.Model(entry).Updates(map[string]interface{}{
			"checked":       true,
			"checked_at":    now,
			"checked_by_id": entry.CheckedByID,
		}).Error
	})
}

// mutateEntry runs one guarded entry mutation in a transaction: loads the row
// to learn its session date, takes the date lock, re-reads the row under a
// row lock, applies the conferred/day-open guards, then the mutation.
func (s *Service) mutateEntry(ctx context.Context, entryID, actorID, auditAction string, fn func(tx *gorm.DB, entry *models.ProductionEntry) error) (*models.ProductionEntry, error) {
	var entry models.ProductionEntry

	// Peek without locks to learn the date; the authoritative read happens
	// under the date lock below. Lock ordering is date first, row second.
	err := s.db.WithContext(ctx).First(&entry, "id = ?", entryID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, err
	}
	date := entry.SessionDate

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockDate(tx, date); err != nil {
			return err
		}

		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&entry, "id = ?", entryID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrEntryNotFound
		}
		if err != nil {
			return err
		}

		// Conferred rows win over the day guard: AlreadyChecked regardless
		// of day-open status.
		if entry.Checked {
			return ErrAlreadyChecked
		}
		if err := ensureOpen(tx, date); err != nil {
			return err
		}

		return fn(tx, &entry)
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, auditAction, actorID, date, entry.ID, map[string]interface{}{
		"productCode": entry.ProductCode,
		"quantity":    entry.Quantity,
	})
	s.publish(Event{Type: eventForAudit(auditAction), Date: date.Format("2006-01-02"), Data: entry})

	return &entry, nil
}

func eventForAudit(action string) string {
	switch action {
	case models.AuditEntryDelete:
		return "entry.deleted"
	case models.AuditEntryCheck:
		return "entry.checked"
	default:
		return "entry.updated"
	}
}

// ListEntries returns the day's ledger, most recently inserted first, with
// creator and checker resolved for display. Reads are not gated by day
// status; closed days simply have an empty ledger and are read via the
// snapshot payload instead.
func (s *Service) ListEntries(ctx context.Context, date time.Time) ([]models.ProductionEntry, error) {
	var entries []models.ProductionEntry
	err := s.db.WithContext(ctx).
		Preload("CreatedBy").
		Preload("CheckedBy").
		Where("session_date = ?", SessionDate(date)).
		Order("inserted_at DESC").
		Find(&entries).Error
	return entries, err
}

// Summarize returns the day's totals: row count and quantity sum.
func (s *Service) Summarize(ctx context.Context, date time.Time) (Summary, error) {
	var sum Summary
	err := s.db.WithContext(ctx).Model(&models.ProductionEntry{}).
		Where("session_date = ?", SessionDate(date)).
		Select("COUNT(*) AS total_items, COALESCE(SUM(quantity), 0) AS total_quantity").
		Scan(&sum).Error
	return sum, err
}

func (s *Service) recordAudit(ctx context.Context, action, actorID string, date time.Time, entityID string, details map[string]interface{}) {
	if s.audit == nil {
		return
	}
	s.audit.Record(ctx, action, actorID, &date, entityID, details)
}
