package production

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tallix-com/prodgo/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Finalize freezes a day: it re-reads the full ledger for the date inside the
// transaction (the authoritative state, never a caller-supplied list), writes
// the immutable snapshot payload with totals and actor names, appends one
// history row per entry, and clears the ledger. Snapshot write and ledger
// clear commit together or not at all.
func (s *Service) Finalize(ctx context.Context, date time.Time, actorID string) (*models.ProductionDaySnapshot, error) {
	date = SessionDate(date)
	now := s.now()

	if date.After(SessionDate(now)) {
		return nil, ErrFutureDate
	}

	var snap *models.ProductionDaySnapshot
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockDate(tx, date); err != nil {
			return err
		}

		existing, err := findSnapshot(tx, date)
		if err != nil {
			return err
		}
		if existing != nil && !existing.IsOpen {
			return ErrAlreadyFinalized
		}

		var entries []models.ProductionEntry
		if err := tx.Preload("CreatedBy").Preload("CheckedBy").
			Where("session_date = ?", date).
			Order("inserted_at ASC").
			Find(&entries).Error; err != nil {
			return err
		}

		payload, totalQuantity, err := buildPayload(entries)
		if err != nil {
			return fmt.Errorf("failed to serialize payload: %w", err)
		}

		if existing == nil {
			existing = &models.ProductionDaySnapshot{SessionDate: date}
		}
		existing.TotalItems = len(entries)
		existing.TotalQuantity = totalQuantity
		existing.Payload = datatypes.JSON(payload)
		existing.FinalizedAt = now
		existing.IsOpen = false
		if actorID != "" {
			id := actorID
			existing.FinalizedByID = &id
		}
		// Re-finalizing a reopened day updates the row in place; the reopen
		// stamps from the previous cycle stay as audit trail.
		if err := tx.Save(existing).Error; err != nil {
			return err
		}

		for i := range entries {
			hist := models.ProductHistory{
				SessionDate: date,
				ProductID:   entries[i].ProductID,
				ProductCode: entries[i].ProductCode,
				Quantity:    entries[i].Quantity,
				Checked:     entries[i].Checked,
				FinalizedAt: now,
			}
			if err := tx.Create(&hist).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("session_date = ?", date).
			Delete(&models.ProductionEntry{}).Error; err != nil {
			return err
		}

		snap = existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"date":     date.Format("2006-01-02"),
		"items":    snap.TotalItems,
		"quantity": snap.TotalQuantity,
	}).Info("day finalized")

	s.recordAudit(ctx, models.AuditDayFinalize, actorID, date, snap.ID, map[string]interface{}{
		"totalItems":    snap.TotalItems,
		"totalQuantity": snap.TotalQuantity,
	})
	s.publish(Event{Type: "day.finalized", Date: date.Format("2006-01-02"), Data: snap})

	return snap, nil
}

// buildPayload serializes the full entry set in canonical form, with actor
// display names resolved so the frozen report stays readable after user rows
// change or disappear.
func buildPayload(entries []models.ProductionEntry) ([]byte, int, error) {
	payload := make([]PayloadEntry, 0, len(entries))
	totalQuantity := 0

	for i := range entries {
		e := &entries[i]
		totalQuantity += e.Quantity

		pe := PayloadEntry{
			ProductID:          e.ProductID,
			ProductCode:        e.ProductCode,
			ProductDescription: e.ProductDescription,
			PhotoURL:           e.PhotoURL,
			Quantity:           e.Quantity,
			Checked:            e.Checked,
			InsertedAt:         e.InsertedAt.UTC().Format(time.RFC3339),
			CreatedByName:      e.CreatedBy.DisplayName(),
			CheckedByName:      e.CheckedBy.DisplayName(),
		}
		if e.CreatedByID != nil {
			pe.CreatedByID = *e.CreatedByID
		}
		if e.CheckedByID != nil {
			pe.CheckedByID = *e.CheckedByID
		}
		if e.CheckedAt != nil {
			pe.CheckedAt = e.CheckedAt.UTC().Format(time.RFC3339)
		}
		payload = append(payload, pe)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, err
	}
	return raw, totalQuantity, nil
}

// Reopen reverses a finalize: ledger rows are rebuilt from the snapshot
// payload, then the snapshot flips open and gets its reopen stamps, all in
// one transaction. The finalize record itself is retained untouched.
func (s *Service) Reopen(ctx context.Context, date time.Time, actorID string) error {
	date = SessionDate(date)
	now := s.now()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockDate(tx, date); err != nil {
			return err
		}

		snap, err := findSnapshot(tx, date)
		if err != nil {
			return err
		}
		if snap == nil {
			return ErrSnapshotNotFound
		}
		if snap.IsOpen {
			return ErrDayAlreadyOpen
		}

		entries, err := reconcileEntries([]byte(snap.Payload), date, now)
		if err != nil {
			return err
		}
		if err := dropUnknownActors(tx, entries); err != nil {
			return err
		}

		// Clear any stray rows from a previous partial reopen before
		// inserting the reconstructed set.
		if err := tx.Where("session_date = ?", date).
			Delete(&models.ProductionEntry{}).Error; err != nil {
			return err
		}
		for i := range entries {
			if err := tx.Create(&entries[i]).Error; err != nil {
				return err
			}
		}

		updates := map[string]interface{}{
			"is_open":     true,
			"reopened_at": now,
		}
		if actorID != "" {
			updates["reopened_by_id"] = actorID
		}
		return tx.Model(snap).Updates(updates).Error
	})
	if err != nil {
		return err
	}

	s.log.WithField("date", date.Format("2006-01-02")).Info("day reopened")

	s.recordAudit(ctx, models.AuditDayReopen, actorID, date, "", nil)
	s.publish(Event{Type: "day.reopened", Date: date.Format("2006-01-02")})

	return nil
}

// dropUnknownActors nulls out actor references that no longer resolve to a
// user row, so restored entries never trip the foreign keys. Old payloads may
// carry ids from systems this instance never knew.
func dropUnknownActors(tx *gorm.DB, entries []models.ProductionEntry) error {
	ids := make(map[string]bool)
	for i := range entries {
		if entries[i].CreatedByID != nil {
			ids[*entries[i].CreatedByID] = false
		}
		if entries[i].CheckedByID != nil {
			ids[*entries[i].CheckedByID] = false
		}
	}
	if len(ids) == 0 {
		return nil
	}

	list := make([]string, 0, len(ids))
	for id := range ids {
		list = append(list, id)
	}
	var known []string
	if err := tx.Model(&models.UserAuth{}).Unscoped().
		Where("id IN ?", list).
		Pluck("id", &known).Error; err != nil {
		return err
	}
	for _, id := range known {
		ids[id] = true
	}

	for i := range entries {
		if entries[i].CreatedByID != nil && !ids[*entries[i].CreatedByID] {
			entries[i].CreatedByID = nil
		}
		if entries[i].CheckedByID != nil && !ids[*entries[i].CheckedByID] {
			entries[i].CheckedByID = nil
			entries[i].CheckedAt = nil
		}
	}
	return nil
}
