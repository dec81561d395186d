package production

import (
	"context"
	"errors"
	"time"

	"github.com/tallix-com/prodgo/internal/models"
	"gorm.io/gorm"
)

// Day status reasons surfaced to clients.
const (
	ReasonOpen       = "open"
	ReasonReopened   = "reopened"
	ReasonFinalized  = "finalized"
	ReasonFutureDate = "future date"
)

// DayStatus is the derived lifecycle state of a session date. A day is open
// when no snapshot exists, or when the snapshot was reopened. This is the
// single authority consulted before any ledger mutation.
type DayStatus struct {
	SessionDate time.Time                     `json:"sessionDate"`
	IsOpen      bool                          `json:"isOpen"`
	CanFinalize bool                          `json:"canFinalize"`
	Reason      string                        `json:"reason"`
	Snapshot    *models.ProductionDaySnapshot `json:"snapshot,omitempty"`
}

// DayStatus reports whether a session date is open and finalizable.
func (s *Service) DayStatus(ctx context.Context, date time.Time) (DayStatus, error) {
	date = SessionDate(date)

	snap, err := findSnapshot(s.db.WithContext(ctx), date)
	if err != nil {
		return DayStatus{}, err
	}

	return s.deriveStatus(date, snap), nil
}

func (s *Service) deriveStatus(date time.Time, snap *models.ProductionDaySnapshot) DayStatus {
	st := DayStatus{
		SessionDate: date,
		IsOpen:      snap == nil || snap.IsOpen,
		CanFinalize: !date.After(SessionDate(s.now())),
		Snapshot:    snap,
	}

	switch {
	case !st.IsOpen:
		st.Reason = ReasonFinalized
	case !st.CanFinalize:
		st.Reason = ReasonFutureDate
	case snap != nil:
		st.Reason = ReasonReopened
	default:
		st.Reason = ReasonOpen
	}
	return st
}

// findSnapshot returns the snapshot row for a date, or nil when none exists.
func findSnapshot(tx *gorm.DB, date time.Time) (*models.ProductionDaySnapshot, error) {
	var snap models.ProductionDaySnapshot
	err := tx.Where("session_date = ?", date).First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// ensureOpen fails with ErrDayClosed when the date has a closed snapshot.
// Must run inside the caller's transaction, after the date lock is held.
func ensureOpen(tx *gorm.DB, date time.Time) error {
	snap, err := findSnapshot(tx, date)
	if err != nil {
		return err
	}
	if snap != nil && !snap.IsOpen {
		return ErrDayClosed
	}
	return nil
}
