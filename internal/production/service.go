package production

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tallix-com/prodgo/internal/audit"
	"github.com/tallix-com/prodgo/internal/database"
	"gorm.io/gorm"
)

// Event is pushed to connected scanner devices after a committed change so
// open UIs refresh without polling.
type Event struct {
	Type string      `json:"type"` // entry.added, entry.updated, entry.deleted, entry.checked, day.finalized, day.reopened
	Date string      `json:"date"`
	Data interface{} `json:"data,omitempty"`
}

// EventPublisher pushes events to listeners. May be nil.
type EventPublisher interface {
	Publish(evt Event)
}

// Service owns the production-day lifecycle: the live entry ledger while a day
// is open, the finalize transition into an immutable snapshot, and the reopen
// transition back. All multi-step writes run inside a single database
// transaction serialized per session date.
type Service struct {
	db     *database.DB
	log    *logrus.Logger
	audit  *audit.Recorder
	events EventPublisher

	nowFn func() time.Time
}

// NewService wires the production core. audit and events may be nil.
func NewService(db *database.DB, log *logrus.Logger, rec *audit.Recorder, events EventPublisher) *Service {
	return &Service{
		db:     db,
		log:    log,
		audit:  rec,
		events: events,
		nowFn:  time.Now,
	}
}

// SessionDate truncates a timestamp to the calendar date an entry is
// attributed to. Stored as a date column, compared date-only.
func SessionDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

const advisoryLockClass = 7201 // namespace for production-day locks

// lockDate serializes writer transactions per session date. The lock lives in
// the store's transaction manager and is released on commit or rollback, so
// unrelated dates stay fully concurrent.
func lockDate(tx *gorm.DB, date time.Time) error {
	key := date.Year()*10000 + int(date.Month())*100 + date.Day()
	return tx.Exec("SELECT pg_advisory_xact_lock(?, ?)", advisoryLockClass, key).Error
}

func (s *Service) publish(evt Event) {
	if s.events != nil {
		s.events.Publish(evt)
	}
}

func (s *Service) now() time.Time {
	return s.nowFn()
}
