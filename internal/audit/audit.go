package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tallix-com/prodgo/internal/database"
	"github.com/tallix-com/prodgo/internal/models"
	"gorm.io/datatypes"
)

// Recorder writes one audit row per business action. It runs on its own
// session, outside the primary transaction: an audit failure is logged and
// swallowed, never rolled into the request outcome.
type Recorder struct {
	db  *database.DB
	log *logrus.Logger
}

// NewRecorder builds an audit recorder over the shared store handle.
func NewRecorder(db *database.DB, log *logrus.Logger) *Recorder {
	return &Recorder{db: db, log: log}
}

// Record persists an audit row. Best-effort only.
func (r *Recorder) Record(ctx context.Context, action, actorID string, sessionDate *time.Time, entityID string, details map[string]interface{}) {
	row := models.AuditLog{
		Action:      action,
		SessionDate: sessionDate,
		EntityID:    entityID,
	}
	if actorID != "" {
		row.ActorID = &actorID
	}
	if details != nil {
		if raw, err := json.Marshal(details); err == nil {
			row.Details = datatypes.JSON(raw)
		}
	}

	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		r.log.WithFields(logrus.Fields{
			"action": action,
			"entity": entityID,
		}).WithError(err).Warn("audit write failed")
	}
}
