package models

import (
	"time"

	"gorm.io/datatypes"
)

// Audit actions emitted by the production service.
const (
	AuditEntryAdd    = "entry.add"
	AuditEntryUpdate = "entry.update"
	AuditEntryDelete = "entry.delete"
	AuditEntryCheck  = "entry.check"
	AuditDayFinalize = "day.finalize"
	AuditDayReopen   = "day.reopen"
)

// AuditLog records one business-meaningful action. Written best-effort after
// the primary transaction commits; losing an audit row never fails a request.
type AuditLog struct {
	ID          string         `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Action      string         `gorm:"not null;index" json:"action"`
	ActorID     *string        `gorm:"type:uuid;index" json:"actorId,omitempty"`
	SessionDate *time.Time     `gorm:"type:date;index" json:"sessionDate,omitempty"`
	EntityID    string         `json:"entityId,omitempty"`
	Details     datatypes.JSON `gorm:"type:jsonb" json:"details,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// TableName specifies the table name for AuditLog model
func (AuditLog) TableName() string {
	return "audit_logs"
}
