package entities

import "time"

type AuditEventType string

const (
	AuditEventIssue       AuditEventType = "issue"
	AuditEventReturn      AuditEventType = "return"
	AuditEventFine        AuditEventType = "fine"
	AuditEventTheft       AuditEventType = "theft"
	AuditEventRecovery    AuditEventType = "recovery"
	AuditEventInventory   AuditEventType = "inventory"
	AuditEventSettings    AuditEventType = "settings"
	AuditEventMaintenance AuditEventType = "maintenance"
	AuditEventPatron      AuditEventType = "patron"
)

type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusFailed  AuditStatus = "failed"
)

type AuditEvent struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Actor       string         `gorm:"index;size:100" json:"actor,omitempty"`
	EventType   AuditEventType `gorm:"index;size:50" json:"event_type"`
	Action      string         `gorm:"size:100" json:"action"`      // e.g. "borrowing_issue", "fine_clear"
	Description string         `gorm:"size:500" json:"description"` // Human-readable summary
	EntityType  string         `gorm:"size:50" json:"entity_type"`  // "borrowing", "fine", "book_copy"
	EntityID    *uint          `gorm:"index" json:"entity_id,omitempty"`
	Metadata    string         `gorm:"type:text" json:"metadata,omitempty"` // JSON for extra data
	Status      AuditStatus    `gorm:"size:20" json:"status"`
	ErrorMsg    string         `gorm:"size:500" json:"error_msg,omitempty"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
}

func (AuditEvent) TableName() string {
	return "audit_events"
}
