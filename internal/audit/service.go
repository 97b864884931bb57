package audit

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mrlokans/lendingdesk/internal/database/audit"
	"github.com/mrlokans/lendingdesk/internal/entities"
)

// Service provides high-level audit logging functionality for lending events.
type Service struct {
	repo    *audit.Repository
	log     *zap.Logger
	pending sync.WaitGroup
}

// NewService creates a new audit service.
func NewService(repo *audit.Repository, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, log: log}
}

// Log records a generic audit event.
func (s *Service) Log(event *entities.AuditEvent) error {
	return s.repo.LogEvent(event)
}

// LogAsync records an audit event in the background (non-blocking).
func (s *Service) LogAsync(event *entities.AuditEvent) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.repo.LogEvent(event); err != nil {
			s.log.Warn("failed to log audit event", zap.String("action", event.Action), zap.Error(err))
		}
	}()
}

// Record builds and stores an event in the background. Metadata is marshalled to JSON;
// a non-nil err marks the event as failed.
func (s *Service) Record(eventType entities.AuditEventType, action, actor, entityType string, entityID uint, description string, metadata map[string]any, err error) {
	event := &entities.AuditEvent{
		Actor:       actor,
		EventType:   eventType,
		Action:      action,
		Description: truncate(description, 500),
		EntityType:  entityType,
		Status:      entities.AuditStatusSuccess,
	}
	if entityID > 0 {
		event.EntityID = &entityID
	}
	if len(metadata) > 0 {
		if mdBytes, e := json.Marshal(metadata); e == nil {
			event.Metadata = string(mdBytes)
		}
	}
	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}

	s.LogAsync(event)
}

// Flush waits for background writes started by LogAsync.
func (s *Service) Flush() {
	s.pending.Wait()
}

// LogSettings records a policy or fine setting change.
func (s *Service) LogSettings(actor, action, description string) {
	s.Record(entities.AuditEventSettings, action, actor, "setting", 0, description, nil, nil)
}

// LogMaintenance records the outcome of a background maintenance job.
func (s *Service) LogMaintenance(action, description string, err error) {
	s.Record(entities.AuditEventMaintenance, action, "system", "", 0, description, nil, err)
}

// GetEvents retrieves paginated audit events.
func (s *Service) GetEvents(eventType entities.AuditEventType, entityType string, entityID uint, limit, offset int) ([]entities.AuditEvent, int64, error) {
	return s.repo.GetEvents(eventType, entityType, entityID, limit, offset)
}

// DeleteOldEvents removes events older than the specified duration.
func (s *Service) DeleteOldEvents(retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)
	return s.repo.DeleteOldEvents(cutoff)
}

// truncate shortens a string to max length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
