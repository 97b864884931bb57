package audit

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	auditRepo "github.com/mrlokans/lendingdesk/internal/database/audit"
	"github.com/mrlokans/lendingdesk/internal/entities"
)

func setupTestService(t *testing.T) (*Service, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "audit.db")), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.AuditEvent{})
	require.NoError(t, err)

	repo := auditRepo.NewRepository(db)
	svc := NewService(repo, nil)

	return svc, db
}

func TestService_Log(t *testing.T) {
	svc, db := setupTestService(t)

	event := &entities.AuditEvent{
		Actor:       "librarian",
		EventType:   entities.AuditEventIssue,
		Action:      "borrowing_issue",
		Description: "Issued copy MATH/001/2024",
		Status:      entities.AuditStatusSuccess,
	}

	err := svc.Log(event)
	require.NoError(t, err)

	var saved entities.AuditEvent
	err = db.First(&saved, event.ID).Error
	require.NoError(t, err)
	assert.Equal(t, "borrowing_issue", saved.Action)
	assert.Equal(t, "librarian", saved.Actor)
}

func TestService_Record(t *testing.T) {
	svc, db := setupTestService(t)

	t.Run("successful event with metadata", func(t *testing.T) {
		svc.Record(entities.AuditEventReturn, "borrowing_return", "librarian", "borrowing", 7,
			"Returned late", map[string]any{"days_overdue": 5}, nil)

		require.Eventually(t, func() bool {
			var count int64
			db.Model(&entities.AuditEvent{}).Where("action = ?", "borrowing_return").Count(&count)
			return count == 1
		}, time.Second, 10*time.Millisecond)

		var event entities.AuditEvent
		require.NoError(t, db.Where("action = ?", "borrowing_return").First(&event).Error)
		assert.Equal(t, entities.AuditStatusSuccess, event.Status)
		require.NotNil(t, event.EntityID)
		assert.Equal(t, uint(7), *event.EntityID)
		assert.Contains(t, event.Metadata, "days_overdue")
	})

	t.Run("failed event", func(t *testing.T) {
		svc.LogMaintenance("reconcile_inventory", "Reconcile failed", errors.New("database is locked"))

		require.Eventually(t, func() bool {
			var count int64
			db.Model(&entities.AuditEvent{}).Where("action = ?", "reconcile_inventory").Count(&count)
			return count == 1
		}, time.Second, 10*time.Millisecond)

		var event entities.AuditEvent
		require.NoError(t, db.Where("action = ?", "reconcile_inventory").First(&event).Error)
		assert.Equal(t, entities.AuditStatusFailed, event.Status)
		assert.Contains(t, event.ErrorMsg, "database is locked")
		assert.Nil(t, event.EntityID)
	})
}

func TestService_Flush(t *testing.T) {
	svc, db := setupTestService(t)

	for i := 0; i < 5; i++ {
		svc.LogSettings("librarian", "lending_policy_update", "Lending policy: student_default_limit=3")
	}
	svc.Flush()

	var count int64
	require.NoError(t, db.Model(&entities.AuditEvent{}).Where("event_type = ?", entities.AuditEventSettings).Count(&count).Error)
	assert.EqualValues(t, 5, count)
}

func TestService_GetEvents(t *testing.T) {
	svc, _ := setupTestService(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Log(&entities.AuditEvent{
			EventType: entities.AuditEventFine,
			Action:    "fine_create",
			Status:    entities.AuditStatusSuccess,
		}))
	}
	require.NoError(t, svc.Log(&entities.AuditEvent{
		EventType: entities.AuditEventTheft,
		Action:    "theft_report",
		Status:    entities.AuditStatusSuccess,
	}))

	events, total, err := svc.GetEvents(entities.AuditEventFine, "", 0, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, events, 3)

	_, total, err = svc.GetEvents("", "", 0, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
}

func TestService_DeleteOldEvents(t *testing.T) {
	svc, db := setupTestService(t)

	old := &entities.AuditEvent{
		EventType: entities.AuditEventIssue,
		Action:    "old",
		Status:    entities.AuditStatusSuccess,
		CreatedAt: time.Now().UTC().Add(-48 * time.Hour),
	}
	require.NoError(t, svc.Log(old))
	require.NoError(t, svc.Log(&entities.AuditEvent{
		EventType: entities.AuditEventIssue,
		Action:    "recent",
		Status:    entities.AuditStatusSuccess,
	}))

	deleted, err := svc.DeleteOldEvents(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	var count int64
	db.Model(&entities.AuditEvent{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
