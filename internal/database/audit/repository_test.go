package audit

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/lendingdesk/internal/entities"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "audit.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.AuditEvent{})
	require.NoError(t, err)

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return db
}

func uintPtr(v uint) *uint { return &v }

func TestRepository_LogEvent(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	event := &entities.AuditEvent{
		Actor:       "librarian",
		EventType:   entities.AuditEventIssue,
		Action:      "borrowing_issue",
		Description: "Issued ENG/001/2024",
		EntityType:  "borrowing",
		EntityID:    uintPtr(1),
		Status:      entities.AuditStatusSuccess,
	}

	err := repo.LogEvent(event)
	require.NoError(t, err)
	assert.NotZero(t, event.ID)
	assert.False(t, event.CreatedAt.IsZero())
}

func TestRepository_GetEvents(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	for i := 0; i < 15; i++ {
		require.NoError(t, repo.LogEvent(&entities.AuditEvent{
			EventType:  entities.AuditEventIssue,
			Action:     "borrowing_issue",
			EntityType: "borrowing",
			EntityID:   uintPtr(uint(i + 1)),
			Status:     entities.AuditStatusSuccess,
			CreatedAt:  time.Now().Add(time.Duration(-i) * time.Hour),
		}))
	}
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.LogEvent(&entities.AuditEvent{
			EventType:  entities.AuditEventFine,
			Action:     "fine_create",
			EntityType: "fine",
			Status:     entities.AuditStatusSuccess,
		}))
	}

	t.Run("get all events", func(t *testing.T) {
		events, total, err := repo.GetEvents("", "", 0, 50, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(20), total)
		assert.Len(t, events, 20)
	})

	t.Run("filter by type", func(t *testing.T) {
		events, total, err := repo.GetEvents(entities.AuditEventFine, "", 0, 50, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		for _, e := range events {
			assert.Equal(t, entities.AuditEventFine, e.EventType)
		}
	})

	t.Run("filter by entity", func(t *testing.T) {
		events, total, err := repo.GetEvents("", "borrowing", 3, 50, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, events, 1)
		assert.Equal(t, uint(3), *events[0].EntityID)
	})

	t.Run("pagination", func(t *testing.T) {
		events, total, err := repo.GetEvents(entities.AuditEventIssue, "", 0, 5, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(15), total)
		assert.Len(t, events, 5)

		events2, _, err := repo.GetEvents(entities.AuditEventIssue, "", 0, 5, 5)
		require.NoError(t, err)
		assert.Len(t, events2, 5)
		assert.NotEqual(t, events[0].ID, events2[0].ID)
	})

	t.Run("order by created_at desc", func(t *testing.T) {
		events, _, err := repo.GetEvents(entities.AuditEventIssue, "", 0, 10, 0)
		require.NoError(t, err)
		for i := 1; i < len(events); i++ {
			assert.False(t, events[i-1].CreatedAt.Before(events[i].CreatedAt))
		}
	})
}

func TestRepository_DeleteOldEvents(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	now := time.Now().UTC()
	require.NoError(t, repo.LogEvent(&entities.AuditEvent{
		EventType: entities.AuditEventReturn, Action: "old", Status: entities.AuditStatusSuccess,
		CreatedAt: now.Add(-72 * time.Hour),
	}))
	require.NoError(t, repo.LogEvent(&entities.AuditEvent{
		EventType: entities.AuditEventReturn, Action: "new", Status: entities.AuditStatusSuccess,
		CreatedAt: now,
	}))

	deleted, err := repo.DeleteOldEvents(now.Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	events, _, err := repo.GetEvents("", "", 0, 10, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "new", events[0].Action)
}
