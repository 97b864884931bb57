package entrypoint

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/lendingdesk/internal/config"
	http_controllers "github.com/mrlokans/lendingdesk/internal/http"
	"github.com/mrlokans/lendingdesk/internal/notify"
)

func testConfig(t *testing.T, tasksEnabled bool) *config.Config {
	t.Helper()
	return &config.Config{
		Global: config.Global{ShutdownTimeoutInSeconds: 1},
		Database: config.Database{
			Driver: config.DriverSQLite,
			Path:   filepath.Join(t.TempDir(), "lendingdesk.db"),
		},
		Lending: config.Lending{
			LoanPeriodDays:      14,
			StudentDefaultLimit: 2,
			StaffDefaultLimit:   5,
			Currency:            "KES",
			Locale:              "en",
			MismatchDebounce:    time.Second,
		},
		Tasks: config.Tasks{Enabled: tasksEnabled, Workers: 1},
		Schedules: config.Schedules{
			Enabled:        true,
			Reconcile:      "0 2 * * *",
			OverdueNotices: "0 7 * * 1-5",
			ReportArchive:  "30 23 * * *",
		},
	}
}

func get(t *testing.T, router *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestBuild_WithoutTaskQueue(t *testing.T) {
	gin.SetMode(gin.TestMode)
	app, err := Build(context.Background(), testConfig(t, false), nil)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, app.Close()) })

	assert.Nil(t, app.Tasks)
	assert.Nil(t, app.Scheduler)
	assert.Nil(t, app.Archiver)

	router := app.Router(context.Background(), "test")
	w := get(t, router, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	var health http_controllers.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "test", health.Version)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "ok", health.Checks["database"])

	assert.Equal(t, http.StatusOK, get(t, router, "/api/books").Code)
	assert.Equal(t, http.StatusNotFound, get(t, router, "/api/tasks/types").Code)
	assert.Equal(t, http.StatusNotFound, get(t, router, "/api/reports/archive/latest").Code)
}

func TestBuild_WithTaskQueue(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := Build(ctx, testConfig(t, true), nil)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, app.Close()) })

	require.NotNil(t, app.Tasks)
	require.NotNil(t, app.Scheduler)
	require.NoError(t, app.Start(ctx))

	// the archive job needs a bucket, so only the repair pass and notices are scheduled
	jobs := app.Scheduler.Jobs()
	require.Len(t, jobs, 2)
	assert.True(t, app.Scheduler.IsRunning())

	router := app.Router(ctx, "test")
	assert.Equal(t, http.StatusOK, get(t, router, "/api/tasks/types").Code)

	w := get(t, router, "/api/settings/maintenance")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"is_running":true`)

	shutdownCtx, stop := context.WithTimeout(context.Background(), 2*time.Second)
	defer stop()
	app.Shutdown(shutdownCtx)
	assert.False(t, app.Scheduler.IsRunning())
}

func TestNewNotifier(t *testing.T) {
	n := newNotifier(config.Notifications{}, nil)
	assert.IsType(t, &notify.LogNotifier{}, n)

	n = newNotifier(config.Notifications{WebhookURL: "http://127.0.0.1:1/hook"}, nil)
	multi, ok := n.(notify.Multi)
	require.True(t, ok)
	assert.Len(t, multi, 2)
}
