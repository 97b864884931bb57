package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, int32(8190), cfg.HTTP.Port)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, DefaultDatabasePath, cfg.Database.Path)
	assert.Equal(t, 14, cfg.Lending.LoanPeriodDays)
	assert.Equal(t, time.Second, cfg.Lending.MismatchDebounce)
	assert.Equal(t, "0 2 * * *", cfg.Schedules.Reconcile)
	assert.True(t, cfg.Tasks.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestNewConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("LOAN_PERIOD_DAYS", "21")
	t.Setenv("STUDENT_DEFAULT_LIMIT", "4")
	t.Setenv("MISMATCH_DEBOUNCE", "250ms")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test ,")

	cfg := NewConfig()

	assert.Equal(t, 21, cfg.Lending.LoanPeriodDays)
	assert.Equal(t, 4, cfg.Lending.StudentDefaultLimit)
	assert.Equal(t, 250*time.Millisecond, cfg.Lending.MismatchDebounce)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.HTTP.CORSOrigins)
}

func TestValidate(t *testing.T) {
	t.Run("rejects unknown driver", func(t *testing.T) {
		cfg := NewConfig()
		cfg.Database.Driver = "oracle"
		assert.ErrorContains(t, cfg.Validate(), "unsupported DATABASE_DRIVER")
	})

	t.Run("rejects non-positive loan period", func(t *testing.T) {
		cfg := NewConfig()
		cfg.Lending.LoanPeriodDays = 0
		assert.ErrorContains(t, cfg.Validate(), "LOAN_PERIOD_DAYS")
	})

	t.Run("mysql requires a database name", func(t *testing.T) {
		cfg := NewConfig()
		cfg.Database.Driver = DriverMySQL
		cfg.Database.Name = ""
		assert.Error(t, cfg.Validate())
	})
}

func TestLoadEnvFile(t *testing.T) {
	t.Run("missing file is ignored", func(t *testing.T) {
		assert.NoError(t, loadEnvFile(filepath.Join(t.TempDir(), "nope.env")))
	})

	t.Run("loads values without overriding environment", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "test.env")
		require.NoError(t, os.WriteFile(path, []byte("LENDINGDESK_TEST_A=from-file\nLENDINGDESK_TEST_B=from-file\n"), 0o600))
		t.Setenv("LENDINGDESK_TEST_B", "from-env")
		t.Cleanup(func() { os.Unsetenv("LENDINGDESK_TEST_A") })

		require.NoError(t, loadEnvFile(path))
		assert.Equal(t, "from-file", os.Getenv("LENDINGDESK_TEST_A"))
		assert.Equal(t, "from-env", os.Getenv("LENDINGDESK_TEST_B"))
	})
}
