package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Log
		Database
		Lending
		Tasks
		Schedules
		Notifications
		Archive
	}

	HTTP struct {
		Port        int32
		Host        string
		CORSOrigins []string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Log struct {
		Level       string
		Development bool
	}
	Database struct {
		Driver string // "sqlite" (default) or "mysql"
		Path   string // sqlite file path

		// MySQL connection parts, used when Driver is "mysql"
		Host     string
		Port     int
		User     string
		Password string
		Name     string
	}
	Lending struct {
		LoanPeriodDays      int
		StudentDefaultLimit int
		StaffDefaultLimit   int
		Currency            string
		Locale              string
		MismatchDebounce    time.Duration
	}
	Tasks struct {
		Enabled           bool
		Workers           int
		MaxRetries        int
		RetryDelay        time.Duration
		TaskTimeout       time.Duration
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
	}
	Schedules struct {
		Enabled        bool
		Reconcile      string // Cron format: "0 2 * * *" = daily at 02:00
		OverdueNotices string // Cron format: "0 7 * * 1-5" = weekdays at 07:00
		ReportArchive  string // Cron format: "30 23 * * *"
	}
	Notifications struct {
		WebhookURL   string
		WebhookToken string
		Timeout      time.Duration
	}
	Archive struct {
		Bucket   string
		Prefix   string
		Region   string
		Endpoint string // S3-compatible endpoint override (MinIO etc.)
		Keep     int    // number of snapshots kept, 0 keeps all

		// Static credentials; the default AWS chain is used when empty
		AccessKeyID     string
		SecretAccessKey string
	}
)

// NewConfig reads configuration from the environment, loading DefaultEnvFile first when it exists.
func NewConfig() *Config {
	if err := loadEnvFile(DefaultEnvFile); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8190)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("cors_origins", "")
	v.SetDefault("shutdown_timeout_in_seconds", 5)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_development", false)

	// Database defaults
	v.SetDefault("database_driver", DriverSQLite)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("database_host", "127.0.0.1")
	v.SetDefault("database_port", 3306)
	v.SetDefault("database_user", "lendingdesk")
	v.SetDefault("database_password", "")
	v.SetDefault("database_name", "lendingdesk")

	// Lending policy defaults (overridable per library through settings)
	v.SetDefault("loan_period_days", 14)
	v.SetDefault("student_default_limit", 2)
	v.SetDefault("staff_default_limit", 5)
	v.SetDefault("currency", "KES")
	v.SetDefault("locale", "en")
	v.SetDefault("mismatch_debounce", "1s")

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_max_retries", 3)
	v.SetDefault("task_retry_delay", "1m")
	v.SetDefault("task_timeout", "5m")
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "24h")

	// Maintenance schedules
	v.SetDefault("schedules_enabled", true)
	v.SetDefault("reconcile_schedule", "0 2 * * *")
	v.SetDefault("overdue_notices_schedule", "0 7 * * 1-5")
	v.SetDefault("report_archive_schedule", "30 23 * * *")

	// Notifications
	v.SetDefault("notify_webhook_url", "")
	v.SetDefault("notify_webhook_token", "")
	v.SetDefault("notify_timeout", "10s")

	// Report archive
	v.SetDefault("archive_bucket", "")
	v.SetDefault("archive_prefix", "reports")
	v.SetDefault("archive_region", "us-east-1")
	v.SetDefault("archive_access_key_id", "")
	v.SetDefault("archive_secret_access_key", "")
	v.SetDefault("archive_endpoint", "")
	v.SetDefault("archive_keep", 30)

	return &Config{
		HTTP: HTTP{
			Port:        v.GetInt32("PORT"),
			Host:        v.GetString("HOST"),
			CORSOrigins: splitList(v.GetString("CORS_ORIGINS")),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Log: Log{
			Level:       v.GetString("LOG_LEVEL"),
			Development: v.GetBool("LOG_DEVELOPMENT"),
		},
		Database: Database{
			Driver:   v.GetString("DATABASE_DRIVER"),
			Path:     v.GetString("DATABASE_PATH"),
			Host:     v.GetString("DATABASE_HOST"),
			Port:     v.GetInt("DATABASE_PORT"),
			User:     v.GetString("DATABASE_USER"),
			Password: v.GetString("DATABASE_PASSWORD"),
			Name:     v.GetString("DATABASE_NAME"),
		},
		Lending: Lending{
			LoanPeriodDays:      v.GetInt("LOAN_PERIOD_DAYS"),
			StudentDefaultLimit: v.GetInt("STUDENT_DEFAULT_LIMIT"),
			StaffDefaultLimit:   v.GetInt("STAFF_DEFAULT_LIMIT"),
			Currency:            v.GetString("CURRENCY"),
			Locale:              v.GetString("LOCALE"),
			MismatchDebounce:    v.GetDuration("MISMATCH_DEBOUNCE"),
		},
		Tasks: Tasks{
			Enabled:           v.GetBool("TASKS_ENABLED"),
			Workers:           v.GetInt("TASK_WORKERS"),
			MaxRetries:        v.GetInt("TASK_MAX_RETRIES"),
			RetryDelay:        v.GetDuration("TASK_RETRY_DELAY"),
			TaskTimeout:       v.GetDuration("TASK_TIMEOUT"),
			ReleaseAfter:      v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASK_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASK_RETENTION_DURATION"),
		},
		Schedules: Schedules{
			Enabled:        v.GetBool("SCHEDULES_ENABLED"),
			Reconcile:      v.GetString("RECONCILE_SCHEDULE"),
			OverdueNotices: v.GetString("OVERDUE_NOTICES_SCHEDULE"),
			ReportArchive:  v.GetString("REPORT_ARCHIVE_SCHEDULE"),
		},
		Notifications: Notifications{
			WebhookURL:   v.GetString("NOTIFY_WEBHOOK_URL"),
			WebhookToken: v.GetString("NOTIFY_WEBHOOK_TOKEN"),
			Timeout:      v.GetDuration("NOTIFY_TIMEOUT"),
		},
		Archive: Archive{
			Bucket:   v.GetString("ARCHIVE_BUCKET"),
			Prefix:   v.GetString("ARCHIVE_PREFIX"),
			Region:   v.GetString("ARCHIVE_REGION"),
			Endpoint: v.GetString("ARCHIVE_ENDPOINT"),
			Keep:     v.GetInt("ARCHIVE_KEEP"),

			AccessKeyID:     v.GetString("ARCHIVE_ACCESS_KEY_ID"),
			SecretAccessKey: v.GetString("ARCHIVE_SECRET_ACCESS_KEY"),
		},
	}
}

// Validate checks values that would otherwise fail later at startup.
func (c *Config) Validate() error {
	var problems []error
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			problems = append(problems, errors.New("DATABASE_PATH is required for sqlite"))
		}
	case DriverMySQL:
		if c.Database.Name == "" {
			problems = append(problems, errors.New("DATABASE_NAME is required for mysql"))
		}
	default:
		problems = append(problems, fmt.Errorf("unsupported DATABASE_DRIVER %q", c.Database.Driver))
	}
	if c.Lending.LoanPeriodDays <= 0 {
		problems = append(problems, errors.New("LOAN_PERIOD_DAYS must be positive"))
	}
	if c.Lending.StudentDefaultLimit < 0 || c.Lending.StaffDefaultLimit < 0 {
		problems = append(problems, errors.New("default borrowing limits must not be negative"))
	}
	if c.Lending.MismatchDebounce < 0 {
		problems = append(problems, errors.New("MISMATCH_DEBOUNCE must not be negative"))
	}
	return errors.Join(problems...)
}

// loadEnvFile loads key=value pairs from path without overriding the real environment.
// A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed loading env file %s: %w", path, err)
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
