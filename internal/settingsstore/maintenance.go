package settingsstore

import (
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mrlokans/lendingdesk/internal/entities"
)

// MaintenanceSchedules is the effective cron configuration of the background jobs.
type MaintenanceSchedules struct {
	Enabled              bool   `json:"enabled"`
	Reconcile            string `json:"reconcile"`
	ReconcileSource      string `json:"reconcile_source"`
	OverdueNotices       string `json:"overdue_notices"`
	OverdueNoticesSource string `json:"overdue_notices_source"`
	ReportArchive        string `json:"report_archive"`
}

// MaintenanceStatus represents the last maintenance run
type MaintenanceStatus struct {
	LastRunAt *time.Time `json:"last_run_at,omitempty"`
	Status    string     `json:"status,omitempty"`  // "success", "failed", ""
	Message   string     `json:"message,omitempty"` // Error message or stats summary
}

// GetReconcileSchedule returns the repair pass schedule (database > env > default)
func (s *SettingsStore) GetReconcileSchedule() string {
	v, _ := s.stringSetting(entities.SettingKeyReconcileSchedule, "RECONCILE_SCHEDULE", s.schedules.Reconcile)
	return v
}

// GetOverdueNoticesSchedule returns the overdue reminder schedule (database > env > default)
func (s *SettingsStore) GetOverdueNoticesSchedule() string {
	v, _ := s.stringSetting(entities.SettingKeyOverdueNoticesSchedule, "OVERDUE_NOTICES_SCHEDULE", s.schedules.OverdueNotices)
	return v
}

// SetReconcileSchedule validates and saves the schedule to database
func (s *SettingsStore) SetReconcileSchedule(schedule string) error {
	if err := ValidateCronSchedule(schedule); err != nil {
		return err
	}
	return s.db.SetSetting(entities.SettingKeyReconcileSchedule, schedule)
}

// SetOverdueNoticesSchedule validates and saves the schedule to database
func (s *SettingsStore) SetOverdueNoticesSchedule(schedule string) error {
	if err := ValidateCronSchedule(schedule); err != nil {
		return err
	}
	return s.db.SetSetting(entities.SettingKeyOverdueNoticesSchedule, schedule)
}

func (s *SettingsStore) GetMaintenanceSchedules() MaintenanceSchedules {
	schedules := MaintenanceSchedules{
		Enabled:       s.schedules.Enabled,
		ReportArchive: s.schedules.ReportArchive,
	}
	schedules.Reconcile, schedules.ReconcileSource = s.stringSetting(entities.SettingKeyReconcileSchedule, "RECONCILE_SCHEDULE", s.schedules.Reconcile)
	schedules.OverdueNotices, schedules.OverdueNoticesSource = s.stringSetting(entities.SettingKeyOverdueNoticesSchedule, "OVERDUE_NOTICES_SCHEDULE", s.schedules.OverdueNotices)
	return schedules
}

// ClearSchedules clears the schedule overrides
func (s *SettingsStore) ClearSchedules() error {
	return s.clear(entities.SettingKeyReconcileSchedule, entities.SettingKeyOverdueNoticesSchedule)
}

// GetMaintenanceStatus returns the last maintenance status
func (s *SettingsStore) GetMaintenanceStatus() MaintenanceStatus {
	status := MaintenanceStatus{}

	if setting, err := s.db.GetSetting(entities.SettingKeyMaintenanceLastAt); err == nil && setting.Value != "" {
		if ts, err := time.Parse(time.RFC3339, setting.Value); err == nil {
			status.LastRunAt = &ts
		}
	}
	if setting, err := s.db.GetSetting(entities.SettingKeyMaintenanceLastStatus); err == nil {
		status.Status = setting.Value
	}
	if setting, err := s.db.GetSetting(entities.SettingKeyMaintenanceLastMessage); err == nil {
		status.Message = setting.Value
	}

	return status
}

// SetMaintenanceStatus updates the maintenance status
func (s *SettingsStore) SetMaintenanceStatus(status, message string) error {
	now := time.Now().UTC().Format(time.RFC3339)

	if err := s.db.SetSetting(entities.SettingKeyMaintenanceLastAt, now); err != nil {
		return err
	}
	if err := s.db.SetSetting(entities.SettingKeyMaintenanceLastStatus, status); err != nil {
		return err
	}
	return s.db.SetSetting(entities.SettingKeyMaintenanceLastMessage, message)
}

// ValidateCronSchedule validates a cron schedule string
func ValidateCronSchedule(schedule string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	_, err := parser.Parse(schedule)
	return err
}

// GetCronDescription returns a human-readable description of a cron schedule
func GetCronDescription(schedule string) string {
	switch schedule {
	case "0 * * * *":
		return "Every hour at :00"
	case "0 2 * * *":
		return "Daily at 02:00"
	case "0 7 * * 1-5":
		return "Weekdays at 07:00"
	case "30 23 * * *":
		return "Daily at 23:30"
	case "0 0 * * *":
		return "Daily at midnight"
	case "0 0 * * 0":
		return "Weekly on Sunday at midnight"
	default:
		return "Custom schedule: " + schedule
	}
}

// GetNextRunTime calculates when the next run happens based on the schedule
func GetNextRunTime(schedule string) (*time.Time, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(schedule)
	if err != nil {
		return nil, err
	}
	next := sched.Next(time.Now())
	return &next, nil
}
