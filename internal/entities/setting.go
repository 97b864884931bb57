package entities

import (
	"time"
)

type Setting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"uniqueIndex;size:100" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Setting) TableName() string {
	return "settings"
}

// Known setting keys
const (
	// Lending policy
	SettingKeyLoanPeriodDays      = "loan_period_days"
	SettingKeyStudentDefaultLimit = "student_default_limit"
	SettingKeyStaffDefaultLimit   = "staff_default_limit"

	// Maintenance schedules
	SettingKeyReconcileSchedule      = "reconcile_schedule"
	SettingKeyOverdueNoticesSchedule = "overdue_notices_schedule"

	// Last maintenance run
	SettingKeyMaintenanceLastAt      = "maintenance_last_at"
	SettingKeyMaintenanceLastStatus  = "maintenance_last_status"
	SettingKeyMaintenanceLastMessage = "maintenance_last_message"
)
