package settingsstore

import (
	"errors"
	"os"
	"strconv"

	"gorm.io/gorm"

	"github.com/mrlokans/lendingdesk/internal/config"
	"github.com/mrlokans/lendingdesk/internal/database"
	"github.com/mrlokans/lendingdesk/internal/entities"
	"github.com/mrlokans/lendingdesk/internal/errs"
)

// Value sources, reported next to effective settings.
const (
	SourceDatabase    = "database"
	SourceEnvironment = "environment"
	SourceDefault     = "default"
)

// Priority: database > environment > default
//
// The environment and default layers both come from config, which viper fills from
// the process environment; the source reported is "environment" when the variable is set.
type SettingsStore struct {
	db        *database.Database
	lending   config.Lending
	schedules config.Schedules
}

func New(db *database.Database, lending config.Lending, schedules config.Schedules) *SettingsStore {
	return &SettingsStore{db: db, lending: lending, schedules: schedules}
}

// LendingPolicy is the effective lending configuration.
type LendingPolicy struct {
	LoanPeriodDays      int `json:"loan_period_days"`
	StudentDefaultLimit int `json:"student_default_limit"`
	StaffDefaultLimit   int `json:"staff_default_limit"`
}

// LendingPolicyInfo includes source information for each field
type LendingPolicyInfo struct {
	LoanPeriodDays       int    `json:"loan_period_days"`
	LoanPeriodDaysSource string `json:"loan_period_days_source"`

	StudentDefaultLimit       int    `json:"student_default_limit"`
	StudentDefaultLimitSource string `json:"student_default_limit_source"`

	StaffDefaultLimit       int    `json:"staff_default_limit"`
	StaffDefaultLimitSource string `json:"staff_default_limit_source"`
}

// LoanPeriodDays is the default number of days a loan runs when no due date is given.
func (s *SettingsStore) LoanPeriodDays() int {
	v, _ := s.intSetting(entities.SettingKeyLoanPeriodDays, "LOAN_PERIOD_DAYS", s.lending.LoanPeriodDays)
	return v
}

// StudentDefaultLimit applies to students whose class sets no maximum.
func (s *SettingsStore) StudentDefaultLimit() int {
	v, _ := s.intSetting(entities.SettingKeyStudentDefaultLimit, "STUDENT_DEFAULT_LIMIT", s.lending.StudentDefaultLimit)
	return v
}

// StaffDefaultLimit applies to staff members without a personal maximum.
func (s *SettingsStore) StaffDefaultLimit() int {
	v, _ := s.intSetting(entities.SettingKeyStaffDefaultLimit, "STAFF_DEFAULT_LIMIT", s.lending.StaffDefaultLimit)
	return v
}

func (s *SettingsStore) SetLoanPeriodDays(days int) error {
	if days < 1 || days > 365 {
		return errs.Validation("loan_period_days", "must be between 1 and 365")
	}
	return s.db.SetSetting(entities.SettingKeyLoanPeriodDays, strconv.Itoa(days))
}

func (s *SettingsStore) SetStudentDefaultLimit(limit int) error {
	if limit < 1 {
		return errs.Validation("student_default_limit", "must be at least 1")
	}
	return s.db.SetSetting(entities.SettingKeyStudentDefaultLimit, strconv.Itoa(limit))
}

func (s *SettingsStore) SetStaffDefaultLimit(limit int) error {
	if limit < 1 {
		return errs.Validation("staff_default_limit", "must be at least 1")
	}
	return s.db.SetSetting(entities.SettingKeyStaffDefaultLimit, strconv.Itoa(limit))
}

// GetLendingPolicy returns the effective configuration
func (s *SettingsStore) GetLendingPolicy() LendingPolicy {
	return LendingPolicy{
		LoanPeriodDays:      s.LoanPeriodDays(),
		StudentDefaultLimit: s.StudentDefaultLimit(),
		StaffDefaultLimit:   s.StaffDefaultLimit(),
	}
}

// GetLendingPolicyInfo returns the configuration with source information
func (s *SettingsStore) GetLendingPolicyInfo() LendingPolicyInfo {
	var info LendingPolicyInfo
	info.LoanPeriodDays, info.LoanPeriodDaysSource = s.intSetting(entities.SettingKeyLoanPeriodDays, "LOAN_PERIOD_DAYS", s.lending.LoanPeriodDays)
	info.StudentDefaultLimit, info.StudentDefaultLimitSource = s.intSetting(entities.SettingKeyStudentDefaultLimit, "STUDENT_DEFAULT_LIMIT", s.lending.StudentDefaultLimit)
	info.StaffDefaultLimit, info.StaffDefaultLimitSource = s.intSetting(entities.SettingKeyStaffDefaultLimit, "STAFF_DEFAULT_LIMIT", s.lending.StaffDefaultLimit)
	return info
}

// ClearLendingPolicy clears all database overrides, reverting to env/default
func (s *SettingsStore) ClearLendingPolicy() error {
	return s.clear(
		entities.SettingKeyLoanPeriodDays,
		entities.SettingKeyStudentDefaultLimit,
		entities.SettingKeyStaffDefaultLimit,
	)
}

// intSetting resolves an integer setting. Unparseable or non-positive database values
// are ignored.
func (s *SettingsStore) intSetting(key, envKey string, fallback int) (int, string) {
	setting, err := s.db.GetSetting(key)
	if err == nil && setting.Value != "" {
		if v, err := strconv.Atoi(setting.Value); err == nil && v > 0 {
			return v, SourceDatabase
		}
	}
	return fallback, envSource(envKey)
}

func (s *SettingsStore) stringSetting(key, envKey, fallback string) (string, string) {
	setting, err := s.db.GetSetting(key)
	if err == nil && setting.Value != "" {
		return setting.Value, SourceDatabase
	}
	return fallback, envSource(envKey)
}

func (s *SettingsStore) clear(keys ...string) error {
	for _, key := range keys {
		if err := s.db.DeleteSetting(key); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}
	return nil
}

func envSource(envKey string) string {
	if os.Getenv(envKey) != "" {
		return SourceEnvironment
	}
	return SourceDefault
}
