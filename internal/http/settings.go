package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/lendingdesk/internal/scheduler"
	"github.com/mrlokans/lendingdesk/internal/settingsstore"
)

// PolicySettings reads and overrides the library-wide lending policy and schedules.
type PolicySettings interface {
	GetLendingPolicyInfo() settingsstore.LendingPolicyInfo
	SetLoanPeriodDays(days int) error
	SetStudentDefaultLimit(limit int) error
	SetStaffDefaultLimit(limit int) error
	ClearLendingPolicy() error

	GetMaintenanceSchedules() settingsstore.MaintenanceSchedules
	GetMaintenanceStatus() settingsstore.MaintenanceStatus
	SetReconcileSchedule(schedule string) error
	SetOverdueNoticesSchedule(schedule string) error
	ClearSchedules() error
}

// Rescheduler is the running maintenance scheduler.
type Rescheduler interface {
	Jobs() []scheduler.JobInfo
	IsRunning() bool
	Reschedule(ctx context.Context) error
}

// SettingsController handles lending policy and maintenance schedule settings
type SettingsController struct {
	settings  PolicySettings
	scheduler Rescheduler
	auditor   SettingsAuditor

	// baseCtx outlives requests; the scheduler stops when it is cancelled
	baseCtx context.Context
}

func NewSettingsController(baseCtx context.Context, settings PolicySettings, sched Rescheduler, auditor SettingsAuditor) *SettingsController {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &SettingsController{settings: settings, scheduler: sched, auditor: auditor, baseCtx: baseCtx}
}

// GetLendingPolicy returns the effective policy with the source of each value
// GET /api/settings/lending
func (sc *SettingsController) GetLendingPolicy(c *gin.Context) {
	c.JSON(http.StatusOK, sc.settings.GetLendingPolicyInfo())
}

// UpdateLendingPolicyRequest is the request body for PUT /api/settings/lending
type UpdateLendingPolicyRequest struct {
	LoanPeriodDays      *int `json:"loan_period_days"`
	StudentDefaultLimit *int `json:"student_default_limit"`
	StaffDefaultLimit   *int `json:"staff_default_limit"`
}

// UpdateLendingPolicy stores database overrides for the given fields
// PUT /api/settings/lending
func (sc *SettingsController) UpdateLendingPolicy(c *gin.Context) {
	var req UpdateLendingPolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	var changed []string
	if req.LoanPeriodDays != nil {
		if err := sc.settings.SetLoanPeriodDays(*req.LoanPeriodDays); err != nil {
			respondDomainError(c, err, "loan period")
			return
		}
		changed = append(changed, fmt.Sprintf("loan_period_days=%d", *req.LoanPeriodDays))
	}
	if req.StudentDefaultLimit != nil {
		if err := sc.settings.SetStudentDefaultLimit(*req.StudentDefaultLimit); err != nil {
			respondDomainError(c, err, "student limit")
			return
		}
		changed = append(changed, fmt.Sprintf("student_default_limit=%d", *req.StudentDefaultLimit))
	}
	if req.StaffDefaultLimit != nil {
		if err := sc.settings.SetStaffDefaultLimit(*req.StaffDefaultLimit); err != nil {
			respondDomainError(c, err, "staff limit")
			return
		}
		changed = append(changed, fmt.Sprintf("staff_default_limit=%d", *req.StaffDefaultLimit))
	}

	if len(changed) > 0 {
		sc.logChange(c, "lending_policy_update", "Lending policy: "+strings.Join(changed, ", "))
	}
	c.JSON(http.StatusOK, sc.settings.GetLendingPolicyInfo())
}

// ResetLendingPolicy drops the database overrides
// DELETE /api/settings/lending
func (sc *SettingsController) ResetLendingPolicy(c *gin.Context) {
	if err := sc.settings.ClearLendingPolicy(); err != nil {
		respondInternalError(c, err, "reset lending policy")
		return
	}
	sc.logChange(c, "lending_policy_reset", "Lending policy reset to environment defaults")
	c.JSON(http.StatusOK, sc.settings.GetLendingPolicyInfo())
}

// MaintenanceSettingsResponse is the response for GET /api/settings/maintenance
type MaintenanceSettingsResponse struct {
	Schedules settingsstore.MaintenanceSchedules `json:"schedules"`
	Status    settingsstore.MaintenanceStatus    `json:"status"`
	Jobs      []scheduler.JobInfo                `json:"jobs"`
	IsRunning bool                               `json:"is_running"`
}

func (sc *SettingsController) maintenanceResponse() MaintenanceSettingsResponse {
	response := MaintenanceSettingsResponse{
		Schedules: sc.settings.GetMaintenanceSchedules(),
		Status:    sc.settings.GetMaintenanceStatus(),
		Jobs:      []scheduler.JobInfo{},
	}
	if sc.scheduler != nil {
		response.Jobs = sc.scheduler.Jobs()
		response.IsRunning = sc.scheduler.IsRunning()
	}
	return response
}

// GetMaintenance returns schedules, the last repair pass and the next runs
// GET /api/settings/maintenance
func (sc *SettingsController) GetMaintenance(c *gin.Context) {
	c.JSON(http.StatusOK, sc.maintenanceResponse())
}

// UpdateMaintenanceRequest is the request body for PUT /api/settings/maintenance
type UpdateMaintenanceRequest struct {
	Reconcile      string `json:"reconcile"`
	OverdueNotices string `json:"overdue_notices"`
}

// UpdateMaintenance saves cron overrides and reloads the scheduler
// PUT /api/settings/maintenance
func (sc *SettingsController) UpdateMaintenance(c *gin.Context) {
	var req UpdateMaintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	var changed []string
	if schedule := strings.TrimSpace(req.Reconcile); schedule != "" {
		if err := sc.settings.SetReconcileSchedule(schedule); err != nil {
			respondBadRequest(c, "reconcile: "+err.Error())
			return
		}
		changed = append(changed, "reconcile="+schedule)
	}
	if schedule := strings.TrimSpace(req.OverdueNotices); schedule != "" {
		if err := sc.settings.SetOverdueNoticesSchedule(schedule); err != nil {
			respondBadRequest(c, "overdue_notices: "+err.Error())
			return
		}
		changed = append(changed, "overdue_notices="+schedule)
	}

	if len(changed) > 0 {
		if !sc.reschedule(c) {
			return
		}
		sc.logChange(c, "schedules_update", "Schedules: "+strings.Join(changed, ", "))
	}
	c.JSON(http.StatusOK, sc.maintenanceResponse())
}

// ResetMaintenance drops the schedule overrides
// DELETE /api/settings/maintenance
func (sc *SettingsController) ResetMaintenance(c *gin.Context) {
	if err := sc.settings.ClearSchedules(); err != nil {
		respondInternalError(c, err, "reset schedules")
		return
	}
	if !sc.reschedule(c) {
		return
	}
	sc.logChange(c, "schedules_reset", "Schedules reset to environment defaults")
	c.JSON(http.StatusOK, sc.maintenanceResponse())
}

func (sc *SettingsController) reschedule(c *gin.Context) bool {
	if sc.scheduler == nil {
		return true
	}
	if err := sc.scheduler.Reschedule(sc.baseCtx); err != nil {
		respondInternalError(c, err, "reschedule")
		return false
	}
	return true
}

func (sc *SettingsController) logChange(c *gin.Context, action, description string) {
	if sc.auditor != nil {
		sc.auditor.LogSettings(actor(c), action, description)
	}
}
