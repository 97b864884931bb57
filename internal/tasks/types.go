package tasks

import (
	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/lendingdesk/internal/errs"
)

// TypeInfo describes a task that can be triggered by hand.
type TypeInfo struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Queue       string `json:"queue"`
}

// Types lists the manually runnable tasks.
func Types() []TypeInfo {
	return []TypeInfo{
		{Type: "reconcile_inventory", Description: "Repair copy states and book counters across the catalog", Queue: ReconcileInventoryTask{}.Config().Name},
		{Type: "recompute_book", Description: "Recompute the counters of one book (book_id)", Queue: RecomputeBookTask{}.Config().Name},
		{Type: "overdue_notices", Description: "Notify patrons with overdue loans", Queue: OverdueNoticesTask{}.Config().Name},
		{Type: "archive_report", Description: "Upload the dashboard summary to object storage", Queue: ArchiveReportTask{}.Config().Name},
		{Type: "cleanup_audit_events", Description: "Delete audit events past retention (retention_days)", Queue: CleanupAuditEventsTask{}.Config().Name},
	}
}

// Params carries the optional arguments of a manual run.
type Params struct {
	BookID        uint `json:"book_id,omitempty" form:"book_id"`
	RetentionDays int  `json:"retention_days,omitempty" form:"retention_days"`
}

// Build creates the task for a type name.
func Build(taskType string, params Params) (backlite.Task, error) {
	switch taskType {
	case "reconcile_inventory":
		return ReconcileInventoryTask{Trigger: "manual"}, nil
	case "recompute_book":
		if params.BookID == 0 {
			return nil, errs.Validation("book_id", "is required for recompute_book")
		}
		return RecomputeBookTask{BookID: params.BookID}, nil
	case "overdue_notices":
		return OverdueNoticesTask{}, nil
	case "archive_report":
		return ArchiveReportTask{}, nil
	case "cleanup_audit_events":
		return CleanupAuditEventsTask{RetentionDays: params.RetentionDays}, nil
	}
	return nil, errs.Validation("type", "unknown task type %q", taskType)
}

// StatusName renders a backlite task status.
func StatusName(status backlite.TaskStatus) string {
	switch status {
	case backlite.TaskStatusPending:
		return "pending"
	case backlite.TaskStatusRunning:
		return "running"
	case backlite.TaskStatusSuccess:
		return "success"
	case backlite.TaskStatusFailure:
		return "failure"
	case backlite.TaskStatusNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}
