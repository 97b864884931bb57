package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
	"go.uber.org/zap"

	"github.com/mrlokans/lendingdesk/internal/inventory"
)

// Reconciler runs the inventory repair pass.
type Reconciler interface {
	Reconcile(ctx context.Context) (inventory.ReconcileReport, error)
}

// BookRecomputer recomputes the counters of one book.
type BookRecomputer interface {
	Recompute(bookID uint) (inventory.Counters, error)
}

// MaintenanceRecorder keeps the outcome of the last repair pass.
type MaintenanceRecorder interface {
	SetMaintenanceStatus(status, message string) error
}

// MaintenanceAuditor records repair runs in the audit trail.
type MaintenanceAuditor interface {
	LogMaintenance(action, description string, err error)
}

// ReconcileInventoryTask repairs copy and counter drift across the whole catalog.
type ReconcileInventoryTask struct {
	Trigger string `json:"trigger,omitempty"` // "schedule", "manual"
}

// Config returns the queue configuration for reconcile tasks.
func (t ReconcileInventoryTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "reconcile_inventory",
		MaxAttempts: 1,
		Backoff:     time.Minute,
		Timeout:     30 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   7 * 24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// ReconcileInventoryProcessor creates a processor function for ReconcileInventoryTask.
// Recorder and auditor are optional.
func ReconcileInventoryProcessor(reconciler Reconciler, recorder MaintenanceRecorder, auditor MaintenanceAuditor, log *zap.Logger) backlite.QueueProcessor[ReconcileInventoryTask] {
	log = orNop(log)
	return func(ctx context.Context, task ReconcileInventoryTask) error {
		if reconciler == nil {
			return fmt.Errorf("inventory reconciler not configured")
		}

		started := time.Now()
		report, err := reconciler.Reconcile(ctx)

		status, message := "success", fmt.Sprintf("Checked %d books: %d copies created, %d fixed, %d loans linked, %d failed in %v",
			report.Books, report.CopiesCreated, report.CopiesFixed, report.LoansLinked, report.Failed, time.Since(started).Round(time.Millisecond))
		if err != nil {
			status, message = "failed", fmt.Sprintf("Reconcile failed: %v", err)
		} else if report.Failed > 0 {
			status = "partial"
		}

		if recorder != nil {
			if serr := recorder.SetMaintenanceStatus(status, message); serr != nil {
				log.Warn("failed to store maintenance status", zap.Error(serr))
			}
		}
		if auditor != nil {
			auditor.LogMaintenance("reconcile_inventory", message, err)
		}
		if err != nil {
			return fmt.Errorf("reconcile inventory: %w", err)
		}

		log.Info("inventory reconciled",
			zap.String("trigger", task.Trigger),
			zap.Int("books", report.Books),
			zap.Int("copies_created", report.CopiesCreated),
			zap.Int("copies_fixed", report.CopiesFixed),
			zap.Int("loans_linked", report.LoansLinked),
			zap.Int("failed", report.Failed))
		return nil
	}
}

// NewReconcileInventoryQueue creates a backlite queue for reconcile tasks.
func NewReconcileInventoryQueue(reconciler Reconciler, recorder MaintenanceRecorder, auditor MaintenanceAuditor, log *zap.Logger) backlite.Queue {
	return backlite.NewQueue(ReconcileInventoryProcessor(reconciler, recorder, auditor, log))
}

// RecomputeBookTask recomputes the counters of a single book.
type RecomputeBookTask struct {
	BookID uint `json:"book_id"`
}

// Config returns the queue configuration for recompute tasks.
func (t RecomputeBookTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "recompute_book",
		MaxAttempts: 3,
		Backoff:     30 * time.Second,
		Timeout:     time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// RecomputeBookProcessor creates a processor function for RecomputeBookTask.
func RecomputeBookProcessor(ledger BookRecomputer, log *zap.Logger) backlite.QueueProcessor[RecomputeBookTask] {
	log = orNop(log)
	return func(ctx context.Context, task RecomputeBookTask) error {
		if ledger == nil {
			return fmt.Errorf("inventory ledger not configured")
		}
		counters, err := ledger.Recompute(task.BookID)
		if err != nil {
			return fmt.Errorf("recompute book %d: %w", task.BookID, err)
		}
		log.Info("book recomputed",
			zap.Uint("book_id", task.BookID),
			zap.Int("total", counters.Total),
			zap.Int("available", counters.Available))
		return nil
	}
}

// NewRecomputeBookQueue creates a backlite queue for recompute tasks.
func NewRecomputeBookQueue(ledger BookRecomputer, log *zap.Logger) backlite.Queue {
	return backlite.NewQueue(RecomputeBookProcessor(ledger, log))
}

func orNop(log *zap.Logger) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}
