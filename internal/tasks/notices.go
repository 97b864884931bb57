package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
	"go.uber.org/zap"
)

// NoticeSender sends reminders for overdue loans.
type NoticeSender interface {
	SendOverdueNotices(ctx context.Context) (int, error)
}

// OverdueNoticesTask notifies every patron holding an overdue loan.
type OverdueNoticesTask struct{}

// Config returns the queue configuration for overdue notice tasks.
func (t OverdueNoticesTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "overdue_notices",
		MaxAttempts: 2,
		Backoff:     10 * time.Minute,
		Timeout:     15 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   7 * 24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// OverdueNoticesProcessor creates a processor function for OverdueNoticesTask.
func OverdueNoticesProcessor(sender NoticeSender, log *zap.Logger) backlite.QueueProcessor[OverdueNoticesTask] {
	log = orNop(log)
	return func(ctx context.Context, task OverdueNoticesTask) error {
		if sender == nil {
			return fmt.Errorf("notice sender not configured")
		}
		sent, err := sender.SendOverdueNotices(ctx)
		if err != nil {
			return fmt.Errorf("send overdue notices: %w", err)
		}
		log.Info("overdue notices processed", zap.Int("sent", sent))
		return nil
	}
}

// NewOverdueNoticesQueue creates a backlite queue for overdue notice tasks.
func NewOverdueNoticesQueue(sender NoticeSender, log *zap.Logger) backlite.Queue {
	return backlite.NewQueue(OverdueNoticesProcessor(sender, log))
}
