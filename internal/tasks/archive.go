package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
	"go.uber.org/zap"
)

// ReportArchiver uploads a report snapshot and returns its key.
type ReportArchiver interface {
	Archive(ctx context.Context) (string, error)
}

// ArchiveReportTask uploads the dashboard summary to object storage.
type ArchiveReportTask struct{}

// Config returns the queue configuration for archive tasks.
func (t ArchiveReportTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "archive_report",
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     5 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   7 * 24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// ArchiveReportProcessor creates a processor function for ArchiveReportTask.
func ArchiveReportProcessor(archiver ReportArchiver, log *zap.Logger) backlite.QueueProcessor[ArchiveReportTask] {
	log = orNop(log)
	return func(ctx context.Context, task ArchiveReportTask) error {
		if archiver == nil {
			return fmt.Errorf("report archive not configured")
		}
		key, err := archiver.Archive(ctx)
		if err != nil {
			return fmt.Errorf("archive report: %w", err)
		}
		log.Info("report snapshot stored", zap.String("key", key))
		return nil
	}
}

// NewArchiveReportQueue creates a backlite queue for archive tasks.
func NewArchiveReportQueue(archiver ReportArchiver, log *zap.Logger) backlite.Queue {
	return backlite.NewQueue(ArchiveReportProcessor(archiver, log))
}
