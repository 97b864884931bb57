package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mrlokans/lendingdesk/internal/settingsstore"
	"github.com/mrlokans/lendingdesk/internal/tasks"
)

// ScheduleSource provides the effective cron configuration.
type ScheduleSource interface {
	GetMaintenanceSchedules() settingsstore.MaintenanceSchedules
}

// Enqueuer hands tasks to the background queue.
type Enqueuer interface {
	Enqueue(task backlite.Task) (string, error)
}

// Auditor records scheduling failures.
type Auditor interface {
	LogMaintenance(action, description string, err error)
}

const (
	JobReconcile      = "reconcile_inventory"
	JobOverdueNotices = "overdue_notices"
	JobReportArchive  = "archive_report"
)

type job struct {
	name     string
	schedule string
	task     backlite.Task
	entryID  cron.EntryID
}

// MaintenanceScheduler enqueues the inventory repair pass, overdue notices and report
// archives on their cron schedules. The work itself runs on the task queue.
type MaintenanceScheduler struct {
	settings ScheduleSource
	queue    Enqueuer
	auditor  Auditor
	log      *zap.Logger

	cron      *cron.Cron
	jobs      map[string]*job
	mu        sync.RWMutex
	isRunning bool
}

// NewMaintenanceScheduler creates a new scheduler instance. auditor may be nil.
func NewMaintenanceScheduler(settings ScheduleSource, queue Enqueuer, auditor Auditor, log *zap.Logger) *MaintenanceScheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &MaintenanceScheduler{
		settings: settings,
		queue:    queue,
		auditor:  auditor,
		log:      log.Named("scheduler"),
		cron:     newCron(),
		jobs:     make(map[string]*job),
	}
}

func newCron() *cron.Cron {
	return cron.New(
		cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow)),
		cron.WithLocation(time.UTC),
	)
}

// Start begins the scheduler if schedules are enabled. Jobs with an empty schedule are skipped.
func (s *MaintenanceScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	cfg := s.settings.GetMaintenanceSchedules()
	if !cfg.Enabled {
		s.log.Info("maintenance scheduler disabled")
		return nil
	}

	planned := []*job{
		{name: JobReconcile, schedule: cfg.Reconcile, task: tasks.ReconcileInventoryTask{Trigger: "schedule"}},
		{name: JobOverdueNotices, schedule: cfg.OverdueNotices, task: tasks.OverdueNoticesTask{}},
		{name: JobReportArchive, schedule: cfg.ReportArchive, task: tasks.ArchiveReportTask{}},
	}

	for _, j := range planned {
		if j.schedule == "" {
			continue
		}
		if err := settingsstore.ValidateCronSchedule(j.schedule); err != nil {
			s.reset()
			return fmt.Errorf("invalid cron schedule '%s' for %s: %w", j.schedule, j.name, err)
		}
		j := j
		entryID, err := s.cron.AddFunc(j.schedule, func() { s.runJob(j) })
		if err != nil {
			s.reset()
			return fmt.Errorf("failed to schedule %s: %w", j.name, err)
		}
		j.entryID = entryID
		s.jobs[j.name] = j
	}

	if len(s.jobs) == 0 {
		s.log.Info("maintenance scheduler: no schedules configured")
		return nil
	}

	s.cron.Start()
	s.isRunning = true

	for _, j := range s.jobs {
		s.log.Info("job scheduled",
			zap.String("job", j.name),
			zap.String("schedule", j.schedule),
			zap.String("description", settingsstore.GetCronDescription(j.schedule)),
			zap.Time("next_run", s.cron.Entry(j.entryID).Next))
	}

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// reset drops partially registered jobs. Callers hold the lock.
func (s *MaintenanceScheduler) reset() {
	s.cron = newCron()
	s.jobs = make(map[string]*job)
}

// Stop gracefully stops the scheduler
func (s *MaintenanceScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	// Stop accepting new jobs and wait for running jobs to complete
	<-s.cron.Stop().Done()

	s.isRunning = false
	s.reset()
	s.log.Info("maintenance scheduler stopped")
}

// Reschedule reloads the schedules (call after settings change)
func (s *MaintenanceScheduler) Reschedule(ctx context.Context) error {
	s.Stop()
	return s.Start(ctx)
}

// RunNow enqueues a scheduled job immediately and returns the task id.
func (s *MaintenanceScheduler) RunNow(name string) (string, error) {
	s.mu.RLock()
	j, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("job %q is not scheduled", name)
	}
	return s.enqueue(j)
}

// IsRunning returns whether the scheduler is active
func (s *MaintenanceScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// JobInfo describes a scheduled job.
type JobInfo struct {
	Name     string    `json:"name"`
	Schedule string    `json:"schedule"`
	NextRun  time.Time `json:"next_run"`
}

// Jobs returns the scheduled jobs sorted by name.
func (s *MaintenanceScheduler) Jobs() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]JobInfo, 0, len(s.jobs))
	for _, j := range s.jobs {
		infos = append(infos, JobInfo{Name: j.name, Schedule: j.schedule, NextRun: s.cron.Entry(j.entryID).Next})
	}
	sort.Slice(infos, func(i, k int) bool { return infos[i].Name < infos[k].Name })
	return infos
}

func (s *MaintenanceScheduler) runJob(j *job) {
	if _, err := s.enqueue(j); err != nil {
		s.log.Error("scheduled job not enqueued", zap.String("job", j.name), zap.Error(err))
	}
}

func (s *MaintenanceScheduler) enqueue(j *job) (string, error) {
	id, err := s.queue.Enqueue(j.task)
	if err != nil {
		if s.auditor != nil {
			s.auditor.LogMaintenance(j.name, "Failed to enqueue "+j.name, err)
		}
		return "", err
	}
	s.log.Info("job enqueued", zap.String("job", j.name), zap.String("task_id", id))
	return id, nil
}
