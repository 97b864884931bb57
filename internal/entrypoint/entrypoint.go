package entrypoint

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mrlokans/lendingdesk/internal/audit"
	"github.com/mrlokans/lendingdesk/internal/config"
	"github.com/mrlokans/lendingdesk/internal/database"
	auditRepo "github.com/mrlokans/lendingdesk/internal/database/audit"
	"github.com/mrlokans/lendingdesk/internal/database/books"
	"github.com/mrlokans/lendingdesk/internal/database/borrowings"
	finesRepo "github.com/mrlokans/lendingdesk/internal/database/fines"
	"github.com/mrlokans/lendingdesk/internal/database/patrons"
	"github.com/mrlokans/lendingdesk/internal/database/theft"
	"github.com/mrlokans/lendingdesk/internal/fines"
	http_controllers "github.com/mrlokans/lendingdesk/internal/http"
	"github.com/mrlokans/lendingdesk/internal/inventory"
	"github.com/mrlokans/lendingdesk/internal/lending"
	"github.com/mrlokans/lendingdesk/internal/logger"
	"github.com/mrlokans/lendingdesk/internal/mismatch"
	"github.com/mrlokans/lendingdesk/internal/notify"
	"github.com/mrlokans/lendingdesk/internal/reports"
	"github.com/mrlokans/lendingdesk/internal/scheduler"
	"github.com/mrlokans/lendingdesk/internal/settingsstore"
	"github.com/mrlokans/lendingdesk/internal/storage"
	"github.com/mrlokans/lendingdesk/internal/storage/providers/s3"
	"github.com/mrlokans/lendingdesk/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// App holds the wired services of one process.
type App struct {
	Config *config.Config
	Log    *zap.Logger
	DB     *database.Database

	Catalog    *books.Repository
	Patrons    *patrons.Repository
	Borrowings *borrowings.Repository
	FineStore  *finesRepo.Repository
	Theft      *theft.Repository

	Settings  *settingsstore.SettingsStore
	Audit     *audit.Service
	Ledger    *inventory.Ledger
	Fines     *fines.Engine
	Detector  *mismatch.Detector
	Lending   *lending.Service
	Reports   *reports.Service
	Archiver  *reports.Archiver // nil without an archive bucket
	Tasks     *tasks.Client     // nil when the task queue is disabled
	Scheduler *scheduler.MaintenanceScheduler
}

// Build opens the database and wires every service. The task queue and the
// maintenance scheduler are created only when cfg.Tasks.Enabled is set.
func Build(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}

	db, err := database.Open(cfg.Database, logger.Named(log, "database"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	app := &App{
		Config:     cfg,
		Log:        log,
		DB:         db,
		Catalog:    books.NewRepository(db.DB),
		Patrons:    patrons.NewRepository(db.DB),
		Borrowings: borrowings.NewRepository(db.DB),
		FineStore:  finesRepo.NewRepository(db.DB),
		Theft:      theft.NewRepository(db.DB),
	}

	var archive storage.Client
	if cfg.Archive.Bucket != "" {
		s3Client, err := s3.NewClient(ctx, cfg.Archive)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to initialize report archive: %w", err)
		}
		archive = s3Client
	}

	schedules := cfg.Schedules
	if archive == nil {
		schedules.ReportArchive = ""
	}

	formatter := fines.NewFormatter(cfg.Lending.Currency, cfg.Lending.Locale)
	app.Settings = settingsstore.New(db, cfg.Lending, schedules)
	app.Audit = audit.NewService(auditRepo.NewRepository(db.DB), logger.Named(log, "audit"))
	app.Ledger = inventory.NewLedger(app.Catalog, app.Borrowings, logger.Named(log, "inventory"))
	app.Fines = fines.NewEngine(app.FineStore, formatter, logger.Named(log, "fines"))
	app.Detector = mismatch.NewDetector(app.Borrowings, app.Fines, cfg.Lending.MismatchDebounce, logger.Named(log, "mismatch"))
	app.Lending = lending.NewService(lending.Config{
		Catalog:    app.Catalog,
		Patrons:    app.Patrons,
		Borrowings: app.Borrowings,
		Theft:      app.Theft,
		Ledger:     app.Ledger,
		Fines:      app.Fines,
		Mismatch:   app.Detector,
		Policy:     app.Settings,
		Auditor:    app.Audit,
		Notifier:   newNotifier(cfg.Notifications, log),
		Logger:     logger.Named(log, "lending"),
	})
	app.Reports = reports.NewService(reports.Config{
		Loans:     app.Borrowings,
		Fines:     app.FineStore,
		Catalog:   app.Catalog,
		Patrons:   app.Patrons,
		Theft:     app.Theft,
		Formatter: formatter,
		Logger:    logger.Named(log, "reports"),
	})
	if archive != nil {
		app.Archiver = reports.NewArchiver(app.Reports, archive, cfg.Archive.Prefix, cfg.Archive.Keep, logger.Named(log, "archive"))
	}

	if cfg.Tasks.Enabled {
		taskClient, err := tasks.NewClient(cfg.Database.Path, tasks.FromAppConfig(cfg.Tasks), log)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to initialize task queue: %w", err)
		}
		taskClient.Register(
			tasks.NewReconcileInventoryQueue(app.Ledger, app.Settings, app.Audit, log),
			tasks.NewRecomputeBookQueue(app.Ledger, log),
			tasks.NewOverdueNoticesQueue(app.Lending, log),
			tasks.NewCleanupAuditEventsQueue(app.Audit, log),
		)
		if app.Archiver != nil {
			taskClient.Register(tasks.NewArchiveReportQueue(app.Archiver, log))
		}
		app.Tasks = taskClient
		app.Scheduler = scheduler.NewMaintenanceScheduler(app.Settings, taskClient, app.Audit, log)
	}

	return app, nil
}

// newNotifier posts to the webhook when one is configured and always logs.
func newNotifier(cfg config.Notifications, log *zap.Logger) notify.Notifier {
	logNotifier := notify.NewLogNotifier(logger.Named(log, "notify"))
	if webhook := notify.NewWebhookNotifier(cfg); webhook != nil {
		return notify.Multi{logNotifier, webhook}
	}
	return logNotifier
}

// Router builds the HTTP API on top of the wired services. baseCtx bounds the
// scheduler when it is rescheduled through the settings endpoints.
func (a *App) Router(baseCtx context.Context, version string) *gin.Engine {
	routerCfg := http_controllers.RouterConfig{
		Database:    a.DB,
		Catalog:     a.Catalog,
		Ledger:      a.Ledger,
		Patrons:     a.Patrons,
		Lending:     a.Lending,
		Detector:    a.Detector,
		Fines:       a.Fines,
		Reports:     a.Reports,
		Settings:    a.Settings,
		AuditReader: a.Audit,
		Auditor:     a.Audit,
		CORSOrigins: a.Config.HTTP.CORSOrigins,
		Version:     version,
		Logger:      a.Log,
		BaseContext: baseCtx,
	}
	// Typed nil pointers would defeat the router's nil checks.
	if a.Tasks != nil {
		routerCfg.TaskQueue = a.Tasks
	}
	if a.Scheduler != nil {
		routerCfg.Scheduler = a.Scheduler
	}
	if a.Archiver != nil {
		routerCfg.Archive = a.Archiver
	}
	return http_controllers.NewRouter(routerCfg)
}

// Start launches the task workers and the maintenance scheduler. Both stop when
// ctx is cancelled.
func (a *App) Start(ctx context.Context) error {
	if a.Tasks != nil {
		go a.Tasks.Start(ctx)
	}
	if a.Scheduler != nil {
		if err := a.Scheduler.Start(ctx); err != nil {
			return fmt.Errorf("failed to start maintenance scheduler: %w", err)
		}
	}
	return nil
}

// Shutdown stops the scheduler and drains the task queue within ctx.
func (a *App) Shutdown(ctx context.Context) {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if a.Tasks != nil {
		a.Tasks.Stop(ctx)
	}
}

// Close releases the task and main databases.
func (a *App) Close() error {
	a.Audit.Flush()

	var errs []error
	if a.Tasks != nil {
		if err := a.Tasks.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close task client: %w", err))
		}
	}
	if err := a.DB.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}
	return errors.Join(errs...)
}

func Serve(router *gin.Engine, cfg *config.Config, log *zap.Logger, onShutdown ShutdownFunc) error {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// kill (no param) sends SIGTERM, kill -2 is SIGINT; SIGKILL cannot be caught
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case sig := <-quit:
		log.Info("shutting down server", zap.String("signal", sig.String()), zap.Duration("timeout", timeout))
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop background work first so no task starts against a closing server
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	log.Info("server exiting")
	return nil
}

// Run wires the application and serves the API until SIGINT or SIGTERM.
func Run(cfg *config.Config, version string) error {
	log, err := logger.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	if err := cfg.Validate(); err != nil {
		return err
	}
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	log.Info("starting lendingdesk",
		zap.String("version", version),
		zap.String("database_driver", cfg.Database.Driver),
		zap.Bool("tasks_enabled", cfg.Tasks.Enabled))

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := Build(appCtx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Warn("error during close", zap.Error(err))
		}
	}()

	if app.Archiver == nil {
		log.Warn("ARCHIVE_BUCKET is not set; report archiving is disabled")
	}
	if err := app.Start(appCtx); err != nil {
		return err
	}

	onShutdown := func(ctx context.Context) {
		app.Shutdown(ctx)
		cancel()
	}

	return Serve(app.Router(appCtx, version), cfg, log, onShutdown)
}
