package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/lendingdesk/internal/audit"
	"github.com/mrlokans/lendingdesk/internal/database"
	"github.com/mrlokans/lendingdesk/internal/database/books"
	"github.com/mrlokans/lendingdesk/internal/database/borrowings"
	finesRepo "github.com/mrlokans/lendingdesk/internal/database/fines"
	"github.com/mrlokans/lendingdesk/internal/database/patrons"
	"github.com/mrlokans/lendingdesk/internal/database/theft"
	"github.com/mrlokans/lendingdesk/internal/fines"
	"github.com/mrlokans/lendingdesk/internal/http"
	"github.com/mrlokans/lendingdesk/internal/inventory"
	"github.com/mrlokans/lendingdesk/internal/lending"
	"github.com/mrlokans/lendingdesk/internal/mismatch"
	"github.com/mrlokans/lendingdesk/internal/notify"
	"github.com/mrlokans/lendingdesk/internal/reports"
	"github.com/mrlokans/lendingdesk/internal/scheduler"
	"github.com/mrlokans/lendingdesk/internal/settingsstore"
	"github.com/mrlokans/lendingdesk/internal/storage"
	"github.com/mrlokans/lendingdesk/internal/storage/providers/s3"
	"github.com/mrlokans/lendingdesk/internal/tasks"
)

// =============================================================================
// Data Access Layer
// =============================================================================

// Catalog and copies
var _ lending.CatalogStore = (*books.Repository)(nil)
var _ inventory.Store = (*books.Repository)(nil)
var _ reports.CatalogCounter = (*books.Repository)(nil)
var _ http.CatalogStore = (*books.Repository)(nil)

// Patrons
var _ lending.PatronStore = (*patrons.Repository)(nil)
var _ reports.PatronDirectory = (*patrons.Repository)(nil)
var _ http.PatronStore = (*patrons.Repository)(nil)

// Borrowings
var _ lending.BorrowingStore = (*borrowings.Repository)(nil)
var _ inventory.LoanStore = (*borrowings.Repository)(nil)
var _ mismatch.LoanLookup = (*borrowings.Repository)(nil)
var _ reports.LoanCounter = (*borrowings.Repository)(nil)

// Fines
var _ fines.Store = (*finesRepo.Repository)(nil)
var _ reports.FineAggregator = (*finesRepo.Repository)(nil)

// Theft reports
var _ lending.TheftStore = (*theft.Repository)(nil)
var _ reports.TheftCounter = (*theft.Repository)(nil)

// Health
var _ http.Pinger = (*database.Database)(nil)

// =============================================================================
// Domain Services
// =============================================================================

var _ lending.Ledger = (*inventory.Ledger)(nil)
var _ http.CopyLedger = (*inventory.Ledger)(nil)
var _ tasks.Reconciler = (*inventory.Ledger)(nil)
var _ tasks.BookRecomputer = (*inventory.Ledger)(nil)

var _ lending.FineEngine = (*fines.Engine)(nil)
var _ mismatch.AmountSource = (*fines.Engine)(nil)
var _ http.FineEngine = (*fines.Engine)(nil)

var _ lending.MismatchClassifier = (*mismatch.Detector)(nil)
var _ http.MismatchDetector = (*mismatch.Detector)(nil)

var _ http.LendingAPI = (*lending.Service)(nil)
var _ tasks.NoticeSender = (*lending.Service)(nil)

var _ http.ReportService = (*reports.Service)(nil)
var _ tasks.ReportArchiver = (*reports.Archiver)(nil)
var _ http.ArchiveBrowser = (*reports.Archiver)(nil)

// =============================================================================
// Settings, Audit and Background Work
// =============================================================================

var _ lending.PolicySource = (*settingsstore.SettingsStore)(nil)
var _ http.PolicySettings = (*settingsstore.SettingsStore)(nil)
var _ scheduler.ScheduleSource = (*settingsstore.SettingsStore)(nil)
var _ tasks.MaintenanceRecorder = (*settingsstore.SettingsStore)(nil)

var _ lending.Auditor = (*audit.Service)(nil)
var _ http.AuditReader = (*audit.Service)(nil)
var _ http.SettingsAuditor = (*audit.Service)(nil)
var _ scheduler.Auditor = (*audit.Service)(nil)
var _ tasks.MaintenanceAuditor = (*audit.Service)(nil)
var _ tasks.AuditEventCleaner = (*audit.Service)(nil)

var _ http.TaskQueue = (*tasks.Client)(nil)
var _ scheduler.Enqueuer = (*tasks.Client)(nil)
var _ http.Rescheduler = (*scheduler.MaintenanceScheduler)(nil)

// =============================================================================
// External Services
// =============================================================================

var _ storage.Client = (*s3.Client)(nil)

var _ notify.Notifier = (*notify.LogNotifier)(nil)
var _ notify.Notifier = (*notify.WebhookNotifier)(nil)
var _ notify.Notifier = notify.Multi(nil)
