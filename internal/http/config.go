package http

import (
	"context"

	"go.uber.org/zap"
)

// LendingAPI is everything the borrowing, patron and theft endpoints need from
// lending.Service.
type LendingAPI interface {
	LendingService
	LoanLister
	TheftReports
	RecordRetirer
}

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router. Optional controllers are skipped when
// their dependency is nil.
type RouterConfig struct {
	// Core dependencies
	Database Pinger
	Catalog  CatalogStore
	Ledger   CopyLedger
	Patrons  PatronStore
	Lending  LendingAPI
	Detector MismatchDetector
	Fines    FineEngine
	Reports  ReportService
	Archive  ArchiveBrowser // nil without an archive bucket

	// Settings and maintenance
	Settings  PolicySettings
	Scheduler Rescheduler

	// Audit trail
	AuditReader AuditReader
	Auditor     SettingsAuditor

	// Task queue client (optional)
	TaskQueue TaskQueue

	// CORS origins; empty disables CORS
	CORSOrigins []string

	// Application info
	Version string
	Logger  *zap.Logger

	// BaseContext is cancelled on shutdown
	BaseContext context.Context
}
