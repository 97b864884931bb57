// Package interfaces documents the core abstractions used throughout the application.
//
// This package consolidates interface documentation to help contributors find the
// extension points and see which concrete types satisfy them.
//
// # Interface Categories
//
// Consumers declare the small interfaces they need next to the code that uses them.
// The concrete repositories and services live elsewhere and are wired together in
// internal/entrypoint.
//
// ## Data Access Interfaces
//
//   - lending.CatalogStore, lending.PatronStore, lending.BorrowingStore, lending.TheftStore:
//     persistence used by the borrowing lifecycle (internal/lending/interfaces.go)
//   - inventory.Store, inventory.LoanStore: copy and counter storage for the ledger
//     (internal/inventory/ledger.go)
//   - fines.Store: fine rows and fine settings (internal/fines/engine.go)
//   - reports.LoanCounter, reports.FineAggregator, reports.CatalogCounter,
//     reports.PatronDirectory, reports.TheftCounter: read-side aggregates
//     (internal/reports/service.go)
//
// ## Domain Service Interfaces
//
//   - lending.Ledger, lending.FineEngine, lending.MismatchClassifier: collaborators of
//     issue, return and found-lost-book
//   - lending.PolicySource: loan period and default limits (database > env > default)
//   - mismatch.LoanLookup, mismatch.AmountSource: theft detection inputs
//
// ## HTTP Interfaces
//
// Every controller in internal/http takes the narrowest interface it needs
// (CatalogStore, PatronStore, LendingAPI, FineEngine, ReportService, PolicySettings,
// TaskQueue, AuditReader). RouterConfig skips a controller whose dependency is nil.
//
// ## Background Work Interfaces
//
//   - tasks.Reconciler, tasks.BookRecomputer, tasks.NoticeSender, tasks.ReportArchiver,
//     tasks.AuditEventCleaner: the work behind each backlite queue
//   - scheduler.ScheduleSource, scheduler.Enqueuer: cron schedules that enqueue tasks
//
// ## External Service Interfaces
//
//   - storage.Client: object storage for archived reports (internal/storage/client.go),
//     implemented by the S3 provider
//   - notify.Notifier: patron notifications, implemented by the log and webhook notifiers
//
// # Adding a New Notification Channel
//
//  1. Implement notify.Notifier in internal/notify/
//
//     type SMSNotifier struct {
//         client *resty.Client
//     }
//
//     func (s *SMSNotifier) Notify(ctx context.Context, n Notification) error {
//         // Send n.Message to the recipient's phone
//     }
//
//  2. Add a compile-time check to checks.go
//
//     var _ notify.Notifier = (*notify.SMSNotifier)(nil)
//
//  3. Append it to the notify.Multi built in internal/entrypoint
//
// # Adding a New Background Task
//
//  1. Define the task and its queue in internal/tasks/ with a small interface for
//     the work it calls
//  2. Add the type to tasks.Types and tasks.Build so POST /api/tasks/:type/run can
//     trigger it
//  3. Register the queue in entrypoint.Build
//
// # Compile-Time Checks
//
// See checks.go for the assertions that keep the concrete types in line with these
// interfaces.
package interfaces
