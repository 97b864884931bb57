package lending

import (
	"context"
	"time"

	"github.com/mrlokans/lendingdesk/internal/entities"
	"github.com/mrlokans/lendingdesk/internal/fines"
	"github.com/mrlokans/lendingdesk/internal/inventory"
	"github.com/mrlokans/lendingdesk/internal/mismatch"
)

// CatalogStore reads books and moves copies between states.
// Implemented by database/books.Repository.
type CatalogStore interface {
	GetBookByID(id uint) (*entities.Book, error)
	GetCopyByID(id uint) (*entities.BookCopy, error)
	GetCopyByTrackingCode(code string) (*entities.BookCopy, error)
	FirstAvailableCopy(bookID uint) (*entities.BookCopy, error)
	CountCopiesByStatus(bookID uint) (map[entities.CopyStatus]int, error)
	ClaimCopy(copyID uint) (bool, error)
	UpdateCopyState(copyID uint, status entities.CopyStatus, condition entities.Condition) error
	DeleteBook(id uint) error
}

// PatronStore resolves borrowers and their limits.
// Implemented by database/patrons.Repository.
type PatronStore interface {
	GetStudentByID(id uint) (*entities.Student, error)
	GetStaffByID(id uint) (*entities.Staff, error)
	DeleteStudent(id uint) error
}

// BorrowingStore persists loans. Implemented by database/borrowings.Repository.
type BorrowingStore interface {
	CreateBorrowing(borrowing *entities.Borrowing) error
	SaveBorrowing(borrowing *entities.Borrowing) error
	GetBorrowingByID(id uint) (*entities.Borrowing, error)
	CountOpenByPatron(patron entities.PatronRef) (int64, error)
	CountOpenByBook(bookID uint) (int64, error)
	GetOpenByPatron(patron entities.PatronRef) ([]entities.Borrowing, error)
	GetLatestLostByCopy(copyID uint) (*entities.Borrowing, error)
	ListBorrowings(filter entities.BorrowingFilter, limit, offset int) ([]entities.Borrowing, int64, error)
	GetOverdue(today time.Time, limit int) ([]entities.Borrowing, error)
}

// TheftStore persists mismatch reports. Implemented by database/theft.Repository.
type TheftStore interface {
	CreateReport(report *entities.TheftReport) error
	FindOpenReport(borrowingID uint, returnedCode string) (*entities.TheftReport, error)
	GetReportByID(id uint) (*entities.TheftReport, error)
	SaveReport(report *entities.TheftReport) error
	ListReports(status entities.TheftStatus, limit, offset int) ([]entities.TheftReport, int64, error)
}

// Ledger keeps book counters in line with copy states.
type Ledger interface {
	Recompute(bookID uint) (inventory.Counters, error)
	Adjust(bookID uint, delta int) (inventory.Counters, error)
}

// FineEngine prices and records fines.
type FineEngine interface {
	Policy(ctx context.Context) (fines.Policy, error)
	Create(ctx context.Context, req fines.CreateRequest) (*entities.Fine, bool, error)
	List(ctx context.Context, filter entities.FineFilter, limit, offset int) ([]entities.Fine, int64, error)
	ClearForBorrowing(ctx context.Context, borrowingID uint, fineType entities.FineType) (int64, error)
	Formatter() *fines.Formatter
}

// MismatchClassifier compares a returned code with the expected one.
type MismatchClassifier interface {
	Classify(ctx context.Context, returnedCode string, expectedCodes []string, patron entities.PatronRef) (mismatch.Result, error)
}

// PolicySource provides the library-wide lending defaults.
// Implemented by settingsstore.SettingsStore.
type PolicySource interface {
	LoanPeriodDays() int
	StudentDefaultLimit() int
	StaffDefaultLimit() int
}

// Auditor records lending events. Implemented by audit.Service.
type Auditor interface {
	Record(eventType entities.AuditEventType, action, actor, entityType string, entityID uint, description string, metadata map[string]any, err error)
}
