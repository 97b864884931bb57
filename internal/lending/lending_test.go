package lending

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/lendingdesk/internal/config"
	"github.com/mrlokans/lendingdesk/internal/database"
	"github.com/mrlokans/lendingdesk/internal/database/books"
	"github.com/mrlokans/lendingdesk/internal/database/borrowings"
	finesRepo "github.com/mrlokans/lendingdesk/internal/database/fines"
	"github.com/mrlokans/lendingdesk/internal/database/patrons"
	"github.com/mrlokans/lendingdesk/internal/database/theft"
	"github.com/mrlokans/lendingdesk/internal/entities"
	"github.com/mrlokans/lendingdesk/internal/fines"
	"github.com/mrlokans/lendingdesk/internal/inventory"
	"github.com/mrlokans/lendingdesk/internal/mismatch"
	"github.com/mrlokans/lendingdesk/internal/notify"
	"github.com/mrlokans/lendingdesk/internal/settingsstore"
)

var startTime = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n notify.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

func (r *recordingNotifier) all() []notify.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Notification(nil), r.sent...)
}

type recordedEvent struct {
	eventType entities.AuditEventType
	action    string
	entityID  uint
}

type recordingAuditor struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recordingAuditor) Record(eventType entities.AuditEventType, action, _ string, _ string, entityID uint, _ string, _ map[string]any, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{eventType: eventType, action: action, entityID: entityID})
}

func (r *recordingAuditor) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.action)
	}
	return out
}

type fixture struct {
	ctx      context.Context
	db       *database.Database
	catalog  *books.Repository
	patrons  *patrons.Repository
	loans    *borrowings.Repository
	fines    *finesRepo.Repository
	theft    *theft.Repository
	ledger   *inventory.Ledger
	engine   *fines.Engine
	settings *settingsstore.SettingsStore
	notifier *recordingNotifier
	auditor  *recordingAuditor
	svc      *Service
	clock    time.Time
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "lending.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	f := &fixture{
		ctx:      context.Background(),
		db:       db,
		catalog:  books.NewRepository(db.DB),
		patrons:  patrons.NewRepository(db.DB),
		loans:    borrowings.NewRepository(db.DB),
		fines:    finesRepo.NewRepository(db.DB),
		theft:    theft.NewRepository(db.DB),
		notifier: &recordingNotifier{},
		auditor:  &recordingAuditor{},
		clock:    startTime,
	}
	f.ledger = inventory.NewLedger(f.catalog, f.loans, nil)
	f.engine = fines.NewEngine(f.fines, fines.NewFormatter("KES", "en"), nil)
	f.settings = settingsstore.New(db,
		config.Lending{LoanPeriodDays: 14, StudentDefaultLimit: 2, StaffDefaultLimit: 5},
		config.Schedules{})

	f.svc = f.newService(f.loans)
	return f
}

func (f *fixture) newService(store BorrowingStore) *Service {
	svc := NewService(Config{
		Catalog:    f.catalog,
		Patrons:    f.patrons,
		Borrowings: store,
		Theft:      f.theft,
		Ledger:     f.ledger,
		Fines:      f.engine,
		Mismatch:   mismatch.NewDetector(f.loans, f.engine, 0, nil),
		Policy:     f.settings,
		Auditor:    f.auditor,
		Notifier:   f.notifier,
	})
	svc.now = func() time.Time { return f.clock }
	return svc
}

func (f *fixture) advance(d time.Duration) {
	f.clock = f.clock.Add(d)
}

func (f *fixture) setFine(t *testing.T, fineType entities.FineType, amount int64) {
	t.Helper()
	_, err := f.engine.UpdateSetting(f.ctx, fineType, decimal.NewFromInt(amount), "")
	require.NoError(t, err)
}

func (f *fixture) book(t *testing.T, code string, copies int) (*entities.Book, []entities.BookCopy) {
	t.Helper()
	book := &entities.Book{Title: "Book " + code, Author: "Author", BookCode: code}
	require.NoError(t, f.catalog.CreateBook(book))
	created, err := f.ledger.AddCopies(book.ID, copies, 2024, entities.ConditionGood)
	require.NoError(t, err)
	return book, created
}

func (f *fixture) counterOnlyBook(t *testing.T, code string, total int) *entities.Book {
	t.Helper()
	book := &entities.Book{Title: "Book " + code, Author: "Author", BookCode: code, TotalCopies: total, AvailableCopies: total}
	require.NoError(t, f.catalog.CreateBook(book))
	return book
}

func (f *fixture) student(t *testing.T, name string, classMax int) entities.PatronRef {
	t.Helper()
	class := &entities.Class{ClassName: "Form 2 " + name, FormLevel: 2, MaxBooksAllowed: classMax, IsActive: true}
	require.NoError(t, f.patrons.CreateClass(class))
	student := &entities.Student{AdmissionNumber: "ADM-" + name, FirstName: name, LastName: "Otieno", ClassID: &class.ID}
	require.NoError(t, f.patrons.CreateStudent(student))
	return entities.StudentRef(student.ID)
}

func (f *fixture) staff(t *testing.T, name string, max int) entities.PatronRef {
	t.Helper()
	staff := &entities.Staff{StaffNumber: "TSC-" + name, FirstName: name, LastName: "Wanjiru", MaxBooksAllowed: max}
	require.NoError(t, f.patrons.CreateStaff(staff))
	return entities.StaffRef(staff.ID)
}

func (f *fixture) issue(t *testing.T, patron entities.PatronRef, bookID uint) *entities.Borrowing {
	t.Helper()
	loan, err := f.svc.Issue(f.ctx, IssueRequest{Patron: patron, BookID: bookID, DueDate: f.clock.AddDate(0, 0, 7)})
	require.NoError(t, err)
	return loan
}

func (f *fixture) reloadBook(t *testing.T, id uint) *entities.Book {
	t.Helper()
	book, err := f.catalog.GetBookByID(id)
	require.NoError(t, err)
	return book
}

func (f *fixture) reloadCopy(t *testing.T, id uint) *entities.BookCopy {
	t.Helper()
	bookCopy, err := f.catalog.GetCopyByID(id)
	require.NoError(t, err)
	return bookCopy
}

func (f *fixture) finesOf(t *testing.T, borrowingID uint) []entities.Fine {
	t.Helper()
	list, _, err := f.fines.ListFines(entities.FineFilter{BorrowingID: &borrowingID}, 100, 0)
	require.NoError(t, err)
	return list
}

func requireAmount(t *testing.T, want int64, got decimal.Decimal) {
	t.Helper()
	require.True(t, decimal.NewFromInt(want).Equal(got), "expected %d, got %s", want, got.String())
}
