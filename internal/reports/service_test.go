package reports

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/lendingdesk/internal/database"
	"github.com/mrlokans/lendingdesk/internal/database/books"
	"github.com/mrlokans/lendingdesk/internal/database/borrowings"
	finesRepo "github.com/mrlokans/lendingdesk/internal/database/fines"
	"github.com/mrlokans/lendingdesk/internal/database/patrons"
	"github.com/mrlokans/lendingdesk/internal/database/theft"
	"github.com/mrlokans/lendingdesk/internal/entities"
	"github.com/mrlokans/lendingdesk/internal/fines"
	"github.com/mrlokans/lendingdesk/internal/storage"
)

var today = time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)

type fixture struct {
	svc     *Service
	catalog *books.Repository
	patrons *patrons.Repository
	loans   *borrowings.Repository
	fines   *finesRepo.Repository
	theft   *theft.Repository
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "reports.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	f := &fixture{
		catalog: books.NewRepository(db.DB),
		patrons: patrons.NewRepository(db.DB),
		loans:   borrowings.NewRepository(db.DB),
		fines:   finesRepo.NewRepository(db.DB),
		theft:   theft.NewRepository(db.DB),
	}
	f.svc = NewService(Config{
		Loans:     f.loans,
		Fines:     f.fines,
		Catalog:   f.catalog,
		Patrons:   f.patrons,
		Theft:     f.theft,
		Formatter: fines.NewFormatter("KES", "en"),
	})
	f.svc.now = func() time.Time { return today }
	return f
}

func (f *fixture) loan(t *testing.T, patron entities.PatronRef, bookID uint, due time.Time, status entities.BorrowingStatus, lost bool) {
	t.Helper()
	require.NoError(t, f.loans.CreateBorrowing(&entities.Borrowing{
		Reference:    "REF" + due.Format("20060102") + string(status) + patron.String(),
		StudentID:    patron.StudentID,
		StaffID:      patron.StaffID,
		BorrowerType: patron.Type(),
		BookID:       bookID,
		BorrowedDate: due.AddDate(0, 0, -14),
		DueDate:      due,
		Status:       status,
		IsLost:       lost,
	}))
}

func (f *fixture) fine(t *testing.T, patron entities.PatronRef, amount int64, status entities.FineStatus) {
	t.Helper()
	require.NoError(t, f.fines.CreateFine(&entities.Fine{
		StudentID:    patron.StudentID,
		StaffID:      patron.StaffID,
		BorrowerType: patron.Type(),
		FineType:     entities.FineTypeLateReturn,
		Amount:       decimal.NewFromInt(amount),
		Status:       status,
	}))
}

type seeded struct {
	formOne, formTwo   *entities.Class
	alice, brian, cleo entities.PatronRef
	hod                entities.PatronRef
}

func (f *fixture) seed(t *testing.T) seeded {
	t.Helper()
	var s seeded
	s.formOne = &entities.Class{ClassName: "Form 1 East", FormLevel: 1, MaxBooksAllowed: 2, IsActive: true}
	s.formTwo = &entities.Class{ClassName: "Form 2 West", FormLevel: 2, MaxBooksAllowed: 3, IsActive: true}
	require.NoError(t, f.patrons.CreateClass(s.formOne))
	require.NoError(t, f.patrons.CreateClass(s.formTwo))

	student := func(adm, first string, class *entities.Class) entities.PatronRef {
		st := &entities.Student{AdmissionNumber: adm, FirstName: first, LastName: "Mwangi", ClassID: &class.ID}
		require.NoError(t, f.patrons.CreateStudent(st))
		return entities.StudentRef(st.ID)
	}
	s.alice = student("A1", "Alice", s.formOne)
	s.brian = student("B1", "Brian", s.formOne)
	s.cleo = student("C1", "Cleo", s.formTwo)

	staff := &entities.Staff{StaffNumber: "T1", FirstName: "Grace", LastName: "Achieng"}
	require.NoError(t, f.patrons.CreateStaff(staff))
	s.hod = entities.StaffRef(staff.ID)

	f.fine(t, s.alice, 100, entities.FineStatusUnpaid)
	f.fine(t, s.alice, 50, entities.FineStatusPaid)
	f.fine(t, s.brian, 30, entities.FineStatusCollected)
	f.fine(t, s.cleo, 500, entities.FineStatusUnpaid)
	f.fine(t, s.cleo, 500, entities.FineStatusCleared)
	f.fine(t, s.hod, 20, entities.FineStatusUnpaid)
	return s
}

func amount(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestBorrowingCounts(t *testing.T) {
	f := setup(t)
	book := &entities.Book{Title: "Kigogo", Author: "Pauline Kea", TotalCopies: 5, AvailableCopies: 5}
	require.NoError(t, f.catalog.CreateBook(book))
	patron := entities.StudentRef(1)

	f.loan(t, patron, book.ID, today.AddDate(0, 0, 3), entities.BorrowingStatusActive, false)
	f.loan(t, patron, book.ID, today.AddDate(0, 0, -2), entities.BorrowingStatusActive, false)
	f.loan(t, patron, book.ID, today.AddDate(0, 0, -9), entities.BorrowingStatusActive, true)
	f.loan(t, patron, book.ID, today.AddDate(0, 0, -20), entities.BorrowingStatusReturned, false)
	// due earlier today: not overdue until tomorrow
	f.loan(t, patron, book.ID, today.Add(-time.Hour), entities.BorrowingStatusActive, false)

	counts, err := f.svc.BorrowingCounts(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, counts.Active)
	assert.EqualValues(t, 1, counts.Overdue)
	assert.EqualValues(t, 1, counts.Returned)
	assert.EqualValues(t, 1, counts.Lost)
}

func TestFineTotalsByPatron(t *testing.T) {
	f := setup(t)
	s := f.seed(t)

	totals, err := f.svc.FineTotalsByPatron(context.Background())
	require.NoError(t, err)
	require.Len(t, totals, 4)

	assert.Equal(t, "Cleo Mwangi", totals[0].Name)
	assert.True(t, totals[0].Outstanding.Equal(amount(500)))
	assert.True(t, totals[0].Cleared.Equal(amount(500)))
	assert.EqualValues(t, 2, totals[0].Count)

	byName := make(map[string]PatronFineTotal)
	for _, total := range totals {
		byName[total.Name] = total
	}
	alice := byName["Alice Mwangi"]
	assert.True(t, alice.Patron.Equal(s.alice))
	assert.True(t, alice.Outstanding.Equal(amount(100)))
	assert.True(t, alice.Collected.Equal(amount(50)))
	assert.True(t, byName["Brian Mwangi"].Collected.Equal(amount(30)))
	assert.True(t, byName["Grace Achieng"].Outstanding.Equal(amount(20)))
}

func TestFineTotalsByClass(t *testing.T) {
	f := setup(t)
	s := f.seed(t)

	totals, err := f.svc.FineTotalsByClass(context.Background())
	require.NoError(t, err)
	require.Len(t, totals, 2)

	assert.Equal(t, s.formOne.ID, totals[0].ClassID)
	assert.Equal(t, "Form 1 East", totals[0].ClassName)
	assert.True(t, totals[0].Outstanding.Equal(amount(100)))
	assert.True(t, totals[0].Collected.Equal(amount(80)))

	assert.Equal(t, "Form 2 West", totals[1].ClassName)
	assert.True(t, totals[1].Outstanding.Equal(amount(500)))
	assert.True(t, totals[1].Collected.IsZero())
}

func TestSummary(t *testing.T) {
	f := setup(t)
	f.seed(t)
	book := &entities.Book{Title: "Blossoms of the Savannah", Author: "H. R. Ole Kulet"}
	require.NoError(t, f.catalog.CreateBook(book))
	require.NoError(t, f.catalog.CreateCopies([]entities.BookCopy{
		{BookID: book.ID, CopyNumber: 1, TrackingCode: "BOS/001/2024", Status: entities.CopyStatusAvailable},
		{BookID: book.ID, CopyNumber: 2, TrackingCode: "BOS/002/2024", Status: entities.CopyStatusBorrowed},
	}))
	require.NoError(t, f.theft.CreateReport(&entities.TheftReport{BookID: book.ID, Status: entities.TheftStatusReported, ReportedDate: today}))

	summary, err := f.svc.Summary(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "KES", summary.Currency)
	assert.True(t, summary.GeneratedAt.Equal(today))
	assert.EqualValues(t, 1, summary.Library.Books)
	assert.EqualValues(t, 2, summary.Library.Copies)
	assert.EqualValues(t, 1, summary.Library.AvailableCopies)
	assert.EqualValues(t, 3, summary.Library.Students)
	assert.EqualValues(t, 1, summary.Library.Staff)
	assert.EqualValues(t, 1, summary.Library.OpenTheftReports)
	assert.True(t, summary.Fines.Outstanding.Equal(amount(620)))
	assert.True(t, summary.Fines.Collected.Equal(amount(80)))
	assert.Len(t, summary.ByClass, 2)

	assert.Equal(t, "0 active (0 overdue), 0 returned, 0 lost; fines outstanding KES 620.00, collected KES 80.00",
		f.svc.Describe(summary))
}

type recordingStorage struct {
	uploads map[string][]byte
	types   map[string]string
	fail    error
}

func (r *recordingStorage) List(_ context.Context, prefix string) ([]storage.FileInfo, error) {
	var files []storage.FileInfo
	for key := range r.uploads {
		if strings.HasPrefix(key, prefix) {
			files = append(files, storage.FileInfo{Key: key, ModifiedAt: today})
		}
	}
	return files, nil
}

func (r *recordingStorage) Download(_ context.Context, key string) (io.ReadCloser, error) {
	body, ok := r.uploads[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(body)), nil
}

func (r *recordingStorage) Upload(_ context.Context, key string, content io.Reader, contentType string) error {
	if r.fail != nil {
		return r.fail
	}
	body, err := io.ReadAll(content)
	if err != nil {
		return err
	}
	r.uploads[key] = body
	r.types[key] = contentType
	return nil
}

func (r *recordingStorage) Delete(_ context.Context, key string) error {
	delete(r.uploads, key)
	return nil
}

func TestArchiver(t *testing.T) {
	f := setup(t)
	f.seed(t)
	store := &recordingStorage{uploads: map[string][]byte{}, types: map[string]string{}}

	key, err := NewArchiver(f.svc, store, "/library/reports/", 0, nil).Archive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "library/reports/summary-20240520T090000Z.json", key)
	assert.Equal(t, "application/json", store.types[key])

	var decoded Summary
	require.NoError(t, json.Unmarshal(store.uploads[key], &decoded))
	assert.Equal(t, "KES", decoded.Currency)
	assert.True(t, decoded.Fines.Outstanding.Equal(amount(620)))
}

func TestArchiver_Latest(t *testing.T) {
	f := setup(t)
	store := &recordingStorage{uploads: map[string][]byte{}, types: map[string]string{}}
	archiver := NewArchiver(f.svc, store, "reports", 0, nil)

	latest, err := archiver.Latest(context.Background())
	require.NoError(t, err)
	assert.Nil(t, latest)

	key, err := archiver.Archive(context.Background())
	require.NoError(t, err)
	store.uploads["reports/summary-notes.txt"] = []byte("ignored")

	snapshots, err := archiver.Snapshots(context.Background())
	require.NoError(t, err)
	require.Len(t, snapshots, 1)

	latest, err = archiver.Latest(context.Background())
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, key, latest.Key)
}

func TestArchiverUploadFailure(t *testing.T) {
	f := setup(t)
	store := &recordingStorage{uploads: map[string][]byte{}, types: map[string]string{}, fail: errors.New("bucket gone")}

	_, err := NewArchiver(f.svc, store, "reports", 3, nil).Archive(context.Background())
	assert.ErrorContains(t, err, "bucket gone")
}
