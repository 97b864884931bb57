package lending

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/lendingdesk/internal/entities"
	"github.com/mrlokans/lendingdesk/internal/errs"
)

func TestIssue(t *testing.T) {
	t.Run("claims the lowest numbered copy and recomputes the book", func(t *testing.T) {
		f := setup(t)
		book, copies := f.book(t, "ENG", 3)
		patron := f.student(t, "amina", 3)

		loan := f.issue(t, patron, book.ID)

		assert.Equal(t, entities.BorrowingStatusActive, loan.Status)
		require.NotNil(t, loan.BookCopyID)
		assert.Equal(t, copies[0].ID, *loan.BookCopyID)
		assert.Equal(t, copies[0].TrackingCode, loan.TrackingCode)
		assert.Equal(t, entities.BorrowerStudent, loan.BorrowerType)
		assert.Len(t, loan.Reference, 26)
		assert.Equal(t, entities.ConditionGood, loan.ConditionAtIssue)

		assert.Equal(t, entities.CopyStatusBorrowed, f.reloadCopy(t, copies[0].ID).Status)
		reloaded := f.reloadBook(t, book.ID)
		assert.Equal(t, 3, reloaded.TotalCopies)
		assert.Equal(t, 2, reloaded.AvailableCopies)
		assert.Contains(t, f.auditor.actions(), "borrowing_issue")
	})

	t.Run("explicit copy", func(t *testing.T) {
		f := setup(t)
		book, copies := f.book(t, "MAT", 3)
		patron := f.student(t, "baraka", 3)

		loan, err := f.svc.Issue(f.ctx, IssueRequest{Patron: patron, BookID: book.ID, CopyID: &copies[2].ID})
		require.NoError(t, err)
		assert.Equal(t, copies[2].ID, *loan.BookCopyID)

		_, err = f.svc.Issue(f.ctx, IssueRequest{Patron: patron, BookID: book.ID, CopyID: &copies[2].ID})
		assert.True(t, errs.IsConflict(err), "second issue of the same copy must conflict, got %v", err)
	})

	t.Run("copy of another book is rejected", func(t *testing.T) {
		f := setup(t)
		book, _ := f.book(t, "BIO", 1)
		_, otherCopies := f.book(t, "CHE", 1)
		patron := f.student(t, "chep", 3)

		_, err := f.svc.Issue(f.ctx, IssueRequest{Patron: patron, BookID: book.ID, CopyID: &otherCopies[0].ID})
		assert.True(t, errs.IsValidation(err))
		assert.Equal(t, entities.CopyStatusAvailable, f.reloadCopy(t, otherCopies[0].ID).Status)
	})

	t.Run("default due date uses the loan period", func(t *testing.T) {
		f := setup(t)
		book, _ := f.book(t, "GEO", 1)
		patron := f.student(t, "dan", 3)

		loan, err := f.svc.Issue(f.ctx, IssueRequest{Patron: patron, BookID: book.ID})
		require.NoError(t, err)
		assert.Equal(t, "2024-05-15", loan.DueDate.Format("2006-01-02"))
	})

	t.Run("no copies left", func(t *testing.T) {
		f := setup(t)
		book, _ := f.book(t, "HIS", 1)
		f.issue(t, f.student(t, "esther", 3), book.ID)

		_, err := f.svc.Issue(f.ctx, IssueRequest{Patron: f.student(t, "faith", 3), BookID: book.ID})
		assert.True(t, errs.IsConflict(err))
	})

	t.Run("counter only book", func(t *testing.T) {
		f := setup(t)
		book := f.counterOnlyBook(t, "KIS", 2)
		patron := f.student(t, "gitau", 3)

		loan := f.issue(t, patron, book.ID)
		assert.Nil(t, loan.BookCopyID)
		assert.Empty(t, loan.TrackingCode)
		assert.Equal(t, 1, f.reloadBook(t, book.ID).AvailableCopies)

		f.issue(t, patron, book.ID)
		reloaded := f.reloadBook(t, book.ID)
		assert.Equal(t, 0, reloaded.AvailableCopies)
		assert.Equal(t, entities.BookStatusUnavailable, reloaded.Status)

		_, err := f.svc.Issue(f.ctx, IssueRequest{Patron: patron, BookID: book.ID})
		assert.True(t, errs.IsConflict(err))
	})
}

func TestIssueValidation(t *testing.T) {
	f := setup(t)
	book, _ := f.book(t, "PHY", 2)
	patron := f.student(t, "hassan", 3)

	both := entities.PatronRef{StudentID: patron.StudentID, StaffID: patron.StudentID}
	cases := []struct {
		name  string
		req   IssueRequest
		field string
	}{
		{"no patron", IssueRequest{BookID: book.ID}, "patron"},
		{"both patrons", IssueRequest{Patron: both, BookID: book.ID}, "patron"},
		{"no book", IssueRequest{Patron: patron}, "book_id"},
		{"due in the past", IssueRequest{Patron: patron, BookID: book.ID, DueDate: f.clock.AddDate(0, 0, -1)}, "due_date"},
		{"due now", IssueRequest{Patron: patron, BookID: book.ID, DueDate: f.clock}, "due_date"},
		{"lost condition", IssueRequest{Patron: patron, BookID: book.ID, ConditionAtIssue: entities.ConditionLost}, "condition_at_issue"},
		{"unknown condition", IssueRequest{Patron: patron, BookID: book.ID, ConditionAtIssue: "mint"}, "condition_at_issue"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Issue(f.ctx, tc.req)
			var verr *errs.ValidationError
			require.True(t, errors.As(err, &verr), "expected validation error, got %v", err)
			assert.Equal(t, tc.field, verr.Field)
		})
	}

	assert.Equal(t, 2, f.reloadBook(t, book.ID).AvailableCopies)
}

func TestIssueNotFound(t *testing.T) {
	f := setup(t)
	book, _ := f.book(t, "CRE", 1)

	_, err := f.svc.Issue(f.ctx, IssueRequest{Patron: entities.StudentRef(999), BookID: book.ID})
	assert.True(t, errs.IsNotFound(err))

	_, err = f.svc.Issue(f.ctx, IssueRequest{Patron: f.student(t, "imani", 3), BookID: 999})
	assert.True(t, errs.IsNotFound(err))

	missing := uint(12345)
	_, err = f.svc.Issue(f.ctx, IssueRequest{Patron: f.student(t, "jabali", 3), BookID: book.ID, CopyID: &missing})
	assert.True(t, errs.IsNotFound(err))
}

func TestIssueLimits(t *testing.T) {
	t.Run("class maximum reached", func(t *testing.T) {
		f := setup(t)
		book, _ := f.book(t, "LIT", 5)
		patron := f.student(t, "kamau", 2)

		f.issue(t, patron, book.ID)
		f.issue(t, patron, book.ID)

		_, err := f.svc.Issue(f.ctx, IssueRequest{Patron: patron, BookID: book.ID})
		limit, ok := errs.AsLimit(err)
		require.True(t, ok, "expected limit error, got %v", err)
		assert.Equal(t, 2, limit.Current)
		assert.Equal(t, 2, limit.Max)
		assert.Equal(t, 1, limit.Requested)
		assert.Equal(t, 0, limit.AvailableSlots)
		assert.Equal(t, 3, f.reloadBook(t, book.ID).AvailableCopies)
	})

	t.Run("class without maximum falls back to the student default", func(t *testing.T) {
		f := setup(t)
		book, _ := f.book(t, "AGR", 5)
		patron := f.student(t, "lulu", 0)

		f.issue(t, patron, book.ID)
		f.issue(t, patron, book.ID)
		_, err := f.svc.Issue(f.ctx, IssueRequest{Patron: patron, BookID: book.ID})
		limit, ok := errs.AsLimit(err)
		require.True(t, ok)
		assert.Equal(t, 2, limit.Max)
	})

	t.Run("returned loans free a slot", func(t *testing.T) {
		f := setup(t)
		book, _ := f.book(t, "BST", 3)
		patron := f.student(t, "moraa", 1)

		loan := f.issue(t, patron, book.ID)
		_, err := f.svc.Return(f.ctx, ReturnRequest{BorrowingID: loan.ID, ConditionAtReturn: entities.ConditionGood})
		require.NoError(t, err)

		f.issue(t, patron, book.ID)
	})

	t.Run("staff personal and default maximum", func(t *testing.T) {
		f := setup(t)
		book, _ := f.book(t, "COM", 8)
		personal := f.staff(t, "njeri", 1)
		fallback := f.staff(t, "otieno", 0)

		f.issue(t, personal, book.ID)
		_, err := f.svc.Issue(f.ctx, IssueRequest{Patron: personal, BookID: book.ID})
		_, ok := errs.AsLimit(err)
		assert.True(t, ok)

		for i := 0; i < 5; i++ {
			loan := f.issue(t, fallback, book.ID)
			assert.Equal(t, entities.BorrowerStaff, loan.BorrowerType)
		}
		_, err = f.svc.Issue(f.ctx, IssueRequest{Patron: fallback, BookID: book.ID})
		limit, ok := errs.AsLimit(err)
		require.True(t, ok)
		assert.Equal(t, 5, limit.Max)
	})

	t.Run("lending policy override", func(t *testing.T) {
		f := setup(t)
		require.NoError(t, f.settings.SetStudentDefaultLimit(1))
		book, _ := f.book(t, "FRE", 3)
		patron := f.student(t, "pendo", 0)

		f.issue(t, patron, book.ID)
		_, err := f.svc.Issue(f.ctx, IssueRequest{Patron: patron, BookID: book.ID})
		_, ok := errs.AsLimit(err)
		assert.True(t, ok)
	})
}

func TestBulkIssue(t *testing.T) {
	t.Run("issues every item under one group", func(t *testing.T) {
		f := setup(t)
		first, _ := f.book(t, "ART", 1)
		second, _ := f.book(t, "MUS", 1)
		patron := f.student(t, "rehema", 3)

		loans, err := f.svc.BulkIssue(f.ctx, BulkIssueRequest{
			Patron: patron,
			Items:  []BulkItem{{BookID: first.ID}, {BookID: second.ID}},
		})
		require.NoError(t, err)
		require.Len(t, loans, 2)
		assert.NotEmpty(t, loans[0].BulkGroup)
		assert.Equal(t, loans[0].BulkGroup, loans[1].BulkGroup)
		assert.NotEqual(t, loans[0].Reference, loans[1].Reference)
	})

	t.Run("limit counts the whole request", func(t *testing.T) {
		f := setup(t)
		book, _ := f.book(t, "SWA", 5)
		patron := f.student(t, "sifa", 2)
		f.issue(t, patron, book.ID)

		_, err := f.svc.BulkIssue(f.ctx, BulkIssueRequest{
			Patron: patron,
			Items:  []BulkItem{{BookID: book.ID}, {BookID: book.ID}},
		})
		limit, ok := errs.AsLimit(err)
		require.True(t, ok)
		assert.Equal(t, 1, limit.Current)
		assert.Equal(t, 2, limit.Requested)
		assert.Equal(t, 1, limit.AvailableSlots)
	})

	t.Run("duplicate copy", func(t *testing.T) {
		f := setup(t)
		book, copies := f.book(t, "HSC", 2)
		patron := f.student(t, "tumaini", 3)

		_, err := f.svc.BulkIssue(f.ctx, BulkIssueRequest{
			Patron: patron,
			Items:  []BulkItem{{BookID: book.ID, CopyID: &copies[0].ID}, {BookID: book.ID, CopyID: &copies[0].ID}},
		})
		assert.True(t, errs.IsValidation(err))
	})

	t.Run("keeps loans issued before a failure", func(t *testing.T) {
		f := setup(t)
		book, _ := f.book(t, "PHE", 1)
		patron := f.student(t, "umi", 3)

		loans, err := f.svc.BulkIssue(f.ctx, BulkIssueRequest{
			Patron: patron,
			Items:  []BulkItem{{BookID: book.ID}, {BookID: book.ID}},
		})
		assert.True(t, errs.IsConflict(err))
		assert.Len(t, loans, 1)
	})

	t.Run("empty request", func(t *testing.T) {
		f := setup(t)
		_, err := f.svc.BulkIssue(f.ctx, BulkIssueRequest{Patron: f.student(t, "vera", 3)})
		assert.True(t, errs.IsValidation(err))
	})
}

type failingCreate struct {
	BorrowingStore
}

func (failingCreate) CreateBorrowing(*entities.Borrowing) error {
	return errors.New("disk full")
}

func TestIssueReleasesCopyWhenCreateFails(t *testing.T) {
	f := setup(t)
	book, copies := f.book(t, "TEC", 1)
	svc := f.newService(failingCreate{BorrowingStore: f.loans})

	_, err := svc.Issue(context.Background(), IssueRequest{Patron: f.student(t, "wema", 3), BookID: book.ID})
	require.Error(t, err)

	assert.Equal(t, entities.CopyStatusAvailable, f.reloadCopy(t, copies[0].ID).Status)
	assert.Equal(t, 1, f.reloadBook(t, book.ID).AvailableCopies)
}
