package lending

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/lendingdesk/internal/entities"
	"github.com/mrlokans/lendingdesk/internal/errs"
)

func TestRetireBook(t *testing.T) {
	f := setup(t)
	book, _ := f.book(t, "MUS", 2)
	loan := f.issue(t, f.student(t, "ochieng", 3), book.ID)

	err := f.svc.RetireBook(f.ctx, book.ID, "librarian")
	assert.True(t, errs.IsConflict(err), "book on loan must stay, got %v", err)

	_, err = f.svc.Return(f.ctx, ReturnRequest{BorrowingID: loan.ID, ConditionAtReturn: entities.ConditionGood})
	require.NoError(t, err)

	require.NoError(t, f.svc.RetireBook(f.ctx, book.ID, "librarian"))
	_, err = f.catalog.GetBookByID(book.ID)
	assert.Error(t, err)
	assert.Contains(t, f.auditor.actions(), "book_delete")

	// History survives the catalog entry.
	stored, err := f.svc.Get(f.ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, book.ID, stored.BookID)

	_, err = f.svc.Issue(f.ctx, IssueRequest{Patron: f.student(t, "auma", 3), BookID: book.ID})
	assert.True(t, errs.IsNotFound(err))

	assert.True(t, errs.IsNotFound(f.svc.RetireBook(f.ctx, book.ID, "librarian")))
}

func TestRetireBookWithLostCopy(t *testing.T) {
	f := setup(t)
	book, _ := f.book(t, "FRE", 1)
	loan := f.issue(t, f.student(t, "njeri", 3), book.ID)
	_, err := f.svc.Return(f.ctx, ReturnRequest{BorrowingID: loan.ID, IsLost: true})
	require.NoError(t, err)

	err = f.svc.RetireBook(f.ctx, book.ID, "")
	assert.True(t, errs.IsConflict(err), "lost copy is still an open loan, got %v", err)
}

func TestRemoveStudent(t *testing.T) {
	f := setup(t)
	book, _ := f.book(t, "SWA", 2)
	patron := f.student(t, "mutua", 3)
	loan := f.issue(t, patron, book.ID)

	err := f.svc.RemoveStudent(f.ctx, *patron.StudentID, "librarian")
	assert.True(t, errs.IsConflict(err), "got %v", err)

	_, err = f.svc.Return(f.ctx, ReturnRequest{BorrowingID: loan.ID, ConditionAtReturn: entities.ConditionGood})
	require.NoError(t, err)
	require.NoError(t, f.svc.RemoveStudent(f.ctx, *patron.StudentID, "librarian"))
	assert.Contains(t, f.auditor.actions(), "student_delete")

	_, err = f.svc.Issue(f.ctx, IssueRequest{Patron: patron, BookID: book.ID})
	assert.True(t, errs.IsNotFound(err), "got %v", err)

	// Reports still resolve the removed student's name.
	named, err := f.patrons.GetStudentsByIDs([]uint{*patron.StudentID})
	require.NoError(t, err)
	require.Len(t, named, 1)
	assert.Equal(t, "mutua", named[0].FirstName)

	assert.True(t, errs.IsNotFound(f.svc.RemoveStudent(f.ctx, 999, "")))
}
