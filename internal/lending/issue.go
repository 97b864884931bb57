package lending

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mrlokans/lendingdesk/internal/entities"
	"github.com/mrlokans/lendingdesk/internal/errs"
)

// claimAttempts bounds how often auto-assignment retries after losing a copy to a
// concurrent issue.
const claimAttempts = 3

type IssueRequest struct {
	Patron           entities.PatronRef
	BookID           uint
	CopyID           *uint
	DueDate          time.Time // zero means the default loan period
	ConditionAtIssue entities.Condition
	IssuedBy         string
}

// BulkItem is one book of a BulkIssueRequest.
type BulkItem struct {
	BookID uint
	CopyID *uint
}

type BulkIssueRequest struct {
	Patron           entities.PatronRef
	Items            []BulkItem
	DueDate          time.Time
	ConditionAtIssue entities.Condition
	IssuedBy         string
}

// Issue lends one book to a patron.
func (s *Service) Issue(ctx context.Context, req IssueRequest) (*entities.Borrowing, error) {
	now := s.now()
	due, err := s.validateIssue(req.Patron, req.DueDate, req.ConditionAtIssue, now)
	if err != nil {
		return nil, err
	}
	if req.BookID == 0 {
		return nil, errs.Validation("book_id", "is required")
	}
	if err := s.checkLimit(req.Patron, 1); err != nil {
		return nil, err
	}

	return s.issueOne(ctx, req.Patron, req.BookID, req.CopyID, due, req.ConditionAtIssue, req.IssuedBy, "", now)
}

// BulkIssue lends several books to one patron in a single call. The limit check covers
// the whole request. Loans issued before a failing item are kept and returned together
// with the error.
func (s *Service) BulkIssue(ctx context.Context, req BulkIssueRequest) ([]entities.Borrowing, error) {
	now := s.now()
	due, err := s.validateIssue(req.Patron, req.DueDate, req.ConditionAtIssue, now)
	if err != nil {
		return nil, err
	}
	if len(req.Items) == 0 {
		return nil, errs.Validation("items", "at least one book is required")
	}
	seen := make(map[uint]bool, len(req.Items))
	for i, item := range req.Items {
		if item.BookID == 0 {
			return nil, errs.Validation(fmt.Sprintf("items[%d].book_id", i), "is required")
		}
		if item.CopyID != nil {
			if seen[*item.CopyID] {
				return nil, errs.Validation(fmt.Sprintf("items[%d].copy_id", i), "copy %d is listed twice", *item.CopyID)
			}
			seen[*item.CopyID] = true
		}
	}
	if err := s.checkLimit(req.Patron, len(req.Items)); err != nil {
		return nil, err
	}

	group := s.newID()
	issued := make([]entities.Borrowing, 0, len(req.Items))
	for i, item := range req.Items {
		loan, err := s.issueOne(ctx, req.Patron, item.BookID, item.CopyID, due, req.ConditionAtIssue, req.IssuedBy, group, now)
		if err != nil {
			return issued, fmt.Errorf("item %d (book %d): %w", i, item.BookID, err)
		}
		issued = append(issued, *loan)
	}
	return issued, nil
}

func (s *Service) validateIssue(patron entities.PatronRef, due time.Time, condition entities.Condition, now time.Time) (time.Time, error) {
	if !patron.Valid() {
		return time.Time{}, errs.Validation("patron", "exactly one of student_id and staff_id is required")
	}
	if condition != "" && (!condition.Valid() || condition == entities.ConditionLost) {
		return time.Time{}, errs.Validation("condition_at_issue", "invalid condition %q", condition)
	}
	if due.IsZero() {
		due = s.today().AddDate(0, 0, s.policy.LoanPeriodDays())
	}
	if !due.After(now) {
		return time.Time{}, errs.Validation("due_date", "must be after the borrowed date")
	}
	return due.UTC(), nil
}

// maxAllowed resolves the concurrent-loan limit of a patron: the class maximum for
// students, the personal maximum for staff, otherwise the library default.
func (s *Service) maxAllowed(patron entities.PatronRef) (int, error) {
	if patron.StudentID != nil {
		student, err := s.patrons.GetStudentByID(*patron.StudentID)
		if err != nil {
			return 0, notFound(err, "student", *patron.StudentID)
		}
		if student.Status != "" && student.Status != "active" {
			return 0, errs.Validation("student_id", "student %d is %s", student.ID, student.Status)
		}
		if student.Class != nil && student.Class.MaxBooksAllowed > 0 {
			return student.Class.MaxBooksAllowed, nil
		}
		return s.policy.StudentDefaultLimit(), nil
	}

	staff, err := s.patrons.GetStaffByID(*patron.StaffID)
	if err != nil {
		return 0, notFound(err, "staff", *patron.StaffID)
	}
	if staff.Status != "" && staff.Status != "active" {
		return 0, errs.Validation("staff_id", "staff member %d is %s", staff.ID, staff.Status)
	}
	if staff.MaxBooksAllowed > 0 {
		return staff.MaxBooksAllowed, nil
	}
	return s.policy.StaffDefaultLimit(), nil
}

func (s *Service) checkLimit(patron entities.PatronRef, requested int) error {
	limit, err := s.maxAllowed(patron)
	if err != nil {
		return err
	}
	current, err := s.borrowings.CountOpenByPatron(patron)
	if err != nil {
		return fmt.Errorf("failed to count loans of %s: %w", patron, err)
	}
	if int(current)+requested > limit {
		return errs.NewLimitExceeded(int(current), limit, requested)
	}
	return nil
}

func (s *Service) issueOne(ctx context.Context, patron entities.PatronRef, bookID uint, copyID *uint, due time.Time, condition entities.Condition, issuedBy, group string, now time.Time) (*entities.Borrowing, error) {
	book, err := s.catalog.GetBookByID(bookID)
	if err != nil {
		return nil, notFound(err, "book", bookID)
	}

	bookCopy, err := s.claim(book, copyID)
	if err != nil {
		return nil, err
	}

	if condition == "" {
		condition = entities.ConditionGood
		if bookCopy != nil && bookCopy.Condition != "" {
			condition = bookCopy.Condition
		}
	}

	loan := &entities.Borrowing{
		Reference:        s.newID(),
		StudentID:        patron.StudentID,
		StaffID:          patron.StaffID,
		BorrowerType:     patron.Type(),
		BookID:           book.ID,
		BorrowedDate:     now,
		DueDate:          due,
		Status:           entities.BorrowingStatusActive,
		ConditionAtIssue: condition,
		IssuedBy:         issuedBy,
		BulkGroup:        group,
	}
	if bookCopy != nil {
		loan.BookCopyID = &bookCopy.ID
		loan.TrackingCode = bookCopy.TrackingCode
	}

	if err := s.borrowings.CreateBorrowing(loan); err != nil {
		if bookCopy != nil {
			s.secondary("release copy", s.catalog.UpdateCopyState(bookCopy.ID, entities.CopyStatusAvailable, ""),
				zap.Uint("copy_id", bookCopy.ID))
		}
		return nil, fmt.Errorf("failed to create borrowing: %w", err)
	}
	loan.Book = book

	s.syncBook(loan, -1)

	s.log.Info("book issued",
		zap.Uint("borrowing_id", loan.ID),
		zap.String("reference", loan.Reference),
		zap.Stringer("patron", patron),
		zap.Uint("book_id", book.ID),
		zap.String("tracking_code", loan.TrackingCode))
	s.audit(entities.AuditEventIssue, "borrowing_issue", issuedBy, loan.ID,
		fmt.Sprintf("Issued %q to %s, due %s", book.Title, patron, due.Format(time.DateOnly)),
		map[string]any{"book_id": book.ID, "tracking_code": loan.TrackingCode, "bulk_group": group})
	return loan, nil
}

// claim reserves the copy to lend: the requested one, or the lowest-numbered copy on
// the shelf. Books catalogued without copies are lent against their cached counter
// and return a nil copy.
func (s *Service) claim(book *entities.Book, copyID *uint) (*entities.BookCopy, error) {
	if copyID != nil {
		bookCopy, err := s.catalog.GetCopyByID(*copyID)
		if err != nil {
			return nil, notFound(err, "book copy", *copyID)
		}
		if bookCopy.BookID != book.ID {
			return nil, errs.Validation("copy_id", "copy %d does not belong to book %d", bookCopy.ID, book.ID)
		}
		if bookCopy.Status != entities.CopyStatusAvailable {
			return nil, errs.Conflict("copy %s is %s", bookCopy.TrackingCode, bookCopy.Status)
		}
		ok, err := s.catalog.ClaimCopy(bookCopy.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to claim copy %d: %w", bookCopy.ID, err)
		}
		if !ok {
			return nil, errs.Conflict("copy %s is no longer available", bookCopy.TrackingCode)
		}
		bookCopy.Status = entities.CopyStatusBorrowed
		return bookCopy, nil
	}

	for attempt := 0; attempt < claimAttempts; attempt++ {
		bookCopy, err := s.catalog.FirstAvailableCopy(book.ID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, s.counterOnly(book)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to find a copy of book %d: %w", book.ID, err)
		}
		ok, err := s.catalog.ClaimCopy(bookCopy.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to claim copy %d: %w", bookCopy.ID, err)
		}
		if ok {
			bookCopy.Status = entities.CopyStatusBorrowed
			return bookCopy, nil
		}
	}
	return nil, errs.Conflict("no copy of %q could be reserved", book.Title)
}

// counterOnly decides whether a book without a free copy can still be lent from its
// cached counter. It returns nil when it can.
func (s *Service) counterOnly(book *entities.Book) error {
	counts, err := s.catalog.CountCopiesByStatus(book.ID)
	if err != nil {
		return fmt.Errorf("failed to count copies of book %d: %w", book.ID, err)
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	if total == 0 && book.AvailableCopies > 0 {
		return nil
	}
	return errs.Conflict("no copies of %q are available", book.Title)
}
