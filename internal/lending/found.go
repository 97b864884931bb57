package lending

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mrlokans/lendingdesk/internal/entities"
	"github.com/mrlokans/lendingdesk/internal/errs"
	"github.com/mrlokans/lendingdesk/internal/notify"
)

// FoundResult is the outcome of HandleFoundLostBook.
type FoundResult struct {
	RestoredBorrowing  *entities.Borrowing `json:"restored_borrowing"`
	ClearedFineMessage string              `json:"cleared_fine_message"`
	ClearedFines       int64               `json:"cleared_fines"`
	Borrower           string              `json:"borrower"`
}

// HandleFoundLostBook restores a copy that was reported lost. The latest lost loan of
// the copy is closed as returned, its lost_book fines are cleared and the original
// borrower is notified. foundBy is optional.
func (s *Service) HandleFoundLostBook(ctx context.Context, trackingCode string, foundBy entities.PatronRef) (*FoundResult, error) {
	code := strings.ToUpper(strings.TrimSpace(trackingCode))
	if code == "" {
		return nil, errs.Validation("tracking_code", "is required")
	}
	if !foundBy.IsZero() && !foundBy.Valid() {
		return nil, errs.Validation("found_by", "exactly one of student_id and staff_id is allowed")
	}

	bookCopy, err := s.catalog.GetCopyByTrackingCode(code)
	if err != nil {
		return nil, notFound(err, "book copy", code)
	}
	if bookCopy.Status != entities.CopyStatusLost {
		return nil, errs.Validation("tracking_code", "copy %s is %s, not lost", code, bookCopy.Status)
	}

	loan, err := s.borrowings.GetLatestLostByCopy(bookCopy.ID)
	if err != nil {
		return nil, notFound(err, "lost borrowing for copy", code)
	}

	now := s.now()
	loan.Status = entities.BorrowingStatusReturned
	loan.IsLost = false
	loan.ReturnedDate = &now
	loan.ConditionAtReturn = entities.ConditionGood
	loan.FineAmount = decimal.Zero
	loan.ReturnNotes = appendNote(loan.ReturnNotes, fmt.Sprintf("Found on %s", now.Format(time.DateOnly)))
	if err := s.borrowings.SaveBorrowing(loan); err != nil {
		return nil, fmt.Errorf("failed to restore borrowing %d: %w", loan.ID, err)
	}

	cleared, message := s.clearLostFines(ctx, loan.ID)

	s.secondary("copy state", s.catalog.UpdateCopyState(bookCopy.ID, entities.CopyStatusAvailable, entities.ConditionGood),
		zap.Uint("copy_id", bookCopy.ID))
	s.syncBook(loan, 0)

	borrower := s.patronName(loan.Patron())
	title := code
	if book, err := s.catalog.GetBookByID(loan.BookID); err == nil {
		title = fmt.Sprintf("%q (%s)", book.Title, code)
	}

	s.log.Info("lost book found",
		zap.Uint("borrowing_id", loan.ID),
		zap.String("tracking_code", code),
		zap.String("borrower", borrower),
		zap.Int64("fines_cleared", cleared))
	if s.auditor != nil {
		actor := ""
		if !foundBy.IsZero() {
			actor = foundBy.String()
		}
		s.auditor.Record(entities.AuditEventRecovery, "lost_book_found", actor, "borrowing", loan.ID,
			fmt.Sprintf("%s found; borrowed by %s. %s", title, borrower, message),
			map[string]any{"tracking_code": code, "fines_cleared": cleared}, nil)
	}

	data := map[string]any{"borrowing_id": loan.ID, "tracking_code": code, "fines_cleared": cleared}
	s.notify(ctx, notify.New(notify.KindFoundLostBook, loan.Patron(), "Your lost book has been found",
		fmt.Sprintf("%s, the book %s you reported lost has been found. %s", borrower, title, message), data))
	if !foundBy.IsZero() && !foundBy.Equal(loan.Patron()) {
		s.notify(ctx, notify.New(notify.KindFoundLostBook, foundBy, "Thank you for returning a lost book",
			fmt.Sprintf("The book %s you handed in was lost by %s and is back in the library.", title, borrower), data))
	}

	return &FoundResult{
		RestoredBorrowing:  loan,
		ClearedFineMessage: message,
		ClearedFines:       cleared,
		Borrower:           borrower,
	}, nil
}

// clearLostFines clears the outstanding lost_book fines of a borrowing and describes
// what was cleared.
func (s *Service) clearLostFines(ctx context.Context, borrowingID uint) (int64, string) {
	outstanding, _, err := s.fines.List(ctx, entities.FineFilter{
		BorrowingID: &borrowingID,
		FineType:    entities.FineTypeLostBook,
		Status:      entities.FineStatusUnpaid,
	}, 100, 0)
	if err != nil {
		s.secondary("list lost fines", err, zap.Uint("borrowing_id", borrowingID))
	}
	total := decimal.Zero
	for _, fine := range outstanding {
		total = total.Add(fine.Amount)
	}

	cleared, err := s.fines.ClearForBorrowing(ctx, borrowingID, entities.FineTypeLostBook)
	if err != nil {
		s.secondary("clear lost fines", err, zap.Uint("borrowing_id", borrowingID))
		return 0, "The lost book fine could not be cleared automatically."
	}
	if cleared == 0 {
		return 0, "There was no outstanding lost book fine to clear."
	}
	return cleared, fmt.Sprintf("Cleared %d lost book fine(s) totalling %s.", cleared, s.fines.Formatter().Format(total))
}
