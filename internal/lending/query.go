package lending

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mrlokans/lendingdesk/internal/entities"
	"github.com/mrlokans/lendingdesk/internal/fines"
	"github.com/mrlokans/lendingdesk/internal/notify"
)

// Get returns a borrowing or a NotFoundError.
func (s *Service) Get(ctx context.Context, id uint) (*entities.Borrowing, error) {
	loan, err := s.borrowings.GetBorrowingByID(id)
	if err != nil {
		return nil, notFound(err, "borrowing", id)
	}
	return loan, nil
}

// List returns a page of borrowings. The overdue and lost statuses are derived views.
func (s *Service) List(ctx context.Context, filter entities.BorrowingFilter, limit, offset int) ([]entities.Borrowing, int64, error) {
	if filter.Today.IsZero() {
		filter.Today = s.today()
	}
	return s.borrowings.ListBorrowings(filter, limit, offset)
}

// OpenLoans returns the loans a patron currently holds.
func (s *Service) OpenLoans(ctx context.Context, patron entities.PatronRef) ([]entities.Borrowing, error) {
	return s.borrowings.GetOpenByPatron(patron)
}

// SendOverdueNotices notifies every patron with an overdue loan and returns the number
// of notices sent.
func (s *Service) SendOverdueNotices(ctx context.Context) (int, error) {
	if s.notifier == nil {
		return 0, nil
	}

	today := s.today()
	loans, err := s.borrowings.GetOverdue(today, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to list overdue loans: %w", err)
	}
	policy, err := s.fines.Policy(ctx)
	if err != nil {
		return 0, err
	}
	formatter := s.fines.Formatter()

	sent := 0
	for _, loan := range loans {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		days := fines.DaysOverdue(loan.DueDate, today)
		accrued := policy.DailyRate().Mul(decimal.NewFromInt(int64(days)))
		title := loan.TrackingCode
		if loan.Book != nil {
			title = loan.Book.Title
		}

		n := notify.New(notify.KindOverdueNotice, loan.Patron(), "Overdue library book",
			fmt.Sprintf("%q was due on %s and is %d day(s) overdue. Fines accrued so far: %s.",
				title, loan.DueDate.Format("2006-01-02"), days, formatter.Format(accrued)),
			map[string]any{"borrowing_id": loan.ID, "days_overdue": days})
		if err := s.notifier.Notify(ctx, n); err != nil {
			s.log.Warn("overdue notice failed", zap.Uint("borrowing_id", loan.ID), zap.Error(err))
			continue
		}
		sent++
	}

	s.log.Info("overdue notices sent", zap.Int("overdue", len(loans)), zap.Int("sent", sent))
	return sent, nil
}
