package lending

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mrlokans/lendingdesk/internal/entities"
	"github.com/mrlokans/lendingdesk/internal/errs"
	"github.com/mrlokans/lendingdesk/internal/fines"
	"github.com/mrlokans/lendingdesk/internal/mismatch"
)

type ReturnRequest struct {
	BorrowingID          uint
	ConditionAtReturn    entities.Condition
	IsLost               bool
	ReturnedTrackingCode string
	PreventAutoFine      bool
	ReturnedBy           string
	Notes                string

	// FineAmount replaces the calculated fine when set.
	FineAmount *decimal.Decimal
}

// ReturnResult is the outcome of a return. When the returned code belongs to another
// patron's loan, Mismatch and TheftReport are set and the borrowing stays active.
type ReturnResult struct {
	Borrowing   *entities.Borrowing   `json:"borrowing"`
	Fine        *entities.Fine        `json:"fine,omitempty"`
	Calculation *fines.Calculation    `json:"calculation,omitempty"`
	Mismatch    *mismatch.Result      `json:"mismatch,omitempty"`
	TheftReport *entities.TheftReport `json:"theft_report,omitempty"`
}

// Return closes a loan, or marks it lost, and charges the resulting fine.
func (s *Service) Return(ctx context.Context, req ReturnRequest) (*ReturnResult, error) {
	loan, err := s.borrowings.GetBorrowingByID(req.BorrowingID)
	if err != nil {
		return nil, notFound(err, "borrowing", req.BorrowingID)
	}
	if err := validateReturn(loan, req); err != nil {
		return nil, err
	}

	code := strings.ToUpper(strings.TrimSpace(req.ReturnedTrackingCode))
	if code != "" && !strings.EqualFold(code, loan.TrackingCode) {
		res, err := s.mismatch.Classify(ctx, code, []string{loan.TrackingCode}, loan.Patron())
		if err != nil {
			return nil, err
		}
		if res.IsMismatch {
			return s.reportTheft(ctx, loan, res, req.ReturnedBy)
		}
		if res.ExpectedBorrowing != nil {
			return nil, errs.Validation("returned_tracking_code", "%s belongs to borrowing %d of the same patron", code, res.ExpectedBorrowing.ID)
		}
		return nil, errs.Validation("returned_tracking_code", "%s does not match the borrowed copy %s", code, loan.TrackingCode)
	}

	policy, err := s.fines.Policy(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	condition := req.ConditionAtReturn
	if req.IsLost {
		condition = entities.ConditionLost
	}
	calc := policy.Calculate(fines.Assessment{
		Condition: condition,
		IsLost:    req.IsLost,
		DueDate:   loan.DueDate,
		Today:     now,
	})

	amount := calc.Amount
	switch {
	case req.FineAmount != nil:
		amount = req.FineAmount.Round(2)
	case req.PreventAutoFine:
		amount = decimal.Zero
	}

	loan.ConditionAtReturn = condition
	loan.FineAmount = amount
	loan.ReturnNotes = appendNote(loan.ReturnNotes, req.Notes)
	loan.ReturnedBy = req.ReturnedBy
	if req.IsLost {
		loan.IsLost = true
	} else {
		loan.Status = entities.BorrowingStatusReturned
		loan.ReturnedDate = &now
	}
	if err := s.borrowings.SaveBorrowing(loan); err != nil {
		return nil, fmt.Errorf("failed to save borrowing %d: %w", loan.ID, err)
	}

	result := &ReturnResult{Borrowing: loan, Calculation: &calc}
	if amount.IsPositive() {
		result.Fine = s.charge(ctx, loan.Patron(), loan.ID, calc.FineType, amount,
			describeReturn(calc, s.fines.Formatter().Format(amount)), req.ReturnedBy)
	}

	s.releaseCopy(loan, req.IsLost, condition)

	action, verb := "borrowing_return", "Returned"
	if req.IsLost {
		action, verb = "borrowing_lost", "Reported lost"
	}
	s.log.Info("book returned",
		zap.Uint("borrowing_id", loan.ID),
		zap.Bool("lost", req.IsLost),
		zap.String("condition", string(condition)),
		zap.Int("days_overdue", calc.DaysOverdue),
		zap.String("fine", amount.StringFixed(2)))
	s.audit(entities.AuditEventReturn, action, req.ReturnedBy, loan.ID,
		fmt.Sprintf("%s %s in %s condition, fine %s", verb, loan.TrackingCode, condition, s.fines.Formatter().Format(amount)),
		map[string]any{"days_overdue": calc.DaysOverdue, "fine_type": calc.FineType, "fine_amount": amount.StringFixed(2)})
	return result, nil
}

func validateReturn(loan *entities.Borrowing, req ReturnRequest) error {
	if loan.Status == entities.BorrowingStatusReturned {
		return errs.Validation("borrowing_id", "borrowing %d is already returned", loan.ID)
	}
	if loan.IsLost || loan.Status == entities.BorrowingStatusLost {
		return errs.Validation("borrowing_id", "borrowing %d is marked lost; record the copy as found instead", loan.ID)
	}
	if !req.IsLost {
		if req.ConditionAtReturn == "" {
			return errs.Validation("condition_at_return", "is required")
		}
		if !req.ConditionAtReturn.Valid() {
			return errs.Validation("condition_at_return", "invalid condition %q", req.ConditionAtReturn)
		}
		// A returned copy is on the desk; losses go through is_lost so the loan stays open.
		if req.ConditionAtReturn == entities.ConditionLost {
			return errs.Validation("condition_at_return", "use is_lost to report a lost copy")
		}
	}
	if req.FineAmount != nil && req.FineAmount.IsNegative() {
		return errs.Validation("fine_amount", "must not be negative")
	}
	return nil
}

// charge records a fine. Failures are logged and never block the operation.
func (s *Service) charge(ctx context.Context, patron entities.PatronRef, borrowingID uint, fineType entities.FineType, amount decimal.Decimal, description, createdBy string) *entities.Fine {
	fine, _, err := s.fines.Create(ctx, fines.CreateRequest{
		Patron:            patron,
		BorrowingID:       &borrowingID,
		Amount:            amount,
		FineType:          fineType,
		Description:       description,
		CreatedBy:         createdBy,
		PreventDuplicates: true,
	})
	if err != nil {
		s.log.Error("failed to create fine",
			zap.Uint("borrowing_id", borrowingID),
			zap.String("fine_type", string(fineType)),
			zap.Error(err))
		return nil
	}
	return fine
}

// releaseCopy puts the copy back on the shelf, or marks it lost, and syncs the book.
func (s *Service) releaseCopy(loan *entities.Borrowing, lost bool, condition entities.Condition) {
	if loan.BookCopyID != nil {
		status := entities.CopyStatusAvailable
		if lost {
			status = entities.CopyStatusLost
		}
		s.secondary("copy state", s.catalog.UpdateCopyState(*loan.BookCopyID, status, condition),
			zap.Uint("copy_id", *loan.BookCopyID), zap.Uint("borrowing_id", loan.ID))
	}

	delta := 1
	if lost {
		delta = 0
	}
	s.syncBook(loan, delta)
}

func describeReturn(calc fines.Calculation, amount string) string {
	switch calc.FineType {
	case entities.FineTypeLostBook:
		return "Lost book replacement: " + amount
	case entities.FineTypeOverdue, entities.FineTypeLateReturn:
		return fmt.Sprintf("Returned %d day(s) late: %s", calc.DaysOverdue, amount)
	}
	if calc.DaysOverdue > 0 {
		return fmt.Sprintf("%s, returned %d day(s) late: %s", fines.Label(calc.FineType), calc.DaysOverdue, amount)
	}
	return fmt.Sprintf("%s on return: %s", fines.Label(calc.FineType), amount)
}

func appendNote(existing, note string) string {
	note = strings.TrimSpace(note)
	switch {
	case note == "":
		return existing
	case existing == "":
		return note
	default:
		return existing + "\n" + note
	}
}
