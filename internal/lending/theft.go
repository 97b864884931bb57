package lending

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mrlokans/lendingdesk/internal/entities"
	"github.com/mrlokans/lendingdesk/internal/errs"
	"github.com/mrlokans/lendingdesk/internal/mismatch"
	"github.com/mrlokans/lendingdesk/internal/notify"
)

// reportTheft records a return whose code belongs to another patron's loan. The
// returning patron is charged stolen_book, the victim theft_victim when that amount is
// positive, and both loans stay open.
func (s *Service) reportTheft(ctx context.Context, loan *entities.Borrowing, res mismatch.Result, reportedBy string) (*ReturnResult, error) {
	victim := res.VictimBorrowing

	// The same hand-in scanned again adds nothing to the open report.
	existing, err := s.theft.FindOpenReport(loan.ID, res.ReturnedCode)
	switch {
	case err == nil:
		s.log.Info("theft already reported",
			zap.Uint("theft_report_id", existing.ID),
			zap.Uint("borrowing_id", loan.ID),
			zap.String("returned_code", res.ReturnedCode))
		result := &ReturnResult{Borrowing: loan, Mismatch: &res, TheftReport: existing}
		if res.FineAmount != nil && res.FineAmount.IsPositive() {
			result.Fine = s.charge(ctx, loan.Patron(), loan.ID, entities.FineTypeStolenBook, res.FineAmount.Round(2),
				fmt.Sprintf("Returned %s belonging to another borrower (report #%d)", res.ReturnedCode, existing.ID), reportedBy)
		}
		return result, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("failed to look up theft reports of borrowing %d: %w", loan.ID, err)
	}

	now := s.now()

	report := &entities.TheftReport{
		BorrowingID:          loan.ID,
		VictimBorrowingID:    victim.ID,
		StudentID:            loan.StudentID,
		StaffID:              loan.StaffID,
		VictimStudentID:      victim.StudentID,
		VictimStaffID:        victim.StaffID,
		BookID:               loan.BookID,
		BookCopyID:           loan.BookCopyID,
		ExpectedTrackingCode: loan.TrackingCode,
		ReturnedTrackingCode: res.ReturnedCode,
		TheftReason: fmt.Sprintf("Returned %s, which is on loan to %s, instead of %s",
			res.ReturnedCode, victim.Patron(), loan.TrackingCode),
		ReportedDate: now,
		Status:       entities.TheftStatusReported,
	}
	if err := s.theft.CreateReport(report); err != nil {
		return nil, fmt.Errorf("failed to create theft report: %w", err)
	}

	result := &ReturnResult{Borrowing: loan, Mismatch: &res, TheftReport: report}

	if res.FineAmount != nil && res.FineAmount.IsPositive() {
		result.Fine = s.charge(ctx, loan.Patron(), loan.ID, entities.FineTypeStolenBook, res.FineAmount.Round(2),
			fmt.Sprintf("Returned %s belonging to another borrower (report #%d)", res.ReturnedCode, report.ID), reportedBy)
	}

	if policy, err := s.fines.Policy(ctx); err != nil {
		s.secondary("victim fine", err, zap.Uint("theft_report_id", report.ID))
	} else if amount := policy.Amount(entities.FineTypeTheftVictim); amount.IsPositive() {
		s.charge(ctx, victim.Patron(), victim.ID, entities.FineTypeTheftVictim, amount,
			fmt.Sprintf("Copy %s was returned by another borrower (report #%d)", res.ReturnedCode, report.ID), reportedBy)
	}

	s.log.Warn("theft reported",
		zap.Uint("theft_report_id", report.ID),
		zap.Uint("borrowing_id", loan.ID),
		zap.Uint("victim_borrowing_id", victim.ID),
		zap.String("expected_code", loan.TrackingCode),
		zap.String("returned_code", res.ReturnedCode))
	if s.auditor != nil {
		s.auditor.Record(entities.AuditEventTheft, "theft_report", reportedBy, "theft_report", report.ID,
			report.TheftReason, map[string]any{"borrowing_id": loan.ID, "victim_borrowing_id": victim.ID}, nil)
	}
	s.notify(ctx, notify.New(notify.KindTheftReported, victim.Patron(),
		"Your borrowed copy was returned by someone else",
		fmt.Sprintf("Copy %s, on loan to you, was handed in by another borrower. The library has opened report #%d.", res.ReturnedCode, report.ID),
		map[string]any{"theft_report_id": report.ID, "borrowing_id": victim.ID}))

	return result, nil
}

// ListTheftReports returns a page of reports, optionally filtered by status.
func (s *Service) ListTheftReports(ctx context.Context, status entities.TheftStatus, limit, offset int) ([]entities.TheftReport, int64, error) {
	return s.theft.ListReports(status, limit, offset)
}

// UpdateTheftReport moves a report along reported -> investigating -> resolved -> closed
// and appends investigation notes.
func (s *Service) UpdateTheftReport(ctx context.Context, id uint, status entities.TheftStatus, notes, actor string) (*entities.TheftReport, error) {
	report, err := s.theft.GetReportByID(id)
	if err != nil {
		return nil, notFound(err, "theft report", id)
	}

	if status != "" && status != report.Status {
		if !report.Status.CanMoveTo(status) {
			return nil, errs.Conflict("theft report %d cannot move from %s to %s", id, report.Status, status)
		}
		report.Status = status
		if (status == entities.TheftStatusResolved || status == entities.TheftStatusClosed) && report.ResolvedDate == nil {
			now := s.now()
			report.ResolvedDate = &now
		}
	}
	report.InvestigationNotes = appendNote(report.InvestigationNotes, notes)

	if err := s.theft.SaveReport(report); err != nil {
		return nil, fmt.Errorf("failed to save theft report %d: %w", id, err)
	}
	if s.auditor != nil {
		s.auditor.Record(entities.AuditEventTheft, "theft_report_update", actor, "theft_report", id,
			fmt.Sprintf("Theft report %d is %s", id, report.Status),
			map[string]any{"reporter": report.Reporter().String(), "victim": report.Victim().String()}, nil)
	}
	return report, nil
}
