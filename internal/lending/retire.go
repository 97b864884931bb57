package lending

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mrlokans/lendingdesk/internal/entities"
	"github.com/mrlokans/lendingdesk/internal/errs"
)

// RetireBook soft-deletes a book. A book with open loans, lost copies included,
// stays in the catalog until they are closed.
func (s *Service) RetireBook(ctx context.Context, id uint, actor string) error {
	book, err := s.catalog.GetBookByID(id)
	if err != nil {
		return notFound(err, "book", id)
	}
	open, err := s.borrowings.CountOpenByBook(id)
	if err != nil {
		return fmt.Errorf("failed to count open loans of book %d: %w", id, err)
	}
	if open > 0 {
		return errs.Conflict("book %q has %d open loan(s)", book.Title, open)
	}
	if err := s.catalog.DeleteBook(id); err != nil {
		return notFound(err, "book", id)
	}

	s.log.Info("book retired", zap.Uint("book_id", id), zap.String("title", book.Title))
	if s.auditor != nil {
		s.auditor.Record(entities.AuditEventInventory, "book_delete", actor, "book", id,
			fmt.Sprintf("Removed %q from the catalog", book.Title), nil, nil)
	}
	return nil
}

// RemoveStudent soft-deletes a student who holds no open loans.
func (s *Service) RemoveStudent(ctx context.Context, id uint, actor string) error {
	student, err := s.patrons.GetStudentByID(id)
	if err != nil {
		return notFound(err, "student", id)
	}
	open, err := s.borrowings.CountOpenByPatron(entities.StudentRef(id))
	if err != nil {
		return fmt.Errorf("failed to count open loans of student %d: %w", id, err)
	}
	if open > 0 {
		return errs.Conflict("student %s has %d open loan(s)", student.AdmissionNumber, open)
	}
	if err := s.patrons.DeleteStudent(id); err != nil {
		return notFound(err, "student", id)
	}

	s.log.Info("student removed", zap.Uint("student_id", id), zap.String("admission_number", student.AdmissionNumber))
	if s.auditor != nil {
		s.auditor.Record(entities.AuditEventPatron, "student_delete", actor, "student", id,
			fmt.Sprintf("Removed student %s (%s)", student.FullName(), student.AdmissionNumber), nil, nil)
	}
	return nil
}
