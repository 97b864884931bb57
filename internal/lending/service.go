// Package lending implements the borrowing lifecycle: issuing copies against patron
// limits, returning them with fine assessment and theft detection, and restoring
// books that were reported lost.
//
// Every operation treats the borrowing write as primary. Copy status, book counters,
// fines, notifications and audit entries are secondary: their failures are logged and
// left for the inventory repair pass, never rolled back.
package lending

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mrlokans/lendingdesk/internal/entities"
	"github.com/mrlokans/lendingdesk/internal/errs"
	"github.com/mrlokans/lendingdesk/internal/fines"
	"github.com/mrlokans/lendingdesk/internal/notify"
)

// Config holds the collaborators of a Service. Auditor and Notifier are optional.
type Config struct {
	Catalog    CatalogStore
	Patrons    PatronStore
	Borrowings BorrowingStore
	Theft      TheftStore
	Ledger     Ledger
	Fines      FineEngine
	Mismatch   MismatchClassifier
	Policy     PolicySource
	Auditor    Auditor
	Notifier   notify.Notifier
	Logger     *zap.Logger
}

type Service struct {
	catalog    CatalogStore
	patrons    PatronStore
	borrowings BorrowingStore
	theft      TheftStore
	ledger     Ledger
	fines      FineEngine
	mismatch   MismatchClassifier
	policy     PolicySource
	auditor    Auditor
	notifier   notify.Notifier
	log        *zap.Logger

	now   func() time.Time
	newID func() string
}

func NewService(cfg Config) *Service {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		catalog:    cfg.Catalog,
		patrons:    cfg.Patrons,
		borrowings: cfg.Borrowings,
		theft:      cfg.Theft,
		ledger:     cfg.Ledger,
		fines:      cfg.Fines,
		mismatch:   cfg.Mismatch,
		policy:     cfg.Policy,
		auditor:    cfg.Auditor,
		notifier:   cfg.Notifier,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
		newID:      func() string { return ulid.Make().String() },
	}
}

func (s *Service) today() time.Time {
	return fines.StartOfDay(s.now())
}

func (s *Service) audit(eventType entities.AuditEventType, action, actor string, entityID uint, description string, metadata map[string]any) {
	if s.auditor == nil {
		return
	}
	s.auditor.Record(eventType, action, actor, "borrowing", entityID, description, metadata, nil)
}

func (s *Service) notify(ctx context.Context, n notify.Notification) {
	if s.notifier == nil {
		return
	}
	// notifications outlive the request that triggered them
	ctx = context.WithoutCancel(ctx)
	go func() {
		if err := s.notifier.Notify(ctx, n); err != nil {
			s.log.Warn("notification failed", zap.String("kind", string(n.Kind)), zap.String("id", n.ID), zap.Error(err))
		}
	}()
}

// secondary logs a failed follow-up write. The primary write stays in place.
func (s *Service) secondary(what string, err error, fields ...zap.Field) {
	if err == nil {
		return
	}
	s.log.Warn("secondary update failed", append([]zap.Field{zap.String("update", what), zap.Error(err)}, fields...)...)
}

// syncBook recomputes the counters of a book after a copy changed state, or adjusts
// the cached counter of a counter-only loan.
func (s *Service) syncBook(loan *entities.Borrowing, counterDelta int) {
	var err error
	if loan.BookCopyID != nil {
		_, err = s.ledger.Recompute(loan.BookID)
	} else if counterDelta != 0 {
		_, err = s.ledger.Adjust(loan.BookID, counterDelta)
	}
	s.secondary("book counters", err, zap.Uint("book_id", loan.BookID), zap.Uint("borrowing_id", loan.ID))
}

func (s *Service) patronName(patron entities.PatronRef) string {
	switch {
	case patron.StudentID != nil:
		if student, err := s.patrons.GetStudentByID(*patron.StudentID); err == nil {
			return student.FullName()
		}
	case patron.StaffID != nil:
		if staff, err := s.patrons.GetStaffByID(*patron.StaffID); err == nil {
			return staff.FullName()
		}
	}
	return patron.String()
}

func notFound(err error, resource string, key any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.NotFound(resource, key)
	}
	return fmt.Errorf("failed to load %s %v: %w", resource, key, err)
}
