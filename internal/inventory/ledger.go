// Package inventory keeps book-level counters consistent with the physical copies.
//
// Every copy status mutation in the lending flow ends with a call to Ledger.Recompute,
// which is the only place total_copies and available_copies are derived. Books that were
// catalogued without copies are "counter-only" and move through Adjust instead.
package inventory

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mrlokans/lendingdesk/internal/entities"
)

// Store is the catalog persistence the ledger works against.
type Store interface {
	GetBookByID(id uint) (*entities.Book, error)
	GetAllBookIDs() ([]uint, error)
	UpdateBookCounters(bookID uint, total, available int, status entities.BookStatus) error
	CountCopiesByStatus(bookID uint) (map[entities.CopyStatus]int, error)
	GetCopiesByBook(bookID uint) ([]entities.BookCopy, error)
	CreateCopies(copies []entities.BookCopy) error
	MaxCopyNumber(bookID uint) (int, error)
	TrackingCodeExists(code string) (bool, error)
	UpdateCopyState(copyID uint, status entities.CopyStatus, condition entities.Condition) error
}

// LoanStore exposes the copies that are currently out on loan.
type LoanStore interface {
	GetOpenCopyIDs() ([]uint, error)
	// GetOpenWithoutCopy returns open loans of a book that were issued against the
	// cached counter, lost ones included, oldest first.
	GetOpenWithoutCopy(bookID uint) ([]entities.Borrowing, error)
	AttachCopy(borrowingID, copyID uint, trackingCode string) error
}

// Counters is the derived availability of a book.
type Counters struct {
	Total     int                 `json:"total_copies"`
	Available int                 `json:"available_copies"`
	Status    entities.BookStatus `json:"status"`
}

// ReconcileReport summarises one repair pass.
type ReconcileReport struct {
	Books         int `json:"books"`
	CopiesCreated int `json:"copies_created"`
	CopiesFixed   int `json:"copies_fixed"`
	LoansLinked   int `json:"loans_linked"`
	Failed        int `json:"failed"`
}

type Ledger struct {
	store Store
	loans LoanStore
	log   *zap.Logger
	now   func() time.Time
}

func NewLedger(store Store, loans LoanStore, log *zap.Logger) *Ledger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{store: store, loans: loans, log: log, now: time.Now}
}

// Recompute derives the counters of a book from its copies and stores them.
// Books without copies keep their cached counters, clamped so that
// 0 <= available <= total.
func (l *Ledger) Recompute(bookID uint) (Counters, error) {
	counts, err := l.store.CountCopiesByStatus(bookID)
	if err != nil {
		return Counters{}, fmt.Errorf("failed to count copies of book %d: %w", bookID, err)
	}

	var c Counters
	for _, n := range counts {
		c.Total += n
	}

	if c.Total == 0 {
		book, err := l.store.GetBookByID(bookID)
		if err != nil {
			return Counters{}, fmt.Errorf("failed to load book %d: %w", bookID, err)
		}
		c.Total = max(book.TotalCopies, 0)
		c.Available = clamp(book.AvailableCopies, 0, c.Total)
		c.Status = statusFor(c, counts)
	} else {
		c.Available = counts[entities.CopyStatusAvailable]
		c.Status = statusFor(c, counts)
	}

	if err := l.store.UpdateBookCounters(bookID, c.Total, c.Available, c.Status); err != nil {
		return Counters{}, fmt.Errorf("failed to update counters of book %d: %w", bookID, err)
	}
	return c, nil
}

// Adjust moves the cached available counter of a counter-only book by delta.
func (l *Ledger) Adjust(bookID uint, delta int) (Counters, error) {
	book, err := l.store.GetBookByID(bookID)
	if err != nil {
		return Counters{}, fmt.Errorf("failed to load book %d: %w", bookID, err)
	}

	c := Counters{Total: max(book.TotalCopies, 0)}
	c.Available = clamp(book.AvailableCopies+delta, 0, c.Total)
	c.Status = statusFor(c, nil)

	if err := l.store.UpdateBookCounters(bookID, c.Total, c.Available, c.Status); err != nil {
		return Counters{}, fmt.Errorf("failed to update counters of book %d: %w", bookID, err)
	}
	return c, nil
}

// AddCopies creates count new copies of a book, numbered after the existing ones,
// and recomputes the book. A zero year means the current year.
func (l *Ledger) AddCopies(bookID uint, count, year int, condition entities.Condition) ([]entities.BookCopy, error) {
	if count <= 0 {
		return nil, nil
	}
	book, err := l.store.GetBookByID(bookID)
	if err != nil {
		return nil, fmt.Errorf("failed to load book %d: %w", bookID, err)
	}
	copies, err := l.newCopies(book, count, year, condition)
	if err != nil {
		return nil, err
	}
	if err := l.store.CreateCopies(copies); err != nil {
		return nil, fmt.Errorf("failed to create copies of book %d: %w", bookID, err)
	}
	if _, err := l.linkLooseLoans(bookID, copies); err != nil {
		return copies, err
	}
	if _, err := l.Recompute(bookID); err != nil {
		return copies, err
	}

	l.log.Info("copies added",
		zap.Uint("book_id", bookID),
		zap.Int("count", count),
		zap.String("first_code", copies[0].TrackingCode))
	return copies, nil
}

func (l *Ledger) newCopies(book *entities.Book, count, year int, condition entities.Condition) ([]entities.BookCopy, error) {
	if year == 0 {
		year = l.now().Year()
	}
	if condition == "" {
		condition = entities.ConditionGood
	}
	last, err := l.store.MaxCopyNumber(book.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read copy numbers of book %d: %w", book.ID, err)
	}

	prefix := book.BookCode
	if prefix == "" {
		prefix = fmt.Sprintf("B%d", book.ID)
	}

	copies := make([]entities.BookCopy, 0, count)
	pending := make(map[string]bool, count)
	exists := func(code string) (bool, error) {
		if pending[code] {
			return true, nil
		}
		return l.store.TrackingCodeExists(code)
	}
	for i := 1; i <= count; i++ {
		number := last + i
		code, err := AllocateTrackingCode(prefix, number, year, exists)
		if err != nil {
			return nil, err
		}
		pending[code] = true
		copies = append(copies, entities.BookCopy{
			BookID:       book.ID,
			CopyNumber:   number,
			TrackingCode: code,
			Condition:    condition,
			Status:       entities.CopyStatusAvailable,
			AcquiredYear: year,
		})
	}
	return copies, nil
}

// Reconcile is the idempotent repair pass. For every book it creates copies missing
// up to total_copies, aligns copy statuses with the open loans and recomputes the
// counters. A failing book is logged and skipped.
func (l *Ledger) Reconcile(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport

	ids, err := l.store.GetAllBookIDs()
	if err != nil {
		return report, fmt.Errorf("failed to list books: %w", err)
	}
	openIDs, err := l.loans.GetOpenCopyIDs()
	if err != nil {
		return report, fmt.Errorf("failed to list open loans: %w", err)
	}
	onLoan := make(map[uint]bool, len(openIDs))
	for _, id := range openIDs {
		onLoan[id] = true
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		res, err := l.reconcileBook(id, onLoan)
		report.Books++
		report.CopiesCreated += res.CopiesCreated
		report.CopiesFixed += res.CopiesFixed
		report.LoansLinked += res.LoansLinked
		if err != nil {
			report.Failed++
			l.log.Warn("reconcile failed for book", zap.Uint("book_id", id), zap.Error(err))
		}
	}

	l.log.Info("inventory reconciled",
		zap.Int("books", report.Books),
		zap.Int("copies_created", report.CopiesCreated),
		zap.Int("copies_fixed", report.CopiesFixed),
		zap.Int("loans_linked", report.LoansLinked),
		zap.Int("failed", report.Failed))
	return report, nil
}

func (l *Ledger) reconcileBook(bookID uint, onLoan map[uint]bool) (ReconcileReport, error) {
	var res ReconcileReport
	book, err := l.store.GetBookByID(bookID)
	if err != nil {
		return res, err
	}
	copies, err := l.store.GetCopiesByBook(bookID)
	if err != nil {
		return res, err
	}

	for i, bookCopy := range copies {
		want := bookCopy.Status
		switch {
		case onLoan[bookCopy.ID] && bookCopy.Status == entities.CopyStatusAvailable:
			want = entities.CopyStatusBorrowed
		case !onLoan[bookCopy.ID] && bookCopy.Status == entities.CopyStatusBorrowed:
			want = entities.CopyStatusAvailable
		}
		if want == bookCopy.Status {
			continue
		}
		if err := l.store.UpdateCopyState(bookCopy.ID, want, ""); err != nil {
			return res, err
		}
		copies[i].Status = want
		res.CopiesFixed++
	}

	if missing := book.TotalCopies - len(copies); missing > 0 {
		added, err := l.newCopies(book, missing, 0, entities.ConditionGood)
		if err != nil {
			return res, err
		}
		if err := l.store.CreateCopies(added); err != nil {
			return res, err
		}
		res.CopiesCreated = len(added)
		copies = append(copies, added...)
	}

	// Loans issued against the counter get a shelved copy, otherwise Recompute would
	// count their books as available.
	if res.LoansLinked, err = l.linkLooseLoans(bookID, copies); err != nil {
		return res, err
	}

	_, err = l.Recompute(bookID)
	return res, err
}

// linkLooseLoans attaches available copies to the open loans of a book that hold no
// copy. The copy becomes borrowed, or lost when the loan reported it lost.
func (l *Ledger) linkLooseLoans(bookID uint, copies []entities.BookCopy) (int, error) {
	loose, err := l.loans.GetOpenWithoutCopy(bookID)
	if err != nil || len(loose) == 0 {
		return 0, err
	}

	linked := 0
	for i := range copies {
		if linked == len(loose) {
			break
		}
		if copies[i].Status != entities.CopyStatusAvailable {
			continue
		}
		loan := loose[linked]
		status, condition := entities.CopyStatusBorrowed, entities.Condition("")
		if loan.IsLost {
			status, condition = entities.CopyStatusLost, entities.ConditionLost
		}
		if err := l.store.UpdateCopyState(copies[i].ID, status, condition); err != nil {
			return linked, err
		}
		if err := l.loans.AttachCopy(loan.ID, copies[i].ID, copies[i].TrackingCode); err != nil {
			return linked, err
		}
		copies[i].Status = status
		if condition != "" {
			copies[i].Condition = condition
		}
		linked++
	}

	if linked < len(loose) {
		l.log.Warn("open loans left without a copy",
			zap.Uint("book_id", bookID), zap.Int("loans", len(loose)-linked))
	}
	return linked, nil
}

func statusFor(c Counters, counts map[entities.CopyStatus]int) entities.BookStatus {
	switch {
	case c.Available > 0:
		return entities.BookStatusAvailable
	case c.Total > 0 && counts[entities.CopyStatusLost] == c.Total:
		return entities.BookStatusLost
	default:
		return entities.BookStatusUnavailable
	}
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
