// Package reports aggregates borrowing and fine data for dashboards and archives
// periodic snapshots to object storage.
package reports

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mrlokans/lendingdesk/internal/entities"
	"github.com/mrlokans/lendingdesk/internal/fines"
)

type LoanCounter interface {
	CountByState(today time.Time) (entities.BorrowingCounts, error)
}

type FineAggregator interface {
	TotalsByPatron() ([]entities.FineTotal, error)
	TotalsByClass() ([]entities.FineTotal, error)
}

type CatalogCounter interface {
	CountBooks() (int64, error)
	CountCopies() (total, available int64, err error)
}

type PatronDirectory interface {
	CountPatrons() (students, staff int64, err error)
	GetStudentsByIDs(ids []uint) ([]entities.Student, error)
	GetStaffByIDs(ids []uint) ([]entities.Staff, error)
	GetAllClasses() ([]entities.Class, error)
}

type TheftCounter interface {
	CountOpenReports() (int64, error)
}

// Amounts splits a group's fines into what is still owed and what was taken in.
// Paid and collected fines count as collected; cleared fines are reported separately.
type Amounts struct {
	Outstanding decimal.Decimal `json:"outstanding"`
	Collected   decimal.Decimal `json:"collected"`
	Cleared     decimal.Decimal `json:"cleared"`
	Count       int64           `json:"count"`
}

func (a *Amounts) add(row entities.FineTotal) {
	a.Count += row.Count
	switch row.Status {
	case entities.FineStatusUnpaid:
		a.Outstanding = a.Outstanding.Add(row.Amount)
	case entities.FineStatusPaid, entities.FineStatusCollected:
		a.Collected = a.Collected.Add(row.Amount)
	case entities.FineStatusCleared:
		a.Cleared = a.Cleared.Add(row.Amount)
	}
}

type PatronFineTotal struct {
	Patron entities.PatronRef `json:"patron"`
	Name   string             `json:"name"`
	Amounts
}

type ClassFineTotal struct {
	ClassID   uint   `json:"class_id"`
	ClassName string `json:"class_name"`
	Amounts
}

type LibraryStats struct {
	Books            int64 `json:"books"`
	Copies           int64 `json:"copies"`
	AvailableCopies  int64 `json:"available_copies"`
	Students         int64 `json:"students"`
	Staff            int64 `json:"staff"`
	OpenTheftReports int64 `json:"open_theft_reports"`
}

// Summary is the full dashboard snapshot.
type Summary struct {
	GeneratedAt time.Time                `json:"generated_at"`
	Currency    string                   `json:"currency"`
	Borrowings  entities.BorrowingCounts `json:"borrowings"`
	Library     LibraryStats             `json:"library"`
	Fines       Amounts                  `json:"fines"`
	ByClass     []ClassFineTotal         `json:"fines_by_class"`
}

type Config struct {
	Loans     LoanCounter
	Fines     FineAggregator
	Catalog   CatalogCounter
	Patrons   PatronDirectory
	Theft     TheftCounter
	Formatter *fines.Formatter
	Logger    *zap.Logger
}

type Service struct {
	loans     LoanCounter
	fines     FineAggregator
	catalog   CatalogCounter
	patrons   PatronDirectory
	theft     TheftCounter
	formatter *fines.Formatter
	log       *zap.Logger
	now       func() time.Time
}

func NewService(cfg Config) *Service {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		loans:     cfg.Loans,
		fines:     cfg.Fines,
		catalog:   cfg.Catalog,
		patrons:   cfg.Patrons,
		theft:     cfg.Theft,
		formatter: cfg.Formatter,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// BorrowingCounts counts loans by state. Overdue is evaluated against the start of
// the current day and is a subset of Active.
func (s *Service) BorrowingCounts(ctx context.Context) (entities.BorrowingCounts, error) {
	counts, err := s.loans.CountByState(fines.StartOfDay(s.now()))
	if err != nil {
		return counts, fmt.Errorf("failed to count borrowings: %w", err)
	}
	return counts, nil
}

// FineTotalsByPatron returns per-patron fine amounts, largest outstanding first.
func (s *Service) FineTotalsByPatron(ctx context.Context) ([]PatronFineTotal, error) {
	rows, err := s.fines.TotalsByPatron()
	if err != nil {
		return nil, fmt.Errorf("failed to total fines by patron: %w", err)
	}

	index := make(map[string]int)
	var totals []PatronFineTotal
	var studentIDs, staffIDs []uint
	for _, row := range rows {
		patron := entities.PatronRef{StudentID: row.StudentID, StaffID: row.StaffID}
		key := patron.String()
		i, ok := index[key]
		if !ok {
			i = len(totals)
			index[key] = i
			totals = append(totals, PatronFineTotal{Patron: patron, Name: key})
			switch {
			case row.StudentID != nil:
				studentIDs = append(studentIDs, *row.StudentID)
			case row.StaffID != nil:
				staffIDs = append(staffIDs, *row.StaffID)
			}
		}
		totals[i].add(row)
	}

	s.nameTotals(totals, index, studentIDs, staffIDs)

	sort.SliceStable(totals, func(i, j int) bool {
		return totals[i].Outstanding.GreaterThan(totals[j].Outstanding)
	})
	return totals, nil
}

// nameTotals fills patron names. A lookup failure leaves the reference as the name.
func (s *Service) nameTotals(totals []PatronFineTotal, index map[string]int, studentIDs, staffIDs []uint) {
	students, err := s.patrons.GetStudentsByIDs(studentIDs)
	if err != nil {
		s.log.Warn("failed to load students for fine totals", zap.Error(err))
	}
	for _, student := range students {
		if i, ok := index[entities.StudentRef(student.ID).String()]; ok {
			totals[i].Name = student.FullName()
		}
	}

	staff, err := s.patrons.GetStaffByIDs(staffIDs)
	if err != nil {
		s.log.Warn("failed to load staff for fine totals", zap.Error(err))
	}
	for _, member := range staff {
		if i, ok := index[entities.StaffRef(member.ID).String()]; ok {
			totals[i].Name = member.FullName()
		}
	}
}

// FineTotalsByClass returns per-class fine amounts for student fines, in class order.
func (s *Service) FineTotalsByClass(ctx context.Context) ([]ClassFineTotal, error) {
	rows, err := s.fines.TotalsByClass()
	if err != nil {
		return nil, fmt.Errorf("failed to total fines by class: %w", err)
	}
	classes, err := s.patrons.GetAllClasses()
	if err != nil {
		return nil, fmt.Errorf("failed to load classes: %w", err)
	}
	names := make(map[uint]string, len(classes))
	for _, class := range classes {
		names[class.ID] = class.ClassName
	}

	index := make(map[uint]int)
	var totals []ClassFineTotal
	for _, row := range rows {
		var classID uint
		if row.ClassID != nil {
			classID = *row.ClassID
		}
		i, ok := index[classID]
		if !ok {
			i = len(totals)
			index[classID] = i
			name := names[classID]
			if classID == 0 {
				name = "Unassigned"
			}
			totals = append(totals, ClassFineTotal{ClassID: classID, ClassName: name})
		}
		totals[i].add(row)
	}
	return totals, nil
}

// LibraryStats counts the catalog, patrons and open theft reports.
func (s *Service) LibraryStats(ctx context.Context) (LibraryStats, error) {
	var stats LibraryStats
	var err error

	if stats.Books, err = s.catalog.CountBooks(); err != nil {
		return stats, fmt.Errorf("failed to count books: %w", err)
	}
	if stats.Copies, stats.AvailableCopies, err = s.catalog.CountCopies(); err != nil {
		return stats, fmt.Errorf("failed to count copies: %w", err)
	}
	if stats.Students, stats.Staff, err = s.patrons.CountPatrons(); err != nil {
		return stats, fmt.Errorf("failed to count patrons: %w", err)
	}
	if stats.OpenTheftReports, err = s.theft.CountOpenReports(); err != nil {
		return stats, fmt.Errorf("failed to count theft reports: %w", err)
	}
	return stats, nil
}

// Summary combines every aggregate into one snapshot.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	summary := &Summary{GeneratedAt: s.now()}
	if s.formatter != nil {
		summary.Currency = s.formatter.Currency()
	}

	var err error
	if summary.Borrowings, err = s.BorrowingCounts(ctx); err != nil {
		return nil, err
	}
	if summary.Library, err = s.LibraryStats(ctx); err != nil {
		return nil, err
	}

	byPatron, err := s.fines.TotalsByPatron()
	if err != nil {
		return nil, fmt.Errorf("failed to total fines: %w", err)
	}
	for _, row := range byPatron {
		summary.Fines.add(row)
	}

	if summary.ByClass, err = s.FineTotalsByClass(ctx); err != nil {
		return nil, err
	}
	return summary, nil
}

// Describe renders the headline numbers of a summary for logs and the CLI.
func (s *Service) Describe(summary *Summary) string {
	format := func(d decimal.Decimal) string { return d.StringFixed(2) }
	if s.formatter != nil {
		format = s.formatter.Format
	}
	b := summary.Borrowings
	return fmt.Sprintf("%d active (%d overdue), %d returned, %d lost; fines outstanding %s, collected %s",
		b.Active, b.Overdue, b.Returned, b.Lost, format(summary.Fines.Outstanding), format(summary.Fines.Collected))
}
