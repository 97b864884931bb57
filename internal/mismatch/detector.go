// Package mismatch detects returns where the scanned tracking code belongs to another
// patron's active loan, the signal used to flag swapped or stolen copies.
package mismatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mrlokans/lendingdesk/internal/entities"
	"github.com/mrlokans/lendingdesk/internal/errs"
)

// DefaultWindow is how long repeated scans of one code are ignored.
const DefaultWindow = time.Second

// pruneThreshold is the number of remembered codes above which expired entries are dropped.
const pruneThreshold = 1024

type LoanLookup interface {
	GetOpenByTrackingCode(code string) (*entities.Borrowing, error)
}

type AmountSource interface {
	Amount(ctx context.Context, fineType entities.FineType) (decimal.Decimal, error)
}

// Result is the outcome of one detection.
type Result struct {
	IsMismatch        bool                `json:"is_mismatch"`
	Throttled         bool                `json:"throttled,omitempty"`
	ReturnedCode      string              `json:"returned_code"`
	ExpectedBorrowing *entities.Borrowing `json:"expected_borrowing,omitempty"`
	VictimBorrowing   *entities.Borrowing `json:"victim_borrowing,omitempty"`
	FineAmount        *decimal.Decimal    `json:"fine_amount,omitempty"`
}

type Detector struct {
	loans   LoanLookup
	amounts AmountSource
	window  time.Duration
	log     *zap.Logger
	now     func() time.Time

	mu   sync.Mutex
	seen map[string]time.Time
}

// NewDetector creates a detector. A non-positive window disables debouncing.
func NewDetector(loans LoanLookup, amounts AmountSource, window time.Duration, log *zap.Logger) *Detector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Detector{
		loans:   loans,
		amounts: amounts,
		window:  window,
		log:     log,
		now:     time.Now,
		seen:    make(map[string]time.Time),
	}
}

// Detect classifies a returned code, ignoring repeats of the same code inside the
// debounce window. Throttled results carry no lookups.
func (d *Detector) Detect(ctx context.Context, returnedCode string, expectedCodes []string, patron entities.PatronRef) (Result, error) {
	code := normalize(returnedCode)
	if code == "" {
		return Result{}, errs.Validation("returned_tracking_code", "is required")
	}
	if d.throttle(code) {
		d.log.Debug("duplicate scan ignored", zap.String("tracking_code", code))
		return Result{ReturnedCode: code, Throttled: true}, nil
	}
	return d.Classify(ctx, code, expectedCodes, patron)
}

func (d *Detector) throttle(code string) bool {
	if d.window <= 0 {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if last, ok := d.seen[code]; ok && now.Sub(last) < d.window {
		return true
	}
	d.seen[code] = now

	if len(d.seen) > pruneThreshold {
		for k, t := range d.seen {
			if now.Sub(t) >= d.window {
				delete(d.seen, k)
			}
		}
	}
	return false
}

// Classify runs the detection without debouncing.
//
// The code is no mismatch when it is one of the patron's expected codes or belongs to
// the patron's own active loan. It is a mismatch when another patron's active loan
// holds it; that loan is returned as the victim together with the stolen_book amount.
func (d *Detector) Classify(ctx context.Context, returnedCode string, expectedCodes []string, patron entities.PatronRef) (Result, error) {
	code := normalize(returnedCode)
	if code == "" {
		return Result{}, errs.Validation("returned_tracking_code", "is required")
	}
	result := Result{ReturnedCode: code}

	for _, expected := range expectedCodes {
		if normalize(expected) == code {
			holder, err := d.openLoan(code)
			if err != nil {
				return Result{}, err
			}
			result.ExpectedBorrowing = holder
			return result, nil
		}
	}

	holder, err := d.openLoan(code)
	if err != nil {
		return Result{}, err
	}
	if holder == nil {
		return result, nil
	}
	if !patron.IsZero() && holder.Patron().Equal(patron) {
		result.ExpectedBorrowing = holder
		return result, nil
	}

	amount, err := d.amounts.Amount(ctx, entities.FineTypeStolenBook)
	if err != nil {
		return Result{}, err
	}

	result.IsMismatch = true
	result.VictimBorrowing = holder
	result.FineAmount = &amount
	result.ExpectedBorrowing, err = d.expectedLoan(expectedCodes, patron)
	if err != nil {
		return Result{}, err
	}

	d.log.Info("tracking code mismatch",
		zap.String("returned_code", code),
		zap.Uint("victim_borrowing_id", holder.ID),
		zap.Stringer("victim", holder.Patron()),
		zap.Stringer("patron", patron))
	return result, nil
}

// expectedLoan finds the patron's own open loan among the expected codes.
func (d *Detector) expectedLoan(expectedCodes []string, patron entities.PatronRef) (*entities.Borrowing, error) {
	for _, expected := range expectedCodes {
		loan, err := d.openLoan(normalize(expected))
		if err != nil {
			return nil, err
		}
		if loan != nil && (patron.IsZero() || loan.Patron().Equal(patron)) {
			return loan, nil
		}
	}
	return nil, nil
}

func (d *Detector) openLoan(code string) (*entities.Borrowing, error) {
	if code == "" {
		return nil, nil
	}
	loan, err := d.loans.GetOpenByTrackingCode(code)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up loan for %s: %w", code, err)
	}
	return loan, nil
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
