package mismatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/lendingdesk/internal/entities"
	"github.com/mrlokans/lendingdesk/internal/errs"
)

type fakeLoans struct {
	mu      sync.Mutex
	byCode  map[string]*entities.Borrowing
	lookups int
	err     error
}

func (f *fakeLoans) GetOpenByTrackingCode(code string) (*entities.Borrowing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	if f.err != nil {
		return nil, f.err
	}
	loan, ok := f.byCode[code]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return loan, nil
}

type fixedAmounts map[entities.FineType]decimal.Decimal

func (f fixedAmounts) Amount(_ context.Context, fineType entities.FineType) (decimal.Decimal, error) {
	return f[fineType], nil
}

func loan(id uint, code string, patron entities.PatronRef) *entities.Borrowing {
	return &entities.Borrowing{
		ID:           id,
		StudentID:    patron.StudentID,
		StaffID:      patron.StaffID,
		TrackingCode: code,
		Status:       entities.BorrowingStatusActive,
	}
}

func newTestDetector(window time.Duration) (*Detector, *fakeLoans) {
	alice := entities.StudentRef(1)
	bob := entities.StudentRef(2)
	loans := &fakeLoans{byCode: map[string]*entities.Borrowing{
		"MATH/001/2024": loan(10, "MATH/001/2024", alice),
		"MATH/002/2024": loan(11, "MATH/002/2024", bob),
		"ENG/001/2024":  loan(12, "ENG/001/2024", alice),
	}}
	amounts := fixedAmounts{entities.FineTypeStolenBook: decimal.NewFromInt(500)}
	return NewDetector(loans, amounts, window, nil), loans
}

func TestDetector_Classify(t *testing.T) {
	alice := entities.StudentRef(1)
	ctx := context.Background()

	t.Run("own expected code is no mismatch", func(t *testing.T) {
		d, _ := newTestDetector(0)
		res, err := d.Classify(ctx, "math/001/2024 ", []string{"MATH/001/2024"}, alice)
		require.NoError(t, err)
		assert.False(t, res.IsMismatch)
		require.NotNil(t, res.ExpectedBorrowing)
		assert.Equal(t, uint(10), res.ExpectedBorrowing.ID)
		assert.Nil(t, res.VictimBorrowing)
	})

	t.Run("another of the patron's own loans is no mismatch", func(t *testing.T) {
		d, _ := newTestDetector(0)
		res, err := d.Classify(ctx, "ENG/001/2024", []string{"MATH/001/2024"}, alice)
		require.NoError(t, err)
		assert.False(t, res.IsMismatch)
		assert.Equal(t, uint(12), res.ExpectedBorrowing.ID)
	})

	t.Run("code on another patron's loan is a mismatch", func(t *testing.T) {
		d, _ := newTestDetector(0)
		res, err := d.Classify(ctx, "MATH/002/2024", []string{"MATH/001/2024"}, alice)
		require.NoError(t, err)
		assert.True(t, res.IsMismatch)
		require.NotNil(t, res.VictimBorrowing)
		assert.Equal(t, uint(11), res.VictimBorrowing.ID)
		require.NotNil(t, res.ExpectedBorrowing)
		assert.Equal(t, uint(10), res.ExpectedBorrowing.ID)
		require.NotNil(t, res.FineAmount)
		assert.True(t, res.FineAmount.Equal(decimal.NewFromInt(500)))
	})

	t.Run("unknown code is no mismatch", func(t *testing.T) {
		d, _ := newTestDetector(0)
		res, err := d.Classify(ctx, "ART/009/2020", []string{"MATH/001/2024"}, alice)
		require.NoError(t, err)
		assert.False(t, res.IsMismatch)
		assert.Nil(t, res.VictimBorrowing)
		assert.Nil(t, res.ExpectedBorrowing)
	})

	t.Run("without a patron any held code outside the expected set is a mismatch", func(t *testing.T) {
		d, _ := newTestDetector(0)
		res, err := d.Classify(ctx, "ENG/001/2024", nil, entities.PatronRef{})
		require.NoError(t, err)
		assert.True(t, res.IsMismatch)
		assert.Equal(t, uint(12), res.VictimBorrowing.ID)
	})

	t.Run("empty code", func(t *testing.T) {
		d, _ := newTestDetector(0)
		_, err := d.Classify(ctx, "  ", nil, alice)
		assert.True(t, errs.IsValidation(err))
	})

	t.Run("lookup failure", func(t *testing.T) {
		d, loans := newTestDetector(0)
		loans.err = errors.New("database is locked")
		_, err := d.Classify(ctx, "MATH/002/2024", nil, alice)
		assert.ErrorContains(t, err, "database is locked")
	})
}

func TestDetector_Detect_Debounces(t *testing.T) {
	ctx := context.Background()
	alice := entities.StudentRef(1)
	d, loans := newTestDetector(time.Second)

	now := time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return now }

	first, err := d.Detect(ctx, "MATH/002/2024", []string{"MATH/001/2024"}, alice)
	require.NoError(t, err)
	assert.True(t, first.IsMismatch)
	lookups := loans.lookups

	now = now.Add(300 * time.Millisecond)
	repeat, err := d.Detect(ctx, "math/002/2024", []string{"MATH/001/2024"}, alice)
	require.NoError(t, err)
	assert.True(t, repeat.Throttled)
	assert.False(t, repeat.IsMismatch)
	assert.Equal(t, lookups, loans.lookups, "throttled calls must not hit the store")

	// a different code is not affected by the window
	other, err := d.Detect(ctx, "MATH/001/2024", []string{"MATH/001/2024"}, alice)
	require.NoError(t, err)
	assert.False(t, other.Throttled)

	now = now.Add(time.Second)
	later, err := d.Detect(ctx, "MATH/002/2024", []string{"MATH/001/2024"}, alice)
	require.NoError(t, err)
	assert.False(t, later.Throttled)
	assert.True(t, later.IsMismatch)
}

func TestDetector_Detect_NoWindow(t *testing.T) {
	d, _ := newTestDetector(0)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		res, err := d.Detect(ctx, "MATH/002/2024", nil, entities.StudentRef(1))
		require.NoError(t, err)
		assert.False(t, res.Throttled)
	}
}

func TestDetector_Throttle_Prunes(t *testing.T) {
	d, _ := newTestDetector(time.Second)
	now := time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return now }

	for i := 0; i < pruneThreshold; i++ {
		d.throttle(string(rune('A'+i%26)) + time.Duration(i).String())
	}
	now = now.Add(2 * time.Second)
	d.throttle("fresh")
	assert.Len(t, d.seen, 1)
}

func TestDetector_ConcurrentDetect(t *testing.T) {
	d, _ := newTestDetector(time.Minute)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	passed := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := d.Detect(ctx, "MATH/002/2024", nil, entities.StudentRef(1))
			if err == nil && !res.Throttled {
				mu.Lock()
				passed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, passed)
}
