package fines

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/lendingdesk/internal/database"
	finesRepo "github.com/mrlokans/lendingdesk/internal/database/fines"
	"github.com/mrlokans/lendingdesk/internal/entities"
	"github.com/mrlokans/lendingdesk/internal/errs"
)

func setupEngine(t *testing.T) (*Engine, *finesRepo.Repository) {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "fines.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := finesRepo.NewRepository(db.DB)
	engine := NewEngine(repo, NewFormatter("KES", "en"), nil)
	engine.now = func() time.Time { return today }
	return engine, repo
}

func uintPtr(v uint) *uint { return &v }

func TestEngine_Create_PreventsDuplicates(t *testing.T) {
	engine, repo := setupEngine(t)
	ctx := context.Background()

	req := CreateRequest{
		Patron:            entities.StudentRef(1),
		BorrowingID:       uintPtr(42),
		Amount:            amount(50),
		FineType:          entities.FineTypeFairCondition,
		PreventDuplicates: true,
	}

	first, created, err := engine.Create(ctx, req)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "Fair condition fine of KES 50.00", first.Description)
	assert.Equal(t, entities.BorrowerStudent, first.BorrowerType)

	second, created, err := engine.Create(ctx, req)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	count, err := repo.CountFines(42, entities.FineTypeFairCondition)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// a different type on the same borrowing is a separate fine
	_, created, err = engine.Create(ctx, CreateRequest{
		Patron:            entities.StudentRef(1),
		BorrowingID:       uintPtr(42),
		Amount:            amount(10),
		FineType:          entities.FineTypeLateReturn,
		PreventDuplicates: true,
	})
	require.NoError(t, err)
	assert.True(t, created)
}

func TestEngine_Create_WithoutDuplicatePrevention(t *testing.T) {
	engine, repo := setupEngine(t)
	ctx := context.Background()

	req := CreateRequest{
		Patron:      entities.StaffRef(3),
		BorrowingID: uintPtr(7),
		Amount:      amount(10),
		FineType:    entities.FineTypeOverdue,
		Description: "Manual overdue charge",
	}
	_, _, err := engine.Create(ctx, req)
	require.NoError(t, err)
	_, _, err = engine.Create(ctx, req)
	require.NoError(t, err)

	count, err := repo.CountFines(7, entities.FineTypeOverdue)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestEngine_Create_Validation(t *testing.T) {
	engine, _ := setupEngine(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  CreateRequest
	}{
		{"no patron", CreateRequest{Amount: amount(1), FineType: entities.FineTypeDamaged}},
		{"both patrons", CreateRequest{Patron: entities.PatronRef{StudentID: uintPtr(1), StaffID: uintPtr(2)}, Amount: amount(1), FineType: entities.FineTypeDamaged}},
		{"unknown type", CreateRequest{Patron: entities.StudentRef(1), Amount: amount(1), FineType: "parking"}},
		{"negative amount", CreateRequest{Patron: entities.StudentRef(1), Amount: amount(-1), FineType: entities.FineTypeDamaged}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := engine.Create(ctx, tt.req)
			assert.True(t, errs.IsValidation(err), "got %v", err)
		})
	}
}

func TestEngine_StatusTransitions(t *testing.T) {
	engine, _ := setupEngine(t)
	ctx := context.Background()

	newFine := func() *entities.Fine {
		fine, _, err := engine.Create(ctx, CreateRequest{Patron: entities.StudentRef(1), Amount: amount(100), FineType: entities.FineTypePoorCondition})
		require.NoError(t, err)
		return fine
	}

	t.Run("pay then collect", func(t *testing.T) {
		fine := newFine()
		paid, err := engine.Pay(ctx, fine.ID)
		require.NoError(t, err)
		assert.Equal(t, entities.FineStatusPaid, paid.Status)
		require.NotNil(t, paid.PaidAt)

		collected, err := engine.Collect(ctx, fine.ID)
		require.NoError(t, err)
		assert.Equal(t, entities.FineStatusCollected, collected.Status)

		_, err = engine.Pay(ctx, fine.ID)
		assert.True(t, errs.IsConflict(err))
	})

	t.Run("clear outstanding", func(t *testing.T) {
		fine := newFine()
		cleared, err := engine.Clear(ctx, fine.ID)
		require.NoError(t, err)
		assert.Equal(t, entities.FineStatusCleared, cleared.Status)

		_, err = engine.Collect(ctx, fine.ID)
		assert.True(t, errs.IsConflict(err))
	})

	t.Run("missing fine", func(t *testing.T) {
		_, err := engine.Pay(ctx, 9999)
		assert.True(t, errs.IsNotFound(err))
	})
}

func TestEngine_ClearForBorrowing(t *testing.T) {
	engine, repo := setupEngine(t)
	ctx := context.Background()

	lost, _, err := engine.Create(ctx, CreateRequest{Patron: entities.StudentRef(1), BorrowingID: uintPtr(5), Amount: amount(500), FineType: entities.FineTypeLostBook, PreventDuplicates: true})
	require.NoError(t, err)
	_, _, err = engine.Create(ctx, CreateRequest{Patron: entities.StudentRef(1), BorrowingID: uintPtr(5), Amount: amount(10), FineType: entities.FineTypeLateReturn, PreventDuplicates: true})
	require.NoError(t, err)

	cleared, err := engine.ClearForBorrowing(ctx, 5, entities.FineTypeLostBook)
	require.NoError(t, err)
	assert.Equal(t, int64(1), cleared)

	fine, err := repo.GetFineByID(lost.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.FineStatusCleared, fine.Status)

	late, _, err := engine.List(ctx, entities.FineFilter{FineType: entities.FineTypeLateReturn}, 10, 0)
	require.NoError(t, err)
	require.Len(t, late, 1)
	assert.Equal(t, entities.FineStatusUnpaid, late[0].Status)
}

func TestEngine_Settings(t *testing.T) {
	engine, _ := setupEngine(t)
	ctx := context.Background()

	before, err := engine.Amount(ctx, entities.FineTypeDamaged)
	require.NoError(t, err)
	assert.True(t, before.Equal(amount(200)))

	_, err = engine.UpdateSetting(ctx, entities.FineTypeDamaged, decimal.RequireFromString("250.456"), "Spine or pages damaged")
	require.NoError(t, err)
	_, err = engine.UpdateSetting(ctx, entities.FineTypeDamaged, decimal.RequireFromString("260"), "Spine or pages damaged")
	require.NoError(t, err)

	after, err := engine.Amount(ctx, entities.FineTypeDamaged)
	require.NoError(t, err)
	assert.True(t, after.Equal(amount(260)), "got %s", after)

	views, err := engine.ListSettings(ctx)
	require.NoError(t, err)
	require.Len(t, views, len(DefaultAmounts))
	for _, v := range views {
		if v.FineType == entities.FineTypeDamaged {
			assert.Equal(t, "database", v.Source)
			assert.Equal(t, "KES 260.00", v.Formatted)
		} else {
			assert.Equal(t, "default", v.Source)
		}
	}

	_, err = engine.UpdateSetting(ctx, "parking", amount(1), "")
	assert.True(t, errs.IsValidation(err))
	_, err = engine.UpdateSetting(ctx, entities.FineTypeLateReturn, amount(40), "")
	assert.True(t, errs.IsValidation(err), "late_return is priced by the overdue rate")
	for _, v := range views {
		assert.NotEqual(t, entities.FineTypeLateReturn, v.FineType)
	}
	_, err = engine.UpdateSetting(ctx, entities.FineTypeDamaged, amount(-1), "")
	assert.True(t, errs.IsValidation(err))
}

func TestEngine_ImportSchedule(t *testing.T) {
	engine, _ := setupEngine(t)
	ctx := context.Background()

	n, err := engine.ImportSchedule(ctx, strings.NewReader(`
currency: KES
fines:
  overdue:
    amount: "15"
    description: Per day past due
  lost_book:
    amount: "750.50"
`))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rate, err := engine.Amount(ctx, entities.FineTypeOverdue)
	require.NoError(t, err)
	assert.True(t, rate.Equal(amount(15)))

	_, err = engine.ImportSchedule(ctx, strings.NewReader("currency: USD\nfines:\n  overdue: {amount: \"1\"}\n"))
	assert.True(t, errs.IsValidation(err))
}
