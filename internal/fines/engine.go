package fines

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mrlokans/lendingdesk/internal/entities"
	"github.com/mrlokans/lendingdesk/internal/errs"
)

// Store is the persistence the engine needs. It is implemented by database/fines.Repository.
type Store interface {
	CreateFine(fine *entities.Fine) error
	CreateFineIfAbsent(fine *entities.Fine) (*entities.Fine, bool, error)
	GetFineByID(id uint) (*entities.Fine, error)
	UpdateFineStatus(id uint, status entities.FineStatus, paidAt *time.Time) error
	ClearFines(borrowingID uint, fineType entities.FineType) (int64, error)
	ListFines(filter entities.FineFilter, limit, offset int) ([]entities.Fine, int64, error)
	GetAllFineSettings() ([]entities.FineSetting, error)
	UpsertFineSetting(setting *entities.FineSetting) error
}

type Engine struct {
	store     Store
	formatter *Formatter
	log       *zap.Logger
	now       func() time.Time
}

func NewEngine(store Store, formatter *Formatter, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if formatter == nil {
		formatter = NewFormatter("", "")
	}
	return &Engine{store: store, formatter: formatter, log: log, now: time.Now}
}

// Policy loads the current amount table.
func (e *Engine) Policy(ctx context.Context) (Policy, error) {
	settings, err := e.store.GetAllFineSettings()
	if err != nil {
		return Policy{}, fmt.Errorf("failed to load fine settings: %w", err)
	}
	return NewPolicy(settings), nil
}

// Amount resolves the configured amount for one fine type.
func (e *Engine) Amount(ctx context.Context, fineType entities.FineType) (decimal.Decimal, error) {
	policy, err := e.Policy(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return policy.Amount(fineType), nil
}

// Formatter renders amounts in the configured currency.
func (e *Engine) Formatter() *Formatter {
	return e.formatter
}

type CreateRequest struct {
	Patron            entities.PatronRef
	BorrowingID       *uint
	Amount            decimal.Decimal
	FineType          entities.FineType
	Description       string
	CreatedBy         string
	PreventDuplicates bool
}

// Create records a fine. With PreventDuplicates an existing fine for the same
// (borrowing, fine type) is returned instead and created is false.
func (e *Engine) Create(ctx context.Context, req CreateRequest) (*entities.Fine, bool, error) {
	if !req.Patron.Valid() {
		return nil, false, errs.Validation("patron", "exactly one of student_id and staff_id is required")
	}
	if !req.FineType.Valid() {
		return nil, false, errs.Validation("fine_type", "unknown fine type %q", req.FineType)
	}
	if req.Amount.IsNegative() {
		return nil, false, errs.Validation("amount", "must not be negative")
	}

	fine := &entities.Fine{
		StudentID:    req.Patron.StudentID,
		StaffID:      req.Patron.StaffID,
		BorrowerType: req.Patron.Type(),
		BorrowingID:  req.BorrowingID,
		FineType:     req.FineType,
		Amount:       req.Amount.Round(2),
		Description:  req.Description,
		Status:       entities.FineStatusUnpaid,
		CreatedBy:    req.CreatedBy,
	}
	if fine.Description == "" {
		fine.Description = e.Describe(req.FineType, fine.Amount)
	}

	if !req.PreventDuplicates {
		if err := e.store.CreateFine(fine); err != nil {
			return nil, false, fmt.Errorf("failed to create fine: %w", err)
		}
		return fine, true, nil
	}

	saved, created, err := e.store.CreateFineIfAbsent(fine)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create fine: %w", err)
	}
	if !created {
		e.log.Debug("duplicate fine suppressed",
			zap.Uint("fine_id", saved.ID),
			zap.String("fine_type", string(saved.FineType)))
	}
	return saved, created, nil
}

// Describe builds the default description of a fine.
func (e *Engine) Describe(fineType entities.FineType, amount decimal.Decimal) string {
	return fmt.Sprintf("%s fine of %s", Label(fineType), e.formatter.Format(amount))
}

// Get returns a fine or a NotFoundError.
func (e *Engine) Get(ctx context.Context, id uint) (*entities.Fine, error) {
	fine, err := e.store.GetFineByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFound("fine", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fine %d: %w", id, err)
	}
	return fine, nil
}

// Pay marks an unpaid fine as paid by the patron.
func (e *Engine) Pay(ctx context.Context, id uint) (*entities.Fine, error) {
	return e.transition(ctx, id, entities.FineStatusPaid, entities.FineStatusUnpaid)
}

// Collect marks an unpaid or paid fine as collected by the library.
func (e *Engine) Collect(ctx context.Context, id uint) (*entities.Fine, error) {
	return e.transition(ctx, id, entities.FineStatusCollected, entities.FineStatusUnpaid, entities.FineStatusPaid)
}

// Clear waives an outstanding fine.
func (e *Engine) Clear(ctx context.Context, id uint) (*entities.Fine, error) {
	return e.transition(ctx, id, entities.FineStatusCleared, entities.FineStatusUnpaid)
}

func (e *Engine) transition(ctx context.Context, id uint, to entities.FineStatus, from ...entities.FineStatus) (*entities.Fine, error) {
	fine, err := e.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	allowed := false
	for _, status := range from {
		if fine.Status == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, errs.Conflict("fine %d is %s and cannot be marked %s", id, fine.Status, to)
	}

	var paidAt *time.Time
	if to == entities.FineStatusPaid || to == entities.FineStatusCollected {
		now := e.now().UTC()
		if fine.PaidAt != nil {
			now = *fine.PaidAt
		}
		paidAt = &now
	}
	if err := e.store.UpdateFineStatus(id, to, paidAt); err != nil {
		return nil, fmt.Errorf("failed to update fine %d: %w", id, err)
	}

	fine.Status = to
	fine.PaidAt = paidAt
	return fine, nil
}

// ClearForBorrowing clears every unpaid fine of one type on a borrowing.
func (e *Engine) ClearForBorrowing(ctx context.Context, borrowingID uint, fineType entities.FineType) (int64, error) {
	cleared, err := e.store.ClearFines(borrowingID, fineType)
	if err != nil {
		return 0, fmt.Errorf("failed to clear %s fines of borrowing %d: %w", fineType, borrowingID, err)
	}
	return cleared, nil
}

// List returns a page of fines.
func (e *Engine) List(ctx context.Context, filter entities.FineFilter, limit, offset int) ([]entities.Fine, int64, error) {
	return e.store.ListFines(filter, limit, offset)
}

// SettingView is one row of the effective amount table.
type SettingView struct {
	FineType    entities.FineType `json:"fine_type"`
	Amount      decimal.Decimal   `json:"amount"`
	Formatted   string            `json:"formatted"`
	Description string            `json:"description,omitempty"`
	Source      string            `json:"source"` // "database" or "default"
}

// ListSettings returns the effective amount for every fine type.
func (e *Engine) ListSettings(ctx context.Context) ([]SettingView, error) {
	stored, err := e.store.GetAllFineSettings()
	if err != nil {
		return nil, fmt.Errorf("failed to load fine settings: %w", err)
	}
	byType := make(map[entities.FineType]entities.FineSetting, len(stored))
	for _, s := range stored {
		byType[s.FineType] = s
	}

	policy := NewPolicy(stored)
	views := make([]SettingView, 0, len(DefaultAmounts))
	for _, fineType := range entities.FineTypes {
		if !Configurable(fineType) {
			continue
		}
		view := SettingView{
			FineType:  fineType,
			Amount:    policy.Amount(fineType),
			Formatted: e.formatter.Format(policy.Amount(fineType)),
			Source:    "default",
		}
		if s, ok := byType[fineType]; ok {
			view.Source = "database"
			view.Description = s.Description
		}
		views = append(views, view)
	}
	return views, nil
}

// UpdateSetting stores the amount for a fine type.
func (e *Engine) UpdateSetting(ctx context.Context, fineType entities.FineType, amount decimal.Decimal, description string) (*entities.FineSetting, error) {
	if !fineType.Valid() {
		return nil, errs.Validation("fine_type", "unknown fine type %q", fineType)
	}
	if !Configurable(fineType) {
		return nil, errs.Validation("fine_type", "%s is charged at the %s rate", fineType, entities.FineTypeOverdue)
	}
	if amount.IsNegative() {
		return nil, errs.Validation("amount", "must not be negative")
	}

	setting := &entities.FineSetting{FineType: fineType, Amount: amount.Round(2), Description: description}
	if err := e.store.UpsertFineSetting(setting); err != nil {
		return nil, fmt.Errorf("failed to save fine setting %s: %w", fineType, err)
	}
	e.log.Info("fine setting updated",
		zap.String("fine_type", string(fineType)),
		zap.String("amount", setting.Amount.StringFixed(2)))
	return setting, nil
}

// Label is the human-readable name of a fine type.
func Label(fineType entities.FineType) string {
	switch fineType {
	case entities.FineTypeOverdue:
		return "Overdue"
	case entities.FineTypeLateReturn:
		return "Late return"
	case entities.FineTypeDamaged:
		return "Damaged book"
	case entities.FineTypePoorCondition:
		return "Poor condition"
	case entities.FineTypeFairCondition:
		return "Fair condition"
	case entities.FineTypeLostBook:
		return "Lost book"
	case entities.FineTypeStolenBook:
		return "Stolen book"
	case entities.FineTypeTheftVictim:
		return "Theft victim"
	}
	return string(fineType)
}
