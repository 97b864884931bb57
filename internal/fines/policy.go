// Package fines derives penalty amounts from overdue duration and returned condition
// and records them as Fine rows.
//
// Amounts resolve per fine type from FineSetting rows and fall back to DefaultAmounts.
// For the overdue type the amount is a per-day rate. A late_return fine has no amount
// of its own: it is the label for a lateness-only fine priced at that daily rate.
package fines

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mrlokans/lendingdesk/internal/entities"
)

// DefaultAmounts are used for fine types without a FineSetting row.
var DefaultAmounts = map[entities.FineType]decimal.Decimal{
	entities.FineTypeOverdue:       decimal.NewFromInt(10),
	entities.FineTypeFairCondition: decimal.NewFromInt(50),
	entities.FineTypePoorCondition: decimal.NewFromInt(100),
	entities.FineTypeDamaged:       decimal.NewFromInt(200),
	entities.FineTypeLostBook:      decimal.NewFromInt(500),
	entities.FineTypeStolenBook:    decimal.NewFromInt(500),
	entities.FineTypeTheftVictim:   decimal.Zero,
}

// Configurable reports whether a fine type carries an amount of its own.
func Configurable(fineType entities.FineType) bool {
	_, ok := DefaultAmounts[fineType]
	return ok
}

// Policy is a resolved amount table.
type Policy struct {
	amounts map[entities.FineType]decimal.Decimal
}

// NewPolicy overlays settings on the defaults. Negative amounts are treated as zero.
func NewPolicy(settings []entities.FineSetting) Policy {
	amounts := make(map[entities.FineType]decimal.Decimal, len(DefaultAmounts))
	for fineType, amount := range DefaultAmounts {
		amounts[fineType] = amount
	}
	for _, s := range settings {
		if Configurable(s.FineType) {
			amounts[s.FineType] = decimal.Max(s.Amount, decimal.Zero)
		}
	}
	return Policy{amounts: amounts}
}

// Amount returns the configured amount for a fine type.
func (p Policy) Amount(fineType entities.FineType) decimal.Decimal {
	if amount, ok := p.amounts[fineType]; ok {
		return amount
	}
	return decimal.Zero
}

// DailyRate is the per-day overdue rate.
func (p Policy) DailyRate() decimal.Decimal {
	return p.Amount(entities.FineTypeOverdue)
}

// ConditionPenalty is the flat penalty for a returned condition. The tiers
// fair <= poor <= damaged <= lost are kept non-decreasing by raising a lower
// configured tier to the one before it.
func (p Policy) ConditionPenalty(condition entities.Condition) decimal.Decimal {
	fair := p.Amount(entities.FineTypeFairCondition)
	poor := decimal.Max(p.Amount(entities.FineTypePoorCondition), fair)
	damaged := decimal.Max(p.Amount(entities.FineTypeDamaged), poor)
	lost := decimal.Max(p.Amount(entities.FineTypeLostBook), damaged)

	switch condition {
	case entities.ConditionFair:
		return fair
	case entities.ConditionPoor:
		return poor
	case entities.ConditionDamaged:
		return damaged
	case entities.ConditionLost:
		return lost
	default:
		return decimal.Zero
	}
}

// Classify picks the fine type for a return: condition tiers take precedence over lateness.
func Classify(condition entities.Condition, isLost bool, due, today time.Time) entities.FineType {
	switch {
	case isLost || condition == entities.ConditionLost:
		return entities.FineTypeLostBook
	case condition == entities.ConditionDamaged:
		return entities.FineTypeDamaged
	case condition == entities.ConditionPoor:
		return entities.FineTypePoorCondition
	case condition == entities.ConditionFair:
		return entities.FineTypeFairCondition
	case DaysOverdue(due, today) > 0:
		return entities.FineTypeLateReturn
	default:
		return entities.FineTypeOverdue
	}
}

// StartOfDay truncates t to midnight UTC.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysOverdue counts whole calendar days between the due date and today, never negative.
func DaysOverdue(due, today time.Time) int {
	days := int(StartOfDay(today).Sub(StartOfDay(due)).Hours() / 24)
	return max(days, 0)
}

// Assessment describes a return to be priced.
type Assessment struct {
	Condition entities.Condition
	IsLost    bool
	DueDate   time.Time
	Today     time.Time
}

// Calculation is the priced outcome of an Assessment.
type Calculation struct {
	Amount        decimal.Decimal   `json:"amount"`
	FineType      entities.FineType `json:"fine_type"`
	DaysOverdue   int               `json:"days_overdue"`
	OverduePart   decimal.Decimal   `json:"overdue_part"`
	ConditionPart decimal.Decimal   `json:"condition_part"`
}

// Calculate prices a return. A lost book is charged the lost_book amount only;
// otherwise the fine is days_overdue x daily rate plus the condition penalty.
func (p Policy) Calculate(a Assessment) Calculation {
	calc := Calculation{
		FineType:    Classify(a.Condition, a.IsLost, a.DueDate, a.Today),
		DaysOverdue: DaysOverdue(a.DueDate, a.Today),
		OverduePart: decimal.Zero,
	}

	if a.IsLost {
		calc.ConditionPart = p.Amount(entities.FineTypeLostBook)
		calc.Amount = calc.ConditionPart
		return calc
	}

	calc.OverduePart = p.DailyRate().Mul(decimal.NewFromInt(int64(calc.DaysOverdue)))
	calc.ConditionPart = p.ConditionPenalty(a.Condition)
	calc.Amount = calc.OverduePart.Add(calc.ConditionPart)
	return calc
}
