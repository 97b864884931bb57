package fines

import (
	"context"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/mrlokans/lendingdesk/internal/entities"
	"github.com/mrlokans/lendingdesk/internal/errs"
)

// Schedule is the YAML form of a fine amount table:
//
//	currency: KES
//	fines:
//	  overdue: {amount: "10", description: "Per day past due"}
//	  lost_book: {amount: "750.50"}
type Schedule struct {
	Currency string                   `yaml:"currency"`
	Fines    map[string]ScheduleEntry `yaml:"fines"`
}

type ScheduleEntry struct {
	Amount      string `yaml:"amount"`
	Description string `yaml:"description"`
}

// ParseSchedule decodes and validates a schedule. Every entry must name a configurable
// fine type and carry a non-negative decimal amount. The declared currency is returned
// alongside the settings.
func ParseSchedule(r io.Reader) ([]entities.FineSetting, string, error) {
	var schedule Schedule
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&schedule); err != nil {
		return nil, "", fmt.Errorf("failed to decode fine schedule: %w", err)
	}
	if len(schedule.Fines) == 0 {
		return nil, "", errs.Validation("fines", "schedule has no entries")
	}

	settings := make([]entities.FineSetting, 0, len(schedule.Fines))
	for _, fineType := range entities.FineTypes {
		entry, ok := schedule.Fines[string(fineType)]
		if !ok {
			continue
		}
		if !Configurable(fineType) {
			return nil, "", errs.Validation(string(fineType), "charged at the %s rate, set that instead", entities.FineTypeOverdue)
		}
		amount, err := decimal.NewFromString(entry.Amount)
		if err != nil {
			return nil, "", errs.Validation(string(fineType), "invalid amount %q", entry.Amount)
		}
		if amount.IsNegative() {
			return nil, "", errs.Validation(string(fineType), "amount must not be negative")
		}
		settings = append(settings, entities.FineSetting{
			FineType:    fineType,
			Amount:      amount,
			Description: entry.Description,
		})
	}
	if len(settings) != len(schedule.Fines) {
		for name := range schedule.Fines {
			if !entities.FineType(name).Valid() {
				return nil, "", errs.Validation(name, "unknown fine type")
			}
		}
	}
	return settings, schedule.Currency, nil
}

// ImportSchedule parses a schedule and stores every entry. It returns the number of
// settings written.
func (e *Engine) ImportSchedule(ctx context.Context, r io.Reader) (int, error) {
	settings, currency, err := ParseSchedule(r)
	if err != nil {
		return 0, err
	}
	if currency != "" && e.formatter.currency != "" && currency != e.formatter.currency {
		return 0, errs.Validation("currency", "schedule is in %s but the library uses %s", currency, e.formatter.currency)
	}
	for _, s := range settings {
		if _, err := e.UpdateSetting(ctx, s.FineType, s.Amount, s.Description); err != nil {
			return 0, err
		}
	}
	return len(settings), nil
}
