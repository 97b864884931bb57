// Package notify delivers patron notices (found books, overdue reminders, theft reports)
// to the log and, when configured, to an HTTP webhook.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mrlokans/lendingdesk/internal/entities"
)

type Kind string

const (
	KindFoundLostBook Kind = "found_lost_book"
	KindOverdueNotice Kind = "overdue_notice"
	KindTheftReported Kind = "theft_reported"
)

type Notification struct {
	ID        string             `json:"id"`
	Kind      Kind               `json:"kind"`
	Recipient entities.PatronRef `json:"recipient"`
	Subject   string             `json:"subject"`
	Message   string             `json:"message"`
	Data      map[string]any     `json:"data,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
}

// New stamps a notification with an id and creation time.
func New(kind Kind, recipient entities.PatronRef, subject, message string, data map[string]any) Notification {
	return Notification{
		ID:        uuid.NewString(),
		Kind:      kind,
		Recipient: recipient,
		Subject:   subject,
		Message:   message,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications to the structured log.
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogNotifier{log: log}
}

func (l *LogNotifier) Notify(_ context.Context, n Notification) error {
	l.log.Info("notification",
		zap.String("id", n.ID),
		zap.String("kind", string(n.Kind)),
		zap.Stringer("recipient", n.Recipient),
		zap.String("subject", n.Subject),
		zap.String("message", n.Message))
	return nil
}

// Multi fans a notification out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, notifier := range m {
		if notifier == nil {
			continue
		}
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
