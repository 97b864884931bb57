package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mrlokans/lendingdesk/internal/config"
)

// WebhookNotifier posts each notification as JSON to a configured URL.
type WebhookNotifier struct {
	httpClient *resty.Client
	url        string
}

type webhookError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// NewWebhookNotifier returns nil when no webhook URL is configured.
func NewWebhookNotifier(cfg config.Notifications) *WebhookNotifier {
	if cfg.WebhookURL == "" {
		return nil
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	restyClient := resty.New().
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "lendingdesk").
		SetTimeout(timeout)
	if cfg.WebhookToken != "" {
		restyClient.SetAuthToken(cfg.WebhookToken)
	}

	return &WebhookNotifier{httpClient: restyClient, url: cfg.WebhookURL}
}

func (w *WebhookNotifier) Notify(ctx context.Context, n Notification) error {
	apiErr := new(webhookError)
	resp, err := w.httpClient.R().
		SetContext(ctx).
		SetHeader("X-Notification-ID", n.ID).
		SetBody(n).
		SetError(apiErr).
		Post(w.url)
	if err != nil {
		return fmt.Errorf("send notification %s: %w", n.ID, err)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		message := apiErr.Message
		if message == "" {
			message = apiErr.Error
		}
		return fmt.Errorf("webhook error: status=%d, message=%s", resp.StatusCode(), message)
	}
	return nil
}
