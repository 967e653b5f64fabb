package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// WebhookNotifier POSTs each message as JSON to a fixed URL.
type WebhookNotifier struct {
	client *resty.Client
	url    string
}

// NewWebhookNotifier creates a webhook sink.
// Parameters:
//   - url: endpoint receiving the JSON message.
//   - timeout: per-request timeout; zero means 10 seconds.
//
// Returns:
//   - *WebhookNotifier: initialized notifier.
func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New()
	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(timeout)

	return &WebhookNotifier{client: client, url: url}
}

func (w *WebhookNotifier) Publish(ctx context.Context, msg Message) error {
	resp, err := w.client.R().
		SetContext(ctx).
		SetBody(msg).
		Post(w.url)
	if err != nil {
		return fmt.Errorf("failed to call webhook: %w", err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return fmt.Errorf("webhook returned HTTP %d: %s", resp.StatusCode(), string(resp.Body()))
	}
	return nil
}
