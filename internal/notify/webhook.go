package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/2beens/pushupjourney/internal/telemetry/tracing"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/multierr"
)

var _ Dispatcher = (*WebhookDispatcher)(nil)

// WebhookDispatcher POSTs notifications as JSON to a push bridge (ntfy, gotify, ...).
type WebhookDispatcher struct {
	url        string
	httpClient *http.Client
}

// NewTracedHttpClient returns an http client whose requests are traced.
func NewTracedHttpClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   timeout,
	}
}

func NewWebhookDispatcher(url string, httpClient *http.Client) (*WebhookDispatcher, error) {
	if url == "" {
		return nil, errors.New("webhook url not set")
	}
	if httpClient == nil {
		httpClient = NewTracedHttpClient(10 * time.Second)
	}
	return &WebhookDispatcher{
		url:        url,
		httpClient: httpClient,
	}, nil
}

func (d *WebhookDispatcher) Notify(ctx context.Context, n Notification) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "notify.webhook")
	span.SetAttributes(attribute.String("kind", string(n.Kind)))
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("new webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook responded with status %d", resp.StatusCode)
	}
	return nil
}

// MultiDispatcher fans a notification out to several dispatchers.
type MultiDispatcher []Dispatcher

func (m MultiDispatcher) Notify(ctx context.Context, n Notification) (err error) {
	for _, d := range m {
		err = multierr.Append(err, d.Notify(ctx, n))
	}
	return err
}

// NewDispatcher always logs notifications and also pushes them to the webhook when a URL is given.
func NewDispatcher(webhookURL string) (Dispatcher, error) {
	logDispatcher := NewLogDispatcher(nil)
	if webhookURL == "" {
		return logDispatcher, nil
	}
	webhookDispatcher, err := NewWebhookDispatcher(webhookURL, nil)
	if err != nil {
		return nil, err
	}
	return MultiDispatcher{logDispatcher, webhookDispatcher}, nil
}
