// Package notify delivers operational event notifications to an
// external webhook. Delivery is best effort: failures are logged
// and never surface to the request that triggered them.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"
)

const (
	// clientTimeout is the total request timeout.
	clientTimeout = 30 * time.Second
	// dialTimeout is the connection timeout.
	dialTimeout = 10 * time.Second
	// deliveryTimeout bounds a single async delivery attempt.
	deliveryTimeout = 15 * time.Second

	// senderName identifies this service in outgoing payloads.
	senderName = "assetgate"
)

// Event names emitted by the pipeline.
const (
	EventMirrorFailed  = "mirror_failed"
	EventStorageQuota  = "storage_quota"
	EventUserBanned    = "user_banned"
	EventSystemMessage = "system_message"
)

// Payload is the JSON body posted to the webhook.
type Payload struct {
	From    string `json:"from"`
	Event   string `json:"event"`
	Message string `json:"message"`
}

// Notifier posts events to a configured webhook URL.
// A nil Notifier or an empty URL disables delivery.
type Notifier struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

// New creates a Notifier. An empty webhookURL yields a disabled
// notifier whose methods are no-ops.
func New(webhookURL string, logger *slog.Logger) *Notifier {
	return &Notifier{
		url: webhookURL,
		client: &http.Client{
			Timeout: clientTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   dialTimeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 15 * time.Second,
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   10,
				IdleConnTimeout:       90 * time.Second,
			},
			// Don't follow redirects - security measure
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger: logger,
	}
}

// Notify delivers an event asynchronously. It returns immediately;
// the actual POST happens in a background goroutine with its own
// timeout, detached from the caller's context.
func (n *Notifier) Notify(event, message string) {
	if n == nil || n.url == "" {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		defer cancel()

		if err := n.deliver(ctx, event, message); err != nil {
			n.logger.Warn("notification delivery failed",
				"event", event,
				"error", err,
			)
		}
	}()
}

// NotifySync delivers an event and waits for the result. Used where
// the caller wants to know the webhook was reached, such as health
// probes and tests.
func (n *Notifier) NotifySync(ctx context.Context, event, message string) error {
	if n == nil || n.url == "" {
		return nil
	}
	return n.deliver(ctx, event, message)
}

func (n *Notifier) deliver(ctx context.Context, event, message string) error {
	body, err := json.Marshal(Payload{
		From:    senderName,
		Event:   event,
		Message: message,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Assetgate-Notify/1.0")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &DeliveryError{StatusCode: resp.StatusCode}
	}
	return nil
}

// DeliveryError reports a non-2xx webhook response.
type DeliveryError struct {
	StatusCode int
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("webhook returned status %d", e.StatusCode)
}
