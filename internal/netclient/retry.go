package netclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var ErrNoEndpoint = errors.New("forward endpoint empty")

const idempotencyHeader = "Idempotency-Key"

// Delivery is one stroke on its way to the forward endpoint.
type Delivery struct {
	Endpoint string
	Token    string
	// StrokeID goes out as the Idempotency-Key header on every attempt, so
	// the endpoint can drop a stroke it already received.
	StrokeID string
	Payload  map[string]interface{}
}

// RetryOptions controls Forward. Attempts back off exponentially from
// BaseDelay; 4xx replies other than 408 and 429 are final.
type RetryOptions struct {
	MaxRetry  int
	BaseDelay time.Duration
	Debug     bool
	Sleep     func(context.Context, time.Duration) error
	UserAgent string
}

func (o RetryOptions) withDefaults() RetryOptions {
	if o.MaxRetry <= 0 {
		o.MaxRetry = 1
	}
	if o.BaseDelay < 0 {
		o.BaseDelay = 0
	}
	if o.Sleep == nil {
		o.Sleep = sleepWithContext
	}
	if o.UserAgent == "" {
		o.UserAgent = "stenokb/1.0"
	}
	return o
}

// Forward posts the delivery and returns the endpoint's reply body.
func Forward(ctx context.Context, doer Doer, d Delivery, opts RetryOptions) ([]byte, error) {
	if d.Endpoint == "" {
		return nil, ErrNoEndpoint
	}
	opts = opts.withDefaults()
	data, err := json.Marshal(d.Payload)
	if err != nil {
		return nil, fmt.Errorf("encode stroke %s: %w", d.StrokeID, err)
	}

	var lastErr error
	for attempt := 1; ; attempt++ {
		req, err := d.newRequest(ctx, data, opts.UserAgent)
		if err != nil {
			return nil, err
		}
		body, retry, err := deliverOnce(ctx, doer, req)
		if err == nil {
			return body, nil
		}
		if !retry {
			return nil, err
		}
		lastErr = err
		if opts.Debug {
			fmt.Printf("[forward] stroke %s attempt %d/%d: %v\n", d.StrokeID, attempt, opts.MaxRetry, err)
		}
		if attempt >= opts.MaxRetry {
			return nil, lastErr
		}
		if err := opts.Sleep(ctx, backoff(opts.BaseDelay, attempt)); err != nil {
			return nil, err
		}
	}
}

func (d Delivery) newRequest(ctx context.Context, data []byte, userAgent string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.Endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if d.StrokeID != "" {
		req.Header.Set(idempotencyHeader, d.StrokeID)
	}
	if d.Token != "" {
		req.Header.Set("Authorization", "Bearer "+d.Token)
	}
	return req, nil
}

// deliverOnce makes one attempt. retry reports whether a failure is worth
// another attempt.
func deliverOnce(ctx context.Context, doer Doer, req *http.Request) (body []byte, retry bool, err error) {
	resp, err := doer.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, true, err
	}
	defer resp.Body.Close()
	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("read reply: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, retryableStatus(resp.StatusCode), fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}
	return body, false, nil
}

// backoff is the pause after the given failed attempt: base, 2*base, 4*base...
func backoff(base time.Duration, attempt int) time.Duration {
	if attempt > 16 {
		attempt = 16
	}
	return base << (attempt - 1)
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func retryableStatus(code int) bool {
	if code == http.StatusRequestTimeout || code == http.StatusTooManyRequests {
		return true
	}
	return code < 400 || code >= 500
}
