// Package upload delivers payloads to the protected ingest endpoint with
// bounded retries. Transport security is enforced at construction; the same
// idempotency key rides on every retry of one payload so the server can
// deduplicate.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/aidamian/local-guard/internal/ports"
)

// ErrInsecureEndpoint indicates a non-HTTPS ingest endpoint. This is a
// configuration error raised at construction, before any network call.
var ErrInsecureEndpoint = errors.New("upload: ingest endpoint must use https")

// Transport executes one network attempt and returns the raw response body.
type Transport interface {
	Send(ctx context.Context, endpoint string, env ports.UploadEnvelope) ([]byte, error)
}

// Client is the retry-safe upload client. It satisfies ports.Deliverer.
type Client struct {
	endpoint  string
	policy    RetryPolicy
	transport Transport

	// sleep and jitter are injectable so retry behavior is testable without
	// real time delays.
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func(bound time.Duration) time.Duration
}

// Option customizes client internals, mainly for tests.
type Option func(*Client)

// WithSleeper replaces the delay function used between retries.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.sleep = sleep }
}

// WithJitter replaces the jitter source. The function receives the configured
// jitter bound and returns an offset in [-bound, +bound].
func WithJitter(jitter func(bound time.Duration) time.Duration) Option {
	return func(c *Client) { c.jitter = jitter }
}

// NewClient validates the endpoint scheme and builds a client. Rejecting
// insecure endpoints here guarantees no payload is ever sent in cleartext.
func NewClient(endpoint string, policy RetryPolicy, transport Transport, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("upload: invalid endpoint: %w", err)
	}
	if parsed.Scheme != "https" {
		return nil, fmt.Errorf("%w: got scheme %q", ErrInsecureEndpoint, parsed.Scheme)
	}
	if transport == nil {
		return nil, fmt.Errorf("upload: transport is required")
	}
	policy.ApplyDefaults()

	c := &Client{
		endpoint:  endpoint,
		policy:    policy,
		transport: transport,
		sleep:     sleepContext,
		jitter:    randomJitter,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// Name identifies the deliverer in logs and status output.
func (c *Client) Name() string { return "https" }

// Deliver sends one payload, retrying transient failures per policy. The
// envelope's idempotency key is reused verbatim on every attempt; the request
// id is restamped so individual attempts stay traceable. Permanent failures
// return immediately; exhausting the retry ceiling returns *ExhaustedError
// wrapping the last classified failure.
func (c *Client) Deliver(ctx context.Context, env ports.UploadEnvelope) (ports.DeliveryReport, error) {
	var lastErr error

	for attempt := 0; attempt < c.policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := c.policy.Delay(attempt-1, c.jitter(c.policy.Jitter))
			if err := c.sleep(ctx, delay); err != nil {
				return ports.DeliveryReport{Attempts: attempt}, err
			}
		}

		env.RequestID = uuid.NewString()
		body, err := c.transport.Send(ctx, c.endpoint, env)
		if err == nil {
			return ports.DeliveryReport{Attempts: attempt + 1, ResponseBody: body}, nil
		}

		if Classify(err) == ClassPermanent {
			return ports.DeliveryReport{Attempts: attempt + 1}, err
		}
		lastErr = err
	}

	return ports.DeliveryReport{Attempts: c.policy.MaxAttempts},
		&ExhaustedError{Attempts: c.policy.MaxAttempts, Last: lastErr}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func randomJitter(bound time.Duration) time.Duration {
	if bound <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(2*bound))) - bound
}

// HTTPTransport is the production ingest transport.
type HTTPTransport struct {
	Client *http.Client
}

// NewHTTPTransport builds an HTTP transport with the given per-attempt timeout.
func NewHTTPTransport(timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{Client: &http.Client{Timeout: timeout}}
}

// Send posts the payload with idempotency and tracing headers. Auth
// rejections surface as ErrAuthRejected so the caller can trigger reauth.
func (t *HTTPTransport) Send(ctx context.Context, endpoint string, env ports.UploadEnvelope) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(env.Body))
	if err != nil {
		return nil, fmt.Errorf("upload: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+env.Token)
	req.Header.Set("Idempotency-Key", env.IdempotencyKey)
	req.Header.Set("X-Request-ID", env.RequestID)

	resp, err := t.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: status %d", ErrAuthRejected, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	return body, nil
}

var _ ports.Deliverer = (*Client)(nil)
