package upload

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aidamian/local-guard/internal/ports"
)

// scriptedTransport replays a fixed failure sequence and records the
// envelopes of every attempt.
type scriptedTransport struct {
	script    []error
	envelopes []ports.UploadEnvelope
	response  []byte
}

func (t *scriptedTransport) Send(_ context.Context, _ string, env ports.UploadEnvelope) ([]byte, error) {
	t.envelopes = append(t.envelopes, env)
	idx := len(t.envelopes) - 1
	if idx < len(t.script) && t.script[idx] != nil {
		return nil, t.script[idx]
	}
	return t.response, nil
}

func noSleep(_ context.Context, _ time.Duration) error { return nil }

func zeroJitter(_ time.Duration) time.Duration { return 0 }

func newTestClient(t *testing.T, policy RetryPolicy, transport Transport) *Client {
	t.Helper()
	client, err := NewClient("https://ingest.example.test/v1/mosaics", policy, transport,
		WithSleeper(noSleep), WithJitter(zeroJitter))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestNewClientRejectsInsecureEndpoint(t *testing.T) {
	transport := &scriptedTransport{}
	_, err := NewClient("http://ingest.example.test/v1/mosaics", RetryPolicy{}, transport)
	if !errors.Is(err, ErrInsecureEndpoint) {
		t.Fatalf("expected ErrInsecureEndpoint, got %v", err)
	}
	if len(transport.envelopes) != 0 {
		t.Fatalf("no network call may happen for an insecure endpoint")
	}
}

func TestDeliverRetriesTransientThenSucceeds(t *testing.T) {
	transport := &scriptedTransport{
		script:   []error{&StatusError{Code: 503}, &StatusError{Code: 503}, nil},
		response: []byte(`{"schema_version":"v1"}`),
	}
	client := newTestClient(t, RetryPolicy{MaxAttempts: 3}, transport)

	env := ports.UploadEnvelope{Body: []byte("payload"), IdempotencyKey: "key-1", Token: "tok"}
	report, err := client.Deliver(context.Background(), env)
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if report.Attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", report.Attempts)
	}
	if len(transport.envelopes) != 3 {
		t.Fatalf("expected 3 network calls, got %d", len(transport.envelopes))
	}
	for i, sent := range transport.envelopes {
		if sent.IdempotencyKey != "key-1" {
			t.Fatalf("attempt %d carried wrong idempotency key %q", i, sent.IdempotencyKey)
		}
	}
	if transport.envelopes[0].RequestID == transport.envelopes[1].RequestID {
		t.Fatalf("request ids must be restamped per attempt")
	}
	if string(report.ResponseBody) != `{"schema_version":"v1"}` {
		t.Fatalf("unexpected response body %q", report.ResponseBody)
	}
}

func TestDeliverPermanentFailureIsNotRetried(t *testing.T) {
	transport := &scriptedTransport{script: []error{&StatusError{Code: 400}}}
	client := newTestClient(t, RetryPolicy{MaxAttempts: 5}, transport)

	_, err := client.Deliver(context.Background(), ports.UploadEnvelope{IdempotencyKey: "key-1"})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != 400 {
		t.Fatalf("expected status 400 error, got %v", err)
	}
	if len(transport.envelopes) != 1 {
		t.Fatalf("permanent failure must cause exactly one attempt, got %d", len(transport.envelopes))
	}
}

func TestDeliverAuthRejectionIsPermanent(t *testing.T) {
	transport := &scriptedTransport{script: []error{ErrAuthRejected}}
	client := newTestClient(t, RetryPolicy{MaxAttempts: 3}, transport)

	_, err := client.Deliver(context.Background(), ports.UploadEnvelope{IdempotencyKey: "key-1"})
	if !errors.Is(err, ErrAuthRejected) {
		t.Fatalf("expected ErrAuthRejected, got %v", err)
	}
	if len(transport.envelopes) != 1 {
		t.Fatalf("auth rejection must not be retried, got %d attempts", len(transport.envelopes))
	}
}

func TestDeliverExhaustsRetries(t *testing.T) {
	transport := &scriptedTransport{
		script: []error{&StatusError{Code: 502}, &StatusError{Code: 502}, &StatusError{Code: 502}},
	}
	client := newTestClient(t, RetryPolicy{MaxAttempts: 3}, transport)

	_, err := client.Deliver(context.Background(), ports.UploadEnvelope{IdempotencyKey: "key-1"})
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected ExhaustedError, got %v", err)
	}
	if exhausted.Attempts != 3 {
		t.Fatalf("expected 3 attempts recorded, got %d", exhausted.Attempts)
	}
	var statusErr *StatusError
	if !errors.As(exhausted.Last, &statusErr) || statusErr.Code != 502 {
		t.Fatalf("expected last failure 502, got %v", exhausted.Last)
	}
}

func TestDeliverHonorsContextDuringBackoff(t *testing.T) {
	transport := &scriptedTransport{
		script: []error{&StatusError{Code: 503}, &StatusError{Code: 503}},
	}
	client, err := NewClient("https://ingest.example.test/v1/mosaics",
		RetryPolicy{MaxAttempts: 3, BaseDelay: time.Hour}, transport, WithJitter(zeroJitter))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = client.Deliver(ctx, ports.UploadEnvelope{IdempotencyKey: "key-1"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
	if len(transport.envelopes) != 1 {
		t.Fatalf("expected backoff abort after first attempt, got %d", len(transport.envelopes))
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want FailureClass
	}{
		{"503", &StatusError{Code: 503}, ClassTransient},
		{"500", &StatusError{Code: 500}, ClassTransient},
		{"429 throttling", &StatusError{Code: 429}, ClassTransient},
		{"400", &StatusError{Code: 400}, ClassPermanent},
		{"422 schema", &StatusError{Code: 422}, ClassPermanent},
		{"auth rejection", ErrAuthRejected, ClassPermanent},
		{"deadline", context.DeadlineExceeded, ClassTransient},
		{"generic net fault", errors.New("connection reset by peer"), ClassTransient},
	}

	for _, tc := range cases {
		if got := Classify(tc.err); got != tc.want {
			t.Fatalf("%s: Classify = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestRetryPolicyDelaySequence(t *testing.T) {
	policy := RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    time.Second,
		Multiplier:  2,
	}

	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
		time.Second, // capped
	}
	for attempt, expected := range want {
		if got := policy.Delay(attempt, 0); got != expected {
			t.Fatalf("delay(%d) = %v, want %v", attempt, got, expected)
		}
	}

	// Jitter shifts the delay but the ceiling still holds.
	if got := policy.Delay(4, 500*time.Millisecond); got != time.Second {
		t.Fatalf("jittered delay should cap at MaxDelay, got %v", got)
	}
	if got := policy.Delay(0, -50*time.Millisecond); got != 50*time.Millisecond {
		t.Fatalf("negative jitter should subtract, got %v", got)
	}
}
