package upload

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"time"
)

// RetryPolicy bounds how transient upload failures are retried.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
	Jitter      time.Duration
}

// ApplyDefaults fills unset fields with production values.
func (p *RetryPolicy) ApplyDefaults() {
	if p.MaxAttempts == 0 {
		p.MaxAttempts = 3
	}
	if p.BaseDelay == 0 {
		p.BaseDelay = 500 * time.Millisecond
	}
	if p.MaxDelay == 0 {
		p.MaxDelay = 10 * time.Second
	}
	if p.Multiplier == 0 {
		p.Multiplier = 2
	}
}

// Delay computes the backoff before the given retry (attempt is zero-based:
// the delay after the first failed attempt is Delay(0, ...)). jitter is a
// caller-supplied offset in [-Jitter, +Jitter].
func (p RetryPolicy) Delay(attempt int, jitter time.Duration) time.Duration {
	delay := time.Duration(float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt)))
	delay += jitter
	if delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	if delay < 0 {
		delay = 0
	}
	return delay
}

// FailureClass splits upload failures into retriable and terminal.
type FailureClass int

const (
	// ClassTransient failures are retried per policy: timeouts, connection
	// resets, 5xx and throttling responses.
	ClassTransient FailureClass = iota
	// ClassPermanent failures are surfaced immediately: 4xx (except 429),
	// schema rejections, auth rejections.
	ClassPermanent
)

// StatusError is an HTTP response outside the success range.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upload: server returned status %d", e.Code)
}

// ErrAuthRejected marks 401/403 responses so the pipeline can move the auth
// state machine to ReauthRequired. Never retried.
var ErrAuthRejected = errors.New("upload: authentication rejected")

// Classify buckets an upload failure. Network-level faults and server-side
// errors are transient; client-side rejections are permanent.
func Classify(err error) FailureClass {
	if errors.Is(err, ErrAuthRejected) {
		return ClassPermanent
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTransient
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.Code == http.StatusTooManyRequests:
			return ClassTransient
		case statusErr.Code >= 500:
			return ClassTransient
		default:
			return ClassPermanent
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ClassTransient
	}

	// Unrecognized transport faults (connection reset, EOF mid-body) lean
	// transient so a flaky network does not drop batches prematurely.
	return ClassTransient
}

// ExhaustedError is the terminal failure after the retry ceiling, carrying
// the last classified failure.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("upload: exhausted %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }
