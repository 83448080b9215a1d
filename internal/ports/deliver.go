package ports

import "context"

// UploadEnvelope is one wire-ready payload plus the identity it carries across
// retries. The idempotency key is fixed for the payload's lifetime; the
// request id is restamped per network attempt.
type UploadEnvelope struct {
	Body           []byte
	IdempotencyKey string
	Token          string
	RequestID      string
}

// DeliveryReport summarizes one completed delivery.
type DeliveryReport struct {
	Attempts int
	// ResponseBody holds the raw analysis service response. Nil when the
	// delivery mode has no analysis service (local staging).
	ResponseBody []byte
}

// Deliverer hands one payload to its destination. The HTTPS upload client and
// the local staging store both satisfy this contract.
type Deliverer interface {
	Deliver(ctx context.Context, env UploadEnvelope) (DeliveryReport, error)
	Name() string
}
