package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/aidamian/local-guard/internal/analysis"
	"github.com/aidamian/local-guard/internal/app/status"
	"github.com/aidamian/local-guard/internal/ports"
	"github.com/aidamian/local-guard/internal/upload"
)

// Delivery outcomes recorded in receipts and status.
const (
	OutcomeDelivered = "delivered"
	OutcomeRejected  = "rejected"
	OutcomeExhausted = "exhausted"
)

// DeliveryDeps wires the delivery loop's collaborators.
type DeliveryDeps struct {
	Queue     ports.PayloadQueue
	Deliverer ports.Deliverer
	Gate      *Gate
	Journal   ports.Journal
	Obs       ports.Observability
	Status    *status.Tracker
	IdleSleep time.Duration
	Now       func() time.Time
}

// RunDeliveryLoop drains the payload queue in order. Each job runs its full
// retry chain inside the deliverer; auth rejections flip the state machine to
// reauth-required, and every terminal outcome lands in the journal.
func RunDeliveryLoop(ctx context.Context, deps DeliveryDeps) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.IdleSleep <= 0 {
		deps.IdleSleep = 50 * time.Millisecond
	}

	for {
		if ctx.Err() != nil {
			return
		}

		job, ok := deps.Queue.Dequeue()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-time.After(deps.IdleSleep):
			}
			continue
		}
		deps.Obs.SetGauge("localguard_queue_length", float64(deps.Queue.Len()))
		deps.Status.SetQueuedPayloads(deps.Queue.Len())

		deps.deliverOne(ctx, job)
	}
}

func (deps *DeliveryDeps) deliverOne(ctx context.Context, job ports.PayloadJob) {
	report, err := deps.Deliverer.Deliver(ctx, job.Envelope)
	completed := deps.Now()

	outcome := OutcomeDelivered
	topCategory := ""
	switch {
	case err == nil:
		deps.Obs.IncCounter("localguard_uploads_succeeded_total", 1)
		deps.Obs.ObserveLatency("localguard_upload_latency_seconds", completed.Sub(job.BatchEnd).Seconds())
		topCategory = deps.projectAnalysis(report.ResponseBody)
	case errors.Is(err, context.Canceled):
		// Shutdown mid-delivery: the payload is lost with the queue, which is
		// the documented persistence contract.
		return
	case errors.Is(err, upload.ErrAuthRejected):
		outcome = OutcomeRejected
		deps.Gate.Machine().OnAuthRejected()
		deps.Status.SetAuthState(deps.Gate.Machine().State())
		deps.Obs.IncCounter("localguard_uploads_failed_total", 1)
		deps.Obs.LogError("upload_auth_rejected", err)
	default:
		outcome = OutcomeRejected
		var exhausted *upload.ExhaustedError
		if errors.As(err, &exhausted) {
			outcome = OutcomeExhausted
		}
		deps.Obs.IncCounter("localguard_uploads_failed_total", 1)
		deps.Obs.LogError("upload_failed", err, ports.Field{Key: "attempts", Value: report.Attempts})
	}

	deps.Status.RecordUpload(completed, outcome)
	deps.recordReceipt(job, report.Attempts, outcome, topCategory, completed)
}

// projectAnalysis parses the service reply and updates the status projection.
// A malformed reply is logged but never fails the delivery: the upload was
// accepted.
func (deps *DeliveryDeps) projectAnalysis(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	resp, err := analysis.Parse(body)
	if err != nil {
		deps.Obs.LogError("analysis_response_invalid", err)
		return ""
	}

	signals := analysis.MapRiskSignals(resp)
	deps.Status.RecordAnalysis(signals)
	return deps.Status.Snapshot().LastTopCategory
}

func (deps *DeliveryDeps) recordReceipt(job ports.PayloadJob, attempts int, outcome, topCategory string, completed time.Time) {
	if deps.Journal == nil {
		return
	}
	receipt := ports.UploadReceipt{
		ID:             uuid.NewString(),
		IdempotencyKey: job.Envelope.IdempotencyKey,
		Attempts:       attempts,
		Outcome:        outcome,
		TopCategory:    topCategory,
		CompletedAt:    completed,
	}
	if err := deps.Journal.Record(receipt); err != nil {
		deps.Obs.LogError("journal_record_failed", err)
	}
}
