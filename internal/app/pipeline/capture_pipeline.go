package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/aidamian/local-guard/internal/app/status"
	"github.com/aidamian/local-guard/internal/domain"
	"github.com/aidamian/local-guard/internal/mosaic"
	"github.com/aidamian/local-guard/internal/payload"
	"github.com/aidamian/local-guard/internal/ports"
)

var errQueueFull = errors.New("payload queue is full")

// RunCaptureLoop drives the capture cadence. Each tick is forwarded to the
// worker only when the gate is open; closed-gate ticks are counted and
// skipped without error. A slow worker sheds ticks instead of queueing them
// so cadence never drifts.
func RunCaptureLoop(ctx context.Context, interval time.Duration, gate *Gate, ticks chan<- time.Time, obs ports.Observability) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if !gate.Open() {
				obs.IncCounter("localguard_ticks_skipped_total", 1)
				continue
			}
			select {
			case ticks <- now:
			default:
				obs.IncCounter("localguard_ticks_skipped_total", 1)
			}
		}
	}
}

// WorkerDeps wires the capture worker's collaborators.
type WorkerDeps struct {
	Backend ports.CaptureBackend
	Gate    *Gate
	Batch   *domain.FrameBatch
	Queue   ports.PayloadQueue
	Obs     ports.Observability
	Status  *status.Tracker
	// Display returns the currently selected display id.
	Display func() string
}

// RunCaptureWorker consumes ticks, captures frames, and turns each completed
// batch into an enqueued upload job. A buffered partial batch is discarded on
// shutdown so a short batch never reaches delivery.
func RunCaptureWorker(ctx context.Context, ticks <-chan time.Time, deps WorkerDeps) {
	var seq uint64

	for {
		select {
		case <-ctx.Done():
			if dropped := deps.Batch.Reset(); dropped > 0 {
				deps.Obs.IncCounter("localguard_frames_discarded_total", float64(dropped))
			}
			return
		case <-ticks:
			deps.captureOnce(&seq)
		}
	}
}

func (deps *WorkerDeps) captureOnce(seq *uint64) {
	// The gate may have closed between the driver forwarding the tick and the
	// worker picking it up; a buffered tick must never produce a capture.
	if !deps.Gate.Open() {
		deps.Obs.IncCounter("localguard_ticks_skipped_total", 1)
		return
	}

	displayID := deps.Display()
	frame, err := deps.Backend.CaptureFrame(displayID)
	if err != nil {
		// Transient backend failures leave cadence untouched.
		deps.Obs.LogError("capture_failed", err, ports.Field{Key: "display", Value: displayID})
		return
	}
	deps.Obs.IncCounter("localguard_frames_captured_total", 1)

	emitted, discarded := deps.Batch.Push(frame)
	if discarded > 0 {
		deps.Obs.IncCounter("localguard_frames_discarded_total", float64(discarded))
	}
	deps.Status.SetBufferedFrames(deps.Batch.Len())
	if emitted == nil {
		return
	}

	deps.composeAndEnqueue(emitted, seq)
}

func (deps *WorkerDeps) composeAndEnqueue(frames []domain.Frame, seq *uint64) {
	// Re-authorize at batch completion: the token rides on the envelope, and
	// a session that expired mid-batch must not produce an upload.
	session, err := deps.Gate.Machine().Authorize()
	if err != nil {
		deps.Obs.LogError("batch_dropped_unauthorized", err)
		deps.Obs.IncCounter("localguard_frames_discarded_total", float64(len(frames)))
		return
	}

	img, err := mosaic.Compose(frames, 0, 0)
	if err != nil {
		deps.Obs.LogError("mosaic_compose_failed", err)
		return
	}

	p, err := payload.Build(frames, img, session.SessionID)
	if err != nil {
		deps.Obs.LogError("payload_build_failed", err)
		return
	}
	body, err := p.Encode()
	if err != nil {
		deps.Obs.LogError("payload_encode_failed", err)
		return
	}

	*seq++
	job := ports.PayloadJob{
		Seq: *seq,
		Envelope: ports.UploadEnvelope{
			Body:           body,
			IdempotencyKey: payload.IdempotencyKey(body),
			Token:          session.AccessToken,
		},
		BatchEnd: time.UnixMilli(p.Metadata.EndTimestampMS),
	}
	if !deps.Queue.Enqueue(job) {
		deps.Obs.LogError("payload_queue_full", errQueueFull)
		deps.Obs.IncCounter("localguard_uploads_failed_total", 1)
		return
	}

	deps.Obs.IncCounter("localguard_batches_composed_total", 1)
	deps.Obs.SetGauge("localguard_queue_length", float64(deps.Queue.Len()))
	deps.Status.RecordBatch(job.BatchEnd)
	deps.Status.SetQueuedPayloads(deps.Queue.Len())
}
