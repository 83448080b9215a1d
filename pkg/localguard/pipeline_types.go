package localguard

import (
	"github.com/aidamian/local-guard/internal/domain"
	"github.com/aidamian/local-guard/internal/ports"
)

// Frame is a single captured screen image. It mirrors internal/domain.Frame
// but is exported so custom capture backends can reference it.
type Frame = domain.Frame

// BatchMetadata describes the capture window of one completed batch.
type BatchMetadata = domain.BatchMetadata

// DisplayInfo describes one display available for capture.
type DisplayInfo = ports.DisplayInfo

// CaptureBackend acquires pixels from any display source (OS capture layers,
// synthetic generators, test doubles).
type CaptureBackend = ports.CaptureBackend

// Deliverer hands wire-ready payloads to their destination.
type Deliverer = ports.Deliverer

// UploadEnvelope is one wire-ready payload plus its retry identity.
type UploadEnvelope = ports.UploadEnvelope

// DeliveryReport summarizes one completed delivery.
type DeliveryReport = ports.DeliveryReport

// PayloadQueue buffers composed payloads between capture and delivery.
type PayloadQueue = ports.PayloadQueue

// PayloadJob is one enqueued payload awaiting delivery.
type PayloadJob = ports.PayloadJob

// Journal persists upload receipts for operator audit.
type Journal = ports.Journal

// UploadReceipt records the outcome of one delivered or abandoned payload.
type UploadReceipt = ports.UploadReceipt

// Observability emits metrics and redacted logs about the pipeline.
type Observability = ports.Observability

// Field is a structured log field used by Observability implementations.
type Field = ports.Field
