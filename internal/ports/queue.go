package ports

import "time"

// PayloadJob is one composed, encoded payload waiting for delivery.
type PayloadJob struct {
	Seq      uint64
	Envelope UploadEnvelope
	BatchEnd time.Time
}

// PayloadQueue is the bounded in-memory buffer between the capture worker and
// the delivery loop. FIFO ordering preserves batch completion order; contents
// are lost on process exit by design.
type PayloadQueue interface {
	Enqueue(job PayloadJob) bool
	Dequeue() (PayloadJob, bool)
	Len() int
}
