package ports

import "time"

// UploadReceipt records the outcome of one delivered (or abandoned) payload.
// Receipts carry only digests and verdicts, never frame or credential data.
type UploadReceipt struct {
	ID             string
	IdempotencyKey string
	Attempts       int
	Outcome        string
	TopCategory    string
	CompletedAt    time.Time
}

// Journal persists upload receipts for operator audit.
type Journal interface {
	Record(receipt UploadReceipt) error
}
