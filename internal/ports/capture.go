package ports

import (
	"errors"

	"github.com/aidamian/local-guard/internal/domain"
)

var (
	// ErrDisplayNotFound indicates the requested display id is unknown to the backend.
	ErrDisplayNotFound = errors.New("capture: display not found")
	// ErrCaptureIO indicates a transient backend failure; the scheduler keeps ticking.
	ErrCaptureIO = errors.New("capture: transient io failure")
)

// DisplayInfo describes one display available for capture.
type DisplayInfo struct {
	ID     string
	Name   string
	Width  int
	Height int
}

// CaptureBackend is the capability contract for pixel acquisition. The
// pipeline depends only on this interface; synthetic and OS-backed
// implementations are interchangeable. The backend stamps CapturedAt itself
// when the grab completes, so a slow grab is timestamped at completion rather
// than at request time.
type CaptureBackend interface {
	ListDisplays() []DisplayInfo
	CaptureFrame(displayID string) (domain.Frame, error)
}
