package domain

import (
	"errors"
	"fmt"
	"time"
)

const bytesPerPixel = 4

// ErrInvalidFrameShape indicates the pixel buffer does not match the declared geometry.
var ErrInvalidFrameShape = errors.New("invalid frame shape")

// Frame is one captured RGBA image sample from a selected display.
type Frame struct {
	DisplayID  string
	Width      int
	Height     int
	CapturedAt time.Time
	RGBA       []byte
}

// NewFrame constructs a validated frame. The pixel buffer must contain exactly
// width*height*4 bytes and both dimensions must be positive.
func NewFrame(displayID string, width, height int, capturedAt time.Time, rgba []byte) (Frame, error) {
	if width <= 0 || height <= 0 {
		return Frame{}, fmt.Errorf("%w: dimensions %dx%d", ErrInvalidFrameShape, width, height)
	}
	expected := width * height * bytesPerPixel
	if len(rgba) != expected {
		return Frame{}, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidFrameShape, expected, len(rgba))
	}
	return Frame{
		DisplayID:  displayID,
		Width:      width,
		Height:     height,
		CapturedAt: capturedAt,
		RGBA:       rgba,
	}, nil
}

// SameGeometry reports whether two frames come from the same display at the
// same resolution. Batches never mix frames across this boundary.
func (f Frame) SameGeometry(other Frame) bool {
	return f.DisplayID == other.DisplayID && f.Width == other.Width && f.Height == other.Height
}
