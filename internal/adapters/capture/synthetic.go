// Package capture provides pixel acquisition backends. The synthetic backend
// here generates deterministic frames; OS-native backends plug in behind the
// same port.
package capture

import (
	"fmt"
	"sync"
	"time"

	"github.com/aidamian/local-guard/internal/domain"
	"github.com/aidamian/local-guard/internal/ports"
)

// SyntheticBackend fabricates frames with a deterministic per-capture fill.
// It exists for development and pipeline tests where no real display is
// available; frame content encodes the capture sequence so ordering bugs
// show up as pixel differences.
type SyntheticBackend struct {
	mu       sync.Mutex
	displays []ports.DisplayInfo
	seq      map[string]uint8
	now      func() time.Time
}

// NewSyntheticBackend serves the given displays. With none given it exposes a
// single 64x48 virtual display.
func NewSyntheticBackend(displays ...ports.DisplayInfo) *SyntheticBackend {
	if len(displays) == 0 {
		displays = []ports.DisplayInfo{
			{ID: "synthetic-0", Name: "Synthetic Display", Width: 64, Height: 48},
		}
	}
	return &SyntheticBackend{
		displays: displays,
		seq:      make(map[string]uint8),
		now:      time.Now,
	}
}

// SetClock replaces the completion-time source, mainly for tests.
func (b *SyntheticBackend) SetClock(clock func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if clock != nil {
		b.now = clock
	}
}

func (b *SyntheticBackend) ListDisplays() []ports.DisplayInfo {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]ports.DisplayInfo, len(b.displays))
	copy(out, b.displays)
	return out
}

// CaptureFrame produces a solid frame whose red channel carries the capture
// sequence number for the display. The frame is stamped when the grab
// completes.
func (b *SyntheticBackend) CaptureFrame(displayID string) (domain.Frame, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var display ports.DisplayInfo
	found := false
	for _, d := range b.displays {
		if d.ID == displayID {
			display = d
			found = true
			break
		}
	}
	if !found {
		return domain.Frame{}, fmt.Errorf("%w: %s", ports.ErrDisplayNotFound, displayID)
	}

	fill := b.seq[displayID]
	b.seq[displayID]++

	rgba := make([]byte, display.Width*display.Height*4)
	for i := 0; i < len(rgba); i += 4 {
		rgba[i] = fill
		rgba[i+3] = 255
	}
	return domain.NewFrame(displayID, display.Width, display.Height, b.now(), rgba)
}

var _ ports.CaptureBackend = (*SyntheticBackend)(nil)
