package capture

import (
	"errors"
	"testing"
	"time"

	"github.com/aidamian/local-guard/internal/ports"
)

func TestSyntheticBackendDefaultDisplay(t *testing.T) {
	b := NewSyntheticBackend()

	displays := b.ListDisplays()
	if len(displays) != 1 || displays[0].ID != "synthetic-0" {
		t.Fatalf("unexpected displays: %+v", displays)
	}

	frame, err := b.CaptureFrame("synthetic-0")
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if frame.Width != 64 || frame.Height != 48 {
		t.Fatalf("unexpected geometry: %dx%d", frame.Width, frame.Height)
	}
	if len(frame.RGBA) != 64*48*4 {
		t.Fatalf("unexpected buffer length %d", len(frame.RGBA))
	}
}

func TestSyntheticBackendSequenceFill(t *testing.T) {
	b := NewSyntheticBackend(ports.DisplayInfo{ID: "d1", Width: 2, Height: 2})

	first, err := b.CaptureFrame("d1")
	if err != nil {
		t.Fatalf("capture 1: %v", err)
	}
	second, err := b.CaptureFrame("d1")
	if err != nil {
		t.Fatalf("capture 2: %v", err)
	}

	if first.RGBA[0] != 0 || second.RGBA[0] != 1 {
		t.Fatalf("sequence fill mismatch: %d then %d", first.RGBA[0], second.RGBA[0])
	}
}

func TestSyntheticBackendStampsAtCompletion(t *testing.T) {
	b := NewSyntheticBackend(ports.DisplayInfo{ID: "d1", Width: 2, Height: 2})
	clock := time.UnixMilli(1_000)
	b.SetClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	})

	first, err := b.CaptureFrame("d1")
	if err != nil {
		t.Fatalf("capture 1: %v", err)
	}
	second, err := b.CaptureFrame("d1")
	if err != nil {
		t.Fatalf("capture 2: %v", err)
	}

	if !first.CapturedAt.Equal(time.UnixMilli(2_000)) {
		t.Fatalf("unexpected first stamp: %v", first.CapturedAt)
	}
	if !second.CapturedAt.After(first.CapturedAt) {
		t.Fatalf("stamps must advance with the clock: %v then %v", first.CapturedAt, second.CapturedAt)
	}
}

func TestSyntheticBackendUnknownDisplay(t *testing.T) {
	b := NewSyntheticBackend()

	_, err := b.CaptureFrame("no-such-display")
	if !errors.Is(err, ports.ErrDisplayNotFound) {
		t.Fatalf("expected ErrDisplayNotFound, got %v", err)
	}
}
