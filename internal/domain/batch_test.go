package domain

import (
	"errors"
	"testing"
	"time"
)

func TestFrameBatchEmitsExactlyAtCapacity(t *testing.T) {
	batch, err := NewFrameBatch(3)
	if err != nil {
		t.Fatalf("new batch: %v", err)
	}

	base := time.Unix(0, 0)
	for i := 0; i < 2; i++ {
		emitted, discarded := batch.Push(testFrame(t, "display-1", 2, 2, base.Add(time.Duration(i)*time.Second), byte(i)))
		if emitted != nil || discarded != 0 {
			t.Fatalf("unexpected emission before capacity: emitted=%v discarded=%d", emitted, discarded)
		}
	}

	emitted, discarded := batch.Push(testFrame(t, "display-1", 2, 2, base.Add(2*time.Second), 2))
	if discarded != 0 {
		t.Fatalf("unexpected discard: %d", discarded)
	}
	if len(emitted) != 3 {
		t.Fatalf("expected 3 frames emitted, got %d", len(emitted))
	}
	if batch.Len() != 0 {
		t.Fatalf("expected buffer reset after emission, got %d buffered", batch.Len())
	}

	for i, frame := range emitted {
		if frame.CapturedAt != base.Add(time.Duration(i)*time.Second) {
			t.Fatalf("frame %d out of chronological order", i)
		}
	}
}

func TestFrameBatchDiscardsPartialOnDisplayChange(t *testing.T) {
	batch, err := NewFrameBatch(3)
	if err != nil {
		t.Fatalf("new batch: %v", err)
	}

	now := time.Now()
	batch.Push(testFrame(t, "display-1", 2, 2, now, 0))
	batch.Push(testFrame(t, "display-1", 2, 2, now, 1))

	emitted, discarded := batch.Push(testFrame(t, "display-2", 2, 2, now, 2))
	if emitted != nil {
		t.Fatalf("display switch must not emit a batch")
	}
	if discarded != 2 {
		t.Fatalf("expected 2 discarded frames, got %d", discarded)
	}
	if batch.Len() != 1 {
		t.Fatalf("expected fresh batch with incoming frame, got %d buffered", batch.Len())
	}
}

func TestFrameBatchRejectsZeroCapacity(t *testing.T) {
	if _, err := NewFrameBatch(0); !errors.Is(err, ErrInvalidBatchCapacity) {
		t.Fatalf("expected ErrInvalidBatchCapacity, got %v", err)
	}
}

func TestFrameBatchResetDropsPartial(t *testing.T) {
	batch, _ := NewFrameBatch(9)
	batch.Push(testFrame(t, "display-1", 1, 1, time.Now(), 0))
	if dropped := batch.Reset(); dropped != 1 {
		t.Fatalf("expected 1 dropped frame, got %d", dropped)
	}
	if batch.Len() != 0 {
		t.Fatalf("expected empty buffer after reset")
	}
}

func TestBuildMetadataComputesWindow(t *testing.T) {
	base := time.UnixMilli(1_000)
	frames := []Frame{
		testFrame(t, "display-1", 2, 2, base.Add(2*time.Second), 0),
		testFrame(t, "display-1", 2, 2, base, 1),
		testFrame(t, "display-1", 2, 2, base.Add(time.Second), 2),
	}

	meta, err := BuildMetadata(frames, "session-xyz")
	if err != nil {
		t.Fatalf("build metadata: %v", err)
	}
	if meta.StartTimestampMS != 1_000 || meta.EndTimestampMS != 3_000 {
		t.Fatalf("unexpected window: start=%d end=%d", meta.StartTimestampMS, meta.EndTimestampMS)
	}
	if meta.DisplayID != "display-1" || meta.FrameCount != 3 {
		t.Fatalf("unexpected metadata: %+v", meta)
	}
	if meta.SourceWidth != 2 || meta.SourceHeight != 2 {
		t.Fatalf("unexpected source geometry: %+v", meta)
	}
}

func TestBuildMetadataRejectsInvalidInput(t *testing.T) {
	if _, err := BuildMetadata(nil, "session"); !errors.Is(err, ErrEmptyBatch) {
		t.Fatalf("expected ErrEmptyBatch, got %v", err)
	}

	frames := []Frame{testFrame(t, "display-1", 1, 1, time.Now(), 0)}
	if _, err := BuildMetadata(frames, ""); !errors.Is(err, ErrEmptySessionID) {
		t.Fatalf("expected ErrEmptySessionID, got %v", err)
	}

	mixed := append(frames, testFrame(t, "display-2", 1, 1, time.Now(), 0))
	if _, err := BuildMetadata(mixed, "session"); !errors.Is(err, ErrMixedBatch) {
		t.Fatalf("expected ErrMixedBatch, got %v", err)
	}
}
