package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidBatchCapacity indicates a non-positive batch capacity.
	ErrInvalidBatchCapacity = errors.New("batch capacity must be greater than zero")
	// ErrEmptyBatch indicates an operation that requires at least one frame.
	ErrEmptyBatch = errors.New("frame batch is empty")
	// ErrEmptySessionID indicates a blank session identifier.
	ErrEmptySessionID = errors.New("session id is empty")
	// ErrMixedBatch indicates frames from different displays or resolutions.
	ErrMixedBatch = errors.New("batch mixes display identities or resolutions")
)

// FrameBatch buffers frames in arrival order and emits a complete batch once
// exactly capacity frames have accumulated. It never emits a short batch.
type FrameBatch struct {
	capacity int
	frames   []Frame
}

// NewFrameBatch creates a bounded frame batch buffer.
func NewFrameBatch(capacity int) (*FrameBatch, error) {
	if capacity <= 0 {
		return nil, ErrInvalidBatchCapacity
	}
	return &FrameBatch{
		capacity: capacity,
		frames:   make([]Frame, 0, capacity),
	}, nil
}

// Push appends one frame. When the buffer reaches capacity the completed batch
// is returned and the buffer resets for the next window.
//
// If the frame does not match the active batch's display or resolution, the
// partial batch is discarded and a fresh one starts with the incoming frame;
// the number of dropped frames is returned so callers can account for them.
func (b *FrameBatch) Push(frame Frame) (emitted []Frame, discarded int) {
	if len(b.frames) > 0 && !b.frames[0].SameGeometry(frame) {
		discarded = len(b.frames)
		b.frames = b.frames[:0]
	}

	b.frames = append(b.frames, frame)
	if len(b.frames) == b.capacity {
		emitted = b.frames
		b.frames = make([]Frame, 0, b.capacity)
	}
	return emitted, discarded
}

// Len returns the number of buffered frames.
func (b *FrameBatch) Len() int { return len(b.frames) }

// Capacity returns the configured batch size.
func (b *FrameBatch) Capacity() int { return b.capacity }

// Reset drops any buffered partial batch. Used on cancellation and display
// switches so a short batch is never emitted downstream.
func (b *FrameBatch) Reset() int {
	dropped := len(b.frames)
	b.frames = b.frames[:0]
	return dropped
}

// BatchMetadata describes the capture window of one completed batch. It is
// embedded verbatim in upload payloads.
type BatchMetadata struct {
	StartTimestampMS int64  `json:"start_timestamp_ms"`
	EndTimestampMS   int64  `json:"end_timestamp_ms"`
	DisplayID        string `json:"screen_id"`
	SourceWidth      int    `json:"source_width"`
	SourceHeight     int    `json:"source_height"`
	SessionID        string `json:"session_id"`
	FrameCount       int    `json:"frame_count"`
}

// BuildMetadata computes batch metadata from a completed frame set. All frames
// must share display identity and resolution.
func BuildMetadata(frames []Frame, sessionID string) (BatchMetadata, error) {
	if len(frames) == 0 {
		return BatchMetadata{}, ErrEmptyBatch
	}
	if sessionID == "" {
		return BatchMetadata{}, ErrEmptySessionID
	}

	first := frames[0]
	start := first.CapturedAt
	end := first.CapturedAt
	for _, frame := range frames {
		if !first.SameGeometry(frame) {
			return BatchMetadata{}, fmt.Errorf("%w: %s/%dx%d vs %s/%dx%d",
				ErrMixedBatch, first.DisplayID, first.Width, first.Height,
				frame.DisplayID, frame.Width, frame.Height)
		}
		if frame.CapturedAt.Before(start) {
			start = frame.CapturedAt
		}
		if frame.CapturedAt.After(end) {
			end = frame.CapturedAt
		}
	}

	return BatchMetadata{
		StartTimestampMS: start.UnixMilli(),
		EndTimestampMS:   end.UnixMilli(),
		DisplayID:        first.DisplayID,
		SourceWidth:      first.Width,
		SourceHeight:     first.Height,
		SessionID:        sessionID,
		FrameCount:       len(frames),
	}, nil
}
