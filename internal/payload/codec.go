// Package payload implements the frozen v1 wire schema for mosaic uploads and
// the content-derived idempotency key. Encoding is canonical: struct field
// order is fixed, the embedded mosaic is a JPEG at a pinned quality, and the
// same payload always serializes to the same bytes. Any field change requires
// a schema version bump.
package payload

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/zeebo/blake3"

	"github.com/aidamian/local-guard/internal/domain"
	"github.com/aidamian/local-guard/internal/mosaic"
)

// SchemaVersion tags v1 payloads for server contract negotiation.
const SchemaVersion = "v1"

// jpegQuality is pinned: changing it changes payload bytes and therefore
// idempotency keys, so it is part of the frozen schema.
const jpegQuality = 80

// Payload is the wire-ready upload body. Field order is part of the contract.
type Payload struct {
	SchemaVersion string               `json:"schema_version"`
	Metadata      domain.BatchMetadata `json:"metadata"`
	MosaicWidth   int                  `json:"mosaic_width"`
	MosaicHeight  int                  `json:"mosaic_height"`
	MosaicJPEG    []byte               `json:"mosaic_jpeg"`
}

// Build composes the mosaic metadata and embedded image into one payload.
func Build(frames []domain.Frame, img mosaic.Image, sessionID string) (Payload, error) {
	meta, err := domain.BuildMetadata(frames, sessionID)
	if err != nil {
		return Payload{}, err
	}

	encoded, err := EncodeMosaicJPEG(img)
	if err != nil {
		return Payload{}, err
	}

	return Payload{
		SchemaVersion: SchemaVersion,
		Metadata:      meta,
		MosaicWidth:   img.Width,
		MosaicHeight:  img.Height,
		MosaicJPEG:    encoded,
	}, nil
}

// Encode serializes the payload to canonical JSON bytes. encoding/json emits
// struct fields in declaration order, so identical payloads produce identical
// bytes.
func (p Payload) Encode() ([]byte, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("payload: encode: %w", err)
	}
	return raw, nil
}

// Decode parses canonical payload bytes.
func Decode(raw []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Payload{}, fmt.Errorf("payload: decode: %w", err)
	}
	return p, nil
}

// EncodeMosaicJPEG converts a mosaic to JPEG bytes at the pinned quality.
// Go's JPEG encoder is deterministic for identical input and settings.
func EncodeMosaicJPEG(img mosaic.Image) ([]byte, error) {
	if img.Width <= 0 || img.Height <= 0 || len(img.RGBA) != img.Width*img.Height*4 {
		return nil, fmt.Errorf("payload: mosaic buffer does not match %dx%d", img.Width, img.Height)
	}

	rgba := &image.RGBA{
		Pix:    img.RGBA,
		Stride: img.Width * 4,
		Rect:   image.Rect(0, 0, img.Width, img.Height),
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, rgba, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("payload: jpeg encode: %w", err)
	}
	return buf.Bytes(), nil
}

// IdempotencyKey derives the content digest of canonical payload bytes.
// Identical payloads produce identical keys, which lets the server
// deduplicate retried submissions.
func IdempotencyKey(payloadBytes []byte) string {
	sum := blake3.Sum256(payloadBytes)
	return hex.EncodeToString(sum[:])
}
