package payload

import (
	"bytes"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aidamian/local-guard/internal/domain"
	"github.com/aidamian/local-guard/internal/mosaic"
)

func fixtureFrames(t *testing.T) []domain.Frame {
	t.Helper()
	frames := make([]domain.Frame, 0, 9)
	base := time.UnixMilli(1_000)
	for i := 0; i < 9; i++ {
		frame, err := domain.NewFrame("display-1", 1, 1, base.Add(time.Duration(i)*time.Millisecond), []byte{byte(i), 0, 0, 255})
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		frames = append(frames, frame)
	}
	return frames
}

func fixturePayload(t *testing.T) Payload {
	t.Helper()
	frames := fixtureFrames(t)
	img, err := mosaic.Compose(frames, 0, 0)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	p, err := Build(frames, img, "session-xyz")
	if err != nil {
		t.Fatalf("build payload: %v", err)
	}
	return p
}

func TestEncodeIsDeterministic(t *testing.T) {
	a, err := fixturePayload(t).Encode()
	if err != nil {
		t.Fatalf("encode a: %v", err)
	}
	b, err := fixturePayload(t).Encode()
	if err != nil {
		t.Fatalf("encode b: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("identical payloads must encode to identical bytes")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	original := fixturePayload(t)
	raw, err := original.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.SchemaVersion != SchemaVersion {
		t.Fatalf("expected schema %q, got %q", SchemaVersion, decoded.SchemaVersion)
	}
	if decoded.Metadata != original.Metadata {
		t.Fatalf("metadata mismatch: %+v vs %+v", decoded.Metadata, original.Metadata)
	}
	if !bytes.Equal(decoded.MosaicJPEG, original.MosaicJPEG) {
		t.Fatalf("embedded mosaic bytes changed in round trip")
	}
}

func TestBuildPopulatesMetadataWindow(t *testing.T) {
	p := fixturePayload(t)
	if p.Metadata.StartTimestampMS != 1_000 || p.Metadata.EndTimestampMS != 1_008 {
		t.Fatalf("unexpected capture window: %+v", p.Metadata)
	}
	if p.Metadata.FrameCount != 9 || p.Metadata.DisplayID != "display-1" {
		t.Fatalf("unexpected metadata: %+v", p.Metadata)
	}
	if p.MosaicWidth != 3 || p.MosaicHeight != 3 {
		t.Fatalf("unexpected mosaic geometry: %dx%d", p.MosaicWidth, p.MosaicHeight)
	}
	if len(p.MosaicJPEG) == 0 {
		t.Fatalf("expected embedded jpeg bytes")
	}
}

func TestIdempotencyKeyStableForIdenticalPayloads(t *testing.T) {
	a, _ := fixturePayload(t).Encode()
	b, _ := fixturePayload(t).Encode()

	keyA := IdempotencyKey(a)
	keyB := IdempotencyKey(b)
	if keyA != keyB {
		t.Fatalf("identical payload bytes must derive identical keys: %s vs %s", keyA, keyB)
	}
	if len(keyA) != 64 {
		t.Fatalf("expected 256-bit hex key, got %d chars", len(keyA))
	}
}

func TestIdempotencyKeyDiffersForDifferentPayloads(t *testing.T) {
	a := IdempotencyKey([]byte("payload-a"))
	b := IdempotencyKey([]byte("payload-b"))
	if a == b {
		t.Fatalf("different bytes must derive different keys")
	}
}

func TestDecodeFrozenFixture(t *testing.T) {
	raw, err := os.ReadFile(filepath.Join("testdata", "ingest_payload_v1.json"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	raw = bytes.TrimSpace(raw)

	p, err := Decode(raw)
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	if p.SchemaVersion != SchemaVersion {
		t.Fatalf("expected schema %q, got %q", SchemaVersion, p.SchemaVersion)
	}
	want := domain.BatchMetadata{
		StartTimestampMS: 1_000,
		EndTimestampMS:   1_008,
		DisplayID:        "display-1",
		SourceWidth:      1,
		SourceHeight:     1,
		SessionID:        "session-xyz",
		FrameCount:       9,
	}
	if p.Metadata != want {
		t.Fatalf("metadata mismatch: %+v", p.Metadata)
	}
	if p.MosaicWidth != 3 || p.MosaicHeight != 3 {
		t.Fatalf("unexpected mosaic geometry: %dx%d", p.MosaicWidth, p.MosaicHeight)
	}
	if !bytes.Equal(p.MosaicJPEG, []byte{1, 2, 3}) {
		t.Fatalf("unexpected mosaic bytes: %s", base64.StdEncoding.EncodeToString(p.MosaicJPEG))
	}

	reencoded, err := p.Encode()
	if err != nil {
		t.Fatalf("re-encode fixture: %v", err)
	}
	if !bytes.Equal(reencoded, raw) {
		t.Fatalf("canonical form drifted from frozen fixture:\n got %s\nwant %s", reencoded, raw)
	}
}

func TestDecodeRejectsTruncatedFixture(t *testing.T) {
	raw, err := os.ReadFile(filepath.Join("testdata", "ingest_payload_truncated.json"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	if _, err := Decode(raw); err == nil {
		t.Fatalf("expected decode error for truncated payload")
	}
}

func TestEncodeMosaicJPEGRejectsShapeMismatch(t *testing.T) {
	_, err := EncodeMosaicJPEG(mosaic.Image{Width: 2, Height: 2, RGBA: make([]byte, 3)})
	if err == nil {
		t.Fatalf("expected error for mismatched buffer")
	}
}
