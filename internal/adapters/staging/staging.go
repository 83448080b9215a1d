// Package staging delivers payloads to a local directory instead of the
// network. It backs the offline/staging mode: artifacts land on disk where an
// operator can inspect exactly what the HTTPS path would have sent.
package staging

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aidamian/local-guard/internal/payload"
	"github.com/aidamian/local-guard/internal/ports"
)

type Store struct {
	dir string
}

// NewStore prepares the staging directory.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("staging: create dir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Name() string { return "staging" }

// Deliver writes the payload JSON and the embedded mosaic JPEG side by side,
// named by idempotency key so replays overwrite instead of duplicating.
func (s *Store) Deliver(_ context.Context, env ports.UploadEnvelope) (ports.DeliveryReport, error) {
	base := filepath.Join(s.dir, env.IdempotencyKey)

	if err := os.WriteFile(base+".json", env.Body, 0o600); err != nil {
		return ports.DeliveryReport{}, fmt.Errorf("staging: write payload: %w", err)
	}

	decoded, err := payload.Decode(env.Body)
	if err != nil {
		return ports.DeliveryReport{}, fmt.Errorf("staging: decode payload: %w", err)
	}
	if err := os.WriteFile(base+".jpg", decoded.MosaicJPEG, 0o600); err != nil {
		return ports.DeliveryReport{}, fmt.Errorf("staging: write mosaic: %w", err)
	}

	return ports.DeliveryReport{Attempts: 1}, nil
}

var _ ports.Deliverer = (*Store)(nil)
