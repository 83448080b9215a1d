// Package status projects live agent state for operator display. The tracker
// is a read-mostly mirror updated by the pipeline loops; it never drives
// behavior.
package status

import (
	"sync"
	"time"

	"github.com/aidamian/local-guard/internal/analysis"
	"github.com/aidamian/local-guard/internal/auth"
)

// Snapshot is one consistent view of agent state.
type Snapshot struct {
	AuthState       auth.State
	ConsentGranted  bool
	CaptureEnabled  bool
	SelectedDisplay string
	BufferedFrames  int
	QueuedPayloads  int
	LastBatchAt     time.Time
	LastUploadAt    time.Time
	LastOutcome     string
	LastTopCategory string
	LastRiskLevel   analysis.RiskLevel
}

// Tracker accumulates pipeline events into a snapshot.
type Tracker struct {
	mu   sync.Mutex
	snap Snapshot
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// Snapshot returns a copy of the current projection.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snap
}

func (t *Tracker) SetAuthState(state auth.State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.AuthState = state
}

func (t *Tracker) SetConsent(granted bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.ConsentGranted = granted
}

func (t *Tracker) SetCaptureEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.CaptureEnabled = enabled
}

func (t *Tracker) SetSelectedDisplay(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.SelectedDisplay = id
}

func (t *Tracker) SetBufferedFrames(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.BufferedFrames = n
}

func (t *Tracker) SetQueuedPayloads(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.QueuedPayloads = n
}

func (t *Tracker) RecordBatch(completedAt time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.LastBatchAt = completedAt
}

// RecordUpload stores the outcome of the most recent delivery attempt chain.
func (t *Tracker) RecordUpload(at time.Time, outcome string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.LastUploadAt = at
	t.snap.LastOutcome = outcome
}

// RecordAnalysis reduces the response's risk signals to the dominant category
// for display.
func (t *Tracker) RecordAnalysis(signals []analysis.RiskSignal) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.snap.LastRiskLevel = analysis.HighestRisk(signals)
	t.snap.LastTopCategory = ""
	for _, signal := range signals {
		if signal.Level == t.snap.LastRiskLevel {
			t.snap.LastTopCategory = signal.Category
			break
		}
	}
}
