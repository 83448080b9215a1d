package pipeline

import (
	"sync/atomic"

	"github.com/aidamian/local-guard/internal/auth"
)

// Gate combines the auth state machine with the consent and kill-switch
// flags. The capture loop consults it once per tick; a closed gate skips the
// tick silently.
type Gate struct {
	machine *auth.Machine
	consent atomic.Bool
	enabled atomic.Bool
}

func NewGate(machine *auth.Machine) *Gate {
	return &Gate{machine: machine}
}

func (g *Gate) SetConsent(granted bool)        { g.consent.Store(granted) }
func (g *Gate) SetCaptureEnabled(enabled bool) { g.enabled.Store(enabled) }

func (g *Gate) Consent() bool        { return g.consent.Load() }
func (g *Gate) CaptureEnabled() bool { return g.enabled.Load() }

// Open evaluates the composite capture gate against the current auth state.
func (g *Gate) Open() bool {
	return auth.CanCapture(g.machine.State(), g.consent.Load(), g.enabled.Load())
}

// Machine exposes the underlying state machine for login and reauth handling.
func (g *Gate) Machine() *auth.Machine { return g.machine }
