// Package auth owns the session lifecycle and the capture gate. The state
// machine is the single writer of session state; every other component reads
// consistent snapshots.
package auth

import (
	"errors"
	"sync"
	"time"
)

// State is the authentication lifecycle position.
type State int

const (
	// StateUnauthenticated means no valid session exists.
	StateUnauthenticated State = iota
	// StateAuthenticated means a session is currently valid.
	StateAuthenticated
	// StateReauthRequired means the session expired or was rejected; a fresh
	// login is required. Expiry never silently falls back to Unauthenticated.
	StateReauthRequired
)

func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "Authenticated"
	case StateReauthRequired:
		return "ReauthRequired"
	default:
		return "Unauthenticated"
	}
}

var (
	// ErrNotAuthenticated is returned when capture is attempted without a session.
	ErrNotAuthenticated = errors.New("auth: not authenticated")
	// ErrReauthRequired is returned when capture is attempted on an expired session.
	ErrReauthRequired = errors.New("auth: reauthentication required")
)

// Session holds one short-lived token. Values are opaque; they are never
// logged or embedded in error messages.
type Session struct {
	AccessToken string
	SessionID   string
	ExpiresAt   time.Time
}

// Expired reports whether the session has passed its expiry at the given instant.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Machine is the auth state machine. Only Machine methods mutate session
// state; Snapshot returns a consistent copy for readers.
type Machine struct {
	mu      sync.Mutex
	state   State
	session Session
	now     func() time.Time
}

// NewMachine creates a machine in the Unauthenticated state. A nil clock
// defaults to time.Now.
func NewMachine(clock func() time.Time) *Machine {
	if clock == nil {
		clock = time.Now
	}
	return &Machine{state: StateUnauthenticated, now: clock}
}

// Snapshot returns the current state and session copy after re-evaluating
// token expiry.
func (m *Machine) Snapshot() (State, Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tickLocked()
	return m.state, m.session
}

// State returns the current state after re-evaluating token expiry.
func (m *Machine) State() State {
	state, _ := m.Snapshot()
	return state
}

// OnLoginSuccess installs a fresh session. Legal from any state.
func (m *Machine) OnLoginSuccess(session Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateAuthenticated
	m.session = session
}

// OnAuthRejected is the reactive transition taken when the ingest endpoint
// rejects the session token.
func (m *Machine) OnAuthRejected() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateAuthenticated {
		m.state = StateReauthRequired
		m.session = Session{}
	}
}

// Logout is the only transition back to Unauthenticated.
func (m *Machine) Logout() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateUnauthenticated
	m.session = Session{}
}

// Authorize returns the active session, or a typed error naming the state
// that blocked the caller. Capture attempts must never silently no-op.
func (m *Machine) Authorize() (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tickLocked()
	switch m.state {
	case StateAuthenticated:
		return m.session, nil
	case StateReauthRequired:
		return Session{}, ErrReauthRequired
	default:
		return Session{}, ErrNotAuthenticated
	}
}

func (m *Machine) tickLocked() {
	if m.state == StateAuthenticated && m.session.Expired(m.now()) {
		m.state = StateReauthRequired
		m.session = Session{}
	}
}

// CanCapture is the composite capture gate: authenticated session, explicit
// consent, and an enabled kill switch. It is a pure function of its inputs.
func CanCapture(state State, consentGranted, captureEnabled bool) bool {
	return state == StateAuthenticated && consentGranted && captureEnabled
}
