// Package localguard exposes the capture agent runtime for embedding. The
// runtime wires capture → batch → mosaic → upload behind a small lifecycle
// surface; every adapter can be overridden through options.
package localguard

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aidamian/local-guard/internal/adapters/capture"
	"github.com/aidamian/local-guard/internal/adapters/journal"
	"github.com/aidamian/local-guard/internal/adapters/observability"
	"github.com/aidamian/local-guard/internal/adapters/queue"
	"github.com/aidamian/local-guard/internal/adapters/staging"
	"github.com/aidamian/local-guard/internal/app/config"
	"github.com/aidamian/local-guard/internal/app/pipeline"
	"github.com/aidamian/local-guard/internal/app/status"
	"github.com/aidamian/local-guard/internal/auth"
	"github.com/aidamian/local-guard/internal/domain"
	"github.com/aidamian/local-guard/internal/ports"
	"github.com/aidamian/local-guard/internal/upload"
)

// Version is the agent release version reported by the CLI.
const Version = "0.1.0"

// KillSwitchEnv disables capture at process level. The values "0", "false"
// and "off" (any case) close the gate regardless of configuration.
const KillSwitchEnv = "LOCAL_GUARD_CAPTURE_ENABLED"

// Option customizes the dependencies used by Runtime.
type Option func(*runtimeOverrides)

type runtimeOverrides struct {
	backend       ports.CaptureBackend
	deliverer     ports.Deliverer
	journal       ports.Journal
	queue         ports.PayloadQueue
	observability ports.Observability
	authTransport auth.Transport
	clock         func() time.Time
}

// WithCaptureBackend injects a pixel source (an OS capture layer or a test double).
func WithCaptureBackend(backend ports.CaptureBackend) Option {
	return func(o *runtimeOverrides) { o.backend = backend }
}

// WithDeliverer overrides the delivery destination chosen by ingest.mode.
func WithDeliverer(d ports.Deliverer) Option {
	return func(o *runtimeOverrides) { o.deliverer = d }
}

// WithJournal injects a receipt store.
func WithJournal(j ports.Journal) Option {
	return func(o *runtimeOverrides) { o.journal = j }
}

// WithQueue injects a custom payload queue implementation.
func WithQueue(q ports.PayloadQueue) Option {
	return func(o *runtimeOverrides) { o.queue = q }
}

// WithObservability plugs in a custom observability backend.
func WithObservability(obs ports.Observability) Option {
	return func(o *runtimeOverrides) { o.observability = obs }
}

// WithAuthTransport injects the login transport, mainly for tests.
func WithAuthTransport(t auth.Transport) Option {
	return func(o *runtimeOverrides) { o.authTransport = t }
}

// WithClock replaces the runtime clock.
func WithClock(clock func() time.Time) Option {
	return func(o *runtimeOverrides) { o.clock = clock }
}

// Runtime is the embedded capture agent.
type Runtime struct {
	cfg     *config.Config
	obs     ports.Observability
	machine *auth.Machine
	gate    *pipeline.Gate
	client  *auth.Client

	backend   ports.CaptureBackend
	queue     ports.PayloadQueue
	deliverer ports.Deliverer
	journal   ports.Journal
	batch     *domain.FrameBatch
	tracker   *status.Tracker
	now       func() time.Time

	mu       sync.Mutex
	display  string
	cancel   context.CancelFunc
	loopDone chan struct{}

	metricsSrv  *http.Server
	gaugeStopCh chan struct{}
}

// NewRuntime bootstraps the default adapters: synthetic capture backend,
// HTTPS upload client or staging store per ingest.mode, SQLite receipt
// journal, bounded in-memory queue, and Prometheus observability. Options
// override any dependency.
func NewRuntime(cfg *config.Config, opts ...Option) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var overrides runtimeOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	obs := overrides.observability
	if obs == nil {
		obs = observability.NewPromObs()
	}
	clock := overrides.clock
	if clock == nil {
		clock = time.Now
	}

	backend := overrides.backend
	if backend == nil {
		backend = capture.NewSyntheticBackend()
	}

	q := overrides.queue
	if q == nil {
		q = queue.NewMemQueue(cfg.Capture.QueueLen)
	}

	deliverer := overrides.deliverer
	if deliverer == nil {
		var err error
		deliverer, err = buildDeliverer(cfg)
		if err != nil {
			return nil, err
		}
	}

	j := overrides.journal
	if j == nil {
		var err error
		j, err = journal.Open(cfg.Journal.Path)
		if err != nil {
			return nil, err
		}
	}

	machine := auth.NewMachine(clock)
	gate := pipeline.NewGate(machine)
	gate.SetCaptureEnabled(cfg.Capture.Enabled && killSwitchAllows(os.Getenv(KillSwitchEnv)))

	var client *auth.Client
	if cfg.Ingest.Mode == config.ModeHTTPS || overrides.authTransport != nil {
		transport := overrides.authTransport
		if transport == nil {
			transport = auth.NewHTTPTransport(cfg.Auth.Timeout)
		}
		endpoint := cfg.Auth.Endpoint
		var err error
		client, err = auth.NewClient(endpoint, transport, clock)
		if err != nil {
			return nil, err
		}
	}

	batch, err := domain.NewFrameBatch(cfg.Capture.BatchSize)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{
		cfg:       cfg,
		obs:       obs,
		machine:   machine,
		gate:      gate,
		client:    client,
		backend:   backend,
		queue:     q,
		deliverer: deliverer,
		journal:   j,
		batch:     batch,
		tracker:   status.NewTracker(),
		now:       clock,
	}
	if displays := backend.ListDisplays(); len(displays) > 0 {
		rt.display = displays[0].ID
	}
	rt.tracker.SetSelectedDisplay(rt.display)
	rt.tracker.SetCaptureEnabled(gate.CaptureEnabled())
	return rt, nil
}

func buildDeliverer(cfg *config.Config) (ports.Deliverer, error) {
	switch cfg.Ingest.Mode {
	case config.ModeHTTPS:
		policy := upload.RetryPolicy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			BaseDelay:   cfg.Retry.BaseDelay,
			MaxDelay:    cfg.Retry.MaxDelay,
			Multiplier:  cfg.Retry.Multiplier,
			Jitter:      cfg.Retry.Jitter,
		}
		return upload.NewClient(cfg.Ingest.Endpoint, policy, upload.NewHTTPTransport(cfg.Ingest.Timeout))
	case config.ModeStaging:
		return staging.NewStore(cfg.Ingest.StagingDir)
	default:
		return nil, fmt.Errorf("unknown ingest mode %q", cfg.Ingest.Mode)
	}
}

func killSwitchAllows(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "0", "false", "off":
		return false
	default:
		return true
	}
}

// Start launches the capture loop, capture worker, and delivery loop, plus
// the metrics endpoint. It returns immediately; use Run to block on a context.
func (r *Runtime) Start() error {
	if r == nil {
		return fmt.Errorf("runtime is nil")
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.loopDone = make(chan struct{})

	ticks := make(chan time.Time, 1)
	interval := time.Second / time.Duration(r.cfg.Capture.FPS)

	workerDeps := pipeline.WorkerDeps{
		Backend: r.backend,
		Gate:    r.gate,
		Batch:   r.batch,
		Queue:   r.queue,
		Obs:     r.obs,
		Status:  r.tracker,
		Display: r.SelectedDisplay,
	}
	deliveryDeps := pipeline.DeliveryDeps{
		Queue:     r.queue,
		Deliverer: r.deliverer,
		Gate:      r.gate,
		Journal:   r.journal,
		Obs:       r.obs,
		Status:    r.tracker,
		Now:       r.now,
	}

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		pipeline.RunCaptureLoop(ctx, interval, r.gate, ticks, r.obs)
	}()
	go func() {
		defer wg.Done()
		pipeline.RunCaptureWorker(ctx, ticks, workerDeps)
	}()
	go func() {
		defer wg.Done()
		pipeline.RunDeliveryLoop(ctx, deliveryDeps)
	}()
	go func() {
		wg.Wait()
		close(r.loopDone)
	}()

	r.startMetrics()
	return nil
}

// Run starts the runtime and blocks until the context is cancelled, then
// shuts down gracefully.
func (r *Runtime) Run(ctx context.Context) error {
	if err := r.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.Shutdown(shutdownCtx)
}

// Shutdown stops the pipeline loops, metrics server, and journal. Queued
// payloads are dropped; buffered partial batches are discarded by the worker.
func (r *Runtime) Shutdown(ctx context.Context) error {
	var errs []error

	if r.cancel != nil {
		r.cancel()
	}
	if r.loopDone != nil {
		select {
		case <-r.loopDone:
		case <-ctx.Done():
			errs = append(errs, ctx.Err())
		}
	}

	if r.gaugeStopCh != nil {
		close(r.gaugeStopCh)
		r.gaugeStopCh = nil
	}
	if r.metricsSrv != nil {
		if err := r.metricsSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
	}
	if closer, ok := r.journal.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Login exchanges credentials for a session and opens the auth side of the
// capture gate. In staging mode without an auth transport, a local session is
// minted so offline development does not need the auth service.
func (r *Runtime) Login(ctx context.Context, username, password string) error {
	if r.client == nil {
		if strings.TrimSpace(username) == "" || strings.TrimSpace(password) == "" {
			return auth.ErrEmptyCredentials
		}
		r.machine.OnLoginSuccess(auth.Session{
			AccessToken: "staging-" + uuid.NewString(),
			SessionID:   uuid.NewString(),
			ExpiresAt:   r.now().Add(12 * time.Hour),
		})
		r.tracker.SetAuthState(r.machine.State())
		return nil
	}

	session, err := r.client.Login(ctx, auth.Credentials{Username: username, Password: password})
	if err != nil {
		return err
	}
	r.machine.OnLoginSuccess(session)
	r.tracker.SetAuthState(r.machine.State())
	r.obs.LogInfo("login_succeeded")
	return nil
}

// Logout clears the session and closes the gate.
func (r *Runtime) Logout() {
	r.machine.Logout()
	r.tracker.SetAuthState(r.machine.State())
}

// SetConsent records the user's capture consent.
func (r *Runtime) SetConsent(granted bool) {
	r.gate.SetConsent(granted)
	r.tracker.SetConsent(granted)
}

// SetCaptureEnabled flips the runtime kill switch.
func (r *Runtime) SetCaptureEnabled(enabled bool) {
	r.gate.SetCaptureEnabled(enabled)
	r.tracker.SetCaptureEnabled(enabled)
}

// Displays lists the capture backend's displays.
func (r *Runtime) Displays() []ports.DisplayInfo {
	return r.backend.ListDisplays()
}

// SelectDisplay switches the capture target. The in-flight partial batch is
// discarded by the accumulator when the next frame arrives with a different
// geometry.
func (r *Runtime) SelectDisplay(id string) error {
	for _, d := range r.backend.ListDisplays() {
		if d.ID == id {
			r.mu.Lock()
			r.display = id
			r.mu.Unlock()
			r.tracker.SetSelectedDisplay(id)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ports.ErrDisplayNotFound, id)
}

// SelectedDisplay returns the current capture target.
func (r *Runtime) SelectedDisplay() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.display
}

// Status returns a consistent snapshot of agent state.
func (r *Runtime) Status() status.Snapshot {
	r.tracker.SetAuthState(r.machine.State())
	return r.tracker.Snapshot()
}

func (r *Runtime) startMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.metricsSrv = &http.Server{
		Addr:    r.cfg.Metrics.Addr,
		Handler: mux,
	}

	go func() {
		if err := r.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("metrics server exited: %v", err)
		}
	}()

	r.gaugeStopCh = make(chan struct{})
	go r.recordGauges(r.gaugeStopCh, time.Second)
}

func (r *Runtime) recordGauges(stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			r.obs.SetGauge("localguard_queue_length", float64(r.queue.Len()))
			r.obs.SetGauge("localguard_auth_state", float64(r.machine.State()))
		}
	}
}
