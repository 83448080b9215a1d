package observability

import (
	"fmt"
	"log"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aidamian/local-guard/internal/ports"
	"github.com/aidamian/local-guard/internal/redact"
)

// Metric names exposed by the agent.
const (
	MetricFramesCaptured   = "localguard_frames_captured_total"
	MetricFramesDiscarded  = "localguard_frames_discarded_total"
	MetricBatchesComposed  = "localguard_batches_composed_total"
	MetricUploadsSucceeded = "localguard_uploads_succeeded_total"
	MetricUploadsFailed    = "localguard_uploads_failed_total"
	MetricTicksSkipped     = "localguard_ticks_skipped_total"
	MetricQueueLength      = "localguard_queue_length"
	MetricAuthState        = "localguard_auth_state"
	MetricUploadLatency    = "localguard_upload_latency_seconds"
)

type PromObs struct {
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

func NewPromObs() *PromObs {
	captured := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricFramesCaptured,
		Help: "Total frames captured into batches.",
	})
	discarded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricFramesDiscarded,
		Help: "Frames discarded from partial batches on display or geometry change.",
	})
	composed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricBatchesComposed,
		Help: "Complete batches composed into mosaics.",
	})
	uploadsOK := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricUploadsSucceeded,
		Help: "Payloads accepted by the ingest endpoint.",
	})
	uploadsFailed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricUploadsFailed,
		Help: "Payloads abandoned after a permanent failure or retry exhaustion.",
	})
	ticksSkipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricTicksSkipped,
		Help: "Scheduler ticks skipped because the capture gate was closed.",
	})
	queueLen := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: MetricQueueLength,
		Help: "Payloads currently buffered for delivery.",
	})
	authState := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: MetricAuthState,
		Help: "Auth state: 0 unauthenticated, 1 authenticated, 2 reauth required.",
	})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    MetricUploadLatency,
		Help:    "End-to-end latency from batch completion to delivery outcome.",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	})

	prometheus.MustRegister(captured, discarded, composed, uploadsOK, uploadsFailed,
		ticksSkipped, queueLen, authState, latency)

	return &PromObs{
		counters: map[string]prometheus.Counter{
			MetricFramesCaptured:   captured,
			MetricFramesDiscarded:  discarded,
			MetricBatchesComposed:  composed,
			MetricUploadsSucceeded: uploadsOK,
			MetricUploadsFailed:    uploadsFailed,
			MetricTicksSkipped:     ticksSkipped,
		},
		gauges: map[string]prometheus.Gauge{
			MetricQueueLength: queueLen,
			MetricAuthState:   authState,
		},
		histos: map[string]prometheus.Observer{
			MetricUploadLatency: latency,
		},
	}
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	log.Printf("INFO: %s%s", redact.Sensitive(msg), formatFields(fields))
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	if err != nil {
		log.Printf("ERROR: %s: %v%s", redact.Sensitive(msg), redactErr(err), formatFields(fields))
	}
}

func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	if err != nil {
		log.Printf("CRITICAL: %s: %v%s", redact.Sensitive(msg), redactErr(err), formatFields(fields))
	}
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func formatFields(fields []ports.Field) string {
	out := ""
	for _, f := range fields {
		out += " " + f.Key + "=" + redact.Sensitive(toString(f.Value))
	}
	return out
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func redactErr(err error) string {
	return redact.Sensitive(err.Error())
}

var _ ports.Observability = (*PromObs)(nil)
