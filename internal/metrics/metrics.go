package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "interlace"

// Metrics holds the collectors for one process. Each instance has its own
// registry so tests can create as many as they like.
type Metrics struct {
	Registry *prometheus.Registry

	Renders       prometheus.Counter
	RenderSeconds prometheus.Histogram
	LoadFailures  prometheus.Counter
	StreamClients prometheus.Gauge
	Phase         *prometheus.GaugeVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Renders: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renders_total",
			Help:      "Completed interlace renders.",
		}),
		RenderSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_seconds",
			Help:      "Time spent drawing one interlace frame.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		LoadFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "load_failures_total",
			Help:      "Image load failures and timeouts.",
		}),
		StreamClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_clients",
			Help:      "Connected event stream clients.",
		}),
		Phase: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "phase",
			Help:      "1 for the current game phase, 0 otherwise.",
		}, []string{"phase"}),
	}
	m.Registry.MustRegister(
		m.Renders,
		m.RenderSeconds,
		m.LoadFailures,
		m.StreamClients,
		m.Phase,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveRender(d time.Duration) {
	if m == nil {
		return
	}
	m.Renders.Inc()
	m.RenderSeconds.Observe(d.Seconds())
}

func (m *Metrics) LoadFailed() {
	if m == nil {
		return
	}
	m.LoadFailures.Inc()
}

func (m *Metrics) ClientConnected() {
	if m == nil {
		return
	}
	m.StreamClients.Inc()
}

func (m *Metrics) ClientDisconnected() {
	if m == nil {
		return
	}
	m.StreamClients.Dec()
}

// SetPhase marks current as the active phase out of all.
func (m *Metrics) SetPhase(current string, all []string) {
	if m == nil {
		return
	}
	for _, name := range all {
		value := 0.0
		if name == current {
			value = 1
		}
		m.Phase.WithLabelValues(name).Set(value)
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
