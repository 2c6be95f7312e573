// Package metrics implements ring.Recorder with Prometheus counters and
// gauges, and serves them over /metrics for seqringctl inspect --serve.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder implements ring.Recorder, publishing counts, sped-past events
// and consumer lag to a dedicated registry.
type Recorder struct {
	registry  *prometheus.Registry
	published prometheus.Counter
	spedPast  prometheus.Counter
	lag       prometheus.Gauge
}

// New builds a Recorder with its own registry, pre-registering the three
// counters/gauges it will update.
func New() *Recorder {
	registry := prometheus.NewRegistry()

	r := &Recorder{
		registry: registry,
		published: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "seqring_published_total",
			Help: "Total values published into the ring.",
		}),
		spedPast: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "seqring_sped_past_total",
			Help: "Total times a consumer was lapped by the producer.",
		}),
		lag: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "seqring_consumer_lag",
			Help: "Most recently observed consumer lag, in published counts.",
		}),
	}
	registry.MustRegister(r.published, r.spedPast, r.lag)
	return r
}

// Published implements ring.Recorder.
func (r *Recorder) Published() { r.published.Inc() }

// SpedPast implements ring.Recorder.
func (r *Recorder) SpedPast() { r.spedPast.Inc() }

// ConsumerLag implements ring.Recorder.
func (r *Recorder) ConsumerLag(lag uint64) { r.lag.Set(float64(lag)) }

// Server exposes a Recorder's registry over HTTP.
type Server struct {
	addr   string
	server *http.Server
}

// NewServer returns a Server that will listen on addr and serve path
// (typically "/metrics") from r's registry once Start is called.
func NewServer(addr, path string, r *Recorder) *Server {
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{EnableOpenMetrics: true}))
	return &Server{addr: addr, server: &http.Server{Addr: addr, Handler: mux}}
}

// Start runs the metrics HTTP server in a new goroutine. It returns
// immediately; errors other than a clean Shutdown are sent to errs.
func (s *Server) Start(errs chan<- error) {
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("metrics: serving %s: %w", s.addr, err)
		}
	}()
}

// Stop gracefully shuts the metrics server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
