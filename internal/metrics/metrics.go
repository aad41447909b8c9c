// Package metrics provides Prometheus metrics for the rbrowse client.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the client's collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	framesTotal         *prometheus.CounterVec
	decodeFailuresTotal *prometheus.CounterVec
	reconnectsTotal     prometheus.Counter
	staleListingsTotal  prometheus.Counter
	connectionState     *prometheus.GaugeVec
	transferBytesTotal  *prometheus.CounterVec
	transferDuration    *prometheus.HistogramVec
}

// States lists the connection state label values.
var States = []string{"connecting", "connected", "disconnected", "errored"}

// New registers the client collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		framesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rbrowse_frames_received_total",
				Help: "Total frames received from the server by kind",
			},
			[]string{"kind"},
		),
		decodeFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rbrowse_frame_decode_failures_total",
				Help: "Total frames dropped because their payload could not be decoded",
			},
			[]string{"prefix"},
		),
		reconnectsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "rbrowse_reconnects_total",
				Help: "Total reconnect attempts after a dropped connection",
			},
		),
		staleListingsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "rbrowse_stale_listings_dropped_total",
				Help: "Total listing responses ignored because the user had navigated away",
			},
		),
		connectionState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "rbrowse_connection_state",
				Help: "1 for the current connection state, 0 otherwise",
			},
			[]string{"state"},
		),
		transferBytesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rbrowse_transfer_bytes_total",
				Help: "Total bytes moved by downloads, previews and uploads",
			},
			[]string{"op"},
		),
		transferDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rbrowse_transfer_duration_seconds",
				Help:    "Transfer duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op", "status"},
		),
	}
}

// RecordFrame counts a decoded frame.
func (m *Metrics) RecordFrame(kind string) {
	if m == nil {
		return
	}
	m.framesTotal.WithLabelValues(kind).Inc()
}

// RecordDecodeFailure counts a dropped frame.
func (m *Metrics) RecordDecodeFailure(prefix string) {
	if m == nil {
		return
	}
	m.decodeFailuresTotal.WithLabelValues(prefix).Inc()
}

// RecordReconnect counts a reconnect attempt.
func (m *Metrics) RecordReconnect() {
	if m == nil {
		return
	}
	m.reconnectsTotal.Inc()
}

// RecordStaleListing counts a listing that was not applied.
func (m *Metrics) RecordStaleListing() {
	if m == nil {
		return
	}
	m.staleListingsTotal.Inc()
}

// SetConnectionState marks state as current.
func (m *Metrics) SetConnectionState(state string) {
	if m == nil {
		return
	}
	for _, s := range States {
		v := 0.0
		if s == state {
			v = 1
		}
		m.connectionState.WithLabelValues(s).Set(v)
	}
}

// RecordTransfer records one download, preview or upload.
func (m *Metrics) RecordTransfer(op string, bytes int64, duration time.Duration, success bool) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "error"
	}
	m.transferBytesTotal.WithLabelValues(op).Add(float64(bytes))
	m.transferDuration.WithLabelValues(op, status).Observe(duration.Seconds())
}

// Serve exposes gatherer on addr at /metrics until ctx is done.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
