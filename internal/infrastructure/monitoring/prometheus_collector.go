package monitoring

import (
	"strconv"

	"watchparty/internal/core/domain"
	"watchparty/internal/core/ports"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusCollector implements ports.MetricsRecorder.
type PrometheusCollector struct {
	messagesTotal     *prometheus.CounterVec
	decodeErrorsTotal prometheus.Counter
	linkStatesTotal   *prometheus.CounterVec
	iceRestartsTotal  *prometheus.CounterVec
	electionsTotal    *prometheus.CounterVec
	driftCorrections  *prometheus.CounterVec
	signalingErrors   *prometheus.CounterVec
	playerErrorsTotal *prometheus.CounterVec
	searchesTotal     *prometheus.CounterVec

	candidateBatchSize *prometheus.HistogramVec

	queueLength prometheus.Gauge
}

var _ ports.MetricsRecorder = (*PrometheusCollector)(nil)

// NewPrometheusCollector registers the watchparty metrics with reg.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	factory := promauto.With(reg)
	return &PrometheusCollector{
		messagesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "watchparty_messages_total",
			Help: "Protocol messages by kind and direction",
		}, []string{"kind", "direction"}),

		decodeErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "watchparty_decode_errors_total",
			Help: "Inbound messages that could not be decoded",
		}),

		linkStatesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "watchparty_link_state_changes_total",
			Help: "Peer link connection state transitions",
		}, []string{"state"}),

		iceRestartsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "watchparty_ice_restarts_total",
			Help: "ICE restart attempts by outcome",
		}, []string{"outcome"}),

		electionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "watchparty_elections_total",
			Help: "Host elections by outcome",
		}, []string{"outcome"}),

		driftCorrections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "watchparty_drift_corrections_total",
			Help: "Seeks issued to correct playback drift",
		}, []string{"source"}),

		signalingErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "watchparty_signaling_errors_total",
			Help: "Failed signaling store operations",
		}, []string{"op"}),

		playerErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "watchparty_player_errors_total",
			Help: "Embedded player errors by code",
		}, []string{"code"}),

		searchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "watchparty_catalog_searches_total",
			Help: "Catalog searches by outcome",
		}, []string{"outcome"}),

		candidateBatchSize: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "watchparty_candidate_batch_size",
			Help:    "ICE candidates written per signaling store batch",
			Buckets: []float64{1, 2, 4, 8, 16, 32},
		}, []string{"direction"}),

		queueLength: factory.NewGauge(prometheus.GaugeOpts{
			Name: "watchparty_queue_length",
			Help: "Entries in the local copy of the party queue",
		}),
	}
}

func (p *PrometheusCollector) RecordMessage(kind string, direction string) {
	p.messagesTotal.WithLabelValues(kind, direction).Inc()
}

func (p *PrometheusCollector) RecordDecodeError() {
	p.decodeErrorsTotal.Inc()
}

func (p *PrometheusCollector) RecordLinkState(state domain.ConnectionState) {
	p.linkStatesTotal.WithLabelValues(string(state)).Inc()
}

func (p *PrometheusCollector) RecordICERestart(outcome string) {
	p.iceRestartsTotal.WithLabelValues(outcome).Inc()
}

func (p *PrometheusCollector) RecordElection(outcome string) {
	p.electionsTotal.WithLabelValues(outcome).Inc()
}

func (p *PrometheusCollector) RecordDriftCorrection(source string) {
	p.driftCorrections.WithLabelValues(source).Inc()
}

func (p *PrometheusCollector) RecordCandidateBatch(direction domain.CandidateDirection, size int) {
	p.candidateBatchSize.WithLabelValues(string(direction)).Observe(float64(size))
}

func (p *PrometheusCollector) RecordSignalingError(op string) {
	p.signalingErrors.WithLabelValues(op).Inc()
}

func (p *PrometheusCollector) RecordPlayerError(code domain.PlayerErrorCode) {
	p.playerErrorsTotal.WithLabelValues(strconv.Itoa(int(code))).Inc()
}

func (p *PrometheusCollector) SetQueueLength(n int) {
	p.queueLength.Set(float64(n))
}

func (p *PrometheusCollector) RecordSearch(outcome string) {
	p.searchesTotal.WithLabelValues(outcome).Inc()
}
