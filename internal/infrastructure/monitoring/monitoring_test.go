package monitoring

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"watchparty/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusCollector_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheusCollector(reg)

	p.RecordMessage("TIME_UPDATE", "in")
	p.RecordMessage("TIME_UPDATE", "in")
	p.RecordMessage("NEW_VIDEO", "out")
	p.RecordLinkState(domain.ConnectionConnected)
	p.RecordICERestart("offered")
	p.RecordElection("promoted")
	p.RecordDriftCorrection("time_update")
	p.RecordPlayerError(domain.PlayerErrNotEmbedAlt)
	p.RecordCandidateBatch(domain.GuestCandidates, 3)
	p.SetQueueLength(4)

	assert.Equal(t, 2.0, testutil.ToFloat64(p.messagesTotal.WithLabelValues("TIME_UPDATE", "in")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.messagesTotal.WithLabelValues("NEW_VIDEO", "out")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.linkStatesTotal.WithLabelValues("connected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.playerErrorsTotal.WithLabelValues("150")))
	assert.Equal(t, 4.0, testutil.ToFloat64(p.queueLength))

	expected := `
# HELP watchparty_elections_total Host elections by outcome
# TYPE watchparty_elections_total counter
watchparty_elections_total{outcome="promoted"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "watchparty_elections_total"))

	count, err := testutil.GatherAndCount(reg, "watchparty_candidate_batch_size")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPrometheusCollector_SeparateRegistries(t *testing.T) {
	// a second collector on its own registry must not panic on duplicate registration
	assert.NotPanics(t, func() {
		NewPrometheusCollector(prometheus.NewRegistry())
		NewPrometheusCollector(prometheus.NewRegistry())
	})
}

func TestHealthChecker_CheckAll(t *testing.T) {
	h := NewHealthChecker()
	pageConnected := false

	h.AddPingCheck("signaling", func(ctx context.Context) error { return nil }, time.Second)
	h.AddConditionCheck("player_page", func() bool { return pageConnected }, "player page not connected")

	status := h.CheckAll(context.Background())
	assert.Equal(t, StatusDegraded, status.Status)
	assert.True(t, status.Ready())
	assert.Equal(t, StatusHealthy, status.Checks["signaling"])
	assert.Equal(t, "player page not connected", status.Checks["player_page"])

	pageConnected = true
	assert.Equal(t, StatusHealthy, h.CheckAll(context.Background()).Status)
}

func TestHealthChecker_CriticalFailure(t *testing.T) {
	h := NewHealthChecker()
	h.AddPingCheck("signaling", func(ctx context.Context) error {
		return errors.New("dial tcp 127.0.0.1:6379: connection refused")
	}, time.Second)
	h.AddConditionCheck("player_page", func() bool { return false }, "player page not connected")

	status := h.CheckAll(context.Background())
	assert.Equal(t, StatusUnhealthy, status.Status)
	assert.False(t, status.Ready())
}

func TestHealthChecker_Timeout(t *testing.T) {
	h := NewHealthChecker()
	h.AddPingCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, 10*time.Millisecond)

	status := h.CheckAll(context.Background())
	assert.Equal(t, StatusUnhealthy, status.Status)
	assert.Equal(t, context.DeadlineExceeded.Error(), status.Checks["slow"])
}
