package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"watchparty/internal/core/domain"
	"watchparty/pkg/clock"
	"watchparty/pkg/config"
)

func TestRepositoryFactory_MemoryBackend(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Signaling.Backend = "memory"

	f := NewRepositoryFactory(cfg, "test", clock.New(), zap.NewNop().Sugar())
	defer f.Close()

	assert.Equal(t, "memory", f.Backend())
	assert.NoError(t, f.HealthCheck(context.Background()))

	store := f.CreateSignalingStore()
	require.NoError(t, store.CreateParty(context.Background(), &domain.Party{ID: "p1", HostID: "h"}))
}

func TestRepositoryFactory_FallsBackWhenRedisIsDown(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for a dial timeout")
	}
	cfg := config.DefaultConfig()
	cfg.Signaling.Backend = "redis"
	// reserved port, nothing listens there
	cfg.Redis.Address = "127.0.0.1:1"

	start := time.Now()
	f := NewRepositoryFactory(cfg, "test", clock.New(), zap.NewNop().Sugar())
	defer f.Close()

	assert.Equal(t, "memory", f.Backend())
	assert.Less(t, time.Since(start), 10*time.Second)
}
