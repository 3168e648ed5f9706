package repositories

import (
	"context"

	"watchparty/internal/core/ports"
	"watchparty/internal/infrastructure/distributed"
	"watchparty/internal/infrastructure/reliability"
	"watchparty/internal/infrastructure/repositories/memory"
	redisrepo "watchparty/internal/infrastructure/repositories/redis"
	"watchparty/pkg/circuitbreaker"
	"watchparty/pkg/clock"
	"watchparty/pkg/config"
	"watchparty/pkg/retry"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RepositoryFactory creates the signaling store, falling back to memory
// when Redis is unreachable.
type RepositoryFactory struct {
	useRedis    bool
	redisClient *redis.Client
	instanceID  string
	clock       clock.Clock
	logger      *zap.SugaredLogger
	cfg         *config.Config
}

// NewRepositoryFactory creates a new repository factory
func NewRepositoryFactory(cfg *config.Config, instanceID string, clk clock.Clock, logger *zap.SugaredLogger) *RepositoryFactory {
	factory := &RepositoryFactory{
		useRedis:   cfg.Signaling.Backend == "redis",
		instanceID: instanceID,
		clock:      clk,
		logger:     logger,
		cfg:        cfg,
	}

	if factory.useRedis {
		client, err := redisrepo.NewRedisClient(
			cfg.Redis.Address,
			cfg.Redis.Password,
			cfg.Redis.DB,
			cfg.Redis.PoolSize,
			logger,
		)
		if err != nil {
			logger.Warnw("failed to connect to Redis, falling back to memory signaling; only peers in this process can join",
				"error", err,
			)
			factory.useRedis = false
		} else {
			factory.redisClient = client
			logger.Info("using Redis signaling store")
		}
	}

	if !factory.useRedis {
		logger.Info("using memory signaling store")
	}

	return factory
}

// CreateSignalingStore creates a signaling store (Redis or memory with fallback)
func (f *RepositoryFactory) CreateSignalingStore() ports.SignalingStore {
	if f.useRedis && f.redisClient != nil {
		bus := distributed.NewEventBus(f.redisClient, f.instanceID, f.logger)
		store := redisrepo.NewRedisSignalingStore(f.redisClient, bus, f.clock, f.cfg.Signaling.PartyTTL, f.logger)
		return reliability.NewSignalingStore(store, retry.DefaultConfig(), circuitbreaker.DefaultConfig(), f.clock, f.logger)
	}
	return memory.NewMemorySignalingStore(f.clock)
}

// Backend names the store in use.
func (f *RepositoryFactory) Backend() string {
	if f.useRedis && f.redisClient != nil {
		return "redis"
	}
	return "memory"
}

// Close closes Redis connection if used
func (f *RepositoryFactory) Close() error {
	if f.redisClient != nil {
		return redisrepo.CloseRedisClient(f.redisClient)
	}
	return nil
}

// HealthCheck checks Redis connection health
func (f *RepositoryFactory) HealthCheck(ctx context.Context) error {
	if f.useRedis && f.redisClient != nil {
		return f.redisClient.Ping(ctx).Err()
	}
	return nil
}
