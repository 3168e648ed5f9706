package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Address         string        `yaml:"address"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		AllowedOrigins  []string      `yaml:"allowed_origins"`
	} `yaml:"server"`

	// Control is the websocket bridge to the browser player page.
	Control struct {
		Path           string        `yaml:"path"`
		PingInterval   time.Duration `yaml:"ping_interval"`
		PongTimeout    time.Duration `yaml:"pong_timeout"`
		WriteTimeout   time.Duration `yaml:"write_timeout"`
		MaxMessageSize int64         `yaml:"max_message_size"`
	} `yaml:"control"`

	Identity struct {
		PeerID string `yaml:"peer_id"` // generated when empty
		Name   string `yaml:"name"`
	} `yaml:"identity"`

	Session struct {
		JoinTimeout         time.Duration `yaml:"join_timeout"`
		PlayerRetryInterval time.Duration `yaml:"player_retry_interval"`
		PlayerRetryLimit    int           `yaml:"player_retry_limit"`
		HeartbeatInterval   time.Duration `yaml:"heartbeat_interval"`
		EventQueueSize      int           `yaml:"event_queue_size"`
	} `yaml:"session"`

	Playback struct {
		Player                 string        `yaml:"player"` // remote or simulated
		SeekThreshold          float64       `yaml:"seek_threshold"`
		HeartbeatDrift         float64       `yaml:"heartbeat_drift"`
		DurationTolerance      float64       `yaml:"duration_tolerance"`
		DurationBroadcastDelta float64       `yaml:"duration_broadcast_delta"`
		GestureWindow          time.Duration `yaml:"gesture_window"`
		LocalActionGrace       time.Duration `yaml:"local_action_grace"`
		WatchdogDelay          time.Duration `yaml:"watchdog_delay"`
		WatchdogRecheck        time.Duration `yaml:"watchdog_recheck"`
		InitialSyncDelay       time.Duration `yaml:"initial_sync_delay"`
		SimulatedDuration      time.Duration `yaml:"simulated_duration"`
	} `yaml:"playback"`

	WebRTC struct {
		ICEServers []struct {
			URLs       []string `yaml:"urls"`
			Username   string   `yaml:"username,omitempty"`
			Credential string   `yaml:"credential,omitempty"`
		} `yaml:"ice_servers"`
		ICECandidatePoolSize uint8 `yaml:"ice_candidate_pool_size"`
		PortRange            struct {
			Min uint16 `yaml:"min"`
			Max uint16 `yaml:"max"`
		} `yaml:"port_range"`
		DisconnectGrace     time.Duration `yaml:"disconnect_grace"`
		CandidateBatchDelay time.Duration `yaml:"candidate_batch_delay"`
		RestartCooldown     time.Duration `yaml:"restart_cooldown"`
		RestartLimit        int           `yaml:"restart_limit"`
	} `yaml:"webrtc"`

	Signaling struct {
		Backend  string        `yaml:"backend"` // redis or memory
		PartyTTL time.Duration `yaml:"party_ttl"`
	} `yaml:"signaling"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		PoolSize int    `yaml:"pool_size"`
	} `yaml:"redis"`

	Catalog struct {
		Enabled         bool          `yaml:"enabled"`
		APIKey          string        `yaml:"api_key"`
		SearchCooldown  time.Duration `yaml:"search_cooldown"`
		SearchResults   int64         `yaml:"search_results"`
		PlaylistResults int64         `yaml:"playlist_results"`
		SuggestionLimit int           `yaml:"suggestion_limit"`
		CacheTTL        time.Duration `yaml:"cache_ttl"`
		RequestTimeout  time.Duration `yaml:"request_timeout"`
	} `yaml:"catalog"`

	Invite struct {
		Secret  string        `yaml:"secret"`
		TTL     time.Duration `yaml:"ttl"`
		BaseURL string        `yaml:"base_url"`
	} `yaml:"invite"`

	Monitoring struct {
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
	} `yaml:"monitoring"`

	Tracing struct {
		Enabled        bool    `yaml:"enabled"`
		ServiceName    string  `yaml:"service_name"`
		JaegerEndpoint string  `yaml:"jaeger_endpoint"`
		SampleRate     float64 `yaml:"sample_rate"`
	} `yaml:"tracing"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`

	RateLimiting struct {
		Enabled           bool    `yaml:"enabled"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		Burst             int     `yaml:"burst"`
		MaxConcurrent     int     `yaml:"max_concurrent"` // global concurrent HTTP requests
	} `yaml:"rate_limiting"`
}

// Validate checks that configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	// Server
	if c.Server.Address == "" {
		return fmt.Errorf("server.address must not be empty")
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be > 0")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be > 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be > 0")
	}

	// Control
	if c.Control.Path == "" {
		return fmt.Errorf("control.path must not be empty")
	}
	if c.Control.PingInterval <= 0 {
		return fmt.Errorf("control.ping_interval must be > 0")
	}
	if c.Control.PongTimeout <= c.Control.PingInterval {
		return fmt.Errorf("control.pong_timeout must be > control.ping_interval")
	}
	if c.Control.MaxMessageSize <= 0 {
		return fmt.Errorf("control.max_message_size must be > 0")
	}

	// Session
	if c.Session.JoinTimeout <= 0 {
		return fmt.Errorf("session.join_timeout must be > 0")
	}
	if c.Session.HeartbeatInterval <= 0 {
		return fmt.Errorf("session.heartbeat_interval must be > 0")
	}
	if c.Session.PlayerRetryLimit < 0 {
		return fmt.Errorf("session.player_retry_limit must be >= 0")
	}
	if c.Session.EventQueueSize <= 0 {
		return fmt.Errorf("session.event_queue_size must be > 0")
	}

	// Playback
	switch c.Playback.Player {
	case "remote", "simulated":
	default:
		return fmt.Errorf("playback.player must be remote or simulated, got %q", c.Playback.Player)
	}
	if c.Playback.SeekThreshold <= 0 || c.Playback.HeartbeatDrift <= 0 {
		return fmt.Errorf("playback drift thresholds must be > 0")
	}

	// WebRTC
	if c.WebRTC.PortRange.Min > 0 || c.WebRTC.PortRange.Max > 0 {
		if c.WebRTC.PortRange.Min == 0 || c.WebRTC.PortRange.Max == 0 {
			return fmt.Errorf("webrtc.port_range.min and max must both be set when one is set")
		}
		if c.WebRTC.PortRange.Min >= c.WebRTC.PortRange.Max {
			return fmt.Errorf("webrtc.port_range.min must be < max")
		}
	}
	if c.WebRTC.RestartLimit < 0 {
		return fmt.Errorf("webrtc.restart_limit must be >= 0")
	}
	if c.WebRTC.RestartCooldown <= 0 {
		return fmt.Errorf("webrtc.restart_cooldown must be > 0")
	}

	// Signaling
	switch c.Signaling.Backend {
	case "memory":
	case "redis":
		if c.Redis.Address == "" {
			return fmt.Errorf("redis.address must not be empty when signaling.backend=redis")
		}
		if c.Redis.PoolSize <= 0 {
			return fmt.Errorf("redis.pool_size must be > 0 when signaling.backend=redis")
		}
	default:
		return fmt.Errorf("signaling.backend must be redis or memory, got %q", c.Signaling.Backend)
	}

	// Catalog
	if c.Catalog.Enabled && c.Catalog.APIKey == "" {
		return fmt.Errorf("catalog.api_key must not be empty when catalog.enabled=true")
	}

	// Invite
	if c.Invite.Secret == "" {
		return fmt.Errorf("invite.secret must not be empty")
	}
	if c.Invite.TTL <= 0 {
		return fmt.Errorf("invite.ttl must be > 0")
	}

	// Tracing
	if c.Tracing.Enabled && (c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1) {
		return fmt.Errorf("tracing.sample_rate must be within [0, 1]")
	}

	// Logging
	if c.Logging.Level == "" {
		return fmt.Errorf("logging.level must not be empty")
	}

	// Rate limiting
	if c.RateLimiting.Enabled {
		if c.RateLimiting.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate_limiting.requests_per_second must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.Burst <= 0 {
			return fmt.Errorf("rate_limiting.burst must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.MaxConcurrent < 0 {
			return fmt.Errorf("rate_limiting.max_concurrent must be >= 0 when rate limiting is enabled")
		}
	}

	return nil
}

// Load reads configuration from YAML file, applies defaults and env overrides.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case os.IsNotExist(err):
			// defaults only
		case err != nil:
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns configuration with sane defaults.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Server.Address = "127.0.0.1:8080"
	cfg.Server.ReadTimeout = 30 * time.Second
	cfg.Server.WriteTimeout = 30 * time.Second
	cfg.Server.ShutdownTimeout = 10 * time.Second
	cfg.Server.AllowedOrigins = []string{"http://localhost:8080", "http://127.0.0.1:8080"}

	cfg.Control.Path = "/ws"
	cfg.Control.PingInterval = 30 * time.Second
	cfg.Control.PongTimeout = 60 * time.Second
	cfg.Control.WriteTimeout = 10 * time.Second
	cfg.Control.MaxMessageSize = 64 * 1024

	cfg.Session.JoinTimeout = 15 * time.Second
	cfg.Session.PlayerRetryInterval = 500 * time.Millisecond
	cfg.Session.PlayerRetryLimit = 20
	cfg.Session.HeartbeatInterval = 1500 * time.Millisecond
	cfg.Session.EventQueueSize = 256

	cfg.Playback.Player = "remote"
	cfg.Playback.SeekThreshold = 1.5
	cfg.Playback.HeartbeatDrift = 3.5
	cfg.Playback.DurationTolerance = 2
	cfg.Playback.DurationBroadcastDelta = 1
	cfg.Playback.GestureWindow = 1500 * time.Millisecond
	cfg.Playback.LocalActionGrace = 3 * time.Second
	cfg.Playback.WatchdogDelay = 5 * time.Second
	cfg.Playback.WatchdogRecheck = 3 * time.Second
	cfg.Playback.InitialSyncDelay = time.Second
	cfg.Playback.SimulatedDuration = 4 * time.Minute

	cfg.WebRTC.ICECandidatePoolSize = 2
	cfg.WebRTC.DisconnectGrace = 2 * time.Second
	cfg.WebRTC.CandidateBatchDelay = 100 * time.Millisecond
	cfg.WebRTC.RestartCooldown = 10 * time.Second
	cfg.WebRTC.RestartLimit = 5

	cfg.Signaling.Backend = "redis"
	cfg.Signaling.PartyTTL = 24 * time.Hour

	cfg.Redis.Address = "localhost:6379"
	cfg.Redis.DB = 0
	cfg.Redis.PoolSize = 10

	cfg.Catalog.Enabled = false
	cfg.Catalog.SearchCooldown = 2 * time.Second
	cfg.Catalog.SearchResults = 20
	cfg.Catalog.PlaylistResults = 50
	cfg.Catalog.SuggestionLimit = 8
	cfg.Catalog.CacheTTL = 10 * time.Minute
	cfg.Catalog.RequestTimeout = 10 * time.Second

	cfg.Invite.Secret = "change-me-in-production"
	cfg.Invite.TTL = 24 * time.Hour
	cfg.Invite.BaseURL = "http://localhost:8080/"

	cfg.Monitoring.PrometheusEnabled = true

	cfg.Tracing.Enabled = false
	cfg.Tracing.ServiceName = "watchparty"
	cfg.Tracing.JaegerEndpoint = "http://localhost:14268/api/traces"
	cfg.Tracing.SampleRate = 1.0

	cfg.Logging.Level = "info"

	cfg.RateLimiting.Enabled = true
	cfg.RateLimiting.RequestsPerSecond = 20
	cfg.RateLimiting.Burst = 40
	cfg.RateLimiting.MaxConcurrent = 0

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if addr := os.Getenv("WATCHPARTY_SERVER_ADDRESS"); addr != "" {
		c.Server.Address = addr
	}
	if name := os.Getenv("WATCHPARTY_NAME"); name != "" {
		c.Identity.Name = name
	}
	if id := os.Getenv("WATCHPARTY_PEER_ID"); id != "" {
		c.Identity.PeerID = id
	}
	if backend := os.Getenv("WATCHPARTY_SIGNALING_BACKEND"); backend != "" {
		c.Signaling.Backend = backend
	}
	if addr := os.Getenv("WATCHPARTY_REDIS_ADDRESS"); addr != "" {
		c.Redis.Address = addr
	}
	if password := os.Getenv("WATCHPARTY_REDIS_PASSWORD"); password != "" {
		c.Redis.Password = password
	}
	if key := os.Getenv("WATCHPARTY_CATALOG_API_KEY"); key != "" {
		c.Catalog.APIKey = key
		c.Catalog.Enabled = true
	}
	if secret := os.Getenv("WATCHPARTY_INVITE_SECRET"); secret != "" {
		c.Invite.Secret = secret
	}
	if level := os.Getenv("WATCHPARTY_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if enabled, err := strconv.ParseBool(os.Getenv("WATCHPARTY_TRACING_ENABLED")); err == nil {
		c.Tracing.Enabled = enabled
	}
}
