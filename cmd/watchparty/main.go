package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"watchparty/internal/core/domain"
	"watchparty/internal/core/ports"
	"watchparty/internal/core/services"
	httphandlers "watchparty/internal/handlers/http"
	"watchparty/internal/infrastructure/catalog"
	"watchparty/internal/infrastructure/control"
	"watchparty/internal/infrastructure/middleware"
	"watchparty/internal/infrastructure/monitoring"
	"watchparty/internal/infrastructure/player"
	"watchparty/internal/infrastructure/repositories"
	webrtcinfra "watchparty/internal/infrastructure/webrtc"
	"watchparty/pkg/clock"
	"watchparty/pkg/config"
	"watchparty/pkg/logger"
	"watchparty/pkg/tracing"
	"watchparty/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/pion/webrtc/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

type flags struct {
	configPath string
	name       string
	party      string
	invite     string
	player     string
	address    string
	logLevel   string
}

func parseFlags() flags {
	var f flags
	pflag.StringVarP(&f.configPath, "config", "c", "configs/config.yaml", "Path to the YAML config file")
	pflag.StringVarP(&f.name, "name", "n", "", "Display name shown to other participants")
	pflag.StringVarP(&f.party, "party", "p", "", "Party ID to join on startup")
	pflag.StringVar(&f.invite, "invite", "", "Invite token for --party")
	pflag.StringVar(&f.player, "player", "", "Player backend: remote or simulated")
	pflag.StringVarP(&f.address, "address", "a", "", "HTTP listen address")
	pflag.StringVar(&f.logLevel, "log-level", "", "Logging level")
	pflag.Parse()
	return f
}

// apply overrides config values with the flags that were set.
func (f flags) apply(cfg *config.Config) error {
	if f.name != "" {
		cfg.Identity.Name = f.name
	}
	if f.player != "" {
		cfg.Playback.Player = f.player
	}
	if f.address != "" {
		cfg.Server.Address = f.address
	}
	if f.logLevel != "" {
		cfg.Logging.Level = f.logLevel
	}
	return cfg.Validate()
}

func main() {
	startTime := time.Now()
	opts := parseFlags()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := opts.apply(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "invalid flags: %v\n", err)
		os.Exit(1)
	}

	zapLogger := logger.New(cfg.Logging.Level)
	defer zapLogger.Sync()
	log := zapLogger.Sugar()

	tp, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		JaegerURL:   cfg.Tracing.JaegerEndpoint,
		Environment: "local",
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		log.Fatalw("failed to initialize tracing", "error", err)
	}

	clk := clock.New()
	self := domain.PeerID(cfg.Identity.PeerID)
	if self == "" {
		self = domain.PeerID(utils.NewPeerID())
	}
	log = log.With("peer_id", self)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Signaling store
	repoFactory := repositories.NewRepositoryFactory(cfg, string(self), clk, log)
	store := repoFactory.CreateSignalingStore()

	// Monitoring
	var metrics ports.MetricsRecorder = ports.NopMetrics
	if cfg.Monitoring.PrometheusEnabled {
		metrics = monitoring.NewPrometheusCollector(prometheus.DefaultRegisterer)
	}

	links := webrtcinfra.NewConnectionManager(webrtcConfig(cfg), store, clk, metrics, log.Named("webrtc"))

	bridge := control.NewBridge(control.Config{
		PingInterval:   cfg.Control.PingInterval,
		PongTimeout:    cfg.Control.PongTimeout,
		WriteTimeout:   cfg.Control.WriteTimeout,
		MaxMessageSize: cfg.Control.MaxMessageSize,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, log.Named("control"))

	catalogService := newCatalogService(ctx, cfg, clk, metrics, log)

	invites := services.NewInviteService(cfg.Invite.Secret, cfg.Invite.TTL, cfg.Invite.BaseURL, clk)
	loop := services.NewEventLoop(cfg.Session.EventQueueSize, log.Named("loop"))

	var (
		localPlayer interface {
			ports.Player
			SetEvents(ports.PlayerEvents)
		}
		simulated *player.Simulated
	)
	switch cfg.Playback.Player {
	case "simulated":
		simulated = player.NewSimulated(player.SimulatedConfig{
			Duration:    cfg.Playback.SimulatedDuration,
			BufferDelay: player.DefaultSimulatedConfig().BufferDelay,
		}, clk)
		localPlayer = simulated
	default:
		remote := player.NewRemote(bridge, clk, log.Named("player"))
		bridge.SetHandler(remote)
		localPlayer = remote
	}

	session := services.NewSessionService(services.SessionConfig{
		JoinTimeout:         cfg.Session.JoinTimeout,
		PlayerRetryInterval: cfg.Session.PlayerRetryInterval,
		PlayerRetryLimit:    cfg.Session.PlayerRetryLimit,
		HeartbeatInterval:   cfg.Session.HeartbeatInterval,
	}, tuning(cfg), services.SessionDeps{
		Self:       self,
		Store:      store,
		Links:      links,
		Player:     localPlayer,
		Catalog:    catalogService,
		Invites:    invites,
		Notifier:   bridge,
		Metrics:    metrics,
		Clock:      clk,
		Dispatcher: loop,
		Logger:     log.Named("session"),
	})
	localPlayer.SetEvents(session)

	session.Start(ctx)
	go loop.Run(ctx)
	if simulated != nil {
		simulated.Start()
	}

	// Health checks
	health := monitoring.NewHealthChecker()
	health.AddPingCheck("signaling_"+repoFactory.Backend(), repoFactory.HealthCheck, 2*time.Second)
	if simulated == nil {
		health.AddConditionCheck("player_page", bridge.Connected, "player page not connected")
	}

	// Configure Gin
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.RequestLogger(logger.NewContextLogger(zapLogger.Named("http"))))
	if cfg.Tracing.Enabled {
		router.Use(middleware.TracingMiddleware())
	}
	router.Use(middleware.NewHTTPRateLimitMiddleware(cfg))
	router.Use(middleware.ErrorHandlerMiddleware(log))

	partyHandler := httphandlers.NewPartyHandler(session, catalogService)
	partyHandler.SetupRoutes(router)

	router.GET(cfg.Control.Path, gin.WrapF(bridge.HandleWebSocket))

	router.GET("/health", func(c *gin.Context) {
		status := health.CheckAll(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{
			"status":    status.Status,
			"timestamp": status.Timestamp,
			"uptime":    utils.FormatDuration(time.Since(startTime)),
			"checks":    status.Checks,
		})
	})

	router.GET("/ready", func(c *gin.Context) {
		status := health.CheckAll(c.Request.Context())
		code := http.StatusOK
		if !status.Ready() {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, status)
	})

	if cfg.Monitoring.PrometheusEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
		log.Info("Prometheus metrics enabled")
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infow("Starting watchparty peer", "address", cfg.Server.Address, "signaling", repoFactory.Backend(), "player", cfg.Playback.Player)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	if cfg.Identity.Name != "" || opts.party != "" {
		go autoJoin(ctx, session, cfg.Identity.Name, domain.PartyID(opts.party), opts.invite, log)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Errorw("Server failed", "error", err)
	case sig := <-sigChan:
		log.Infow("Received shutdown signal", "signal", sig)
	}

	log.Info("Shutting down watchparty peer...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Tell the host we are leaving while the links are still up.
	if err := session.Leave(shutdownCtx); err != nil && !errors.Is(err, domain.ErrNotInParty) {
		log.Warnw("Error leaving party", "error", err)
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error during server shutdown", "error", err)
		if closeErr := srv.Close(); closeErr != nil {
			log.Errorw("Error force closing server", "error", closeErr)
		}
	} else {
		log.Info("Server shutdown gracefully")
	}

	cancel()
	links.Close()

	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error shutting down tracer", "error", err)
	}
	if err := repoFactory.Close(); err != nil {
		log.Errorw("Error closing repository factory", "error", err)
	}

	log.Info("watchparty peer stopped")
}

// autoJoin applies the startup name and joins the party named on the command line.
func autoJoin(ctx context.Context, session ports.PartyService, name string, partyID domain.PartyID, invite string, log *zap.SugaredLogger) {
	if name != "" {
		if err := session.SetName(ctx, name); err != nil {
			log.Warnw("Invalid startup name", "error", err)
			return
		}
	}
	if partyID == "" {
		return
	}
	if err := session.JoinParty(ctx, partyID, invite); err != nil {
		log.Errorw("Failed to join party", "party_id", partyID, "error", err)
	}
}

func newCatalogService(ctx context.Context, cfg *config.Config, clk clock.Clock, metrics ports.MetricsRecorder, log *zap.SugaredLogger) ports.CatalogService {
	if !cfg.Catalog.Enabled {
		log.Info("Video catalog disabled")
		return nil
	}
	yt, err := catalog.NewYouTube(ctx, catalog.Config{
		APIKey:          cfg.Catalog.APIKey,
		SearchResults:   cfg.Catalog.SearchResults,
		PlaylistResults: cfg.Catalog.PlaylistResults,
		CacheTTL:        cfg.Catalog.CacheTTL,
		RequestTimeout:  cfg.Catalog.RequestTimeout,
	}, clk, log.Named("catalog"))
	if err != nil {
		log.Warnw("Video catalog unavailable", "error", err)
		return nil
	}
	return services.NewCatalogService(yt, cfg.Catalog.SearchCooldown, cfg.Catalog.SuggestionLimit, metrics, log.Named("catalog"))
}

func webrtcConfig(cfg *config.Config) webrtcinfra.Config {
	wc := webrtcinfra.DefaultConfig()
	if len(cfg.WebRTC.ICEServers) > 0 {
		wc.ICEServers = nil
		for _, s := range cfg.WebRTC.ICEServers {
			wc.ICEServers = append(wc.ICEServers, webrtc.ICEServer{
				URLs:       s.URLs,
				Username:   s.Username,
				Credential: s.Credential,
			})
		}
	}
	wc.ICECandidatePoolSize = cfg.WebRTC.ICECandidatePoolSize
	wc.PortRange.Min = cfg.WebRTC.PortRange.Min
	wc.PortRange.Max = cfg.WebRTC.PortRange.Max
	wc.DisconnectGrace = cfg.WebRTC.DisconnectGrace
	wc.CandidateBatchDelay = cfg.WebRTC.CandidateBatchDelay
	wc.RestartCooldown = cfg.WebRTC.RestartCooldown
	wc.RestartLimit = cfg.WebRTC.RestartLimit
	return wc
}

func tuning(cfg *config.Config) services.Tuning {
	t := services.DefaultTuning()
	t.SeekThreshold = cfg.Playback.SeekThreshold
	t.HeartbeatDrift = cfg.Playback.HeartbeatDrift
	t.DurationTolerance = cfg.Playback.DurationTolerance
	t.DurationBroadcastDelta = cfg.Playback.DurationBroadcastDelta
	t.GestureWindow = cfg.Playback.GestureWindow
	t.LocalActionGrace = cfg.Playback.LocalActionGrace
	t.WatchdogDelay = cfg.Playback.WatchdogDelay
	t.WatchdogRecheck = cfg.Playback.WatchdogRecheck
	t.InitialSyncDelay = cfg.Playback.InitialSyncDelay
	return t
}
