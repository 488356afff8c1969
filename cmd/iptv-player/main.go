package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.etcd.io/bbolt"
	"golang.org/x/text/language"

	"github.com/alorle/iptv-player/cache"
	"github.com/alorle/iptv-player/circuitbreaker"
	"github.com/alorle/iptv-player/config"
	"github.com/alorle/iptv-player/fetcher"
	"github.com/alorle/iptv-player/internal/adapter/driven"
	"github.com/alorle/iptv-player/internal/adapter/driver"
	"github.com/alorle/iptv-player/internal/application"
	"github.com/alorle/iptv-player/internal/catalog"
	"github.com/alorle/iptv-player/internal/m3u"
	"github.com/alorle/iptv-player/internal/playback"
	"github.com/alorle/iptv-player/internal/progress"
	port "github.com/alorle/iptv-player/internal/port/driven"
	"github.com/alorle/iptv-player/internal/stream"
	"github.com/alorle/iptv-player/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Create structured logger
	logger := logging.New(cfg.Log.Level, os.Stdout)
	slog.SetDefault(logger)

	logger.Info("starting iptv-player",
		"addr", cfg.ListenAddr(),
		"db_path", cfg.DB.Path,
		"backend_url", cfg.Backend.BaseURL,
		"profile", cfg.Profile.Token != "",
		"log_level", cfg.Log.Level,
	)

	// Open BoltDB
	db, err := bbolt.Open(cfg.DB.Path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("error closing database: %v", err)
		}
	}()

	local, err := driven.NewKVBoltDBCache(db)
	if err != nil {
		log.Fatalf("failed to create local store: %v", err)
	}

	storage, err := cache.NewFileStorage(cfg.Playlist.CacheDir)
	if err != nil {
		log.Fatalf("failed to create playlist cache: %v", err)
	}

	// Create driven adapters
	var (
		library       port.LibraryStore
		progressStore port.ProgressStore
		backend       application.Pinger
	)
	if cfg.Backend.BaseURL != "" {
		breaker := circuitbreaker.New(circuitbreaker.Config{
			Name:             "user-data",
			FailureThreshold: cfg.Resilience.CBFailureThreshold,
			Timeout:          cfg.Resilience.CBTimeout,
			HalfOpenRequests: cfg.Resilience.CBHalfOpenRequests,
			IsFailure:        driven.IsUserDataOutage,
			Logger:           logger,
		})
		userData := driven.NewUserDataHTTPAdapter(cfg.Backend.BaseURL, cfg.Backend.Timeout, breaker, logger)
		library, progressStore, backend = userData, userData, userData
	}

	source := fetcher.New(fetcher.Config{
		Timeout:       cfg.Playlist.Timeout,
		ProxyTemplate: cfg.Playlist.ProxyTemplate,
		ProxyTimeout:  cfg.Playlist.ProxyTimeout,
		Storage:       storage,
		Logger:        logger,
	})

	mediaClient := &http.Client{Timeout: cfg.Playback.RelayTimeout}
	transports := port.TransportSet{
		stream.KindHLS:    driven.NewHLSTransport(mediaClient, cfg.Playback.TickInterval, logger),
		stream.KindDirect: driven.NewDirectTransport(mediaClient, cfg.Playback.TickInterval, logger),
	}

	// Create application services
	parser := m3u.NewParser(catalog.NewClassifier(cfg.Classifier.LiveBrands), cfg.Playlist.LogoBase)
	catalogService := application.NewCatalogService(source, parser, cfg.PlaylistURL(cfg.Profile.Token), language.Make(cfg.Catalog.Locale), logger)

	reconciler := progress.NewReconciler(local, progressStore, progressConfig(cfg), logger)
	proxy := stream.NewProxy(cfg.Playback.ProxyEndpoint)

	playbackService := application.NewPlaybackService(catalogService, library, cfg.Profile.Token, playback.Config{
		Policy:      playbackPolicy(cfg),
		Proxy:       proxy,
		Transports:  transports,
		Reconciler:  reconciler,
		LoadTimeout: cfg.Playback.LoadTimeout,
	}, logger)
	userDataService := application.NewUserDataService(catalogService, library, progressStore, local, reconciler, cfg.Profile.Token, logger)
	healthService := application.NewHealthService(local, backend, catalogService)

	// Create HTTP handlers
	relayClient := &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			ResponseHeaderTimeout: cfg.Playback.RelayTimeout,
		},
	}
	router := driver.NewRouter(driver.Handlers{
		Catalog:  driver.NewCatalogHTTPHandler(catalogService, cfg.Catalog.Window, cfg.Catalog.Increment),
		Playback: driver.NewPlaybackHTTPHandler(playbackService, cfg.HTTP.WriteTimeout, logger),
		UserData: driver.NewUserDataHTTPHandler(userDataService, catalogService),
		Health:   driver.NewHealthHTTPHandler(healthService),
		Playlist: driver.NewPlaylistHTTPHandler(catalogService, proxy),
		Proxy:    driver.NewProxyHTTPHandler(relayClient, "/proxy", cfg.HTTP.WriteTimeout, logger),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go refreshLoop(ctx, catalogService, cfg.Playlist.CacheTTL, logger)
	go healthLoop(ctx, healthService, cfg.Resilience.HealthCheckInterval, logger)

	// Create HTTP server. Event streams and relays set their own per-write
	// deadlines, so there is no global write timeout.
	server := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           logging.Middleware(logger)(router),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("http server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received, shutting down gracefully")

	// Close sessions first so event streams end and Shutdown does not wait on them.
	playbackService.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
}

func playbackPolicy(cfg *config.Config) playback.Policy {
	return playback.Policy{
		HLSMaxAttempts:    cfg.Playback.HLSMaxAttempts,
		DirectMaxAttempts: cfg.Playback.DirectMaxAttempts,
		HLSBackoff:        cfg.Playback.HLSBackoff,
		DirectBackoff:     cfg.Playback.DirectBackoff,
		SkipStep:          cfg.Playback.SkipStep,
	}
}

func progressConfig(cfg *config.Config) progress.Config {
	return progress.Config{
		EndMargin:     cfg.Progress.EndMargin,
		SaveInterval:  cfg.Progress.SaveInterval,
		RemoteTimeout: cfg.Progress.RemoteTimeout,
	}
}

// refreshLoop loads the catalog at startup and again every interval.
func refreshLoop(ctx context.Context, svc *application.CatalogService, interval time.Duration, logger *slog.Logger) {
	refresh := func() {
		if _, err := svc.Refresh(ctx); err != nil && ctx.Err() == nil {
			logger.Error("catalog refresh failed", "error", err)
		}
	}

	refresh()
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refresh()
		}
	}
}

// healthLoop logs degraded dependencies every interval.
func healthLoop(ctx context.Context, svc *application.HealthService, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			status := svc.Check(ctx)
			if status.Status != "ok" {
				logger.Warn("dependencies degraded",
					"db", status.DB.Status,
					"backend", status.Backend.Status,
					"catalog", status.Catalog.Status)
			}
		}
	}
}
