package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/balintmendlik/cutroom/internal/api"
	"github.com/balintmendlik/cutroom/internal/audioviz"
	"github.com/balintmendlik/cutroom/internal/config"
	crlog "github.com/balintmendlik/cutroom/internal/log"
	"github.com/balintmendlik/cutroom/internal/render"
	"github.com/balintmendlik/cutroom/internal/storage"
	"github.com/balintmendlik/cutroom/internal/telemetry"
	"github.com/balintmendlik/cutroom/internal/transcribe"
)

var (
	version   = "v0.3.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Config path: explicit via --config, otherwise auto-load
	// ${CUTROOM_DATA}/config.yaml if it exists.
	effectiveConfigPath := strings.TrimSpace(*configPath)
	if effectiveConfigPath == "" {
		dataDir := strings.TrimSpace(config.ParseString("CUTROOM_DATA", ""))
		if dataDir != "" {
			autoPath := filepath.Join(dataDir, "config.yaml")
			if _, err := os.Stat(autoPath); err == nil {
				effectiveConfigPath = autoPath
			}
		}
	}

	loader := config.NewLoader(effectiveConfigPath, version)
	cfg, err := loader.Load()
	if err != nil {
		crlog.Configure(crlog.Config{Level: "info", Service: "cutroom", Version: version})
		bootLogger := crlog.WithComponent("daemon")
		bootLogger.Fatal().
			Err(err).
			Str("event", "config.load_failed").
			Str("config_path", effectiveConfigPath).
			Msg("failed to load configuration")
	}

	crlog.Configure(crlog.Config{
		Level:   cfg.LogLevel,
		Service: cfg.LogService,
		Version: cfg.Version,
	})
	logger := crlog.WithComponent("daemon")

	if effectiveConfigPath != "" {
		logger.Info().
			Str("event", "config.loaded").
			Str("source", "file").
			Str("path", effectiveConfigPath).
			Msg("loaded configuration from file")
	} else {
		logger.Info().
			Str("event", "config.loaded").
			Str("source", "env+defaults").
			Msg("loaded configuration from environment and defaults")
	}

	if cfg.ProviderURL == "" {
		logger.Fatal().
			Str("event", "config.invalid").
			Msg("render provider URL is not set (CUTROOM_PROVIDER_URL)")
	}

	logger.Info().
		Str("event", "startup").
		Str("version", version).
		Str("commit", commit).
		Str("build_date", buildDate).
		Str("addr", cfg.ListenAddr).
		Msg("starting cutroom")

	logger.Info().Msgf("→ Render provider: %s (region: %s)", cfg.ProviderURL, cfg.Region)
	logger.Info().Msgf("→ Site: %s (memory: %d MB, timeout: %ds)", cfg.SiteName, cfg.FunctionMemory, cfg.FunctionTimeout)
	if cfg.TranscribeURL != "" {
		logger.Info().Msgf("→ Transcription: %s (auth: %v)", cfg.TranscribeURL, cfg.TranscribeKey != "")
	} else {
		logger.Warn().Msg("→ Transcription: NOT configured, /api/transcribe will fail")
	}
	if cfg.StorageBaseURL != "" {
		logger.Info().Msgf("→ Storage: %s", cfg.StorageBaseURL)
	}

	tracing, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.TracingEnabled,
		ServiceName:    cfg.LogService,
		ServiceVersion: version,
		Exporter:       cfg.TracingExporter,
		Endpoint:       cfg.TracingEndpoint,
		SampleRate:     cfg.TracingSampleRate,
	})
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "tracing.init_failed").
			Msg("failed to initialise tracing")
	}
	defer func() {
		if err := tracing.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Str("event", "tracing.shutdown_failed").Msg("tracing shutdown failed")
		}
	}()
	if cfg.TracingEnabled {
		logger.Info().Msgf("→ Tracing: %s via %s (sample rate %.2f)", cfg.TracingEndpoint, cfg.TracingExporter, cfg.TracingSampleRate)
	}

	provider := render.NewHTTPProvider(cfg.ProviderURL, cfg.ProviderKey)
	orchestrator := render.New(provider, render.NewInfraCache(), render.Config{
		Region:             cfg.Region,
		SiteName:           cfg.SiteName,
		FunctionMemoryMB:   cfg.FunctionMemory,
		FunctionTimeoutSec: cfg.FunctionTimeout,
		PollInterval:       cfg.PollInterval,
	}, crlog.WithComponent("render"))

	transcriber := transcribe.NewClient(cfg.TranscribeURL, cfg.TranscribeKey)
	store := storage.NewClient(cfg.StorageBaseURL)
	fetch := func(ctx context.Context, url string) (io.ReadCloser, error) {
		return store.Fetch(ctx, url, nil)
	}

	visualizer := audioviz.NewManager(audioviz.NewFFmpegDecoder(), 30, crlog.WithComponent("audioviz"))

	server := api.NewServer(cfg, orchestrator, transcriber, visualizer, fetch)

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("event", "http.listen").Str("addr", cfg.ListenAddr).Msg("API server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info().Str("event", "shutdown.signal").Msg("shutdown signal received")
	case err := <-errCh:
		logger.Fatal().
			Err(err).
			Str("event", "http.failed").
			Msg("API server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Str("event", "shutdown.failed").Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server exiting")
}
