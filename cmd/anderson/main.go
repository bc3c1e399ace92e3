package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MikeSquared-Agency/anderson/internal/api"
	"github.com/MikeSquared-Agency/anderson/internal/backfill"
	"github.com/MikeSquared-Agency/anderson/internal/config"
	"github.com/MikeSquared-Agency/anderson/internal/describe"
	"github.com/MikeSquared-Agency/anderson/internal/hermes"
	"github.com/MikeSquared-Agency/anderson/internal/processor"
	"github.com/MikeSquared-Agency/anderson/internal/slack"
	"github.com/MikeSquared-Agency/anderson/internal/store"
)

const version = "0.3.0"

func main() {
	backfillMode := flag.Bool("backfill", false, "analyze a VOD library and exit")
	libraryDir := flag.String("library", "", "VOD library directory (default: VOD_LIBRARY_DIR)")
	profilePath := flag.String("profile", "", "analysis profile file (default: ANDERSON_PROFILE)")
	dryRun := flag.Bool("dry-run", false, "analyze without writing runs or exports")
	limit := flag.Int("limit", 0, "max VODs to process (0 = all)")
	flag.Parse()

	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *backfillMode {
		if err := runBackfill(ctx, cfg, *libraryDir, *profilePath, *dryRun, *limit); err != nil {
			slog.Error("backfill failed", "error", err)
			os.Exit(1)
		}
		return
	}

	slog.Info("anderson starting", "port", cfg.Port)

	// Analysis profile
	engCfg, profileName, err := config.LoadProfile(cfg.ProfilePath)
	if err != nil {
		slog.Error("invalid analysis profile", "path", cfg.ProfilePath, "error", err)
		os.Exit(1)
	}
	slog.Info("analysis profile loaded", "profile", profileName, "window_ms", engCfg.WindowMS, "top_k", engCfg.TopK)

	// Database (optional — anderson can analyze without persistence)
	var db *store.Store
	if cfg.DatabaseURL != "" {
		db, err = store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		slog.Info("database connected")
	} else {
		slog.Warn("DATABASE_URL not set — runs will not be persisted")
	}

	// NATS/Hermes
	hermesClient, err := hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
	if err != nil {
		slog.Error("failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer hermesClient.Close()
	slog.Info("NATS connected", "url", cfg.NatsURL)

	// Slack poster (optional — anderson works without Slack, just no review loop)
	var slackPoster *slack.Poster
	if cfg.SlackBotToken != "" && cfg.SlackChannel != "" {
		slackPoster = slack.NewPoster(cfg.SlackBotToken, cfg.SlackChannel, slog.Default())
		slog.Info("slack poster ready", "channel", cfg.SlackChannel)
	} else {
		slog.Warn("slack not configured — running without review loop")
	}

	// Describer (optional — segments go untitled without a model)
	var describer *describe.Describer
	if cfg.AnthropicAPIKey != "" {
		llm := describe.NewClient(cfg.AnthropicAPIKey, cfg.TitleModel)
		describer = describe.New(llm, slog.Default())
		slog.Info("describer ready", "model", cfg.TitleModel)
	} else {
		slog.Warn("ANTHROPIC_API_KEY not set — segments will not be titled")
	}

	// Processor — the main pipeline
	proc := processor.New(db, hermesClient, slackPoster, describer, engCfg, profileName, cfg.VODLibraryDir, slog.Default())

	// Subscribe to recording and review events
	if err := hermesClient.Subscribe(hermes.SubjectRecordingStored, proc.HandleRecordingStored); err != nil {
		slog.Error("failed to subscribe to recording events", "error", err)
		os.Exit(1)
	}
	if err := hermesClient.Subscribe(hermes.SubjectAnalyzeRequest, proc.HandleAnalyzeRequested); err != nil {
		slog.Error("failed to subscribe to analyze requests", "error", err)
		os.Exit(1)
	}
	if err := hermesClient.Subscribe(hermes.SubjectSlackReaction, proc.HandleReaction); err != nil {
		slog.Error("failed to subscribe to slack reactions", "error", err)
		os.Exit(1)
	}

	// HTTP API
	var apiStore api.Store
	if db != nil {
		apiStore = db
	}
	srv := api.NewServer(cfg.Port, cfg.APIToken, apiStore, proc, slog.Default())
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	// Announce registration
	if err := hermesClient.Publish(hermes.SubjectAgentRegistered, hermes.AgentRegistered{
		Agent:     "anderson",
		Version:   version,
		Timestamp: time.Now().UTC(),
	}); err != nil {
		slog.Warn("failed to publish registration", "error", err)
	}

	slog.Info("anderson ready", "port", cfg.Port, "profile", profileName)

	// Graceful shutdown
	<-ctx.Done()
	slog.Info("shutting down")
	slog.Info("anderson stopped")
}

// runBackfill analyzes a VOD library in bulk and exits. The store is
// optional; without one the per-VOD segments.json exports are the only
// output.
func runBackfill(ctx context.Context, cfg config.Config, libraryDir, profilePath string, dryRun bool, limit int) error {
	if libraryDir == "" {
		libraryDir = cfg.VODLibraryDir
	}
	if libraryDir == "" {
		return fmt.Errorf("no library: pass -library or set VOD_LIBRARY_DIR")
	}
	if profilePath == "" {
		profilePath = cfg.ProfilePath
	}

	var db *store.Store
	if cfg.DatabaseURL != "" {
		var err error
		db, err = store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer db.Close()
		slog.Info("database connected")
	} else {
		slog.Warn("DATABASE_URL not set — backfill will only write segments.json exports")
	}

	runner, err := backfill.NewRunner(backfill.Config{
		LibraryDir:   libraryDir,
		ProfilePath:  profilePath,
		DryRun:       dryRun,
		Limit:        limit,
		SlackToken:   cfg.SlackBotToken,
		SlackChannel: cfg.SlackChannel,
	}, db, slog.Default())
	if err != nil {
		return err
	}

	return runner.Run(ctx)
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
