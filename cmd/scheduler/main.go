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

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/channel-agent/internal/agent/publisher"
	"github.com/channel-agent/internal/ai"
	"github.com/channel-agent/internal/config"
	"github.com/channel-agent/internal/generator"
	"github.com/channel-agent/internal/storage/sqlite"
	"github.com/channel-agent/internal/telegram"
	"github.com/channel-agent/internal/tracker"
	"github.com/channel-agent/pkg/logger"
	"github.com/channel-agent/pkg/ratelimit"
)

var (
	cfgFile string
	cfg     *config.Config
	log     *logger.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "channel-scheduler",
		Short: "Background scheduler for the channel agent",
		Long: `Generates a post at every configured cron window and publishes it
when auto publishing is on. Run it as a service.`,
		RunE:         runScheduler,
		SilenceUsage: true,
	}

	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file path")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runScheduler(cmd *cobra.Command, args []string) error {
	var err error

	// Load config
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	log = logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	log.Info().Msg("Starting channel scheduler")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := sqlite.New(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer repo.Close()

	if err := repo.Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	limiter := ratelimit.New(ratelimit.Rates{
		CompletionsPerMinute: cfg.RateLimit.CompletionsPerMinute,
		TelegramPerMinute:    cfg.RateLimit.TelegramPerMinute,
	})

	completer, err := ai.NewCompleter(cfg.AI, limiter, log)
	if err != nil {
		return err
	}

	gen, err := generator.New(completer, cfg.AI, cfg.Generator, cfg.Bonuses, log)
	if err != nil {
		return err
	}

	history, err := repo.RecentPosts(ctx, cfg.Generator.HistorySize)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	gen.Seed(history)

	agent := publisher.NewAgent(gen, repo, cfg.Corpus, log)

	if cfg.Scheduler.AutoPublish {
		if err := cfg.ValidateTelegram(); err != nil {
			return fmt.Errorf("auto publish needs telegram settings: %w", err)
		}
		ch, err := telegram.NewPublisher(cfg.Telegram, limiter, log)
		if err != nil {
			return err
		}
		agent.SetChannel(ch)
	}

	t, err := tracker.NewSheetsTracker(ctx, cfg.Tracker, log)
	if err != nil {
		return fmt.Errorf("failed to create tracker: %w", err)
	}
	if t != nil {
		if err := t.InitializeSheet(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to initialize tracker sheet")
		}
		agent.SetTracker(t)
	}

	// Start health check server
	srv := startHealthServer(cfg.Scheduler.HealthPort)

	// Create cron scheduler. Overlapping windows are skipped, not queued.
	cl := cronLogger{log.WithComponent("cron")}
	c := cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))

	for _, spec := range cfg.Scheduler.GenerateCrons {
		_, err = c.AddFunc(spec, func() {
			log.Info().Msg("Running scheduled generation")

			results, errs := agent.Run(ctx, publisher.RunOptions{
				Count:   1,
				Publish: cfg.Scheduler.AutoPublish,
			})
			for _, e := range errs {
				log.Error().Err(e).Msg("Scheduled generation failed")
			}
			for _, r := range results {
				log.Info().
					Uint("post_id", r.Post.ID).
					Bool("published", r.Published).
					Bool("fallback", r.Post.Fallback).
					Msg("Scheduled generation completed")
			}
		})
		if err != nil {
			return fmt.Errorf("failed to schedule generation job %q: %w", spec, err)
		}
		log.Info().Str("cron", spec).Msg("Generation job scheduled")
	}

	// Start scheduler
	c.Start()
	log.Info().Bool("auto_publish", cfg.Scheduler.AutoPublish).Msg("Scheduler started")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info().Msg("Shutting down scheduler")
	<-c.Stop().Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Health server shutdown failed")
	}

	return nil
}

// cronLogger adapts our logger for cron
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}

// startHealthServer serves /health for the hosting platform. PORT overrides
// scheduler.health_port.
func startHealthServer(port string) *http.Server {
	if p := os.Getenv("PORT"); p != "" {
		port = p
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Channel Agent Scheduler"))
	})

	srv := &http.Server{Addr: ":" + port, Handler: mux}

	go func() {
		log.Info().Str("port", port).Msg("Health check server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Health server failed")
		}
	}()

	return srv
}
