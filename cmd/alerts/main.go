// Command alerts is the Chicago sports alert engine.
//
// Usage:
//
//	scoracle-alerts cycle
//	scoracle-alerts serve
//	scoracle-alerts interval

// @title Scoracle Alerts API
// @version 1.0.0
// @description Chicago sports push alert engine: trigger cycles, read the polling advisory and orchestrator status.
// @host localhost:8000
// @BasePath /api/v1
// @schemes http https
// @contact.name Scoracle
// @license.name MIT
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // ALERTS_TIMEZONE must resolve in minimal images

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/albapepper/scoracle-alerts/internal/alerts"
	"github.com/albapepper/scoracle-alerts/internal/api"
	"github.com/albapepper/scoracle-alerts/internal/api/handler"
	"github.com/albapepper/scoracle-alerts/internal/config"
	"github.com/albapepper/scoracle-alerts/internal/db"
	"github.com/albapepper/scoracle-alerts/internal/external"
	"github.com/albapepper/scoracle-alerts/internal/maintenance"
	"github.com/albapepper/scoracle-alerts/internal/metrics"
	"github.com/albapepper/scoracle-alerts/internal/notifications"

	_ "github.com/albapepper/scoracle-alerts/docs" // swagger docs
)

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:           "scoracle-alerts",
		Short:         "Chicago sports push alert engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(cycleCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(intervalCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// cycle command
// --------------------------------------------------------------------------

func cycleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cycle",
		Short: "Run one discovery/dispatch cycle and print the counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				res := a.orchestrator.RunCycle(ctx)
				return printJSON(res)
			})
		},
	}
}

// --------------------------------------------------------------------------
// serve command
// --------------------------------------------------------------------------

func serveCmd() *cobra.Command {
	var noLoop bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and run cycles on the recommended interval",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				if !noLoop {
					go a.orchestrator.Loop(ctx, a.policy)
				}

				mcfg := maintenance.DefaultConfig()
				mcfg.Retention = a.cfg.LogRetention
				var execer maintenance.Execer
				if a.pool != nil {
					execer = a.pool
				}
				go maintenance.Start(ctx, execer, a.seen, mcfg, a.logger)

				deps := api.Deps{
					Cycles:  a.orchestrator,
					Policy:  a.policy,
					Metrics: a.metrics,
					Logger:  a.logger,
				}
				if a.pool != nil {
					deps.DB = handler.HealthChecker(a.pool)
				}

				addr := fmt.Sprintf("%s:%d", a.cfg.APIHost, a.cfg.APIPort)
				srv := &http.Server{
					Addr:         addr,
					Handler:      api.NewRouter(deps, a.cfg),
					ReadTimeout:  10 * time.Second,
					WriteTimeout: 120 * time.Second, // POST /cycle waits for a full cycle
					IdleTimeout:  60 * time.Second,
				}

				errCh := make(chan error, 1)
				go func() {
					a.logger.Info("Starting alert service", "addr", addr, "loop", !noLoop)
					if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
						errCh <- err
					}
				}()

				select {
				case err := <-errCh:
					return fmt.Errorf("server failed: %w", err)
				case <-ctx.Done():
				}
				a.logger.Info("Shutting down...")

				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer shutdownCancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					a.logger.Error("Shutdown error", "error", err)
				}
				a.logger.Info("Server stopped")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&noLoop, "no-loop", false, "Only run cycles when POST /api/v1/cycle is called")
	return cmd
}

// --------------------------------------------------------------------------
// interval command
// --------------------------------------------------------------------------

func intervalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "interval",
		Short: "Print the recommended delay before the next cycle",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			p := pollPolicy(cfg)
			now := time.Now()
			return printJSON(map[string]interface{}{
				"interval_seconds": int(p.RecommendedInterval(now).Seconds()),
				"in_game_window":   p.InGameWindow(now),
			})
		},
	}
}

// --------------------------------------------------------------------------
// Wiring
// --------------------------------------------------------------------------

type app struct {
	cfg          *config.Config
	logger       *slog.Logger
	metrics      *metrics.Metrics
	policy       alerts.PollPolicy
	pool         *db.Pool
	seen         alerts.SeenStore
	orchestrator *alerts.Orchestrator
}

func withApp(fn func(ctx context.Context, a *app) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	a := &app{cfg: cfg, logger: logger, metrics: metrics.New(), policy: pollPolicy(cfg)}

	// Seen-item store: Redis when configured, otherwise in-process.
	var seen alerts.SeenStore
	if cfg.RedisURL != "" {
		rs, err := alerts.NewRedisSeenStore(ctx, cfg.RedisURL, cfg.SeenTTL)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer rs.Close()
		seen = rs
		logger.Info("Seen store: redis", "ttl", cfg.SeenTTL)
	} else {
		seen = alerts.NewMemorySeenStore(cfg.SeenMaxItems)
		logger.Info("Seen store: memory", "max_items", cfg.SeenMaxItems)
	}

	// Audit log: Postgres when configured.
	var auditLog notifications.Log
	if cfg.DatabaseURL != "" {
		pool, err := db.New(ctx, cfg.DatabaseURL, cfg.DBPoolMaxConns)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer pool.Close()
		a.pool = pool
		auditLog = notifications.NewPGLog(pool.Pool)
		logger.Info("Database connected", "max_conns", cfg.DBPoolMaxConns)
	}

	paths := make(map[string]string, len(config.SportRegistry))
	for id, sc := range config.SportRegistry {
		paths[id] = sc.ESPNPath
	}

	a.seen = seen

	games := alerts.NewGameStateStore()
	classifier := alerts.NewClassifier(games, seen, config.SportRegistry, logger)
	discovery := alerts.NewDiscovery(
		external.NewScoreboardClient(cfg.ScoreboardBaseURL, paths, cfg.FetchTimeout, logger),
		external.NewFeedClient(cfg.FetchTimeout, logger),
		classifier, cfg.Sports, cfg.Feeds, a.metrics, logger,
	)

	filter := alerts.NewSpamFilter(alerts.SpamConfig{
		MaxPerKey:    cfg.MaxAlertsPerGame,
		MaxPerWindow: cfg.MaxAlertsPerHour,
		MinGap:       cfg.MinAlertGap,
		Window:       cfg.CounterReset,
	}, time.Now)

	// A nil *OneSignalSender must not become a non-nil Sender interface.
	var sender notifications.Sender
	if cfg.PushEnabled() {
		sender = notifications.NewOneSignalSender(cfg.OneSignalURL, cfg.OneSignalAppID, cfg.OneSignalAPIKey, cfg.AndroidAccentColor, logger)
	} else {
		logger.Info("Push disabled (no ONESIGNAL_APP_ID / ONESIGNAL_API_KEY), alerts are logged only")
	}

	dispatcher := notifications.NewDispatcher(sender, auditLog, notifications.DispatchConfig{
		GameChannelID: cfg.GameChannelID,
		NewsChannelID: cfg.NewsChannelID,
		SendDelay:     cfg.SendDelay,
	}, a.metrics, logger)

	a.orchestrator = alerts.NewOrchestrator(discovery, filter, dispatcher, games, a.metrics, logger)
	return fn(ctx, a)
}

func pollPolicy(cfg *config.Config) alerts.PollPolicy {
	p := alerts.DefaultPollPolicy()
	p.Fast = cfg.FastPollInterval
	p.Slow = cfg.SlowPollInterval
	p.Location = cfg.Location
	return p
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
