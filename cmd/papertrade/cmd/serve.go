package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/papertrade/config"
	"github.com/rustyeddy/papertrade/internal/logging"
	"github.com/rustyeddy/papertrade/metrics"
	"github.com/rustyeddy/papertrade/server"
	"github.com/rustyeddy/papertrade/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a paper trading session behind the HTTP API",
	Long: `Start a paper trading session and serve it over HTTP.

The session is driven by the simulated price feed. Positions are opened and
closed through the REST API; dashboards follow along on /ws.

Example:
  papertrade serve -f papertrade.yaml --start`,
	RunE: runServe,
}

var (
	serveConfigPath string
	serveAddr       string
	serveStart      bool
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveConfigPath, "config", "f", "", "path to config file (YAML, JSON or TOML)")
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
	serveCmd.Flags().BoolVar(&serveStart, "start", false, "start the price feed immediately")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(serveConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	logger := slog.Default()
	if !cmd.Flags().Changed("log-level") && !cmd.Flags().Changed("log-format") {
		if logger, err = logging.Init(os.Stderr, cfg.Log.Format, cfg.Log.Level); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(nil)

	j, err := openJournal(cfg.Journal, cfg.Account.ID)
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}

	cache, closeRisk, err := newRiskCache(ctx, cfg.Risk, m, logger)
	if err != nil {
		j.Close()
		return err
	}
	defer closeRisk()

	sim := newFeed(cfg.Feed)
	sess, err := session.New(session.Options{
		AccountID:       cfg.Account.ID,
		Currency:        cfg.Account.Currency,
		StartingBalance: cfg.Account.Balance,
		TickInterval:    cfg.Feed.Interval.Duration,
		Feed:            sim,
		Risk:            cache,
		Journal:         j,
		Metrics:         m,
		Logger:          logger,
	})
	if err != nil {
		j.Close()
		return err
	}
	defer func() {
		if err := sess.Shutdown(); err != nil {
			logger.Error("session shutdown", slog.Any("error", err))
		}
	}()

	srv := server.New(cfg.Server.Addr, sess, m, logger)

	logger.Info("papertrade starting",
		slog.String("account", cfg.Account.ID),
		slog.Float64("balance", cfg.Account.Balance),
		slog.String("journal", cfg.Journal.Type),
		slog.String("risk_source", cfg.Risk.Source),
		slog.Duration("interval", sess.Interval()),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(ctx)
	})
	g.Go(func() error {
		// Warm every feed instrument so new positions start with real inputs.
		cache.Refresh(ctx, sim.Instruments())
		return cache.Run(ctx, cfg.Risk.RefreshInterval.Duration, sess.Instruments)
	})
	if serveStart {
		sess.Start(ctx)
	}

	err = g.Wait()
	logger.Info("papertrade stopped")
	return err
}
