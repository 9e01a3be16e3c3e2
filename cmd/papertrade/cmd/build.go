package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/rustyeddy/papertrade/config"
	"github.com/rustyeddy/papertrade/feed"
	"github.com/rustyeddy/papertrade/journal"
	"github.com/rustyeddy/papertrade/metrics"
	"github.com/rustyeddy/papertrade/risk"
)

// openJournal opens every journal named in cfg.Type. Several types fan out
// through journal.Multi.
func openJournal(cfg config.JournalConfig, accountID string) (journal.Journal, error) {
	types := cfg.Types()
	if len(types) == 0 {
		return journal.Nop{}, nil
	}

	var js journal.Multi
	for _, typ := range types {
		j, err := openOneJournal(cfg, typ, accountID)
		if err != nil {
			js.Close()
			return nil, err
		}
		js = append(js, j)
	}
	if len(js) == 1 {
		return js[0], nil
	}
	return js, nil
}

func openOneJournal(cfg config.JournalConfig, typ, accountID string) (journal.Journal, error) {
	switch typ {
	case "none":
		return journal.Nop{}, nil
	case "csv":
		return journal.NewCSV(cfg.PositionsFile, cfg.EquityFile)
	case "sqlite":
		return journal.NewSQLite(cfg.DBPath)
	case "kafka":
		return journal.NewKafka(cfg.Brokers, cfg.Topic, accountID), nil
	}
	return nil, fmt.Errorf("unknown journal type %q", typ)
}

func newFeed(cfg config.FeedConfig) *feed.Simulator {
	opts := []feed.Option{feed.WithMaxStep(cfg.MaxStep)}
	if cfg.Seed != 0 {
		opts = append(opts, feed.WithRand(rand.New(rand.NewSource(cfg.Seed))))
	}
	return feed.New(cfg.Instruments, opts...)
}

// newRiskCache builds the risk input cache over the configured source. The
// returned close func releases the source's connections.
func newRiskCache(ctx context.Context, cfg config.RiskConfig, m *metrics.Metrics, logger *slog.Logger) (*risk.InputCache, func() error, error) {
	var (
		vs     risk.VolatilitySource
		cs     risk.CorrelationSource
		closer = func() error { return nil }
	)

	switch cfg.Source {
	case "redis":
		src, err := risk.NewRedisSource(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("risk source: %w", err)
		}
		vs, cs, closer = src, src, src.Close
	default:
		src := risk.NewStatic(cfg.Volatility, cfg.Correlation)
		vs, cs = src, src
	}

	c := risk.NewInputCache(vs, cs, cfg.Timeout.Duration, logger)
	c.OnFailure = m.ObserveRiskLookupFailure
	return c, closer, nil
}
