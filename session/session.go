// Package session owns one virtual trading session: the ledger, the price
// feed that marks it and the views derived from it.
//
// Every command and every feed tick takes the same lock, so the ledger has
// a single writer and a tick never interleaves with an open or a close.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/rustyeddy/papertrade/account"
	"github.com/rustyeddy/papertrade/journal"
	"github.com/rustyeddy/papertrade/ledger"
	"github.com/rustyeddy/papertrade/market"
	"github.com/rustyeddy/papertrade/metrics"
	"github.com/rustyeddy/papertrade/performance"
	"github.com/rustyeddy/papertrade/risk"
)

const DefaultTickInterval = 5 * time.Second

// Feed produces prices. feed.Simulator implements it.
type Feed interface {
	market.PriceSource
	Step() []market.Tick
	Reset()
	Prices() []market.Tick
}

// RiskInputs supplies the last known volatility and correlation without
// blocking. risk.InputCache implements it.
type RiskInputs interface {
	Inputs() risk.Inputs
	Version() uint64
	Trigger()
}

type Options struct {
	AccountID       string
	Currency        string
	StartingBalance float64
	TickInterval    time.Duration

	Feed    Feed
	Risk    RiskInputs      // nil uses default inputs
	Journal journal.Journal // nil records nothing
	Metrics *metrics.Metrics
	Logger  *slog.Logger

	// JournalBacklog bounds the records waiting for the journal writer.
	// Zero uses journal.DefaultBacklog.
	JournalBacklog int

	Clock func() time.Time
	IDs   func(time.Time) string
}

// TickResult describes one feed tick.
type TickResult struct {
	Ticks    []market.Tick
	Marked   int
	Held     []string
	Triggers []ledger.Trigger
}

type viewKey struct {
	ledger  uint64
	risk    uint64
	ticks   uint64
	running bool
}

type Session struct {
	mu sync.Mutex

	accountID string
	currency  string
	interval  time.Duration

	ledger  *ledger.Ledger
	feed    Feed
	risk    RiskInputs
	journal *journal.Async
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
	sched   *Scheduler

	ticks    uint64
	cached   *View
	cacheKey viewKey

	subs    map[int]chan View
	nextSub int
}

func New(opts Options) (*Session, error) {
	if opts.Feed == nil {
		return nil, errors.New("session: feed is required")
	}
	if opts.StartingBalance < 0 || math.IsNaN(opts.StartingBalance) || math.IsInf(opts.StartingBalance, 0) {
		return nil, fmt.Errorf("session: invalid starting balance %v", opts.StartingBalance)
	}

	s := &Session{
		accountID: opts.AccountID,
		currency:  opts.Currency,
		interval:  opts.TickInterval,
		feed:      opts.Feed,
		risk:      opts.Risk,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		now:       opts.Clock,
		subs:      make(map[int]chan View),
	}
	if s.interval <= 0 {
		s.interval = DefaultTickInterval
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	j := opts.Journal
	if j == nil {
		j = journal.Nop{}
	}
	// Journal I/O runs on its own goroutine so a slow sink never holds s.mu.
	s.journal = journal.NewAsync(j, opts.JournalBacklog, s.journalFailed)
	if s.now == nil {
		s.now = time.Now
	}

	lopts := []ledger.Option{ledger.WithClock(s.now)}
	if opts.IDs != nil {
		lopts = append(lopts, ledger.WithIDs(opts.IDs))
	}
	s.ledger = ledger.New(opts.StartingBalance, lopts...)
	s.sched = NewScheduler(s.interval, func(ctx context.Context) { s.Tick(ctx) })

	s.metrics.SetRunning(false)
	return s, nil
}

func (s *Session) Interval() time.Duration { return s.interval }

func (s *Session) Running() bool { return s.sched.Running() }

// Start begins ticking every interval until Stop or until ctx is done. It
// returns false when the session was already running.
func (s *Session) Start(ctx context.Context) bool {
	if !s.sched.Start(ctx) {
		return false
	}
	s.metrics.SetRunning(true)
	s.metrics.ObserveOp("start", nil)
	s.logger.Info("session started", slog.Duration("interval", s.interval))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.publishLocked(s.viewLocked())
	return true
}

// Stop halts the feed after any in-flight tick. Open positions stay open
// and history is kept. It returns false when the session was not running.
func (s *Session) Stop() bool {
	if !s.sched.Stop() {
		return false
	}
	s.metrics.SetRunning(false)
	s.metrics.ObserveOp("stop", nil)
	s.logger.Info("session stopped")

	s.mu.Lock()
	defer s.mu.Unlock()
	s.publishLocked(s.viewLocked())
	return true
}

// Tick advances the feed one step and marks every open position to the
// latest price. An instrument without a price keeps its last mark.
func (s *Session) Tick(ctx context.Context) TickResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res TickResult
	if ctx.Err() != nil {
		return res
	}

	started := time.Now()
	before := s.ledger.Version()

	res.Ticks = s.feed.Step()
	s.ticks++

	for _, instr := range s.ledger.Instruments() {
		price, err := s.feed.GetPrice(ctx, instr)
		if err != nil {
			res.Held = append(res.Held, instr)
			s.logger.Debug("no price, holding last mark",
				slog.String("instrument", instr),
				slog.String("error", err.Error()),
			)
			continue
		}
		n, triggers, err := s.ledger.MarkToMarket(instr, price)
		if err != nil {
			res.Held = append(res.Held, instr)
			s.logger.Warn("bad price, holding last mark",
				slog.String("instrument", instr),
				slog.Float64("price", price),
				slog.String("error", err.Error()),
			)
			continue
		}
		res.Marked += n
		res.Triggers = append(res.Triggers, triggers...)
	}

	for _, tr := range res.Triggers {
		s.metrics.ObserveTrigger(tr.Kind)
		s.logger.Warn("price crossed protective level",
			slog.String("position", tr.PositionID),
			slog.String("instrument", tr.Instrument),
			slog.String("kind", tr.Kind),
			slog.Float64("price", tr.Price),
		)
	}

	s.metrics.ObserveTick(time.Since(started), len(res.Held))

	v := s.viewLocked()
	if s.ledger.Version() != before {
		s.recordEquityLocked("tick", v)
	}
	s.publishLocked(v)
	return res
}

// Open validates req and adds a new open position. A rejected request
// leaves the ledger untouched.
func (s *Session) Open(ctx context.Context, req ledger.OpenRequest) (ledger.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openLocked(req)
}

// OpenAtMarket opens at the feed's current price for req.Instrument,
// ignoring req.EntryPrice.
func (s *Session) OpenAtMarket(ctx context.Context, req ledger.OpenRequest) (ledger.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req.Instrument = ledger.NormalizeInstrument(req.Instrument)
	price, err := s.feed.GetPrice(ctx, req.Instrument)
	if err != nil {
		s.metrics.ObserveOp("open", err)
		return ledger.Position{}, fmt.Errorf("open at market %q: %w", req.Instrument, err)
	}
	req.EntryPrice = price
	return s.openLocked(req)
}

func (s *Session) openLocked(req ledger.OpenRequest) (ledger.Position, error) {
	p, err := s.ledger.Open(req)
	s.metrics.ObserveOp("open", err)
	if err != nil {
		s.logger.Info("open rejected", slog.String("error", err.Error()))
		return ledger.Position{}, err
	}

	s.logger.Info("position opened",
		slog.String("position", p.ID),
		slog.String("instrument", p.Instrument),
		slog.String("direction", string(p.Direction)),
		slog.Float64("quantity", p.Quantity),
		slog.Float64("entry", p.EntryPrice),
	)

	if s.risk != nil {
		s.risk.Trigger()
	}

	v := s.viewLocked()
	s.recordEquityLocked("open", v)
	s.publishLocked(v)
	return p, nil
}

// Close closes an open position at its last marked price.
func (s *Session) Close(ctx context.Context, positionID string) (ledger.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.ledger.Close(positionID)
	s.metrics.ObserveOp("close", err)
	if err != nil {
		return ledger.Position{}, err
	}

	s.logger.Info("position closed",
		slog.String("position", p.ID),
		slog.String("instrument", p.Instrument),
		slog.Float64("exit", *p.ExitPrice),
		slog.Float64("pnl", p.PnL),
	)

	if err := s.journal.RecordPosition(journal.FromPosition(p, "manual")); err != nil {
		s.journalFailed("position", err)
	}

	v := s.viewLocked()
	s.recordEquityLocked("close", v)
	s.publishLocked(v)
	return p, nil
}

// Reset discards every position and restores the feed's seed prices. The
// starting balance and the running state are kept.
func (s *Session) Reset(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dropped := s.ledger.Len()
	s.ledger.Reset()
	s.feed.Reset()
	s.metrics.ObserveOp("reset", nil)
	s.logger.Info("session reset", slog.Int("positions_dropped", dropped))

	v := s.viewLocked()
	s.recordEquityLocked("reset", v)
	s.publishLocked(v)
}

// Position returns a copy of one position.
func (s *Session) Position(positionID string) (ledger.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Get(positionID)
}

// Positions returns the positions matching f, open first and newest first.
func (s *Session) Positions(f ledger.Filter) []ledger.Position {
	s.mu.Lock()
	ps := s.ledger.Query(f)
	s.mu.Unlock()

	ledger.SortForDisplay(ps)
	return ps
}

// ClosedBetween returns the positions closed within [start, end), most
// recently closed first.
func (s *Session) ClosedBetween(start, end time.Time) []ledger.Position {
	s.mu.Lock()
	ps := s.ledger.ClosedBetween(start, end)
	s.mu.Unlock()

	ledger.SortForDisplay(ps)
	return ps
}

// Instruments lists the instruments with open positions.
func (s *Session) Instruments() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Instruments()
}

// Shutdown stops the feed, ends every subscription, then writes any queued
// journal records and closes the journal.
func (s *Session) Shutdown() error {
	s.Stop()

	s.mu.Lock()
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	s.metrics.SetSubscribers(0)
	s.mu.Unlock()

	return s.journal.Close()
}

func (s *Session) recordEquityLocked(event string, v View) {
	snap := journal.EquitySnapshot{
		Time:         v.UpdatedAt,
		Event:        event,
		Version:      v.Version,
		Balance:      v.Account.Balance,
		Equity:       v.Account.Equity,
		MarginUsed:   v.Account.Margin,
		FreeMargin:   v.Account.FreeMargin,
		MarginLevel:  v.Account.MarginLevel,
		OpenTrades:   v.Account.OpenTrades,
		ClosedTrades: v.Account.ClosedTrades,
	}
	if err := s.journal.RecordEquity(snap); err != nil {
		s.journalFailed("equity", err)
	}
}

func (s *Session) journalFailed(kind string, err error) {
	s.metrics.ObserveJournalError()
	s.logger.Error("journal write failed",
		slog.String("record", kind),
		slog.String("error", err.Error()),
	)
}

func (s *Session) riskInputs() (risk.Inputs, uint64) {
	if s.risk == nil {
		return risk.Inputs{}, 0
	}
	return s.risk.Inputs(), s.risk.Version()
}

// viewLocked returns the cached view unless the ledger, the risk inputs, the
// tick count or the running state changed since it was built.
func (s *Session) viewLocked() View {
	in, riskVersion := s.riskInputs()
	key := viewKey{
		ledger:  s.ledger.Version(),
		risk:    riskVersion,
		ticks:   s.ticks,
		running: s.sched.Running(),
	}
	if s.cached != nil && s.cacheKey == key {
		return *s.cached
	}

	balance := s.ledger.Balance()
	ps := s.ledger.Positions()

	acct := account.Compute(balance, ps)
	acct.ID = s.accountID
	acct.Currency = s.currency

	perf := performance.Compute(balance, ps)
	rk := risk.Compute(ps, in)
	ledger.SortForDisplay(ps)

	v := View{
		Version:         key.ledger,
		Running:         key.running,
		Ticks:           key.ticks,
		Account:         acct,
		Positions:       ps,
		Performance:     perf,
		Risk:            rk,
		RiskInputsFresh: in.Fresh,
		Prices:          s.feed.Prices(),
		UpdatedAt:       s.now(),
	}

	s.metrics.SetState(metrics.State{
		Version:       v.Version,
		Balance:       acct.Balance,
		Equity:        acct.Equity,
		Margin:        acct.Margin,
		MarginLevel:   acct.MarginLevel,
		Open:          acct.OpenTrades,
		Closed:        acct.ClosedTrades,
		PortfolioHeat: rk.PortfolioHeat,
	})

	s.cached = &v
	s.cacheKey = key
	return v
}
