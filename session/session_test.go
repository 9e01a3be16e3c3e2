package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/papertrade/feed"
	"github.com/rustyeddy/papertrade/internal/logging"
	"github.com/rustyeddy/papertrade/journal"
	"github.com/rustyeddy/papertrade/ledger"
	"github.com/rustyeddy/papertrade/market"
	"github.com/rustyeddy/papertrade/metrics"
	"github.com/rustyeddy/papertrade/risk"
)

type fakeFeed struct {
	mu     sync.Mutex
	seeds  map[string]float64
	prices map[string]float64
	steps  int
}

func newFakeFeed(seeds map[string]float64) *fakeFeed {
	f := &fakeFeed{seeds: seeds}
	f.Reset()
	return f
}

func (f *fakeFeed) Step() []market.Tick {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.steps++
	return nil
}

func (f *fakeFeed) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices = make(map[string]float64, len(f.seeds))
	for k, v := range f.seeds {
		f.prices[k] = v
	}
}

func (f *fakeFeed) Prices() []market.Tick {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]market.Tick, 0, len(f.prices))
	for k, v := range f.prices {
		out = append(out, market.Tick{Instrument: k, Price: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Instrument < out[j].Instrument })
	return out
}

func (f *fakeFeed) GetPrice(_ context.Context, instr string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.prices[instr]
	if !ok {
		return 0, market.ErrPriceUnavailable
	}
	return p, nil
}

func (f *fakeFeed) set(instr string, p float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices[instr] = p
}

func (f *fakeFeed) forget(instr string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.prices, instr)
}

type testJournal struct {
	mu        sync.Mutex
	positions []journal.PositionRecord
	equity    []journal.EquitySnapshot
	err       error
	closed    bool
}

func (j *testJournal) RecordPosition(r journal.PositionRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.positions = append(j.positions, r)
	return j.err
}

func (j *testJournal) RecordEquity(e journal.EquitySnapshot) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.equity = append(j.equity, e)
	return j.err
}

func (j *testJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.closed = true
	return nil
}

func (j *testJournal) events() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, 0, len(j.equity))
	for _, e := range j.equity {
		out = append(out, e.Event)
	}
	return out
}

type fakeRisk struct {
	in       risk.Inputs
	version  uint64
	triggers int
}

func (r *fakeRisk) Inputs() risk.Inputs { return r.in }
func (r *fakeRisk) Version() uint64     { return r.version }
func (r *fakeRisk) Trigger()            { r.triggers++ }

type fixture struct {
	s    *Session
	feed *fakeFeed
	j    *testJournal
	m    *metrics.Metrics
	now  time.Time
}

func newFixture(t *testing.T, mods ...func(*Options)) *fixture {
	t.Helper()

	fx := &fixture{
		feed: newFakeFeed(map[string]float64{"EURUSD": 1.0800, "GBPUSD": 1.2650}),
		j:    &testJournal{},
		m:    metrics.New(prometheus.NewRegistry()),
		now:  time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}
	var seq int
	opts := Options{
		AccountID:       "SIM-001",
		Currency:        "USD",
		StartingBalance: 100000,
		TickInterval:    time.Hour,
		Feed:            fx.feed,
		Journal:         fx.j,
		Metrics:         fx.m,
		Logger:          logging.Discard(),
		Clock: func() time.Time {
			fx.now = fx.now.Add(time.Second)
			return fx.now
		},
		IDs: func(time.Time) string {
			seq++
			return fmt.Sprintf("P%03d", seq)
		},
	}
	for _, mod := range mods {
		mod(&opts)
	}

	s, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Shutdown() })
	fx.s = s
	return fx
}

func (fx *fixture) open(t *testing.T, instr string, dir ledger.Direction, qty, entry float64) ledger.Position {
	t.Helper()
	p, err := fx.s.Open(context.Background(), ledger.OpenRequest{
		Instrument: instr,
		Direction:  dir,
		Quantity:   qty,
		EntryPrice: entry,
	})
	require.NoError(t, err)
	return p
}

func TestNewValidates(t *testing.T) {
	t.Parallel()

	_, err := New(Options{StartingBalance: 1})
	assert.Error(t, err)

	_, err = New(Options{StartingBalance: -1, Feed: newFakeFeed(nil)})
	assert.Error(t, err)

	s, err := New(Options{StartingBalance: 0, Feed: newFakeFeed(nil)})
	require.NoError(t, err)
	assert.Equal(t, DefaultTickInterval, s.Interval())
}

func TestLongRoundTripThroughTicks(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()

	p := fx.open(t, "EURUSD", ledger.Long, 100000, 1.0800)

	fx.feed.set("EURUSD", 1.0850)
	res := fx.s.Tick(ctx)
	assert.Equal(t, 1, res.Marked)
	assert.Empty(t, res.Held)

	closed, err := fx.s.Close(ctx, p.ID)
	require.NoError(t, err)
	assert.InDelta(t, 500.0, closed.PnL, 1e-6)
	assert.InDelta(t, 0.463, closed.PnLPercent, 0.001)
	require.NotNil(t, closed.ExitPrice)
	assert.Equal(t, 1.0850, *closed.ExitPrice)
	assert.False(t, closed.IsOpen())

	v := fx.s.View()
	assert.InDelta(t, 100500.0, v.Account.Equity, 1e-6)
	assert.Equal(t, 0, v.Account.OpenTrades)
	assert.Equal(t, 1, v.Account.ClosedTrades)
	assert.Equal(t, 1, v.Performance.TotalTrades)
	assert.Equal(t, 100.0, v.Performance.WinRate)
	assert.Equal(t, "SIM-001", v.Account.ID)

	// Later ticks never touch a closed position.
	fx.feed.set("EURUSD", 1.2000)
	fx.s.Tick(ctx)
	after, err := fx.s.Position(p.ID)
	require.NoError(t, err)
	assert.InDelta(t, 500.0, after.PnL, 1e-6)
	assert.Equal(t, 1.0850, *after.ExitPrice)
}

func TestShortUnrealizedLossStaysOpen(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)

	p := fx.open(t, "GBPUSD", ledger.Short, 75000, 1.2650)
	fx.feed.set("GBPUSD", 1.2720)
	fx.s.Tick(context.Background())

	got, err := fx.s.Position(p.ID)
	require.NoError(t, err)
	assert.InDelta(t, -525.0, got.PnL, 1e-6)
	assert.True(t, got.IsOpen())
}

func TestEquityScenario(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)

	fx.open(t, "EURUSD", ledger.Long, 50000, 1.0)
	fx.feed.set("EURUSD", 1.03)
	fx.s.Tick(context.Background())

	a := fx.s.View().Account
	assert.InDelta(t, 101500.0, a.Equity, 1e-6)
	assert.InDelta(t, 50000.0, a.Margin, 1e-6)
	assert.InDelta(t, 51500.0, a.FreeMargin, 1e-6)
	assert.InDelta(t, 203.0, a.MarginLevel, 1e-9)
}

func TestOpenRejectsInvalidInput(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	before := fx.s.View()

	_, err := fx.s.Open(context.Background(), ledger.OpenRequest{Instrument: "EURUSD", Direction: ledger.Long, Quantity: 0, EntryPrice: 1.08})
	require.Error(t, err)

	var ve *ledger.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "quantity", ve.Field)
	assert.ErrorIs(t, err, ledger.ErrValidation)

	_, err = fx.s.Open(context.Background(), ledger.OpenRequest{Instrument: "EURUSD", Direction: ledger.Long, Quantity: 1, EntryPrice: 0})
	assert.ErrorIs(t, err, ledger.ErrValidation)

	after := fx.s.View()
	assert.Equal(t, before.Version, after.Version)
	assert.Empty(t, after.Positions)
	fx.s.journal.Flush()
	assert.Empty(t, fx.j.events())
	assert.Equal(t, 2.0, testutil.ToFloat64(fx.m.OpsTotal.WithLabelValues("open", "error")))
}

func TestCloseErrors(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()

	_, err := fx.s.Close(ctx, "missing")
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	p := fx.open(t, "EURUSD", ledger.Long, 1, 1.08)
	_, err = fx.s.Close(ctx, p.ID)
	require.NoError(t, err)
	_, err = fx.s.Close(ctx, p.ID)
	assert.ErrorIs(t, err, ledger.ErrAlreadyClosed)

	fx.s.journal.Flush()
	assert.Len(t, fx.j.positions, 1)
}

func TestMissingPriceHoldsLastMark(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()

	p := fx.open(t, "EURUSD", ledger.Long, 1000, 1.0800)
	fx.feed.set("EURUSD", 1.0900)
	fx.s.Tick(ctx)

	fx.feed.forget("EURUSD")
	res := fx.s.Tick(ctx)
	assert.Equal(t, []string{"EURUSD"}, res.Held)
	assert.Zero(t, res.Marked)

	got, err := fx.s.Position(p.ID)
	require.NoError(t, err)
	assert.True(t, got.IsOpen())
	assert.Equal(t, 1.0900, got.CurrentPrice)
	assert.InDelta(t, 10.0, got.PnL, 1e-6)
	assert.Equal(t, 1.0, testutil.ToFloat64(fx.m.PricesHeld))
}

func TestUnknownInstrumentIsHeld(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)

	p := fx.open(t, "XAUUSD", ledger.Long, 1, 2034.56)
	res := fx.s.Tick(context.Background())
	assert.Equal(t, []string{"XAUUSD"}, res.Held)

	got, err := fx.s.Position(p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2034.56, got.CurrentPrice)
	assert.Zero(t, got.PnL)
}

func TestResetRestoresStartingState(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()

	p := fx.open(t, "EURUSD", ledger.Long, 1000, 1.08)
	fx.open(t, "GBPUSD", ledger.Short, 1000, 1.26)
	fx.feed.set("EURUSD", 1.5)
	fx.s.Tick(ctx)
	_, err := fx.s.Close(ctx, p.ID)
	require.NoError(t, err)

	fx.s.Reset(ctx)

	v := fx.s.View()
	assert.Equal(t, 100000.0, v.Account.Balance)
	assert.Equal(t, 100000.0, v.Account.Equity)
	assert.Zero(t, v.Account.OpenTrades)
	assert.Zero(t, v.Account.ClosedTrades)
	assert.Empty(t, v.Positions)
	assert.Zero(t, v.Performance.TotalTrades)

	price, err := fx.feed.GetPrice(ctx, "EURUSD")
	require.NoError(t, err)
	assert.Equal(t, 1.0800, price)
}

func TestTriggersAreReportedNotClosed(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()

	stop := 1.0750
	p, err := fx.s.Open(ctx, ledger.OpenRequest{
		Instrument: "EURUSD",
		Direction:  ledger.Long,
		Quantity:   1000,
		EntryPrice: 1.0800,
		StopLoss:   &stop,
	})
	require.NoError(t, err)

	fx.feed.set("EURUSD", 1.0700)
	res := fx.s.Tick(ctx)
	require.Len(t, res.Triggers, 1)
	assert.Equal(t, "stop_loss", res.Triggers[0].Kind)

	got, err := fx.s.Position(p.ID)
	require.NoError(t, err)
	assert.True(t, got.IsOpen())
	assert.True(t, got.StopHit)
	assert.Equal(t, 1.0, testutil.ToFloat64(fx.m.Triggers.WithLabelValues("stop_loss")))

	assert.Empty(t, fx.s.Tick(ctx).Triggers)
}

func TestJournalRecordsEveryMutation(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()

	p := fx.open(t, "EURUSD", ledger.Long, 100000, 1.0800)
	fx.s.Tick(ctx) // price unchanged, still a mark
	fx.feed.set("EURUSD", 1.0850)
	fx.s.Tick(ctx)
	_, err := fx.s.Close(ctx, p.ID)
	require.NoError(t, err)
	fx.s.Tick(ctx) // nothing open, not a mutation
	fx.s.Reset(ctx)
	fx.s.journal.Flush()

	assert.Equal(t, []string{"open", "tick", "tick", "close", "reset"}, fx.j.events())

	require.Len(t, fx.j.positions, 1)
	rec := fx.j.positions[0]
	assert.Equal(t, p.ID, rec.PositionID)
	assert.InDelta(t, 500.0, rec.RealizedPL, 1e-6)
	assert.Equal(t, 1.0850, rec.ExitPrice)
	assert.Equal(t, "manual", rec.Reason)

	closeSnap := fx.j.equity[3]
	assert.InDelta(t, 100500.0, closeSnap.Equity, 1e-6)
	assert.Equal(t, 1, closeSnap.ClosedTrades)
}

func TestJournalFailureDoesNotFailCommand(t *testing.T) {
	t.Parallel()
	j := &testJournal{err: errors.New("disk full")}
	fx := newFixture(t, func(o *Options) { o.Journal = j })

	p := fx.open(t, "EURUSD", ledger.Long, 1, 1.08)
	_, err := fx.s.Close(context.Background(), p.ID)
	require.NoError(t, err)

	fx.s.journal.Flush()
	assert.Equal(t, 3.0, testutil.ToFloat64(fx.m.JournalErrors))
}

// stalledWriter is a Kafka writer whose broker never answers.
type stalledWriter struct {
	started chan struct{}
	release chan struct{}
}

func (w *stalledWriter) WriteMessages(ctx context.Context, _ ...kafka.Message) error {
	select {
	case w.started <- struct{}{}:
	default:
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-w.release:
		return nil
	}
}

func (w *stalledWriter) Close() error { return nil }

func TestSlowJournalDoesNotStallCommands(t *testing.T) {
	t.Parallel()

	w := &stalledWriter{started: make(chan struct{}, 1), release: make(chan struct{})}
	fx := newFixture(t, func(o *Options) {
		o.Journal = journal.NewKafkaWithWriter(w, "SIM-001")
	})
	t.Cleanup(func() { close(w.release) })
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		p, err := fx.s.Open(ctx, ledger.OpenRequest{Instrument: "EURUSD", Direction: ledger.Long, Quantity: 100000, EntryPrice: 1.0800})
		if !assert.NoError(t, err) {
			return
		}
		fx.feed.set("EURUSD", 1.0850)
		res := fx.s.Tick(ctx)
		assert.Equal(t, 1, res.Marked)
		_, err = fx.s.Close(ctx, p.ID)
		assert.NoError(t, err)
		fx.s.View()
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("commands waited on the journal")
	}

	select {
	case <-w.started:
	case <-time.After(time.Second):
		t.Fatal("journal was never written")
	}
}

func TestJournalBacklogFullIsCounted(t *testing.T) {
	t.Parallel()

	w := &stalledWriter{started: make(chan struct{}, 1), release: make(chan struct{})}
	fx := newFixture(t, func(o *Options) {
		o.Journal = journal.NewKafkaWithWriter(w, "SIM-001")
		o.JournalBacklog = 1
	})
	t.Cleanup(func() { close(w.release) })

	fx.open(t, "EURUSD", ledger.Long, 1, 1.08)
	<-w.started
	fx.open(t, "EURUSD", ledger.Long, 1, 1.08) // fills the backlog
	fx.open(t, "EURUSD", ledger.Long, 1, 1.08) // dropped

	assert.Equal(t, 1.0, testutil.ToFloat64(fx.m.JournalErrors))
	assert.Len(t, fx.s.View().Positions, 3)
}

func TestPositionsFilter(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()

	a, err := fx.s.Open(ctx, ledger.OpenRequest{Instrument: "EURUSD", Direction: ledger.Long, Quantity: 1, EntryPrice: 1.08, Tags: []string{"swing"}})
	require.NoError(t, err)
	b := fx.open(t, "GBPUSD", ledger.Short, 1, 1.26)
	c := fx.open(t, "EURUSD", ledger.Short, 1, 1.08)
	_, err = fx.s.Close(ctx, a.ID)
	require.NoError(t, err)

	ids := func(ps []ledger.Position) []string {
		var out []string
		for _, p := range ps {
			out = append(out, p.ID)
		}
		return out
	}

	assert.Equal(t, []string{c.ID, b.ID, a.ID}, ids(fx.s.Positions(ledger.Filter{})))
	assert.Equal(t, []string{c.ID, b.ID}, ids(fx.s.Positions(ledger.Filter{Status: ledger.StatusOpen})))
	assert.Equal(t, []string{c.ID, a.ID}, ids(fx.s.Positions(ledger.Filter{Instrument: "eurusd"})))
	assert.Equal(t, []string{a.ID}, ids(fx.s.Positions(ledger.Filter{Tag: "swing"})))
	assert.Empty(t, fx.s.Positions(ledger.Filter{Status: ledger.StatusClosed, Instrument: "GBPUSD"}))

	closed := fx.s.ClosedBetween(fx.now.Add(-time.Hour), fx.now.Add(time.Hour))
	assert.Equal(t, []string{a.ID}, ids(closed))
}

func TestLowerCaseInstrumentIsMarked(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()

	p := fx.open(t, "eurusd", ledger.Long, 100000, 1.0800)
	assert.Equal(t, "EURUSD", p.Instrument)

	q, err := fx.s.OpenAtMarket(ctx, ledger.OpenRequest{Instrument: " gbpusd", Direction: ledger.Long, Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, "GBPUSD", q.Instrument)
	assert.Equal(t, 1.2650, q.EntryPrice)

	fx.feed.set("EURUSD", 1.0850)
	res := fx.s.Tick(ctx)
	assert.Empty(t, res.Held)
	assert.Equal(t, 2, res.Marked)

	got, err := fx.s.Position(p.ID)
	require.NoError(t, err)
	assert.InDelta(t, 500.0, got.PnL, 1e-6)
}

func TestOpenAtMarket(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()

	p, err := fx.s.OpenAtMarket(ctx, ledger.OpenRequest{Instrument: "GBPUSD", Direction: ledger.Long, Quantity: 10, EntryPrice: 99})
	require.NoError(t, err)
	assert.Equal(t, 1.2650, p.EntryPrice)

	_, err = fx.s.OpenAtMarket(ctx, ledger.OpenRequest{Instrument: "NOPE", Direction: ledger.Long, Quantity: 10})
	assert.ErrorIs(t, err, market.ErrPriceUnavailable)
}

func TestViewIsCachedByVersion(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)

	a := fx.s.View()
	b := fx.s.View()
	assert.Equal(t, a.UpdatedAt, b.UpdatedAt)

	fx.open(t, "EURUSD", ledger.Long, 1, 1.08)
	c := fx.s.View()
	assert.Greater(t, c.Version, a.Version)
	assert.True(t, c.UpdatedAt.After(a.UpdatedAt))
}

func TestViewUsesRiskInputs(t *testing.T) {
	t.Parallel()
	r := &fakeRisk{in: risk.Inputs{Fresh: true}}
	fx := newFixture(t, func(o *Options) { o.Risk = r })

	fx.open(t, "EURUSD", ledger.Long, 1, 1.08)
	assert.Equal(t, 1, r.triggers)

	v := fx.s.View()
	assert.InDelta(t, 45.0, v.Risk.CurrentRisk, 1e-9)
	assert.True(t, v.RiskInputsFresh)

	r.in = risk.Inputs{Vol: map[string]float64{"EURUSD": 5}, Corr: map[string]float64{"EURUSD": 0}}
	r.version++

	v = fx.s.View()
	assert.InDelta(t, 10.0, v.Risk.CurrentRisk, 1e-9)
	assert.Equal(t, risk.Low, v.Risk.RiskLevel)
	assert.InDelta(t, 100.0, v.Risk.DiversificationScore, 1e-9)
}

func TestDisplayOrder(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()

	p1 := fx.open(t, "EURUSD", ledger.Long, 1, 1.08)
	p2 := fx.open(t, "EURUSD", ledger.Long, 1, 1.08)
	p3 := fx.open(t, "GBPUSD", ledger.Long, 1, 1.26)
	p4 := fx.open(t, "GBPUSD", ledger.Long, 1, 1.26)
	_, err := fx.s.Close(ctx, p1.ID)
	require.NoError(t, err)
	_, err = fx.s.Close(ctx, p3.ID)
	require.NoError(t, err)

	var ids []string
	for _, p := range fx.s.View().Positions {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{p4.ID, p2.ID, p3.ID, p1.ID}, ids)
}

func TestSubscribeReceivesUpdates(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)

	ch, cancel := fx.s.Subscribe()
	first := <-ch
	assert.Empty(t, first.Positions)
	assert.Equal(t, 1.0, testutil.ToFloat64(fx.m.Subscribers))

	fx.open(t, "EURUSD", ledger.Long, 1, 1.08)
	fx.open(t, "EURUSD", ledger.Long, 1, 1.08)

	// Only the latest view is kept for a slow reader.
	v := <-ch
	assert.Len(t, v.Positions, 2)

	cancel()
	_, ok := <-ch
	assert.False(t, ok)
	assert.Zero(t, testutil.ToFloat64(fx.m.Subscribers))
	cancel()
}

func TestStartStopKeepsPositions(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, func(o *Options) { o.TickInterval = 5 * time.Millisecond })

	p := fx.open(t, "EURUSD", ledger.Long, 1000, 1.08)
	fx.feed.set("EURUSD", 1.09)

	require.True(t, fx.s.Start(context.Background()))
	assert.False(t, fx.s.Start(context.Background()))
	assert.True(t, fx.s.Running())
	assert.True(t, fx.s.View().Running)

	require.Eventually(t, func() bool {
		got, err := fx.s.Position(p.ID)
		return err == nil && got.CurrentPrice == 1.09
	}, time.Second, 5*time.Millisecond)

	require.True(t, fx.s.Stop())
	assert.False(t, fx.s.Stop())
	assert.False(t, fx.s.Running())

	v := fx.s.View()
	assert.False(t, v.Running)
	require.Len(t, v.Positions, 1)
	assert.True(t, v.Positions[0].IsOpen())
	assert.InDelta(t, 10.0, v.Positions[0].PnL, 1e-6)

	steps := fx.feed.steps
	time.Sleep(20 * time.Millisecond)
	fx.feed.mu.Lock()
	assert.Equal(t, steps, fx.feed.steps)
	fx.feed.mu.Unlock()
}

func TestShutdownClosesJournalAndSubscribers(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)

	ch, _ := fx.s.Subscribe()
	<-ch
	require.NoError(t, fx.s.Shutdown())

	_, ok := <-ch
	assert.False(t, ok)
	assert.True(t, fx.j.closed)
}

func TestWithSimulatorFeed(t *testing.T) {
	t.Parallel()

	sim := feed.New(market.DefaultInstruments, feed.WithRand(rand.New(rand.NewSource(1))))
	s, err := New(Options{StartingBalance: 100000, Feed: sim, Logger: logging.Discard()})
	require.NoError(t, err)
	defer s.Shutdown()

	ctx := context.Background()
	p, err := s.OpenAtMarket(ctx, ledger.OpenRequest{Instrument: "EURUSD", Direction: ledger.Long, Quantity: 100000})
	require.NoError(t, err)
	assert.Equal(t, 1.0845, p.EntryPrice)

	for i := 0; i < 50; i++ {
		res := s.Tick(ctx)
		assert.Len(t, res.Ticks, len(market.DefaultInstruments))
		assert.Equal(t, 1, res.Marked)
	}

	v := s.View()
	price, err := sim.GetPrice(ctx, "EURUSD")
	require.NoError(t, err)
	require.Len(t, v.Positions, 1)
	assert.Equal(t, price, v.Positions[0].CurrentPrice)
	assert.InDelta(t, v.Account.Balance+v.Positions[0].PnL, v.Account.Equity, 1e-6)
	assert.Equal(t, uint64(50), v.Ticks)
}
