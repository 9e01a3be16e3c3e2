// Package feed generates synthetic prices with a bounded uniform random
// walk.
package feed

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/rustyeddy/papertrade/market"
)

// DefaultMaxStep bounds a single move to +/-0.5%.
const DefaultMaxStep = 0.005

type Option func(*Simulator)

// WithRand injects the random source. Tests pass a seeded one.
func WithRand(r *rand.Rand) Option {
	return func(s *Simulator) { s.rnd = r }
}

func WithMaxStep(step float64) Option {
	return func(s *Simulator) {
		if step > 0 {
			s.maxStep = step
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Simulator) { s.now = now }
}

// Simulator walks each instrument from its seed price. It is safe for
// concurrent use.
type Simulator struct {
	mu      sync.Mutex
	seeds   map[string]float64
	prices  *market.PriceStore
	rnd     *rand.Rand
	maxStep float64
	now     func() time.Time
}

func New(instruments []market.Instrument, opts ...Option) *Simulator {
	s := &Simulator{
		seeds:   market.Seeds(instruments),
		prices:  market.NewPriceStore(),
		maxStep: DefaultMaxStep,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rnd == nil {
		s.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	s.Reset()
	return s
}

// Instruments returns the seeded symbols in sorted order.
func (s *Simulator) Instruments() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.seeds))
	for sym := range s.seeds {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// Step moves every instrument that has a current price by
// price*(1+U), U uniform in [-maxStep, maxStep], and returns the new ticks
// in instrument order. Instruments without a price are held.
func (s *Simulator) Step() []market.Tick {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	syms := make([]string, 0, len(s.seeds))
	for sym := range s.seeds {
		syms = append(syms, sym)
	}
	sort.Strings(syms)

	ticks := make([]market.Tick, 0, len(syms))
	for _, sym := range syms {
		cur, err := s.prices.Get(sym)
		if err != nil {
			continue
		}
		u := (s.rnd.Float64()*2 - 1) * s.maxStep
		next := cur.Price * (1 + u)
		if next <= 0 {
			continue
		}
		t := market.Tick{Instrument: sym, Price: next, Time: now}
		s.prices.Set(t)
		ticks = append(ticks, t)
	}
	return ticks
}

// Reset restores every instrument to its seed price.
func (s *Simulator) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices.Clear()
	now := s.now()
	for sym, seed := range s.seeds {
		s.prices.Set(market.Tick{Instrument: sym, Price: seed, Time: now})
	}
}

// Set overrides the current price of an instrument, adding it with price
// as its seed if it is new.
func (s *Simulator) Set(instrument string, price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seeds[instrument]; !ok {
		s.seeds[instrument] = price
	}
	s.prices.Set(market.Tick{Instrument: instrument, Price: price, Time: s.now()})
}

// GetPrice implements market.PriceSource.
func (s *Simulator) GetPrice(ctx context.Context, instrument string) (float64, error) {
	return s.prices.GetPrice(ctx, instrument)
}

// Prices returns the last known tick per instrument.
func (s *Simulator) Prices() []market.Tick {
	return s.prices.Snapshot()
}
