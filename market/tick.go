package market

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrPriceUnavailable is returned when no price is known for an instrument.
var ErrPriceUnavailable = errors.New("price unavailable")

// PriceSource supplies the latest price for an instrument.
type PriceSource interface {
	GetPrice(ctx context.Context, instrument string) (float64, error)
}

type Tick struct {
	Instrument string    `json:"instrument"`
	Price      float64   `json:"price"`
	Time       time.Time `json:"time"`
}

// PriceStore holds the last known tick per instrument.
type PriceStore struct {
	mu    sync.RWMutex
	ticks map[string]Tick
}

func NewPriceStore() *PriceStore {
	return &PriceStore{ticks: make(map[string]Tick)}
}

func (ps *PriceStore) Set(t Tick) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.ticks[t.Instrument] = t
}

func (ps *PriceStore) Get(instr string) (Tick, error) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	t, ok := ps.ticks[instr]
	if !ok {
		return Tick{}, ErrPriceUnavailable
	}
	return t, nil
}

// GetPrice implements PriceSource.
func (ps *PriceStore) GetPrice(_ context.Context, instr string) (float64, error) {
	t, err := ps.Get(instr)
	if err != nil {
		return 0, err
	}
	return t.Price, nil
}

// Snapshot returns every known tick ordered by instrument.
func (ps *PriceStore) Snapshot() []Tick {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	out := make([]Tick, 0, len(ps.ticks))
	for _, t := range ps.ticks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Instrument < out[j].Instrument })
	return out
}

// Clear forgets all prices.
func (ps *PriceStore) Clear() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.ticks = make(map[string]Tick)
}
