// Package ledger keeps the virtual account's positions.
//
// The ledger only grows or transitions positions from open to closed; Reset
// is the single operation that discards history. It is not safe for
// concurrent use: the session serializes every call.
package ledger

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rustyeddy/papertrade/pkg/id"
)

type OpenRequest struct {
	Instrument string    `json:"instrument"`
	Direction  Direction `json:"direction"`
	Quantity   float64   `json:"quantity"`
	EntryPrice float64   `json:"entryPrice"`
	StopLoss   *float64  `json:"stopLoss,omitempty"`
	TakeProfit *float64  `json:"takeProfit,omitempty"`
	Strategy   string    `json:"strategy,omitempty"`
	Notes      string    `json:"notes,omitempty"`
	Tags       []string  `json:"tags,omitempty"`
}

// Trigger reports a position whose stop or target was crossed by a mark.
type Trigger struct {
	PositionID string
	Instrument string
	Kind       string // "stop_loss" or "take_profit"
	Price      float64
}

type Ledger struct {
	balance   float64
	positions []*Position
	index     map[string]*Position
	version   uint64

	now   func() time.Time
	newID func(time.Time) string
}

type Option func(*Ledger)

// WithClock overrides time.Now for opened/closed timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithIDs overrides the position id generator.
func WithIDs(gen func(time.Time) string) Option {
	return func(l *Ledger) { l.newID = gen }
}

func New(startingBalance float64, opts ...Option) *Ledger {
	l := &Ledger{
		balance: startingBalance,
		index:   make(map[string]*Position),
		now:     time.Now,
		newID:   id.NewAt,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Balance is the configured starting balance. It never changes inside a
// session.
func (l *Ledger) Balance() float64 { return l.balance }

// Version increases on every mutation.
func (l *Ledger) Version() uint64 { return l.version }

func (l *Ledger) Len() int { return len(l.positions) }

// NormalizeInstrument trims and upper-cases a symbol so that "eurusd"
// and "EURUSD" name the same feed instrument.
func NormalizeInstrument(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func validate(req OpenRequest) error {
	if NormalizeInstrument(req.Instrument) == "" {
		return invalid("instrument", "is required")
	}
	if req.Direction != Long && req.Direction != Short {
		return invalid("direction", "must be long or short")
	}
	if !positive(req.Quantity) {
		return invalid("quantity", "must be greater than zero")
	}
	if !positive(req.EntryPrice) {
		return invalid("entryPrice", "must be greater than zero")
	}
	if req.StopLoss != nil && !positive(*req.StopLoss) {
		return invalid("stopLoss", "must be greater than zero")
	}
	if req.TakeProfit != nil && !positive(*req.TakeProfit) {
		return invalid("takeProfit", "must be greater than zero")
	}
	return nil
}

func positive(x float64) bool {
	return x > 0 && !math.IsInf(x, 0) && !math.IsNaN(x)
}

// Open validates req and appends a new open position marked at its entry
// price. A rejected request leaves the ledger untouched.
func (l *Ledger) Open(req OpenRequest) (Position, error) {
	if err := validate(req); err != nil {
		return Position{}, err
	}

	at := l.now()
	p := &Position{
		ID:           l.newID(at),
		Instrument:   NormalizeInstrument(req.Instrument),
		Direction:    req.Direction,
		Quantity:     req.Quantity,
		EntryPrice:   req.EntryPrice,
		CurrentPrice: req.EntryPrice,
		Status:       StatusOpen,
		OpenedAt:     at,
		Strategy:     req.Strategy,
		Notes:        req.Notes,
	}
	if req.StopLoss != nil {
		v := *req.StopLoss
		p.StopLoss = &v
	}
	if req.TakeProfit != nil {
		v := *req.TakeProfit
		p.TakeProfit = &v
	}
	if len(req.Tags) > 0 {
		p.Tags = append([]string(nil), req.Tags...)
	}
	p.RiskReward = riskReward(p.EntryPrice, p.StopLoss, p.TakeProfit)

	l.positions = append(l.positions, p)
	l.index[p.ID] = p
	l.version++
	return p.clone(), nil
}

// MarkToMarket revalues every open position on instrument at price. It
// returns the number of positions updated and any stop/target crossings
// seen for the first time.
func (l *Ledger) MarkToMarket(instrument string, price float64) (int, []Trigger, error) {
	if !positive(price) {
		return 0, nil, invalid("price", "must be greater than zero")
	}

	var (
		n        int
		triggers []Trigger
	)
	for _, p := range l.positions {
		if !p.IsOpen() || p.Instrument != instrument {
			continue
		}
		p.CurrentPrice = price
		p.PnL, p.PnLPercent = UnrealizedPnL(p.Direction, p.Quantity, p.EntryPrice, price)
		n++

		if !p.StopHit && p.stopCrossed(price) {
			p.StopHit = true
			triggers = append(triggers, Trigger{PositionID: p.ID, Instrument: p.Instrument, Kind: "stop_loss", Price: price})
		}
		if !p.TargetHit && p.targetCrossed(price) {
			p.TargetHit = true
			triggers = append(triggers, Trigger{PositionID: p.ID, Instrument: p.Instrument, Kind: "take_profit", Price: price})
		}
	}
	if n > 0 {
		l.version++
	}
	return n, triggers, nil
}

// Close freezes an open position at its last marked price.
func (l *Ledger) Close(positionID string) (Position, error) {
	p, ok := l.index[positionID]
	if !ok {
		return Position{}, fmt.Errorf("close %q: %w", positionID, ErrNotFound)
	}
	if !p.IsOpen() {
		return Position{}, fmt.Errorf("close %q: %w", positionID, ErrAlreadyClosed)
	}

	at := l.now()
	exit := p.CurrentPrice
	p.ExitPrice = &exit
	p.ClosedAt = &at
	p.Status = StatusClosed

	l.version++
	return p.clone(), nil
}

// Reset discards every position. The starting balance is kept.
func (l *Ledger) Reset() {
	l.positions = nil
	l.index = make(map[string]*Position)
	l.version++
}

func (l *Ledger) Get(positionID string) (Position, error) {
	p, ok := l.index[positionID]
	if !ok {
		return Position{}, fmt.Errorf("get %q: %w", positionID, ErrNotFound)
	}
	return p.clone(), nil
}

// Positions returns copies in insertion order.
func (l *Ledger) Positions() []Position {
	return l.filter(func(*Position) bool { return true })
}

// Filter selects positions. Zero fields match everything; Instrument is
// compared case-insensitively.
type Filter struct {
	Status     Status
	Instrument string
	Tag        string
}

func (f Filter) match(p *Position) bool {
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	if f.Instrument != "" && !strings.EqualFold(p.Instrument, strings.TrimSpace(f.Instrument)) {
		return false
	}
	if f.Tag != "" && !p.hasTag(f.Tag) {
		return false
	}
	return true
}

// Query returns copies of the positions matching f in insertion order.
func (l *Ledger) Query(f Filter) []Position {
	return l.filter(f.match)
}

// ClosedBetween returns positions closed within [start, end).
func (l *Ledger) ClosedBetween(start, end time.Time) []Position {
	return l.filter(func(p *Position) bool {
		return p.ClosedAt != nil && !p.ClosedAt.Before(start) && p.ClosedAt.Before(end)
	})
}

// Instruments lists the distinct instruments with open positions.
func (l *Ledger) Instruments() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range l.positions {
		if !p.IsOpen() {
			continue
		}
		if _, ok := seen[p.Instrument]; ok {
			continue
		}
		seen[p.Instrument] = struct{}{}
		out = append(out, p.Instrument)
	}
	sort.Strings(out)
	return out
}

func (l *Ledger) filter(keep func(*Position) bool) []Position {
	out := make([]Position, 0, len(l.positions))
	for _, p := range l.positions {
		if keep(p) {
			out = append(out, p.clone())
		}
	}
	return out
}

// SortForDisplay orders open positions first (newest first) followed by
// closed positions, most recently closed first.
func SortForDisplay(ps []Position) {
	sort.SliceStable(ps, func(i, j int) bool {
		a, b := ps[i], ps[j]
		if a.IsOpen() != b.IsOpen() {
			return a.IsOpen()
		}
		if a.IsOpen() {
			if !a.OpenedAt.Equal(b.OpenedAt) {
				return a.OpenedAt.After(b.OpenedAt)
			}
			return a.ID > b.ID
		}
		if !a.ClosedAt.Equal(*b.ClosedAt) {
			return a.ClosedAt.After(*b.ClosedAt)
		}
		return a.ID > b.ID
	})
}
