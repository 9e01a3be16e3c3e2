// Package journal records closed positions and equity snapshots outside
// the in-memory ledger.
package journal

import (
	"errors"
	"strings"
	"time"

	"github.com/rustyeddy/papertrade/ledger"
)

// PositionRecord is written once, when a position closes.
type PositionRecord struct {
	PositionID string    `json:"position_id"`
	Instrument string    `json:"instrument"`
	Direction  string    `json:"direction"`
	Quantity   float64   `json:"quantity"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	OpenTime   time.Time `json:"open_time"`
	CloseTime  time.Time `json:"close_time"`
	RealizedPL float64   `json:"realized_pl"`
	PnLPercent float64   `json:"pnl_percent"`
	Strategy   string    `json:"strategy,omitempty"`
	Tags       []string  `json:"tags,omitempty"`
	Reason     string    `json:"reason"`
}

// EquitySnapshot is written after every ledger mutation.
type EquitySnapshot struct {
	Time         time.Time `json:"time"`
	Event        string    `json:"event"`
	Version      uint64    `json:"version"`
	Balance      float64   `json:"balance"`
	Equity       float64   `json:"equity"`
	MarginUsed   float64   `json:"margin_used"`
	FreeMargin   float64   `json:"free_margin"`
	MarginLevel  float64   `json:"margin_level"`
	OpenTrades   int       `json:"open_trades"`
	ClosedTrades int       `json:"closed_trades"`
}

type Journal interface {
	RecordPosition(PositionRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

// FromPosition builds the record for a closed position.
func FromPosition(p ledger.Position, reason string) PositionRecord {
	rec := PositionRecord{
		PositionID: p.ID,
		Instrument: p.Instrument,
		Direction:  string(p.Direction),
		Quantity:   p.Quantity,
		EntryPrice: p.EntryPrice,
		OpenTime:   p.OpenedAt,
		RealizedPL: p.PnL,
		PnLPercent: p.PnLPercent,
		Strategy:   p.Strategy,
		Tags:       append([]string(nil), p.Tags...),
		Reason:     reason,
	}
	if p.ExitPrice != nil {
		rec.ExitPrice = *p.ExitPrice
	}
	if p.ClosedAt != nil {
		rec.CloseTime = *p.ClosedAt
	}
	return rec
}

// Position turns a record back into a closed ledger position.
func (r PositionRecord) Position() ledger.Position {
	exit := r.ExitPrice
	closed := r.CloseTime
	return ledger.Position{
		ID:           r.PositionID,
		Instrument:   r.Instrument,
		Direction:    ledger.Direction(r.Direction),
		Quantity:     r.Quantity,
		EntryPrice:   r.EntryPrice,
		CurrentPrice: r.ExitPrice,
		Status:       ledger.StatusClosed,
		PnL:          r.RealizedPL,
		PnLPercent:   r.PnLPercent,
		OpenedAt:     r.OpenTime,
		ExitPrice:    &exit,
		ClosedAt:     &closed,
		Strategy:     r.Strategy,
		Tags:         append([]string(nil), r.Tags...),
	}
}

func joinTags(tags []string) string { return strings.Join(tags, ",") }

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordPosition(PositionRecord) error { return nil }
func (Nop) RecordEquity(EquitySnapshot) error   { return nil }
func (Nop) Close() error                        { return nil }

// Multi fans records out to several journals. Every journal is attempted;
// the errors are joined.
type Multi []Journal

func (m Multi) RecordPosition(r PositionRecord) error {
	var errs []error
	for _, j := range m {
		errs = append(errs, j.RecordPosition(r))
	}
	return errors.Join(errs...)
}

func (m Multi) RecordEquity(e EquitySnapshot) error {
	var errs []error
	for _, j := range m {
		errs = append(errs, j.RecordEquity(e))
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, j := range m {
		errs = append(errs, j.Close())
	}
	return errors.Join(errs...)
}
