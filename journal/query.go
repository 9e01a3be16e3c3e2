package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a journal lookup matches nothing.
var ErrNotFound = errors.New("not found")

const positionColumns = `position_id, instrument, direction, quantity, entry_price, exit_price, open_time, close_time, realized_pl, pnl_percent, strategy, tags, reason`

type scanner interface {
	Scan(dest ...any) error
}

func scanPosition(s scanner) (PositionRecord, error) {
	var (
		rec  PositionRecord
		tags string
	)
	err := s.Scan(
		&rec.PositionID,
		&rec.Instrument,
		&rec.Direction,
		&rec.Quantity,
		&rec.EntryPrice,
		&rec.ExitPrice,
		&rec.OpenTime,
		&rec.CloseTime,
		&rec.RealizedPL,
		&rec.PnLPercent,
		&rec.Strategy,
		&tags,
		&rec.Reason,
	)
	rec.Tags = splitTags(tags)
	return rec, err
}

// GetPosition returns a single closed-position record by ID.
func (j *SQLite) GetPosition(positionID string) (PositionRecord, error) {
	row := j.db.QueryRow(`SELECT `+positionColumns+` FROM positions WHERE position_id = ?`, positionID)

	rec, err := scanPosition(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return PositionRecord{}, fmt.Errorf("position %q: %w", positionID, ErrNotFound)
		}
		return PositionRecord{}, err
	}
	return rec, nil
}

// ListPositionsClosedBetween returns positions whose close_time is within
// [start, end), oldest first.
func (j *SQLite) ListPositionsClosedBetween(start, end time.Time) ([]PositionRecord, error) {
	rows, err := j.db.Query(`
		SELECT `+positionColumns+`
		FROM positions
		WHERE close_time >= ? AND close_time < ?
		ORDER BY close_time ASC`, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PositionRecord
	for rows.Next() {
		rec, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListEquityBetween returns snapshots within [start, end), oldest first.
func (j *SQLite) ListEquityBetween(start, end time.Time) ([]EquitySnapshot, error) {
	rows, err := j.db.Query(`
		SELECT time, event, version, balance, equity, margin_used, free_margin, margin_level, open_trades, closed_trades
		FROM equity
		WHERE time >= ? AND time < ?
		ORDER BY time ASC`, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquitySnapshot
	for rows.Next() {
		var e EquitySnapshot
		if err := rows.Scan(
			&e.Time,
			&e.Event,
			&e.Version,
			&e.Balance,
			&e.Equity,
			&e.MarginUsed,
			&e.FreeMargin,
			&e.MarginLevel,
			&e.OpenTrades,
			&e.ClosedTrades,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
