package journal

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

// RecordPosition upserts so a replayed close does not fail on the primary
// key.
func (j *SQLite) RecordPosition(r PositionRecord) error {
	_, err := j.db.Exec(`
		INSERT OR REPLACE INTO positions
		(position_id, instrument, direction, quantity, entry_price, exit_price, open_time, close_time, realized_pl, pnl_percent, strategy, tags, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.PositionID, r.Instrument, r.Direction, r.Quantity, r.EntryPrice,
		r.ExitPrice, r.OpenTime.UTC(), r.CloseTime.UTC(), r.RealizedPL, r.PnLPercent,
		r.Strategy, joinTags(r.Tags), r.Reason,
	)
	return err
}

func (j *SQLite) RecordEquity(e EquitySnapshot) error {
	_, err := j.db.Exec(`
		INSERT INTO equity
		(time, event, version, balance, equity, margin_used, free_margin, margin_level, open_trades, closed_trades)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Time.UTC(), e.Event, e.Version, e.Balance, e.Equity, e.MarginUsed,
		e.FreeMargin, e.MarginLevel, e.OpenTrades, e.ClosedTrades,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
