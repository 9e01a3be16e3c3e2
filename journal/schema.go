package journal

const Schema = `
CREATE TABLE IF NOT EXISTS positions (
	position_id TEXT PRIMARY KEY,
	instrument TEXT NOT NULL,
	direction TEXT NOT NULL,
	quantity REAL NOT NULL,
	entry_price REAL NOT NULL,
	exit_price REAL NOT NULL,
	open_time DATETIME NOT NULL,
	close_time DATETIME NOT NULL,
	realized_pl REAL NOT NULL,
	pnl_percent REAL NOT NULL,
	strategy TEXT NOT NULL DEFAULT '',
	tags TEXT NOT NULL DEFAULT '',
	reason TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_positions_close_time ON positions(close_time);

CREATE TABLE IF NOT EXISTS equity (
	time DATETIME NOT NULL,
	event TEXT NOT NULL,
	version INTEGER NOT NULL,
	balance REAL NOT NULL,
	equity REAL NOT NULL,
	margin_used REAL NOT NULL,
	free_margin REAL NOT NULL,
	margin_level REAL NOT NULL,
	open_trades INTEGER NOT NULL,
	closed_trades INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_equity_time ON equity(time);
`
