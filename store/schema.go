package store

const schema = `
CREATE TABLE IF NOT EXISTS trades (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL DEFAULT '',
	symbol TEXT NOT NULL,
	direction TEXT NOT NULL,
	entry_price REAL NOT NULL,
	exit_price REAL,
	units REAL NOT NULL,
	entry_time DATETIME NOT NULL,
	exit_time DATETIME,
	stop_loss REAL,
	take_profit REAL,
	pnl REAL,
	pnl_percent REAL,
	status TEXT NOT NULL,
	currency TEXT NOT NULL,
	notes TEXT NOT NULL DEFAULT '',
	tags TEXT NOT NULL DEFAULT '[]',
	strategy TEXT NOT NULL DEFAULT '',
	screenshots TEXT NOT NULL DEFAULT '[]',
	estimated INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_exit_time ON trades(exit_time);
CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol);
`
