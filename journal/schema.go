package journal

// Timestamps are stored as fixed-width UTC text (tsLayout) so that
// lexical order equals time order.
const Schema = `
CREATE TABLE IF NOT EXISTS backtest_runs (
	id TEXT PRIMARY KEY,
	run_name TEXT NOT NULL,
	symbol TEXT NOT NULL,
	timeframe TEXT NOT NULL,
	start_time TEXT,
	end_time TEXT,
	config TEXT NOT NULL,
	metrics TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_created ON backtest_runs(created_at);
CREATE INDEX IF NOT EXISTS idx_runs_symbol ON backtest_runs(symbol);

CREATE TABLE IF NOT EXISTS trades (
	run_id TEXT NOT NULL REFERENCES backtest_runs(id) ON DELETE CASCADE,
	seq INTEGER NOT NULL,
	timestamp TEXT NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	price REAL NOT NULL,
	qty INTEGER NOT NULL,
	PRIMARY KEY (run_id, seq)
);

CREATE TABLE IF NOT EXISTS bars (
	run_id TEXT NOT NULL REFERENCES backtest_runs(id) ON DELETE CASCADE,
	timestamp TEXT NOT NULL,
	open REAL NOT NULL,
	high REAL NOT NULL,
	low REAL NOT NULL,
	close REAL NOT NULL,
	volume REAL NOT NULL,
	PRIMARY KEY (run_id, timestamp)
);

CREATE TABLE IF NOT EXISTS equity (
	run_id TEXT NOT NULL REFERENCES backtest_runs(id) ON DELETE CASCADE,
	timestamp TEXT NOT NULL,
	cash REAL NOT NULL,
	quantity INTEGER NOT NULL,
	mark_value REAL NOT NULL,
	portfolio_value REAL NOT NULL,
	PRIMARY KEY (run_id, timestamp)
);
`
