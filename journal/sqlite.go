package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/smacross/backtest"
	"github.com/rustyeddy/smacross/internal/logging"
	"github.com/rustyeddy/smacross/pkg/id"
)

// SQLite is the run journal. It implements backtest.Recorder.
type SQLite struct {
	db *sql.DB

	// SaveBars also stores the price series of every recorded run.
	SaveBars bool

	now func() time.Time
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// single writer; concurrent runners queue on the pool
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal schema: %w", err)
	}
	return &SQLite{db: db, now: time.Now}, nil
}

// RecordRun stores the run, its trades, its equity curve and optionally its
// bars in one transaction and returns the new run id.
func (j *SQLite) RecordRun(ctx context.Context, res *backtest.Result) (string, error) {
	created := j.now().UTC()
	runID := id.At(created)
	sym := res.Symbol()

	cfg, err := json.Marshal(res.Config)
	if err != nil {
		return "", err
	}
	metrics, err := json.Marshal(res.Metrics)
	if err != nil {
		return "", err
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO backtest_runs
		(id, run_name, symbol, timeframe, start_time, end_time, config, metrics, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, RunName(sym, created), sym, res.Config.Params.Timeframe,
		nullTS(res.Start), nullTS(res.End), string(cfg), string(metrics), formatTS(created),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	if err := insertTrades(ctx, tx, runID, res); err != nil {
		return "", err
	}
	if err := insertEquity(ctx, tx, runID, res); err != nil {
		return "", err
	}
	if j.SaveBars {
		if err := insertBars(ctx, tx, runID, res); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	logging.For("journal").Debug("run recorded",
		"run_id", runID, "symbol", sym, "trades", len(res.Trades), "bars_saved", j.SaveBars)
	return runID, nil
}

func insertTrades(ctx context.Context, tx *sql.Tx, runID string, res *backtest.Result) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trades (run_id, seq, timestamp, symbol, side, price, qty)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, t := range res.Trades {
		if _, err := stmt.ExecContext(ctx, runID, i, formatTS(t.Time), t.Symbol, string(t.Side), t.Price, t.Quantity); err != nil {
			return fmt.Errorf("insert trade %d: %w", i, err)
		}
	}
	return nil
}

func insertEquity(ctx context.Context, tx *sql.Tx, runID string, res *backtest.Result) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO equity (run_id, timestamp, cash, quantity, mark_value, portfolio_value)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range res.Equity {
		if _, err := stmt.ExecContext(ctx, runID, formatTS(p.Time), p.Cash, p.Quantity, p.MarkValue, p.PortfolioValue); err != nil {
			return fmt.Errorf("insert equity: %w", err)
		}
	}
	return nil
}

func insertBars(ctx context.Context, tx *sql.Tx, runID string, res *backtest.Result) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO bars (run_id, timestamp, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, b := range res.Bars {
		if _, err := stmt.ExecContext(ctx, runID, formatTS(b.Time), b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			return fmt.Errorf("insert bar: %w", err)
		}
	}
	return nil
}

func nullTS(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTS(t), Valid: true}
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
