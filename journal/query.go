package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rustyeddy/smacross/backtest"
	"github.com/rustyeddy/smacross/ledger"
	"github.com/rustyeddy/smacross/market"
	"github.com/rustyeddy/smacross/pkg/id"
)

const runColumns = `id, run_name, symbol, timeframe, start_time, end_time, config, metrics, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var (
		r                Run
		start, end       sql.NullString
		cfg, metrics, ts string
	)
	if err := s.Scan(&r.ID, &r.Name, &r.Symbol, &r.Timeframe, &start, &end, &cfg, &metrics, &ts); err != nil {
		return Run{}, err
	}

	var err error
	if ts == "" {
		// no created_at: use the time encoded in the run id
		r.CreatedAt, err = id.Time(r.ID)
	} else {
		r.CreatedAt, err = parseTS(ts)
	}
	if err != nil {
		return Run{}, fmt.Errorf("run %s created_at: %w", r.ID, err)
	}
	if r.Start, err = parseNullTS(start); err != nil {
		return Run{}, fmt.Errorf("run %s start_time: %w", r.ID, err)
	}
	if r.End, err = parseNullTS(end); err != nil {
		return Run{}, fmt.Errorf("run %s end_time: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(cfg), &r.Config); err != nil {
		return Run{}, fmt.Errorf("run %s config: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(metrics), &r.Metrics); err != nil {
		return Run{}, fmt.Errorf("run %s metrics: %w", r.ID, err)
	}
	return r, nil
}

// ListRuns returns every run, newest first.
func (j *SQLite) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM backtest_runs
		ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetRun returns a single run by id.
func (j *SQLite) GetRun(ctx context.Context, runID string) (Run, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT `+runColumns+`
		FROM backtest_runs
		WHERE id = ?`, runID)

	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%q: %w", runID, ErrRunNotFound)
	}
	return r, err
}

func (j *SQLite) requireRun(ctx context.Context, runID string) error {
	var n int
	err := j.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM backtest_runs WHERE id = ?`, runID).Scan(&n)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%q: %w", runID, ErrRunNotFound)
	}
	return nil
}

// ListTrades returns the run's ledger in order.
func (j *SQLite) ListTrades(ctx context.Context, runID string) ([]ledger.TradeEvent, error) {
	if err := j.requireRun(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT timestamp, symbol, side, price, qty
		FROM trades
		WHERE run_id = ?
		ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ledger.TradeEvent{}
	for rows.Next() {
		var (
			e    ledger.TradeEvent
			ts   string
			side string
		)
		if err := rows.Scan(&ts, &e.Symbol, &side, &e.Price, &e.Quantity); err != nil {
			return nil, err
		}
		if e.Time, err = parseTS(ts); err != nil {
			return nil, err
		}
		e.Side = ledger.Side(side)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListBars returns the stored price series, empty when the run was
// recorded without bars.
func (j *SQLite) ListBars(ctx context.Context, runID string) ([]market.Bar, error) {
	if err := j.requireRun(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT timestamp, open, high, low, close, volume
		FROM bars
		WHERE run_id = ?
		ORDER BY timestamp ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []market.Bar{}
	for rows.Next() {
		var (
			b  market.Bar
			ts string
		)
		if err := rows.Scan(&ts, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, err
		}
		if b.Time, err = parseTS(ts); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListEquity returns the run's equity curve.
func (j *SQLite) ListEquity(ctx context.Context, runID string) ([]backtest.EquityPoint, error) {
	if err := j.requireRun(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT timestamp, cash, quantity, mark_value, portfolio_value
		FROM equity
		WHERE run_id = ?
		ORDER BY timestamp ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []backtest.EquityPoint{}
	for rows.Next() {
		var (
			p  backtest.EquityPoint
			ts string
		)
		if err := rows.Scan(&ts, &p.Cash, &p.Quantity, &p.MarkValue, &p.PortfolioValue); err != nil {
			return nil, err
		}
		if p.Time, err = parseTS(ts); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteRun removes a run and everything recorded with it.
func (j *SQLite) DeleteRun(ctx context.Context, runID string) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"trades", "bars", "equity"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE run_id = ?`, runID); err != nil {
			return err
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM backtest_runs WHERE id = ?`, runID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%q: %w", runID, ErrRunNotFound)
	}
	return tx.Commit()
}
