// Package journal persists finished backtests: a SQLite store that the
// query API reads from, and flat JSON/CSV files per run.
package journal

import (
	"database/sql"
	"errors"
	"time"

	"github.com/rustyeddy/smacross/backtest"
)

var ErrRunNotFound = errors.New("run not found")

// Run is one row of backtest_runs.
type Run struct {
	ID        string           `json:"id"`
	Name      string           `json:"run_name"`
	Symbol    string           `json:"symbol"`
	Timeframe string           `json:"timeframe"`
	Start     *time.Time       `json:"start_time"`
	End       *time.Time       `json:"end_time"`
	Config    backtest.Config  `json:"config"`
	Metrics   backtest.Metrics `json:"metrics"`
	CreatedAt time.Time        `json:"created_at"`
}

const tsLayout = "2006-01-02T15:04:05.000000000Z"

func formatTS(t time.Time) string {
	return t.UTC().Format(tsLayout)
}

func parseTS(s string) (time.Time, error) {
	return time.Parse(tsLayout, s)
}

func parseNullTS(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTS(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// RunName is the default name of a run created at t.
func RunName(symbol string, t time.Time) string {
	return symbol + "_" + t.UTC().Format(time.RFC3339)
}
