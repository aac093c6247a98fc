package market

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ReadBarsCSV reads rows of
//
//	timestamp,open,high,low,close[,volume]
//
// where timestamp is RFC3339, RFC3339Nano or a plain 2006-01-02 date.
//
// A single header row is allowed. Empty rows are skipped. Bars outside
// [from, to) are dropped when from/to are non-zero. The result is not
// validated; callers run ValidateSeries.
func ReadBarsCSV(r io.Reader, from, to time.Time) ([]Bar, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var (
		out      []Bar
		sawFirst bool
		line     int
	)
	for {
		row, err := cr.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		line++
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}

		if !sawFirst {
			sawFirst = true
			if isHeader(row[0]) {
				continue
			}
		}

		b, err := parseBarRow(row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if !inRange(b.Time, from, to) {
			continue
		}
		out = append(out, b)
	}
}

// LoadBarsCSV opens path and reads it with ReadBarsCSV.
func LoadBarsCSV(path string, from, to time.Time) ([]Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	bars, err := ReadBarsCSV(f, from, to)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return bars, nil
}

func isHeader(first string) bool {
	switch strings.ToLower(strings.TrimSpace(first)) {
	case "time", "timestamp", "date", "datetime":
		return true
	}
	return false
}

func parseBarRow(row []string) (Bar, error) {
	if len(row) < 5 {
		return Bar{}, fmt.Errorf("need at least 5 columns (timestamp,open,high,low,close), got %d", len(row))
	}

	t, err := parseTime(strings.TrimSpace(row[0]))
	if err != nil {
		return Bar{}, err
	}

	var vals [5]float64
	names := [5]string{"open", "high", "low", "close", "volume"}
	for i := 0; i < 5; i++ {
		col := i + 1
		if col >= len(row) || strings.TrimSpace(row[col]) == "" {
			if i == 4 {
				break
			}
			return Bar{}, fmt.Errorf("missing %s", names[i])
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(row[col]), 64)
		if err != nil {
			return Bar{}, fmt.Errorf("bad %s %q: %w", names[i], row[col], err)
		}
		vals[i] = v
	}

	return Bar{
		Time:   t,
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}, nil
}

func parseTime(ts string) (time.Time, error) {
	if ts == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range []string{time.RFC3339, time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, ts); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("bad time %q", ts)
}

func inRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && !t.Before(to) {
		return false
	}
	return true
}

// BarSource supplies the bar series for one symbol and timeframe.
type BarSource interface {
	Bars(ctx context.Context, symbol, timeframe string) ([]Bar, error)
}

// CSVSource reads <Dir>/<SYMBOL>_<timeframe>.csv.
type CSVSource struct {
	Dir  string
	From time.Time
	To   time.Time
}

func (s CSVSource) Path(symbol, timeframe string) string {
	name := fmt.Sprintf("%s_%s.csv", strings.ToUpper(symbol), timeframe)
	return filepath.Join(s.Dir, name)
}

func (s CSVSource) Bars(ctx context.Context, symbol, timeframe string) ([]Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return LoadBarsCSV(s.Path(symbol, timeframe), s.From, s.To)
}
