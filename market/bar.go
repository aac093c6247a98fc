// Package market holds the price series the engine consumes.
package market

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrEmptySeries     = errors.New("empty price series")
	ErrUnorderedSeries = errors.New("bar timestamps must be strictly increasing")
	ErrBadPrice        = errors.New("close price must be positive and finite")
)

// Bar is one OHLCV observation.
type Bar struct {
	Time   time.Time `json:"timestamp"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// ValidateSeries checks the price supplier contract: at least one bar,
// strictly increasing unique timestamps and a usable close on every bar.
// Gaps in time are normal.
func ValidateSeries(bars []Bar) error {
	if len(bars) == 0 {
		return ErrEmptySeries
	}
	for i, b := range bars {
		if b.Close <= 0 || math.IsNaN(b.Close) || math.IsInf(b.Close, 0) {
			return fmt.Errorf("bar %d (%s): %w", i, b.Time.Format(time.RFC3339), ErrBadPrice)
		}
		if i > 0 && !b.Time.After(bars[i-1].Time) {
			return fmt.Errorf("bar %d (%s after %s): %w", i,
				b.Time.Format(time.RFC3339), bars[i-1].Time.Format(time.RFC3339), ErrUnorderedSeries)
		}
	}
	return nil
}

// Closes returns the close column.
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// Times returns the timestamp column.
func Times(bars []Bar) []time.Time {
	out := make([]time.Time, len(bars))
	for i, b := range bars {
		out[i] = b.Time
	}
	return out
}

// DailyBars builds synthetic bars from closes, one per calendar day starting
// at start. Open/High/Low equal the close.
func DailyBars(start time.Time, closes ...float64) []Bar {
	out := make([]Bar, len(closes))
	for i, c := range closes {
		out[i] = Bar{
			Time:  start.AddDate(0, 0, i),
			Open:  c,
			High:  c,
			Low:   c,
			Close: c,
		}
	}
	return out
}
