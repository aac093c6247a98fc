// Package indicators computes moving-average series over a close column.
//
// Every function returns a slice aligned 1:1 with its input. Positions where
// the indicator is not yet defined hold NaN, so callers test with Defined
// rather than comparing against zero.
package indicators

import (
	"fmt"
	"math"
	"strings"
)

// MAType selects the moving average used for the crossover lines.
type MAType string

const (
	SMAType MAType = "sma"
	EMAType MAType = "ema"
)

// ParseMAType maps "" to SMA.
func ParseMAType(s string) (MAType, error) {
	switch MAType(strings.ToLower(strings.TrimSpace(s))) {
	case "", SMAType:
		return SMAType, nil
	case EMAType:
		return EMAType, nil
	default:
		return "", fmt.Errorf("unknown moving average %q (supported: sma, ema)", s)
	}
}

// Defined reports whether v holds a computed value.
func Defined(v float64) bool {
	return !math.IsNaN(v)
}

// MovingAverage dispatches on kind.
func MovingAverage(kind MAType, values []float64, window int) ([]float64, error) {
	switch kind {
	case "", SMAType:
		return SMA(values, window)
	case EMAType:
		return EMA(values, window)
	default:
		return nil, fmt.Errorf("unknown moving average %q", kind)
	}
}

func undefined(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
