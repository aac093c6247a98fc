package indicators

import (
	"fmt"

	"github.com/markcheno/go-talib"
)

// SMA returns the simple moving average of values over window.
//
// out[i] is the mean of values[i-window+1..i], summed in order. It depends on
// nothing outside that window, so the same value comes out whether the input
// is the full series or any trailing slice that still covers the window.
func SMA(values []float64, window int) ([]float64, error) {
	if window <= 0 {
		return nil, fmt.Errorf("window must be positive, got %d", window)
	}

	out := undefined(len(values))
	for i := window - 1; i < len(values); i++ {
		sum := 0.0
		for _, v := range values[i-window+1 : i+1] {
			sum += v
		}
		out[i] = sum / float64(window)
	}
	return out, nil
}

// EMA returns the exponential moving average of values over window, seeded
// with the SMA of the first window observations.
//
// Unlike SMA, out[i] depends on the whole prefix values[0..i].
func EMA(values []float64, window int) ([]float64, error) {
	if window <= 0 {
		return nil, fmt.Errorf("window must be positive, got %d", window)
	}

	out := undefined(len(values))
	if len(values) < window {
		return out, nil
	}

	ema := talib.Ema(values, window)
	copy(out[window-1:], ema[window-1:])
	return out, nil
}
