package strategies

import (
	"fmt"
	"math"
	"strings"

	"github.com/rustyeddy/smacross/indicators"
)

// Params configures one moving-average crossover run for one symbol.
// There are no implicit defaults: every required field must be set.
type Params struct {
	Symbol    string `json:"symbol"`
	Timeframe string `json:"timeframe"`

	ShortWindow int `json:"short_window"`
	LongWindow  int `json:"long_window"`

	StopLossPct   float64 `json:"stop_loss_pct"`   // 0.01 = 1%
	TakeProfitPct float64 `json:"take_profit_pct"` // 0.50 = 50%

	// AllocationSize is the cash committed to each entry; the quantity
	// bought is floor(AllocationSize / price).
	AllocationSize float64 `json:"allocation_size"`

	MAType indicators.MAType `json:"ma_type,omitempty"`

	// RiskExitsFirst evaluates stop-loss and take-profit before the bearish
	// cross exit. The default checks the bearish cross first, so a bar that
	// is both a bearish cross and a stop (the last bar of closes
	// 10,10,9,11,12,8 with 2/3 windows and a 10% stop) sells as SELL, and
	// as SELL_STOPLOSS when this is set.
	RiskExitsFirst bool `json:"risk_exits_first,omitempty"`
}

// ConfigurationError reports an invalid parameter. It is returned before
// any simulation starts.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}

func configErr(field, reason string) error {
	return &ConfigurationError{Field: field, Reason: reason}
}

func positive(x float64) bool {
	return x > 0 && !math.IsInf(x, 0)
}

// Validate returns a *ConfigurationError for the first bad field.
func (p Params) Validate() error {
	if strings.TrimSpace(p.Symbol) == "" {
		return configErr("symbol", "is required")
	}
	if strings.TrimSpace(p.Timeframe) == "" {
		return configErr("timeframe", "is required")
	}
	if p.ShortWindow <= 0 {
		return configErr("short_window", "must be positive")
	}
	if p.LongWindow <= 0 {
		return configErr("long_window", "must be positive")
	}
	if p.ShortWindow >= p.LongWindow {
		return configErr("short_window", fmt.Sprintf("(%d) must be less than long_window (%d)", p.ShortWindow, p.LongWindow))
	}
	if !positive(p.StopLossPct) {
		return configErr("stop_loss_pct", "must be positive")
	}
	if !positive(p.TakeProfitPct) {
		return configErr("take_profit_pct", "must be positive")
	}
	if !positive(p.AllocationSize) {
		return configErr("allocation_size", "must be positive")
	}
	if _, err := indicators.ParseMAType(string(p.MAType)); err != nil {
		return configErr("ma_type", err.Error())
	}
	return nil
}

// MinBars is the shortest series that can produce a signal: both averages
// defined on two consecutive bars.
func (p Params) MinBars() int {
	return p.LongWindow + 1
}
