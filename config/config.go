// Package config loads smacross settings from YAML/JSON files, SMACROSS_*
// environment variables and defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/smacross/backtest"
	"github.com/rustyeddy/smacross/indicators"
	"github.com/rustyeddy/smacross/strategies"
)

const EnvPrefix = "SMACROSS"

// Config is the complete tool configuration.
type Config struct {
	Strategy StrategyConfig `json:"strategy" yaml:"strategy" mapstructure:"strategy"`
	Backtest BacktestConfig `json:"backtest" yaml:"backtest" mapstructure:"backtest"`
	Journal  JournalConfig  `json:"journal" yaml:"journal" mapstructure:"journal"`
	Server   ServerConfig   `json:"server" yaml:"server" mapstructure:"server"`
	Log      LogConfig      `json:"log" yaml:"log" mapstructure:"log"`
}

// StrategyConfig holds the crossover parameters shared by every symbol.
type StrategyConfig struct {
	ShortWindow    int     `json:"short_window" yaml:"short_window" mapstructure:"short_window"`
	LongWindow     int     `json:"long_window" yaml:"long_window" mapstructure:"long_window"`
	StopLossPct    float64 `json:"stop_loss_pct" yaml:"stop_loss_pct" mapstructure:"stop_loss_pct"`
	TakeProfitPct  float64 `json:"take_profit_pct" yaml:"take_profit_pct" mapstructure:"take_profit_pct"`
	AllocationSize float64 `json:"allocation_size" yaml:"allocation_size" mapstructure:"allocation_size"`
	Timeframe      string  `json:"timeframe" yaml:"timeframe" mapstructure:"timeframe"`
	MAType         string  `json:"ma_type" yaml:"ma_type" mapstructure:"ma_type"`
	RiskExitsFirst bool    `json:"risk_exits_first" yaml:"risk_exits_first" mapstructure:"risk_exits_first"`
}

type BacktestConfig struct {
	Symbols        []string `json:"symbols" yaml:"symbols" mapstructure:"symbols"`
	DataDir        string   `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`
	From           string   `json:"from,omitempty" yaml:"from,omitempty" mapstructure:"from"`
	To             string   `json:"to,omitempty" yaml:"to,omitempty" mapstructure:"to"`
	InitialCapital float64  `json:"initial_capital" yaml:"initial_capital" mapstructure:"initial_capital"`
	Concurrency    int      `json:"concurrency" yaml:"concurrency" mapstructure:"concurrency"`
}

// JournalConfig selects where finished runs go.
type JournalConfig struct {
	Type     string `json:"type" yaml:"type" mapstructure:"type"` // "sqlite", "csv", "both" or "none"
	DBPath   string `json:"db_path,omitempty" yaml:"db_path,omitempty" mapstructure:"db_path"`
	OutDir   string `json:"out_dir,omitempty" yaml:"out_dir,omitempty" mapstructure:"out_dir"`
	SaveBars bool   `json:"save_bars" yaml:"save_bars" mapstructure:"save_bars"`
}

type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`
}

type LogConfig struct {
	Level string `json:"level" yaml:"level" mapstructure:"level"`
}

// Default returns the stock configuration: 20/50 SMA, 1% stop, 50% target,
// 10,000 per entry over AAPL, MSFT and TSLA daily bars.
func Default() *Config {
	return &Config{
		Strategy: StrategyConfig{
			ShortWindow:    20,
			LongWindow:     50,
			StopLossPct:    0.01,
			TakeProfitPct:  0.5,
			AllocationSize: 10000,
			Timeframe:      "1d",
			MAType:         string(indicators.SMAType),
		},
		Backtest: BacktestConfig{
			Symbols: []string{"AAPL", "MSFT", "TSLA"},
			DataDir: "data",
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "smacross.db",
			OutDir: "results",
		},
		Server: ServerConfig{Addr: ":8000"},
		Log:    LogConfig{Level: "info"},
	}
}

// Load reads path (YAML or JSON, optional) over the defaults and applies
// SMACROSS_* environment overrides, e.g. SMACROSS_STRATEGY_SHORT_WINDOW=10.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("strategy.short_window", d.Strategy.ShortWindow)
	v.SetDefault("strategy.long_window", d.Strategy.LongWindow)
	v.SetDefault("strategy.stop_loss_pct", d.Strategy.StopLossPct)
	v.SetDefault("strategy.take_profit_pct", d.Strategy.TakeProfitPct)
	v.SetDefault("strategy.allocation_size", d.Strategy.AllocationSize)
	v.SetDefault("strategy.timeframe", d.Strategy.Timeframe)
	v.SetDefault("strategy.ma_type", d.Strategy.MAType)
	v.SetDefault("strategy.risk_exits_first", d.Strategy.RiskExitsFirst)

	v.SetDefault("backtest.symbols", d.Backtest.Symbols)
	v.SetDefault("backtest.data_dir", d.Backtest.DataDir)
	v.SetDefault("backtest.from", d.Backtest.From)
	v.SetDefault("backtest.to", d.Backtest.To)
	v.SetDefault("backtest.initial_capital", d.Backtest.InitialCapital)
	v.SetDefault("backtest.concurrency", d.Backtest.Concurrency)

	v.SetDefault("journal.type", d.Journal.Type)
	v.SetDefault("journal.db_path", d.Journal.DBPath)
	v.SetDefault("journal.out_dir", d.Journal.OutDir)
	v.SetDefault("journal.save_bars", d.Journal.SaveBars)

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("log.level", d.Log.Level)
}

// SaveToFile writes YAML for .yaml/.yml paths and indented JSON otherwise.
func (c *Config) SaveToFile(path string) error {
	var (
		data []byte
		err  error
	)
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks every section. Strategy problems come back as
// *strategies.ConfigurationError.
func (c *Config) Validate() error {
	if len(c.Backtest.Symbols) == 0 {
		return fmt.Errorf("backtest.symbols is required")
	}
	for _, sym := range c.Backtest.Symbols {
		if err := c.Params(sym).Validate(); err != nil {
			return err
		}
	}
	if err := c.BacktestConfig().Validate(); err != nil {
		return err
	}
	if c.Backtest.Concurrency < 0 {
		return fmt.Errorf("backtest.concurrency must not be negative")
	}
	if _, _, err := c.Range(); err != nil {
		return err
	}

	switch c.Journal.Type {
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal.db_path required for sqlite type")
		}
	case "csv":
		if c.Journal.OutDir == "" {
			return fmt.Errorf("journal.out_dir required for csv type")
		}
	case "both":
		if c.Journal.DBPath == "" || c.Journal.OutDir == "" {
			return fmt.Errorf("journal.db_path and journal.out_dir required for both type")
		}
	case "none":
	default:
		return fmt.Errorf("journal.type must be 'sqlite', 'csv', 'both' or 'none'")
	}
	return nil
}

// Params builds the strategy parameters for one symbol.
func (c *Config) Params(symbol string) strategies.Params {
	s := c.Strategy
	return strategies.Params{
		Symbol:         strings.ToUpper(strings.TrimSpace(symbol)),
		Timeframe:      s.Timeframe,
		ShortWindow:    s.ShortWindow,
		LongWindow:     s.LongWindow,
		StopLossPct:    s.StopLossPct,
		TakeProfitPct:  s.TakeProfitPct,
		AllocationSize: s.AllocationSize,
		MAType:         indicators.MAType(strings.ToLower(s.MAType)),
		RiskExitsFirst: s.RiskExitsFirst,
	}
}

// BacktestConfig is the engine configuration; the runner fills in the symbol.
func (c *Config) BacktestConfig() backtest.Config {
	p := c.Params("")
	if len(c.Backtest.Symbols) > 0 {
		p = c.Params(c.Backtest.Symbols[0])
	}
	return backtest.Config{Params: p, InitialCapital: c.Backtest.InitialCapital}
}

// Range parses backtest.from/to (YYYY-MM-DD or RFC3339). Empty means open.
func (c *Config) Range() (from, to time.Time, err error) {
	if from, err = parseDate(c.Backtest.From); err != nil {
		return from, to, fmt.Errorf("backtest.from: %w", err)
	}
	if to, err = parseDate(c.Backtest.To); err != nil {
		return from, to, fmt.Errorf("backtest.to: %w", err)
	}
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return from, to, fmt.Errorf("backtest.from must be before backtest.to")
	}
	return from, to, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// Symbols returns the configured symbols upper-cased with blanks dropped.
func (c *Config) Symbols() []string {
	out := make([]string, 0, len(c.Backtest.Symbols))
	for _, s := range c.Backtest.Symbols {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
