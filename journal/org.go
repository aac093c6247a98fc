package journal

import (
	"bytes"
	"fmt"
	"text/template"
	"time"

	"github.com/rustyeddy/smacross/ledger"
)

var orgFuncs = template.FuncMap{
	"mul100": func(x float64) float64 { return x * 100.0 },
	"day": func(t *time.Time) string {
		if t == nil {
			return "(none)"
		}
		return t.Format("2006-01-02")
	},
	"opt": func(v *float64, scale float64) string {
		if v == nil {
			return "n/a"
		}
		return fmt.Sprintf("%.2f", *v*scale)
	},
	"ts": func(t time.Time) string { return t.UTC().Format(time.RFC3339) },
	"ma": func(v any) string {
		if s := fmt.Sprint(v); s != "" {
			return s
		}
		return "sma"
	},
}

var runOrg = template.Must(template.New("run").Funcs(orgFuncs).Parse(RunOrgTemplate))

// orgView is what RunOrgTemplate renders.
type orgView struct {
	Run
	Trades []ledger.TradeEvent
	Buys   int
	Exits  int
}

// FormatRunOrg renders a stored run and its trades as an Org-mode entry.
func FormatRunOrg(r Run, trades []ledger.TradeEvent) (string, error) {
	v := orgView{Run: r, Trades: trades}
	v.Buys, v.Exits = ledger.CountSides(trades)

	var buf bytes.Buffer
	if err := runOrg.Execute(&buf, v); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const RunOrgTemplate = `* BACKTEST: {{ma .Config.Params.MAType}}-cross {{.Symbol}} {{.Timeframe}}
:PROPERTIES:
:RUN_ID:      {{.ID}}
:RUN_NAME:    {{.Name}}
:SYMBOL:      {{.Symbol}}
:TIMEFRAME:   {{.Timeframe}}
:START_DATE:  {{day .Start}}
:END_DATE:    {{day .End}}
:START_VAL:   {{printf "%.2f" .Metrics.InitialCapital}}
:END_VAL:     {{printf "%.2f" .Metrics.FinalPortfolioValue}}
:RETURN_PCT:  {{printf "%.2f" (mul100 .Metrics.TotalReturn)}}
:MAX_DD_PCT:  {{printf "%.2f" (mul100 .Metrics.MaxDrawdown)}}
:TRADES:      {{.Metrics.NumberOfTrades}}
:CREATED:     [{{.CreatedAt.Format "2006-01-02 Mon 15:04"}}]
:END:

** Strategy Parameters
| Parameter     | Value |
|---------------+-------|
| Short window  | {{.Config.Params.ShortWindow}} |
| Long window   | {{.Config.Params.LongWindow}} |
| Stop loss %   | {{printf "%.2f" (mul100 .Config.Params.StopLossPct)}} |
| Take profit % | {{printf "%.2f" (mul100 .Config.Params.TakeProfitPct)}} |
| Allocation    | {{printf "%.2f" .Config.Params.AllocationSize}} |

** Performance Summary
- Return:        *{{printf "%.2f" (mul100 .Metrics.TotalReturn)}}%*
- Annualized:    *{{opt .Metrics.AnnualizedReturn 100.0}}%*
- Max Drawdown:  *{{printf "%.2f" (mul100 .Metrics.MaxDrawdown)}}%*
- Sharpe:        *{{opt .Metrics.SharpeRatio 1.0}}*
- Entries/Exits: {{.Buys}}/{{.Exits}}
{{- if .Trades}}

** Trades
| Time | Side | Price | Qty |
|------+------+-------+-----|
{{- range .Trades}}
| {{ts .Time}} | {{.Side}} | {{printf "%.4f" .Price}} | {{.Quantity}} |
{{- end}}
{{- end}}
`
