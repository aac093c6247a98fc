package backtest

import (
	"fmt"
	"io"
	"time"

	"github.com/rustyeddy/smacross/ledger"
)

// PrintResult writes a human readable summary of one symbol's run.
func PrintResult(w io.Writer, o RunOutcome) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintf(w, " Backtest %s\n", o.Symbol)
	fmt.Fprintln(w, "==================================================")

	if o.Err != nil {
		fmt.Fprintf(w, "Error:         %v\n", o.Err)
		fmt.Fprintln(w)
		return
	}
	r := o.Result
	p := r.Config.Params

	fmt.Fprintf(w, "Timeframe:     %s\n", p.Timeframe)
	if !r.Start.IsZero() {
		fmt.Fprintf(w, "Start:         %s\n", r.Start.Format(time.RFC3339))
		fmt.Fprintf(w, "End:           %s\n", r.End.Format(time.RFC3339))
	}
	fmt.Fprintf(w, "Bars:          %d\n", len(r.Bars))
	if r.InsufficientData {
		fmt.Fprintf(w, "Note:          fewer than %d bars, no signals\n", p.MinBars())
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Strategy Configuration")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Moving Avg:    %s %d/%d\n", maName(string(p.MAType)), p.ShortWindow, p.LongWindow)
	fmt.Fprintf(w, "Stop Loss:     %.2f%%\n", p.StopLossPct*100)
	fmt.Fprintf(w, "Take Profit:   %.2f%%\n", p.TakeProfitPct*100)
	fmt.Fprintf(w, "Allocation:    %.2f\n", p.AllocationSize)

	buys, exits := ledger.CountSides(r.Trades)
	m := r.Metrics
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Trade Statistics")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Trades:        %d\n", m.NumberOfTrades)
	fmt.Fprintf(w, "Entries:       %d\n", buys)
	fmt.Fprintf(w, "Exits:         %d\n", exits)
	if r.FinalState.IsLong() {
		fmt.Fprintf(w, "Open:          %d @ %.4f\n", r.FinalState.Quantity, r.FinalState.EntryPrice)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Account Performance")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start Value:   %.2f\n", m.InitialCapital)
	fmt.Fprintf(w, "End Value:     %.2f\n", m.FinalPortfolioValue)
	fmt.Fprintf(w, "Return:        %.2f%%\n", m.TotalReturn*100)
	fmt.Fprintf(w, "Annualized:    %s\n", pct(m.AnnualizedReturn))
	fmt.Fprintf(w, "Max Drawdown:  %.2f%%\n", m.MaxDrawdown*100)
	fmt.Fprintf(w, "Sharpe:        %s\n", num(m.SharpeRatio))

	for _, id := range o.RunIDs {
		fmt.Fprintf(w, "Saved:         %s\n", id)
	}
	if o.PersistErr != nil {
		fmt.Fprintf(w, "Save Error:    %v\n", o.PersistErr)
	}
	fmt.Fprintln(w)
}

func maName(s string) string {
	if s == "" {
		return "sma"
	}
	return s
}

func pct(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", *v*100)
}

func num(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.3f", *v)
}
