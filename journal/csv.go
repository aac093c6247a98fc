package journal

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rustyeddy/smacross/backtest"
	"github.com/rustyeddy/smacross/ledger"
	"github.com/rustyeddy/smacross/pkg/id"
)

// FileExporter writes each run as <symbol>_metrics_<ts>_<id>.json and
// <symbol>_trades_<ts>_<id>.csv under Dir, where id is a fresh ULID so runs
// in the same second never share a name. It implements backtest.Recorder.
type FileExporter struct {
	Dir string

	now func() time.Time
}

func NewFileExporter(dir string) *FileExporter {
	return &FileExporter{Dir: dir, now: time.Now}
}

var tradeHeader = []string{"timestamp", "symbol", "side", "price", "qty"}

// RecordRun writes both files and returns the metrics path.
func (x *FileExporter) RecordRun(_ context.Context, res *backtest.Result) (string, error) {
	if err := os.MkdirAll(x.Dir, 0o755); err != nil {
		return "", err
	}
	now := time.Now
	if x.now != nil {
		now = x.now
	}
	created := now().UTC()
	stem := created.Format("20060102T150405Z") + "_" + id.At(created)
	sym := res.Symbol()

	metricsPath := filepath.Join(x.Dir, fmt.Sprintf("%s_metrics_%s.json", sym, stem))
	tradesPath := filepath.Join(x.Dir, fmt.Sprintf("%s_trades_%s.csv", sym, stem))

	buf, err := json.MarshalIndent(res.Metrics, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(metricsPath, buf, 0o644); err != nil {
		return "", err
	}

	f, err := os.Create(tradesPath)
	if err != nil {
		return "", err
	}
	if err := WriteTradesCSV(f, res.Trades); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return metricsPath, nil
}

// WriteTradesCSV writes the ledger with a timestamp,symbol,side,price,qty header.
func WriteTradesCSV(out io.Writer, trades []ledger.TradeEvent) error {
	w := csv.NewWriter(out)
	if err := w.Write(tradeHeader); err != nil {
		return err
	}
	for _, t := range trades {
		err := w.Write([]string{
			t.Time.UTC().Format(time.RFC3339),
			t.Symbol,
			string(t.Side),
			strconv.FormatFloat(t.Price, 'f', -1, 64),
			strconv.FormatInt(t.Quantity, 10),
		})
		if err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
