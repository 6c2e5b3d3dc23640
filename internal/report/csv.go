package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/velahq/vela/internal/perf"
)

var (
	equityHeader = []string{"time", "equity"}
	tradesHeader = []string{
		"entry_time", "exit_time", "side", "size",
		"entry_price", "exit_price", "commission", "gross_pnl", "net_pnl",
	}
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteEquityCSV writes the equity curve with RFC3339 timestamps and
// full-precision values, so a report rebuilt from the file matches the
// original run.
func WriteEquityCSV(w io.Writer, curve []perf.EquityPoint) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(equityHeader); err != nil {
		return fmt.Errorf("writing equity CSV: %w", err)
	}
	for _, p := range curve {
		row := []string{p.Time.Format(time.RFC3339Nano), formatFloat(p.Value)}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing equity CSV: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadEquityCSV parses an equity curve written by WriteEquityCSV. The
// file must have the header row.
func ReadEquityCSV(r io.Reader) ([]perf.EquityPoint, error) {
	records, err := readRecords(r, equityHeader)
	if err != nil {
		return nil, fmt.Errorf("reading equity CSV: %w", err)
	}

	curve := make([]perf.EquityPoint, 0, len(records))
	for i, row := range records {
		ts, err := time.Parse(time.RFC3339Nano, row[0])
		if err != nil {
			return nil, fmt.Errorf("equity CSV row %d: bad time %q: %w", i+2, row[0], err)
		}
		v, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, fmt.Errorf("equity CSV row %d: bad value %q: %w", i+2, row[1], err)
		}
		curve = append(curve, perf.EquityPoint{Time: ts, Value: v})
	}
	return curve, nil
}

// WriteTradesCSV writes completed trades, one row per round trip.
func WriteTradesCSV(w io.Writer, trades []perf.Trade) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(tradesHeader); err != nil {
		return fmt.Errorf("writing trades CSV: %w", err)
	}
	for _, t := range trades {
		row := []string{
			t.EntryTime.Format(time.RFC3339Nano),
			t.ExitTime.Format(time.RFC3339Nano),
			string(t.Side),
			formatFloat(t.Size),
			formatFloat(t.EntryPrice),
			formatFloat(t.ExitPrice),
			formatFloat(t.Commission),
			formatFloat(t.GrossPnL),
			formatFloat(t.NetPnL),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing trades CSV: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadTradesCSV parses trades written by WriteTradesCSV.
func ReadTradesCSV(r io.Reader) ([]perf.Trade, error) {
	records, err := readRecords(r, tradesHeader)
	if err != nil {
		return nil, fmt.Errorf("reading trades CSV: %w", err)
	}

	trades := make([]perf.Trade, 0, len(records))
	for i, row := range records {
		t, err := parseTradeRow(row)
		if err != nil {
			return nil, fmt.Errorf("trades CSV row %d: %w", i+2, err)
		}
		trades = append(trades, t)
	}
	return trades, nil
}

func parseTradeRow(row []string) (perf.Trade, error) {
	var t perf.Trade
	var err error

	if t.EntryTime, err = time.Parse(time.RFC3339Nano, row[0]); err != nil {
		return t, fmt.Errorf("bad entry_time %q: %w", row[0], err)
	}
	if t.ExitTime, err = time.Parse(time.RFC3339Nano, row[1]); err != nil {
		return t, fmt.Errorf("bad exit_time %q: %w", row[1], err)
	}
	t.Side = perf.Side(row[2])

	fields := []struct {
		name string
		raw  string
		dst  *float64
	}{
		{"size", row[3], &t.Size},
		{"entry_price", row[4], &t.EntryPrice},
		{"exit_price", row[5], &t.ExitPrice},
		{"commission", row[6], &t.Commission},
		{"gross_pnl", row[7], &t.GrossPnL},
		{"net_pnl", row[8], &t.NetPnL},
	}
	for _, f := range fields {
		v, err := strconv.ParseFloat(f.raw, 64)
		if err != nil {
			return t, fmt.Errorf("bad %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = v
	}
	return t, nil
}

// readRecords reads all rows and validates the header.
func readRecords(r io.Reader, header []string) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(header)

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty file, expected header %v", header)
	}
	for i, name := range header {
		if records[0][i] != name {
			return nil, fmt.Errorf("unexpected header %v, want %v", records[0], header)
		}
	}
	return records[1:], nil
}
