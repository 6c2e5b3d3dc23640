// Package bardata caches historical bars as CSV files in a local
// data directory, one file per symbol and interval. The column
// layout matches yfinance exports so data fetched with other tools
// drops straight in.
package bardata

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/velahq/vela/internal/core"
)

var header = []string{"Datetime", "Open", "High", "Low", "Close", "Volume"}

// timeFormats are tried in order when parsing the Datetime column.
// Files written by this package use RFC 3339; pandas exports use
// space-separated timestamps, with bare dates for daily bars.
var timeFormats = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Cache is a directory of bar CSV files.
type Cache struct {
	dir string
}

// NewCache creates the data directory if needed.
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	return &Cache{dir: dir}, nil
}

// Path returns the file path for a symbol and interval. The cache is
// a flat directory, so symbols with path separators are rejected.
func (c *Cache) Path(symbol string, interval core.Interval) (string, error) {
	if symbol == "" {
		return "", fmt.Errorf("empty symbol")
	}
	name := fmt.Sprintf("%s_%s.csv", symbol, interval)
	if name != filepath.Base(name) || !filepath.IsLocal(name) {
		return "", fmt.Errorf("invalid symbol %q", symbol)
	}
	return filepath.Join(c.dir, name), nil
}

// Has reports whether cached bars exist for the symbol and interval.
func (c *Cache) Has(symbol string, interval core.Interval) bool {
	path, err := c.Path(symbol, interval)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Save writes bars to the cache, replacing any existing file.
func (c *Cache) Save(symbol string, interval core.Interval, bars []core.OHLCV) error {
	if len(bars) == 0 {
		return core.WrapError(core.ErrNoData, fmt.Errorf("no bars to save for %s", symbol))
	}

	path, err := c.Path(symbol, interval)
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating %s: %w", tmp, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	for _, bar := range bars {
		row := []string{
			bar.Time.Format(time.RFC3339Nano),
			formatFloat(bar.Open),
			formatFloat(bar.High),
			formatFloat(bar.Low),
			formatFloat(bar.Close),
			strconv.FormatInt(bar.Volume, 10),
		}
		if err := w.Write(row); err != nil {
			f.Close()
			os.Remove(tmp)
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

// Load reads cached bars for the symbol and interval. Returns
// core.ErrNoData when no file exists.
func (c *Cache) Load(symbol string, interval core.Interval) ([]core.OHLCV, error) {
	path, err := c.Path(symbol, interval)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no cached bars for %s %s", symbol, interval))
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(header)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("empty bar file %s", path))
	}
	if records[0][0] != header[0] {
		return nil, fmt.Errorf("unexpected header in %s: %v", path, records[0])
	}

	bars := make([]core.OHLCV, 0, len(records)-1)
	for i, rec := range records[1:] {
		bar, err := parseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+2, err)
		}
		bar.Symbol = symbol
		bar.Interval = interval
		bars = append(bars, bar)
	}
	return bars, nil
}

func parseRow(rec []string) (core.OHLCV, error) {
	t, err := parseTime(rec[0])
	if err != nil {
		return core.OHLCV{}, err
	}

	vals := make([]float64, 4)
	for i, field := range rec[1:5] {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return core.OHLCV{}, fmt.Errorf("parsing %s: %w", header[i+1], err)
		}
		vals[i] = v
	}

	// Volume may carry a decimal point in pandas exports.
	vol, err := strconv.ParseFloat(rec[5], 64)
	if err != nil {
		return core.OHLCV{}, fmt.Errorf("parsing Volume: %w", err)
	}

	return core.OHLCV{
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: int64(vol),
		Time:   t,
	}, nil
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
