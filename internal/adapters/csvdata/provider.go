// Package csvdata reads price history from, and writes forecasts to, CSV files.
package csvdata

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"cryptoForecast/internal/domain"
	"cryptoForecast/internal/ports"
)

// Column names recognised in the dataset header.
const (
	colTimestamp = "timestamp"
	colSymbol    = "symbol"
	colOpen      = "open"
	colHigh      = "high"
	colLow       = "low"
	colClose     = "close"
	colAdjClose  = "adjclose"
	colVolume    = "volume"
)

var requiredColumns = []string{colTimestamp, colSymbol, colOpen, colHigh, colLow, colClose, colAdjClose, colVolume}

// Header aliases seen in exported datasets.
var columnAliases = map[string]string{
	"date":      colTimestamp,
	"ticker":    colSymbol,
	"adj_close": colAdjClose,
	"adj close": colAdjClose,
}

var timestampLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05-07:00",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
}

// Config holds provider settings.
type Config struct {
	Path string // Dataset file, e.g. data/top5_crypto_data.csv
}

// Provider is a ports.DatasetProvider backed by one multi-symbol CSV file.
// The file is read on every call so edits are picked up without a restart.
type Provider struct {
	path   string
	logger ports.Logger
}

var _ ports.DatasetProvider = (*Provider)(nil)

// NewProvider creates a CSV dataset provider.
func NewProvider(cfg Config, logger ports.Logger) (*Provider, error) {
	if cfg.Path == "" {
		return nil, errors.New("dataset path is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Provider{path: cfg.Path, logger: logger}, nil
}

// Load returns every row of symbol sorted by timestamp. Rows sharing a
// timestamp keep their file order.
func (p *Provider) Load(ctx context.Context, symbol string) ([]domain.PricePoint, error) {
	var points []domain.PricePoint
	err := p.scan(func(pt domain.PricePoint) {
		if pt.Symbol == symbol {
			points = append(points, pt)
		}
	})
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: %s in %s", ports.ErrNoDataForSymbol, symbol, p.path)
	}
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Timestamp.Before(points[j].Timestamp)
	})
	p.logger.Debug(ctx, "Loaded dataset", map[string]interface{}{
		"symbol": symbol,
		"rows":   len(points),
		"path":   p.path,
	})
	return points, nil
}

// Symbols lists the distinct symbols in the file, sorted.
func (p *Provider) Symbols(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	if err := p.scan(func(pt domain.PricePoint) { seen[pt.Symbol] = struct{}{} }); err != nil {
		return nil, err
	}
	symbols := make([]string, 0, len(seen))
	for s := range seen {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols, nil
}

func (p *Provider) scan(fn func(domain.PricePoint)) error {
	f, err := os.Open(p.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ports.ErrDatasetNotFound, p.path)
		}
		return fmt.Errorf("opening dataset %s: %w", p.path, err)
	}
	defer f.Close()
	return ReadPricePoints(f, fn)
}

// ReadPricePoints decodes a dataset stream, calling fn for every row.
func ReadPricePoints(r io.Reader, fn func(domain.PricePoint)) error {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty file", ports.ErrInvalidDataset)
		}
		return fmt.Errorf("%w: reading header: %v", ports.ErrInvalidDataset, err)
	}
	index, err := columnIndex(header)
	if err != nil {
		return err
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ports.ErrInvalidDataset, err)
		}
		line, _ := reader.FieldPos(0)
		pt, err := parseRecord(record, index)
		if err != nil {
			return fmt.Errorf("%w: line %d: %v", ports.ErrInvalidDataset, line, err)
		}
		fn(pt)
	}
}

func columnIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if alias, ok := columnAliases[key]; ok {
			key = alias
		}
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}
	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing columns %s", ports.ErrInvalidDataset, strings.Join(missing, ", "))
	}
	return index, nil
}

func parseRecord(record []string, index map[string]int) (domain.PricePoint, error) {
	var pt domain.PricePoint
	field := func(col string) (string, error) {
		i := index[col]
		if i >= len(record) {
			return "", fmt.Errorf("missing %s", col)
		}
		return strings.TrimSpace(record[i]), nil
	}

	ts, err := field(colTimestamp)
	if err != nil {
		return pt, err
	}
	if pt.Timestamp, err = ParseTimestamp(ts); err != nil {
		return pt, err
	}
	if pt.Symbol, err = field(colSymbol); err != nil {
		return pt, err
	}

	targets := []struct {
		col string
		dst *float64
	}{
		{colOpen, &pt.Open},
		{colHigh, &pt.High},
		{colLow, &pt.Low},
		{colClose, &pt.Close},
		{colAdjClose, &pt.AdjClose},
		{colVolume, &pt.Volume},
	}
	for _, t := range targets {
		raw, err := field(t.col)
		if err != nil {
			return pt, err
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return pt, fmt.Errorf("invalid %s %q", t.col, raw)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return pt, fmt.Errorf("non-finite %s %q", t.col, raw)
		}
		*t.dst = v
	}
	return pt, nil
}

// ParseTimestamp accepts plain dates, "YYYY-MM-DD HH:MM:SS" with an optional
// offset, and RFC 3339. Times without an offset are taken as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}
