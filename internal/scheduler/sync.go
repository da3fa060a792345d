// Package scheduler keeps the local price history in step with the exchange.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cryptoForecast/internal/ports"
)

// Syncer copies daily history from a remote source into the local repository.
type Syncer struct {
	source      ports.HistorySource
	repo        ports.PriceRepository
	logger      ports.Logger
	metrics     ports.Metrics
	historyDays int
	now         func() time.Time
}

// SyncerConfig holds sync settings.
type SyncerConfig struct {
	HistoryDays int // Backfill depth for symbols with no stored rows (default 365)
}

// NewSyncer creates a history syncer.
func NewSyncer(cfg SyncerConfig, source ports.HistorySource, repo ports.PriceRepository, logger ports.Logger, metrics ports.Metrics) (*Syncer, error) {
	if source == nil || repo == nil || logger == nil {
		return nil, fmt.Errorf("missing required dependencies for Syncer")
	}
	if metrics == nil {
		metrics = ports.NoopMetrics{}
	}
	days := cfg.HistoryDays
	if days <= 0 {
		days = 365
	}
	return &Syncer{
		source:      source,
		repo:        repo,
		logger:      logger,
		metrics:     metrics,
		historyDays: days,
		now:         time.Now,
	}, nil
}

// SyncSymbol fetches everything from the newest stored day onward (that day is
// refetched so a partial row gets replaced) and upserts it. A symbol with no
// rows is backfilled by the configured number of days.
func (s *Syncer) SyncSymbol(ctx context.Context, symbol string) (n int, err error) {
	defer func() { s.metrics.RecordSync(symbol, n, err) }()

	latest, err := s.repo.LatestTimestamp(ctx, symbol)
	if err != nil {
		return 0, err
	}
	since := latest
	if since.IsZero() {
		since = s.now().UTC().AddDate(0, 0, -s.historyDays)
	}

	points, err := s.source.FetchDaily(ctx, symbol, since)
	if err != nil {
		return 0, err
	}
	n, err = s.repo.SavePricePoints(ctx, symbol, points)
	if err != nil {
		return 0, err
	}

	s.logger.Info(ctx, "History synced", map[string]interface{}{
		"symbol": symbol,
		"rows":   n,
		"since":  since.Format("2006-01-02"),
	})
	return n, nil
}

// SyncAll syncs every symbol, continuing past failures. The returned error
// joins every per-symbol failure.
func (s *Syncer) SyncAll(ctx context.Context, symbols []string) (int, error) {
	total := 0
	var errs []error
	for _, symbol := range symbols {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		n, err := s.SyncSymbol(ctx, symbol)
		if err != nil {
			s.logger.Error(ctx, err, "History sync failed", map[string]interface{}{"symbol": symbol})
			errs = append(errs, fmt.Errorf("%s: %w", symbol, err))
			continue
		}
		total += n
	}
	return total, errors.Join(errs...)
}
