package ports

import (
	"context"
	"time"

	"cryptoForecast/internal/domain"
)

// DatasetProvider returns the price history of a symbol sorted by timestamp ascending.
type DatasetProvider interface {
	// Load fails with ErrDatasetNotFound when the backing source is absent and
	// ErrNoDataForSymbol when it holds no rows for symbol.
	Load(ctx context.Context, symbol string) ([]domain.PricePoint, error)
}

// PriceRepository stores price history locally.
type PriceRepository interface {
	DatasetProvider
	// SavePricePoints upserts rows keyed by (symbol, timestamp) and returns the number written.
	SavePricePoints(ctx context.Context, symbol string, points []domain.PricePoint) (int, error)
	// LatestTimestamp returns the newest stored timestamp, or the zero time if none.
	LatestTimestamp(ctx context.Context, symbol string) (time.Time, error)
	// Symbols lists the stored symbols.
	Symbols(ctx context.Context) ([]string, error)
}

// HistorySource fetches fresh history from a remote market (e.g., an exchange).
type HistorySource interface {
	FetchDaily(ctx context.Context, symbol string, since time.Time) ([]domain.PricePoint, error)
}
