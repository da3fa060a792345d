package binanceclient

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cryptoForecast/internal/domain"
	"cryptoForecast/internal/ports"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

const (
	// Base URLs
	baseURLProduction = "https://fapi.binance.com"
	baseURLTestnet    = "https://testnet.binancefuture.com"

	dailyInterval = "1d"
	maxLimit      = 1500
)

// klineFetcher is the single exchange call the client needs.
type klineFetcher func(ctx context.Context, symbol string, start, end time.Time, limit int) ([]*futures.Kline, error)

// Client fetches daily price history from Binance futures.
// It implements ports.HistorySource and ports.DatasetProvider.
type Client struct {
	fetch          klineFetcher
	logger         ports.Logger
	limiter        *rate.Limiter
	historyDays    int
	overrides      map[string]string
	maxElapsedTime time.Duration
	retryInterval  time.Duration
	now            func() time.Time
}

var (
	_ ports.HistorySource   = (*Client)(nil)
	_ ports.DatasetProvider = (*Client)(nil)
)

// Config holds configuration specific to the Binance client adapter.
type Config struct {
	APIKey          string
	SecretKey       string
	UseTestnet      bool
	Logger          ports.Logger
	RequestsPerSec  int               // Exchange request budget (default 5)
	HistoryDays     int               // Days loaded by Load (default 365)
	SymbolOverrides map[string]string // Dataset symbol -> exchange symbol
	MaxElapsedTime  time.Duration     // Total retry budget per request (default 30s)
}

// New creates a new Binance client adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance client")
	}

	client := futures.NewClient(cfg.APIKey, cfg.SecretKey)
	if cfg.UseTestnet {
		client.BaseURL = baseURLTestnet
	} else {
		client.BaseURL = baseURLProduction
	}
	cfg.Logger.Info(context.Background(), "Binance client configured", map[string]interface{}{"baseURL": client.BaseURL})

	fetch := func(ctx context.Context, symbol string, start, end time.Time, limit int) ([]*futures.Kline, error) {
		return client.NewKlinesService().
			Symbol(symbol).
			Interval(dailyInterval).
			StartTime(start.UnixMilli()).
			EndTime(end.UnixMilli()).
			Limit(limit).
			Do(ctx)
	}
	return newClient(cfg, fetch), nil
}

func newClient(cfg Config, fetch klineFetcher) *Client {
	perSec := cfg.RequestsPerSec
	if perSec <= 0 {
		perSec = 5
	}
	historyDays := cfg.HistoryDays
	if historyDays <= 0 {
		historyDays = 365
	}
	maxElapsed := cfg.MaxElapsedTime
	if maxElapsed <= 0 {
		maxElapsed = 30 * time.Second
	}
	overrides := make(map[string]string, len(cfg.SymbolOverrides))
	for k, v := range cfg.SymbolOverrides {
		overrides[strings.ToUpper(k)] = strings.ToUpper(v)
	}
	return &Client{
		fetch:          fetch,
		logger:         cfg.Logger,
		limiter:        rate.NewLimiter(rate.Limit(perSec), perSec),
		historyDays:    historyDays,
		overrides:      overrides,
		maxElapsedTime: maxElapsed,
		retryInterval:  backoff.DefaultInitialInterval,
		now:            time.Now,
	}
}

// ExchangeSymbol maps a dataset symbol such as "BTC-USD" to the exchange
// pair "BTCUSDT". Configured overrides win.
func (c *Client) ExchangeSymbol(symbol string) string {
	upper := strings.ToUpper(strings.TrimSpace(symbol))
	if mapped, ok := c.overrides[upper]; ok {
		return mapped
	}
	base, quote, found := strings.Cut(upper, "-")
	if !found {
		return upper
	}
	if quote == "USD" {
		quote = "USDT"
	}
	return base + quote
}

// Load returns the configured number of days of history for symbol.
func (c *Client) Load(ctx context.Context, symbol string) ([]domain.PricePoint, error) {
	since := c.now().UTC().AddDate(0, 0, -c.historyDays)
	points, err := c.FetchDaily(ctx, symbol, since)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: %s", ports.ErrNoDataForSymbol, symbol)
	}
	return points, nil
}

// FetchDaily fetches closed daily candles from since up to now, oldest first.
// Points carry the dataset symbol and AdjClose equals Close.
func (c *Client) FetchDaily(ctx context.Context, symbol string, since time.Time) ([]domain.PricePoint, error) {
	op := "FetchDaily"
	pair := c.ExchangeSymbol(symbol)
	now := c.now()
	from := since
	var points []domain.PricePoint

	for from.Before(now) {
		klines, err := c.fetchWithRetry(ctx, op, pair, from, now)
		if err != nil {
			return nil, err
		}
		if len(klines) == 0 {
			break
		}
		for _, bk := range klines {
			if bk == nil || time.UnixMilli(bk.CloseTime).After(now) {
				continue // candle still open
			}
			p, err := translateBinanceKline(bk, symbol)
			if err != nil {
				return nil, c.handleError(ctx, fmt.Errorf("failed to translate daily kline: %w", err), op)
			}
			points = append(points, p)
		}
		last := klines[len(klines)-1]
		from = time.UnixMilli(last.CloseTime + 1)
		if len(klines) < maxLimit {
			break
		}
	}

	c.logger.Debug(ctx, op+" completed", map[string]interface{}{
		"symbol": symbol,
		"pair":   pair,
		"rows":   len(points),
		"since":  since.Format(time.RFC3339),
	})
	return points, nil
}

// fetchWithRetry waits for the rate limiter and retries transient failures
// with exponential backoff.
func (c *Client) fetchWithRetry(ctx context.Context, op, pair string, from, to time.Time) ([]*futures.Kline, error) {
	var klines []*futures.Kline
	operation := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(c.handleError(ctx, err, op))
		}
		res, err := c.fetch(ctx, pair, from, to, maxLimit)
		if err != nil {
			mapped := c.handleError(ctx, err, op)
			if !retryable(mapped) {
				return backoff.Permanent(mapped)
			}
			return mapped
		}
		klines = res
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryInterval
	b.MaxElapsedTime = c.maxElapsedTime
	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, err
	}
	return klines, nil
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return errors.Is(err, ports.ErrRateLimited) ||
		errors.Is(err, ports.ErrConnectionFailed) ||
		errors.Is(err, ports.ErrExchangeUnavailable) ||
		errors.Is(err, ports.ErrTimeout) ||
		errors.Is(err, ports.ErrUnknown)
}

// handleError translates common Binance API errors into standardized ports errors.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	fields := map[string]interface{}{"operation": operation, "originalError": err.Error()}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		fields["apiErrorCode"] = apiErr.Code
		fields["apiErrorMessage"] = apiErr.Message

		var mappedErr error
		switch apiErr.Code {
		case -1003: // Too many requests
			mappedErr = ports.ErrRateLimited
		case -1021: // Timestamp for this request is outside of the recvWindow
			mappedErr = ports.ErrTimeout
		case -1022, -2014, -2015: // Signature or API key rejected
			mappedErr = ports.ErrConfigurationError
		case -1121: // Invalid symbol
			mappedErr = ports.ErrNoDataForSymbol
		case -1100, -1101, -1102, -1103, -1104, -1105, -1106, -1111, -1115, -1116, -1117, -1120, -1125, -1127, -1128, -1130: // Parameter/Request format errors
			mappedErr = ports.ErrInvalidRequest
		default:
			mappedErr = ports.ErrExchangeUnavailable
		}
		c.logger.Warn(ctx, fmt.Sprintf("%s failed with API error", operation), fields)
		return fmt.Errorf("%s failed: %w: %w", operation, mappedErr, err)
	}

	var finalErr error
	if errors.Is(err, context.DeadlineExceeded) {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrTimeout, err)
	} else if errors.Is(err, context.Canceled) {
		finalErr = fmt.Errorf("%s operation canceled: %w: %w", operation, ports.ErrContextCanceled, err)
	} else if strings.Contains(err.Error(), "use of closed network connection") ||
		strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "connection reset by peer") ||
		strings.Contains(err.Error(), "no such host") {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrConnectionFailed, err)
	} else {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrUnknown, err)
	}

	c.logger.Warn(ctx, fmt.Sprintf("%s failed", operation), fields)
	return finalErr
}

func translateBinanceKline(bk *futures.Kline, symbol string) (domain.PricePoint, error) {
	if bk == nil {
		return domain.PricePoint{}, errors.New("received nil historical kline")
	}
	open, err := strconv.ParseFloat(bk.Open, 64)
	if err != nil {
		return domain.PricePoint{}, fmt.Errorf("parsing open price '%s': %w", bk.Open, err)
	}
	high, err := strconv.ParseFloat(bk.High, 64)
	if err != nil {
		return domain.PricePoint{}, fmt.Errorf("parsing high price '%s': %w", bk.High, err)
	}
	low, err := strconv.ParseFloat(bk.Low, 64)
	if err != nil {
		return domain.PricePoint{}, fmt.Errorf("parsing low price '%s': %w", bk.Low, err)
	}
	cls, err := strconv.ParseFloat(bk.Close, 64)
	if err != nil {
		return domain.PricePoint{}, fmt.Errorf("parsing close price '%s': %w", bk.Close, err)
	}
	vol, err := strconv.ParseFloat(bk.Volume, 64)
	if err != nil {
		return domain.PricePoint{}, fmt.Errorf("parsing volume '%s': %w", bk.Volume, err)
	}

	return domain.PricePoint{
		Timestamp: time.UnixMilli(bk.OpenTime).UTC(),
		Symbol:    symbol,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     cls,
		AdjClose:  cls, // exchange candles are never adjusted
		Volume:    vol,
	}, nil
}
