package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cryptoForecast/config"
	"cryptoForecast/internal/adapters/binanceclient"
	"cryptoForecast/internal/adapters/csvdata"
	"cryptoForecast/internal/adapters/logger"
	"cryptoForecast/internal/adapters/sqlite"
	"cryptoForecast/internal/domain"
	"cryptoForecast/internal/metrics"
	"cryptoForecast/internal/ports"
	"cryptoForecast/internal/scheduler"
)

func main() {
	symbolsFlag := flag.String("symbols", "BTC-USD,ETH-USD", "Comma separated dataset symbols")
	days := flag.Int("days", 0, "Days of history to fetch (defaults to BINANCE_HISTORY_DAYS)")
	out := flag.String("out", "", "Write a CSV dataset to this path instead of syncing into DB_PATH")
	flag.Parse()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}
	if *days <= 0 {
		*days = cfg.BinanceHistoryDays
	}

	// 2. Initialize Logger
	appLogger := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	ctx := context.Background()

	symbols := parseSymbols(*symbolsFlag)
	if len(symbols) == 0 {
		fmt.Println("usage: fetch_klines --symbols BTC-USD,ETH-USD [--days 365] [--out data/top5_crypto_data.csv]")
		os.Exit(2)
	}

	// 3. Initialize Exchange Client (Binance Adapter)
	binanceClient, err := binanceclient.New(binanceclient.Config{
		APIKey:          cfg.APIKey,
		SecretKey:       cfg.SecretKey,
		UseTestnet:      cfg.IsTestnet,
		Logger:          appLogger,
		RequestsPerSec:  cfg.BinanceRequestsPerSec,
		HistoryDays:     *days,
		SymbolOverrides: cfg.BinanceSymbolOverrides,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize Binance client")
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}

	if *out != "" {
		since := time.Now().UTC().AddDate(0, 0, -*days)
		n, err := writeDataset(ctx, binanceClient, symbols, since, *out, os.Stdout)
		if err != nil {
			appLogger.Error(ctx, err, "Error writing dataset")
			log.Fatalf("Error writing dataset: %v", err)
		}
		appLogger.Info(ctx, "Saved to", map[string]interface{}{"filename": *out, "rows": n})
		return
	}

	// 4. Sync into the SQLite store used by DATASET_SOURCE=sqlite
	repo, err := sqlite.NewRepository(sqlite.Config{DBPath: cfg.DBPath, Logger: appLogger})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err)
	}
	defer repo.Close()

	syncer, err := scheduler.NewSyncer(scheduler.SyncerConfig{HistoryDays: *days}, binanceClient, repo, appLogger, metrics.New(nil))
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize syncer: %v", err)
	}
	n, err := syncer.SyncAll(ctx, symbols)
	if err != nil {
		appLogger.Error(ctx, err, "Sync finished with errors", map[string]interface{}{"rows": n})
		log.Fatalf("Sync finished with errors: %v", err)
	}
	appLogger.Info(ctx, "Sync complete", map[string]interface{}{"rows": n, "db": cfg.DBPath})
}

func parseSymbols(s string) []string {
	var symbols []string
	for _, sym := range strings.Split(s, ",") {
		if sym = strings.TrimSpace(sym); sym != "" {
			symbols = append(symbols, sym)
		}
	}
	return symbols
}

// writeDataset fetches daily history for every symbol and writes one CSV in
// the layout the csv dataset provider reads. Nothing is written if any fetch fails.
func writeDataset(ctx context.Context, source ports.HistorySource, symbols []string, since time.Time, path string, progress io.Writer) (int, error) {
	var all []domain.PricePoint
	for _, symbol := range symbols {
		points, err := source.FetchDaily(ctx, symbol, since)
		if err != nil {
			return 0, fmt.Errorf("fetching %s: %w", symbol, err)
		}
		fmt.Fprintf(progress, "Fetched %d daily candles for %s\n", len(points), symbol)
		all = append(all, points...)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("creating output directory: %w", err)
		}
	}
	if err := csvdata.WritePricePointsFile(path, all); err != nil {
		return 0, fmt.Errorf("writing CSV: %w", err)
	}
	return len(all), nil
}
