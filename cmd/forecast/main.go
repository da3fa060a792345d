package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"cryptoForecast/config"
	"cryptoForecast/internal/adapters/csvdata"
	"cryptoForecast/internal/adapters/logger"
	"cryptoForecast/internal/app"
	"cryptoForecast/internal/ports"
)

const usage = "usage: forecast --symbol BTC-USD [--horizon 3] [--out results|-] [--list]"

var errUsage = errors.New(usage)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Println(usage)
			os.Exit(2)
		}
		log.Fatalf("FATAL: %v", err)
	}
}

// run executes one forecast and writes the CSV to a file under --out, or to
// stdout when --out is "-".
func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("forecast", flag.ContinueOnError)
	symbol := fs.String("symbol", "", "Dataset symbol, e.g. BTC-USD")
	horizon := fs.Int("horizon", 1, "Number of days to forecast")
	outDir := fs.String("out", ".", "Output directory for the CSV, or - for stdout")
	list := fs.Bool("list", false, "List symbols with a trained model and exit")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	appLogger := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	components, err := app.Bootstrap(ctx, cfg, appLogger, ports.NoopMetrics{})
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer components.Close()

	if *list {
		symbols, err := components.Service.Symbols(ctx)
		if err != nil {
			return fmt.Errorf("listing symbols: %w", err)
		}
		if len(symbols) > 0 {
			fmt.Fprintln(stdout, strings.Join(symbols, "\n"))
		}
		return nil
	}
	if *symbol == "" {
		return errUsage
	}

	rows, err := components.Service.ForecastRows(ctx, *symbol, *horizon)
	if err != nil {
		appLogger.Error(ctx, err, "Forecast failed", map[string]interface{}{"symbol": *symbol, "horizon": *horizon})
		return fmt.Errorf("forecast failed: %w", err)
	}

	if *outDir == "-" {
		return csvdata.WriteForecast(stdout, rows)
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	filename := filepath.Join(*outDir, csvdata.ForecastFileName(*symbol, *horizon))
	if err := csvdata.WriteForecastFile(filename, rows); err != nil {
		return fmt.Errorf("writing CSV: %w", err)
	}
	appLogger.Info(ctx, "Saved to", map[string]interface{}{"filename": filename, "rows": len(rows)})
	fmt.Fprintln(stdout, filename)
	return nil
}
