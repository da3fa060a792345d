package app

import (
	"context"
	"fmt"

	"cryptoForecast/config"
	"cryptoForecast/internal/adapters/binanceclient"
	"cryptoForecast/internal/adapters/csvdata"
	"cryptoForecast/internal/adapters/modelstore"
	"cryptoForecast/internal/adapters/sqlite"
	"cryptoForecast/internal/forecast"
	"cryptoForecast/internal/ports"
)

// Components is the wired object graph shared by the server and the CLIs.
type Components struct {
	Service  *ForecastService
	Models   *modelstore.Store
	Data     ports.DatasetProvider
	Repo     *sqlite.Repository    // Set when DATASET_SOURCE=sqlite
	Exchange *binanceclient.Client // Set when the exchange is needed
}

// Close releases the database handle, if any.
func (c *Components) Close() error {
	if c.Repo != nil {
		return c.Repo.Close()
	}
	return nil
}

// Bootstrap builds every collaborator named by cfg.
func Bootstrap(ctx context.Context, cfg *config.Config, logger ports.Logger, metrics ports.Metrics) (*Components, error) {
	c := &Components{}

	models, err := modelstore.New(modelstore.Config{Dir: cfg.ModelDir}, logger, metrics)
	if err != nil {
		return nil, fmt.Errorf("model store: %w", err)
	}
	c.Models = models

	if cfg.DatasetSource == config.SourceSQLite || cfg.DatasetSource == config.SourceBinance {
		c.Exchange, err = binanceclient.New(binanceclient.Config{
			APIKey:          cfg.APIKey,
			SecretKey:       cfg.SecretKey,
			UseTestnet:      cfg.IsTestnet,
			Logger:          logger,
			RequestsPerSec:  cfg.BinanceRequestsPerSec,
			HistoryDays:     cfg.BinanceHistoryDays,
			SymbolOverrides: cfg.BinanceSymbolOverrides,
		})
		if err != nil {
			return nil, fmt.Errorf("binance client: %w", err)
		}
	}

	switch cfg.DatasetSource {
	case config.SourceSQLite:
		c.Repo, err = sqlite.NewRepository(sqlite.Config{DBPath: cfg.DBPath, Logger: logger})
		if err != nil {
			return nil, fmt.Errorf("sqlite repository: %w", err)
		}
		c.Data = c.Repo
	case config.SourceBinance:
		c.Data = c.Exchange
	default:
		c.Data, err = csvdata.NewProvider(csvdata.Config{Path: cfg.DataFile}, logger)
		if err != nil {
			return nil, fmt.Errorf("csv provider: %w", err)
		}
	}

	policy, err := forecast.PolicyByName(cfg.CarryPolicy, cfg.DecayRate)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	engine, err := forecast.New(forecast.Config{LookBack: cfg.LookBack, Policy: policy}, logger)
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	c.Service, err = NewForecastService(Config{
		MaxHorizon:         cfg.MaxHorizon,
		DefaultDisplayDays: cfg.DefaultDisplayDays,
	}, logger, c.Data, models, engine, metrics)
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	logger.Info(ctx, "Components initialized", map[string]interface{}{
		"datasetSource": cfg.DatasetSource,
		"modelDir":      cfg.ModelDir,
		"policy":        policy.Name(),
		"lookBack":      cfg.LookBack,
	})
	return c, nil
}
