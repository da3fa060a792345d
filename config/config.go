package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Dataset sources selectable with DATASET_SOURCE.
const (
	SourceCSV     = "csv"
	SourceSQLite  = "sqlite"
	SourceBinance = "binance"
)

// Config holds all application configuration.
type Config struct {
	// Models and data
	ModelDir      string
	DataFile      string
	DatasetSource string
	DBPath        string

	// Forecasting
	LookBack           int
	MaxHorizon         int
	DefaultDisplayDays int
	CarryPolicy        string  // frozen or decay
	DecayRate          float64 // Used by the decay policy, in [0, 1]

	// HTTP API
	APIPort     string
	APIEnv      string
	CORSOrigins []string

	// Logging
	LogLevel  string
	LogFormat string // json or console

	// Binance API
	APIKey                 string
	SecretKey              string
	IsTestnet              bool
	BinanceHistoryDays     int
	BinanceRequestsPerSec  int
	BinanceSymbolOverrides map[string]string

	// History sync (SQLite source only)
	SyncCron    string // Empty disables the scheduler
	SyncSymbols []string
	SyncOnStart bool
}

// LoadConfig loads configuration from an optional YAML file (CONFIG_FILE),
// then environment variables (.env file included), which take precedence.
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	src, err := newSource(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	var errs []string // Collect validation errors

	// Models and data
	cfg.ModelDir = src.get("MODEL_DIR", "save_models")
	cfg.DataFile = src.get("DATA_FILE", "data/top5_crypto_data.csv")
	cfg.DBPath = src.get("DB_PATH", "./data/prices.db")
	cfg.DatasetSource = strings.ToLower(src.get("DATASET_SOURCE", SourceCSV))
	switch cfg.DatasetSource {
	case SourceCSV:
		if cfg.DataFile == "" {
			errs = append(errs, "DATA_FILE must be set when DATASET_SOURCE=csv")
		}
	case SourceSQLite:
		if cfg.DBPath == "" {
			errs = append(errs, "DB_PATH must be set when DATASET_SOURCE=sqlite")
		}
	case SourceBinance:
	default:
		errs = append(errs, fmt.Sprintf("DATASET_SOURCE must be one of csv, sqlite, binance, got %q", cfg.DatasetSource))
	}
	if cfg.ModelDir == "" {
		errs = append(errs, "MODEL_DIR must be set")
	}

	// Forecasting
	cfg.LookBack, err = src.getIntRequired("LOOK_BACK", 60)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid LOOK_BACK: %v", err))
	} else if cfg.LookBack <= 0 {
		errs = append(errs, "LOOK_BACK must be positive")
	}

	cfg.MaxHorizon, err = src.getIntRequired("MAX_HORIZON", 5)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MAX_HORIZON: %v", err))
	} else if cfg.MaxHorizon <= 0 {
		errs = append(errs, "MAX_HORIZON must be positive")
	}

	cfg.DefaultDisplayDays, err = src.getIntRequired("DEFAULT_DISPLAY_DAYS", 60)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid DEFAULT_DISPLAY_DAYS: %v", err))
	} else if cfg.DefaultDisplayDays < 30 || cfg.DefaultDisplayDays > 180 {
		errs = append(errs, "DEFAULT_DISPLAY_DAYS must be between 30 and 180")
	}

	cfg.CarryPolicy = strings.ToLower(src.get("FORECAST_CARRY_POLICY", "frozen"))
	if cfg.CarryPolicy != "frozen" && cfg.CarryPolicy != "decay" {
		errs = append(errs, fmt.Sprintf("FORECAST_CARRY_POLICY must be frozen or decay, got %q", cfg.CarryPolicy))
	}
	cfg.DecayRate, err = src.getFloatRequired("FORECAST_DECAY_RATE", 0.1)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid FORECAST_DECAY_RATE: %v", err))
	} else if cfg.DecayRate < 0 || cfg.DecayRate > 1 {
		errs = append(errs, "FORECAST_DECAY_RATE must be between 0.0 and 1.0")
	}

	// HTTP API
	cfg.APIPort = src.get("API_PORT", "8080")
	if port, err := strconv.Atoi(cfg.APIPort); err != nil || port <= 0 || port > 65535 {
		errs = append(errs, fmt.Sprintf("API_PORT must be a valid port, got %q", cfg.APIPort))
	}
	cfg.APIEnv = src.get("API_ENV", "development")
	cfg.CORSOrigins = src.getList("API_CORS_ORIGINS", []string{"*"})

	// Logging
	cfg.LogLevel = src.get("LOG_LEVEL", "INFO")
	cfg.LogFormat = strings.ToLower(src.get("LOG_FORMAT", "json"))
	if cfg.LogFormat != "json" && cfg.LogFormat != "console" {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT must be json or console, got %q", cfg.LogFormat))
	}

	// Binance API (public market data works without keys)
	cfg.APIKey = src.get("BINANCE_API_KEY", "")
	cfg.SecretKey = src.get("BINANCE_API_SECRET", "")
	cfg.IsTestnet = src.getBool("IS_TESTNET", false)

	cfg.BinanceHistoryDays, err = src.getIntRequired("BINANCE_HISTORY_DAYS", 365)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid BINANCE_HISTORY_DAYS: %v", err))
	} else if cfg.BinanceHistoryDays < cfg.LookBack {
		errs = append(errs, "BINANCE_HISTORY_DAYS must be at least LOOK_BACK")
	}

	cfg.BinanceRequestsPerSec, err = src.getIntRequired("BINANCE_REQUESTS_PER_SEC", 5)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid BINANCE_REQUESTS_PER_SEC: %v", err))
	} else if cfg.BinanceRequestsPerSec <= 0 {
		errs = append(errs, "BINANCE_REQUESTS_PER_SEC must be positive")
	}

	cfg.BinanceSymbolOverrides, err = parsePairs(src.get("BINANCE_SYMBOL_MAP", ""))
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid BINANCE_SYMBOL_MAP: %v", err))
	}

	// History sync
	cfg.SyncCron = src.get("SYNC_CRON", "")
	cfg.SyncSymbols = src.getList("SYNC_SYMBOLS", nil)
	cfg.SyncOnStart = src.getBool("SYNC_ON_START", false)
	if cfg.SyncCron != "" && cfg.DatasetSource != SourceSQLite {
		errs = append(errs, "SYNC_CRON requires DATASET_SOURCE=sqlite")
	}

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// parsePairs parses "A=B,C=D".
func parsePairs(s string) (map[string]string, error) {
	out := make(map[string]string)
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		k, v, ok := strings.Cut(item, "=")
		if !ok || strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
			return nil, fmt.Errorf("entry %q is not KEY=VALUE", item)
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out, nil
}

// --- Value sources ---

// source resolves keys from the environment first, then the YAML file.
type source struct {
	file map[string]string
}

// newSource reads the optional YAML file. Keys may be written as env names
// (MODEL_DIR) or lower case (model_dir); list values become comma separated.
func newSource(path string) (*source, error) {
	s := &source{file: map[string]string{}}
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	for k, v := range raw {
		s.file[strings.ToUpper(k)] = stringify(v)
	}
	return s, nil
}

func stringify(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case []interface{}:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, stringify(item))
		}
		return strings.Join(parts, ",")
	case map[string]interface{}:
		parts := make([]string, 0, len(val))
		for k, item := range val {
			parts = append(parts, k+"="+stringify(item))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(val)
	}
}

func (s *source) lookup(key string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return s.file[key]
}

func (s *source) get(key, defaultValue string) string {
	value := s.lookup(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func (s *source) getIntRequired(key string, defaultValue int) (int, error) {
	valueStr := s.lookup(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func (s *source) getFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := s.lookup(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func (s *source) getBool(key string, defaultValue bool) bool {
	valueStr := s.lookup(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func (s *source) getList(key string, defaultValue []string) []string {
	valueStr := s.lookup(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(valueStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
