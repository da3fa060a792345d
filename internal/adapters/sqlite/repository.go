package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cryptoForecast/internal/domain"
	"cryptoForecast/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository implements ports.PriceRepository using SQLite.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

var _ ports.PriceRepository = (*Repository)(nil)

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/prices.db"
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		err = fmt.Errorf("%w: failed to open database at '%s': %w", ports.ErrDBConnection, dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("%w: failed to ping database at '%s': %w", ports.ErrDBConnection, dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cfg.Logger.Info(context.Background(), "SQLite database connection established", map[string]interface{}{"path": dbPath})

	repo := &Repository{db: db, logger: cfg.Logger}
	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	return repo, nil
}

// initializeSchema creates tables if they don't exist.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS price_points (
		symbol TEXT NOT NULL,
		ts INTEGER NOT NULL, -- unix seconds, UTC
		open REAL NOT NULL,
		high REAL NOT NULL,
		low REAL NOT NULL,
		close REAL NOT NULL,
		adjclose REAL NOT NULL,
		volume REAL NOT NULL,
		PRIMARY KEY (symbol, ts)
	);
	`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// SavePricePoints upserts points for symbol in a single transaction.
// The symbol argument overrides whatever the points carry.
func (r *Repository) SavePricePoints(ctx context.Context, symbol string, points []domain.PricePoint) (int, error) {
	if symbol == "" {
		return 0, fmt.Errorf("%w: symbol is required", ports.ErrInvalidRequest)
	}
	if len(points) == 0 {
		return 0, nil
	}

	const query = `
	INSERT INTO price_points (symbol, ts, open, high, low, close, adjclose, volume)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (symbol, ts) DO UPDATE SET
		open = excluded.open,
		high = excluded.high,
		low = excluded.low,
		close = excluded.close,
		adjclose = excluded.adjclose,
		volume = excluded.volume`

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: begin transaction: %w", ports.ErrUpdateFailed, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("%w: prepare upsert: %w", ports.ErrUpdateFailed, err)
	}
	defer stmt.Close()

	for _, p := range points {
		_, err := stmt.ExecContext(ctx, symbol, p.Timestamp.UTC().Unix(),
			p.Open, p.High, p.Low, p.Close, p.AdjClose, p.Volume)
		if err != nil {
			return 0, fmt.Errorf("%w: upsert %s at %s: %w", ports.ErrUpdateFailed, symbol, p.Timestamp.Format(time.RFC3339), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit: %w", ports.ErrUpdateFailed, err)
	}

	r.logger.Debug(ctx, "Price points saved", map[string]interface{}{"symbol": symbol, "rows": len(points)})
	return len(points), nil
}

// Load returns every stored row of symbol ordered by timestamp.
func (r *Repository) Load(ctx context.Context, symbol string) ([]domain.PricePoint, error) {
	const query = `
	SELECT ts, open, high, low, close, adjclose, volume
	FROM price_points
	WHERE symbol = ?
	ORDER BY ts ASC`

	rows, err := r.db.QueryContext(ctx, query, symbol)
	if err != nil {
		return nil, fmt.Errorf("%w: load %s: %w", ports.ErrQueryFailed, symbol, err)
	}
	defer rows.Close()

	var points []domain.PricePoint
	for rows.Next() {
		var ts int64
		p := domain.PricePoint{Symbol: symbol}
		if err := rows.Scan(&ts, &p.Open, &p.High, &p.Low, &p.Close, &p.AdjClose, &p.Volume); err != nil {
			return nil, fmt.Errorf("%w: scan %s: %w", ports.ErrQueryFailed, symbol, err)
		}
		p.Timestamp = time.Unix(ts, 0).UTC()
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate %s: %w", ports.ErrQueryFailed, symbol, err)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: %s", ports.ErrNoDataForSymbol, symbol)
	}
	return points, nil
}

// LatestTimestamp returns the newest stored timestamp for symbol, or the zero time.
func (r *Repository) LatestTimestamp(ctx context.Context, symbol string) (time.Time, error) {
	const query = `SELECT MAX(ts) FROM price_points WHERE symbol = ?`

	var ts sql.NullInt64
	err := r.db.QueryRowContext(ctx, query, symbol).Scan(&ts)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, fmt.Errorf("%w: latest timestamp for %s: %w", ports.ErrQueryFailed, symbol, err)
	}
	if !ts.Valid {
		return time.Time{}, nil
	}
	return time.Unix(ts.Int64, 0).UTC(), nil
}

// Symbols lists stored symbols, sorted.
func (r *Repository) Symbols(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT symbol FROM price_points ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("%w: list symbols: %w", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	symbols := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("%w: scan symbol: %w", ports.ErrQueryFailed, err)
		}
		symbols = append(symbols, s)
	}
	return symbols, rows.Err()
}
