// Package modelstore resolves trained models and scalers from a directory on disk.
package modelstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"cryptoForecast/internal/ports"
	"cryptoForecast/internal/predictor"
	"cryptoForecast/internal/scaler"
)

const (
	modelPrefix  = "lstm_"
	scalerPrefix = "scaler_"
)

// Extensions tried in order for both model and scaler files.
var extensions = []string{".json", ".yaml", ".yml"}

// Config holds store settings.
type Config struct {
	Dir string
}

// fileStamp identifies one version of a file on disk.
type fileStamp struct {
	path    string
	size    int64
	modTime time.Time
}

func (f fileStamp) same(other fileStamp) bool {
	return f.path == other.path && f.size == other.size && f.modTime.Equal(other.modTime)
}

type entry struct {
	model      *ports.Model
	modelFile  fileStamp
	scalerFile fileStamp
}

// Store is a filesystem ports.ModelStore with a symbol-keyed cache.
// Cached entries are reloaded when either backing file changes or disappears.
type Store struct {
	dir     string
	logger  ports.Logger
	metrics ports.Metrics

	mu      sync.Mutex
	entries map[string]*entry
	loading map[string]*sync.Mutex
}

var _ ports.ModelStore = (*Store)(nil)

// New creates a model store rooted at cfg.Dir.
func New(cfg Config, logger ports.Logger, metrics ports.Metrics) (*Store, error) {
	if cfg.Dir == "" {
		return nil, errors.New("model directory is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	if metrics == nil {
		metrics = ports.NoopMetrics{}
	}
	return &Store{
		dir:     cfg.Dir,
		logger:  logger,
		metrics: metrics,
		entries: make(map[string]*entry),
		loading: make(map[string]*sync.Mutex),
	}, nil
}

// Dir returns the model directory.
func (s *Store) Dir() string { return s.dir }

// Get returns the model for symbol, loading it from disk on a cache miss.
func (s *Store) Get(ctx context.Context, symbol string) (*ports.Model, error) {
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", ports.ErrInvalidRequest)
	}

	scalerStamp, err := s.locate(scalerPrefix, symbol)
	if err != nil {
		s.Invalidate(symbol)
		return nil, fmt.Errorf("%w: no scaler for %s in %s", ports.ErrScalerNotFound, symbol, s.dir)
	}
	modelStamp, err := s.locate(modelPrefix, symbol)
	if err != nil {
		s.Invalidate(symbol)
		return nil, fmt.Errorf("%w: no model for %s in %s", ports.ErrModelNotFound, symbol, s.dir)
	}

	lock := s.symbolLock(symbol)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	cached, ok := s.entries[symbol]
	s.mu.Unlock()
	if ok && cached.modelFile.same(modelStamp) && cached.scalerFile.same(scalerStamp) {
		s.metrics.RecordModelLoad(symbol, true, nil)
		return cached.model, nil
	}

	model, err := s.load(symbol, modelStamp.path, scalerStamp.path)
	s.metrics.RecordModelLoad(symbol, false, err)
	if err != nil {
		s.logger.Error(ctx, err, "Failed to load model", map[string]interface{}{"symbol": symbol})
		return nil, err
	}

	s.mu.Lock()
	s.entries[symbol] = &entry{model: model, modelFile: modelStamp, scalerFile: scalerStamp}
	s.mu.Unlock()

	s.logger.Info(ctx, "Model loaded", map[string]interface{}{
		"symbol":    symbol,
		"model":     filepath.Base(modelStamp.path),
		"scaler":    filepath.Base(scalerStamp.path),
		"look_back": model.LookBack,
	})
	return model, nil
}

// Symbols lists every symbol with a model file, sorted.
func (s *Store) Symbols(ctx context.Context) ([]string, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("listing models in %s: %w", s.dir, err)
	}

	seen := make(map[string]struct{})
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		name := de.Name()
		if !strings.HasPrefix(name, modelPrefix) {
			continue
		}
		ext := filepath.Ext(name)
		if !knownExtension(ext) {
			continue
		}
		sym := strings.TrimSuffix(strings.TrimPrefix(name, modelPrefix), ext)
		if sym != "" {
			seen[sym] = struct{}{}
		}
	}

	symbols := make([]string, 0, len(seen))
	for sym := range seen {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols, nil
}

// Invalidate drops the cached model for symbol.
func (s *Store) Invalidate(symbol string) {
	s.mu.Lock()
	delete(s.entries, symbol)
	s.mu.Unlock()
}

// Clear drops every cached model.
func (s *Store) Clear() {
	s.mu.Lock()
	s.entries = make(map[string]*entry)
	s.mu.Unlock()
}

// Cached reports whether symbol currently has a cache entry.
func (s *Store) Cached(symbol string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[symbol]
	return ok
}

func (s *Store) symbolLock(symbol string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.loading[symbol]
	if !ok {
		l = &sync.Mutex{}
		s.loading[symbol] = l
	}
	return l
}

// locate returns the first existing <prefix><symbol><ext> file.
func (s *Store) locate(prefix, symbol string) (fileStamp, error) {
	for _, ext := range extensions {
		path := filepath.Join(s.dir, prefix+symbol+ext)
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		return fileStamp{path: path, size: info.Size(), modTime: info.ModTime()}, nil
	}
	return fileStamp{}, fs.ErrNotExist
}

func (s *Store) load(symbol, modelPath, scalerPath string) (*ports.Model, error) {
	sc, err := scaler.Load(scalerPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ports.ErrInvalidModel, err)
	}
	net, err := predictor.Load(modelPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ports.ErrInvalidModel, err)
	}
	return &ports.Model{
		Symbol:    symbol,
		Predictor: net,
		Scaler:    sc,
		LookBack:  net.LookBack(),
	}, nil
}

func knownExtension(ext string) bool {
	for _, e := range extensions {
		if e == ext {
			return true
		}
	}
	return false
}
