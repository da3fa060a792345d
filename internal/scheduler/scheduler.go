package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"cryptoForecast/internal/ports"
)

// DefaultSpec runs the sync shortly after the daily candle closes (UTC).
const DefaultSpec = "15 0 * * *"

// SymbolLister supplies the symbols to sync when none are configured.
type SymbolLister interface {
	Symbols(ctx context.Context) ([]string, error)
}

// Config holds scheduler settings.
type Config struct {
	Spec    string   // Standard 5-field cron expression
	Symbols []string // Explicit symbol list; empty means every symbol from the lister
}

// Scheduler runs the history sync on a cron schedule. Scheduled and manual
// runs share one job wrapper, so a run that overlaps another is skipped.
type Scheduler struct {
	cron     *cron.Cron
	job      cron.Job
	syncer   *Syncer
	lister   SymbolLister
	symbols  []string
	logger   ports.Logger
	ctx      context.Context
	onSynced func(symbol string)
}

// New creates a scheduler and registers the sync job. onSynced, when set, is
// called for each symbol after a successful run.
func New(ctx context.Context, cfg Config, syncer *Syncer, lister SymbolLister, logger ports.Logger, onSynced func(symbol string)) (*Scheduler, error) {
	if syncer == nil || logger == nil {
		return nil, fmt.Errorf("missing required dependencies for Scheduler")
	}
	if len(cfg.Symbols) == 0 && lister == nil {
		return nil, fmt.Errorf("either symbols or a symbol lister is required")
	}
	spec := cfg.Spec
	if spec == "" {
		spec = DefaultSpec
	}

	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("register sync task: %w", err)
	}

	cl := cronLogger{ctx: ctx, logger: logger}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
		),
		syncer:   syncer,
		lister:   lister,
		symbols:  cfg.Symbols,
		logger:   logger,
		ctx:      ctx,
		onSynced: onSynced,
	}
	s.job = cron.NewChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)).Then(cron.FuncJob(s.syncTask))
	s.cron.Schedule(schedule, s.job)
	return s, nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info(s.ctx, "Scheduler started", map[string]interface{}{"entries": len(s.cron.Entries())})
}

// Stop stops the scheduler and waits for a running sync to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info(s.ctx, "Scheduler stopped")
}

// RunNow executes the sync immediately (SYNC_ON_START or manual triggers).
// It returns at once if a sync is already running.
func (s *Scheduler) RunNow() {
	s.job.Run()
}

func (s *Scheduler) syncTask() {
	symbols := s.symbols
	if len(symbols) == 0 {
		listed, err := s.lister.Symbols(s.ctx)
		if err != nil {
			s.logger.Error(s.ctx, err, "Failed to list symbols for sync")
			return
		}
		symbols = listed
	}
	if len(symbols) == 0 {
		s.logger.Warn(s.ctx, "No symbols to sync")
		return
	}

	s.logger.Info(s.ctx, "Running history sync", map[string]interface{}{"symbols": symbols})
	for _, symbol := range symbols {
		if _, err := s.syncer.SyncAll(s.ctx, []string{symbol}); err != nil {
			continue
		}
		if s.onSynced != nil {
			s.onSynced(symbol)
		}
	}
}

// cronLogger adapts ports.Logger to cron.Logger.
type cronLogger struct {
	ctx    context.Context
	logger ports.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(l.ctx, "cron: "+msg, kvFields(keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(l.ctx, err, "cron: "+msg, kvFields(keysAndValues))
}

func kvFields(kv []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return fields
}
