package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	appledger "github.com/campus/backend/internal/application/ledger"
	"github.com/campus/backend/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job names, also stored in ledger_job_runs.job
const (
	JobGenerateDues = "generate_dues"
	JobMarkOverdue  = "mark_overdue"
)

var (
	// ErrInvalidConfig wraps a bad cron spec or job timeout
	ErrInvalidConfig = errors.New("invalid scheduler configuration")
	// ErrUnknownJob is returned by RunNow for a name other than the Job constants
	ErrUnknownJob = errors.New("unknown scheduler job")
)

// Config holds the nightly job schedule
type Config struct {
	Enabled        bool
	GenerationSpec string        // standard 5-field cron, UTC
	OverdueSpec    string        // standard 5-field cron, UTC
	JobTimeout     time.Duration // whole run across all tenants
}

// DefaultConfig generates dues at 01:00 and flags overdue items at 01:30 UTC
func DefaultConfig() Config {
	return Config{
		Enabled:        true,
		GenerationSpec: "0 1 * * *",
		OverdueSpec:    "30 1 * * *",
		JobTimeout:     30 * time.Minute,
	}
}

// Validate parses both cron specs
func (c Config) Validate() error {
	for name, spec := range map[string]string{"generation": c.GenerationSpec, "overdue": c.OverdueSpec} {
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("%w: %s spec %q: %v", ErrInvalidConfig, name, spec, err)
		}
	}
	if c.JobTimeout <= 0 {
		return fmt.Errorf("%w: job timeout must be positive", ErrInvalidConfig)
	}
	return nil
}

// TenantSource lists the tenants the nightly jobs visit
type TenantSource interface {
	ListTenantIDs(ctx context.Context) ([]uuid.UUID, error)
}

// DuesJobs is the part of the due generation service the scheduler drives
type DuesJobs interface {
	GenerateForAllActive(ctx context.Context, tenantID uuid.UUID, targetDate time.Time) (*appledger.BatchGenerationResult, error)
	MarkOverdue(ctx context.Context, tenantID uuid.UUID, asOf time.Time) (int64, error)
}

// JobOutcome summarizes one tenant's run
type JobOutcome struct {
	Processed int
	Failures  int
	Err       error
}

// Status maps the outcome onto a JobStatus
func (o JobOutcome) Status() JobStatus {
	switch {
	case o.Err != nil:
		return JobStatusFailed
	case o.Failures > 0:
		return JobStatusPartial
	default:
		return JobStatusSuccess
	}
}

func (o JobOutcome) errorText() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

// LedgerScheduler runs due generation and the overdue sweep on cron
// schedules, one tenant after the other. A run that is still going when its
// next tick fires is skipped.
type LedgerScheduler struct {
	config  Config
	cron    *cron.Cron
	dues    DuesJobs
	tenants TenantSource
	runs    *JobRunRepository
	clock   ledger.Clock
	logger  *zap.Logger
	jobs    map[string]func(context.Context) error

	mu      sync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// New validates cfg and registers both jobs. runs may be nil.
func New(cfg Config, dues DuesJobs, tenants TenantSource, runs *JobRunRepository, clock ledger.Clock, logger *zap.Logger) (*LedgerScheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = ledger.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &LedgerScheduler{
		config:  cfg,
		dues:    dues,
		tenants: tenants,
		runs:    runs,
		clock:   clock,
		logger:  logger,
	}
	s.jobs = map[string]func(context.Context) error{
		JobGenerateDues: s.RunGeneration,
		JobMarkOverdue:  s.RunOverdueSweep,
	}

	cl := cronLogger{logger: logger}
	s.cron = cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := s.cron.AddFunc(cfg.GenerationSpec, s.tick(JobGenerateDues)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := s.cron.AddFunc(cfg.OverdueSpec, s.tick(JobMarkOverdue)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return s, nil
}

// Start begins firing jobs. Runs stop when ctx is cancelled or Stop is called.
func (s *LedgerScheduler) Start(ctx context.Context) {
	if !s.config.Enabled {
		s.logger.Info("Ledger scheduler disabled")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running = true
	s.cron.Start()

	s.logger.Info("Ledger scheduler started",
		zap.String("generation_spec", s.config.GenerationSpec),
		zap.String("overdue_spec", s.config.OverdueSpec),
	)
}

// Stop cancels running jobs and waits for them, or for ctx to expire
func (s *LedgerScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	select {
	case <-s.cron.Stop().Done():
		s.logger.Info("Ledger scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Ledger scheduler stop timed out")
		return ctx.Err()
	}
}

// RunNow executes a job synchronously, outside the cron schedule
func (s *LedgerScheduler) RunNow(ctx context.Context, job string) error {
	fn, ok := s.jobs[job]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, job)
	}
	return fn(ctx)
}

func (s *LedgerScheduler) tick(job string) func() {
	return func() {
		s.mu.Lock()
		parent := s.ctx
		s.mu.Unlock()
		if parent == nil {
			parent = context.Background()
		}
		ctx, cancel := context.WithTimeout(parent, s.config.JobTimeout)
		defer cancel()
		if err := s.jobs[job](ctx); err != nil {
			s.logger.Error("Scheduled job failed", zap.String("job", job), zap.Error(err))
		}
	}
}

// RunGeneration creates missing dues up to the end of the current month for
// every active student of every tenant.
func (s *LedgerScheduler) RunGeneration(ctx context.Context) error {
	target := ledger.EndOfMonth(s.clock.Now())
	return s.forEachTenant(ctx, JobGenerateDues, func(ctx context.Context, tenantID uuid.UUID) JobOutcome {
		res, err := s.dues.GenerateForAllActive(ctx, tenantID, target)
		if err != nil {
			return JobOutcome{Err: err}
		}
		return JobOutcome{Processed: res.Processed, Failures: len(res.Failures)}
	})
}

// RunOverdueSweep flags open items of past periods as OVERDUE
func (s *LedgerScheduler) RunOverdueSweep(ctx context.Context) error {
	asOf := s.clock.Now()
	return s.forEachTenant(ctx, JobMarkOverdue, func(ctx context.Context, tenantID uuid.UUID) JobOutcome {
		n, err := s.dues.MarkOverdue(ctx, tenantID, asOf)
		return JobOutcome{Processed: int(n), Err: err}
	})
}

func (s *LedgerScheduler) forEachTenant(ctx context.Context, job string, run func(context.Context, uuid.UUID) JobOutcome) error {
	tenantIDs, err := s.tenants.ListTenantIDs(ctx)
	if err != nil {
		return fmt.Errorf("list tenants for %s: %w", job, err)
	}

	log := s.logger.With(zap.String("job", job))
	log.Info("Scheduled job started", zap.Int("tenants", len(tenantIDs)))

	var errs []error
	for _, tenantID := range tenantIDs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		runID := s.recordStart(ctx, tenantID, job)
		outcome := run(ctx, tenantID)
		s.recordComplete(ctx, runID, outcome)

		fields := []zap.Field{
			zap.String("tenant_id", tenantID.String()),
			zap.String("status", string(outcome.Status())),
			zap.Int("processed", outcome.Processed),
			zap.Int("failures", outcome.Failures),
		}
		if outcome.Err != nil {
			errs = append(errs, fmt.Errorf("tenant %s: %w", tenantID, outcome.Err))
			log.Error("Tenant job failed", append(fields, zap.Error(outcome.Err))...)
			continue
		}
		log.Info("Tenant job completed", fields...)
	}
	return errors.Join(errs...)
}

func (s *LedgerScheduler) recordStart(ctx context.Context, tenantID uuid.UUID, job string) uuid.UUID {
	if s.runs == nil {
		return uuid.Nil
	}
	id, err := s.runs.Start(ctx, tenantID, job)
	if err != nil {
		s.logger.Warn("Failed to record job start",
			zap.String("job", job),
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
		return uuid.Nil
	}
	return id
}

func (s *LedgerScheduler) recordComplete(ctx context.Context, id uuid.UUID, outcome JobOutcome) {
	if s.runs == nil || id == uuid.Nil {
		return
	}
	if err := s.runs.Complete(context.WithoutCancel(ctx), id, outcome); err != nil {
		s.logger.Warn("Failed to record job completion", zap.String("run_id", id.String()), zap.Error(err))
	}
}

// cronLogger adapts zap to cron.Logger
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, zap.Any("details", keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, zap.Error(err), zap.Any("details", keysAndValues))
}
