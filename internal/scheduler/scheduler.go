package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/epharmacy/internal/config"
	"github.com/mamadbah2/epharmacy/internal/domain/models"
)

const (
	sweepTimeout  = 10 * time.Minute
	exportTimeout = 2 * time.Minute
)

// Sweeper is the one expiry sweep shared by the cron job and the HTTP trigger.
type Sweeper interface {
	Sweep(ctx context.Context) (models.SweepReport, error)
}

// ReportExporter exports the periodic most-scanned report.
type ReportExporter interface {
	ExportWeekly(ctx context.Context, now time.Time) error
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron     *cron.Cron
	sweeper  Sweeper
	exporter ReportExporter
	cfg      config.Config
	logger   *zap.Logger
}

// NewScheduler creates a scheduler running in the configured timezone.
// exporter may be nil to disable the report export job.
func NewScheduler(cfg config.Config, sweeper Sweeper, exporter ReportExporter, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	loc := time.Local
	if cfg.Sweep.Timezone != "" {
		l, err := time.LoadLocation(cfg.Sweep.Timezone)
		if err != nil {
			return nil, fmt.Errorf("load timezone %s: %w", cfg.Sweep.Timezone, err)
		}
		loc = l
	}

	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		sweeper:  sweeper,
		exporter: exporter,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// Start registers the jobs and starts the scheduler.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler", zap.String("sweep_schedule", s.cfg.Sweep.CronSchedule))

	if _, err := s.cron.AddFunc(s.cfg.Sweep.CronSchedule, s.runSweep); err != nil {
		return fmt.Errorf("schedule expiry sweep %q: %w", s.cfg.Sweep.CronSchedule, err)
	}

	if s.exporter != nil {
		if _, err := s.cron.AddFunc(s.cfg.Reporting.CronSchedule, s.exportReport); err != nil {
			return fmt.Errorf("schedule report export %q: %w", s.cfg.Reporting.CronSchedule, err)
		}
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("stopping scheduler")
	return s.cron.Stop()
}

// Entries returns the number of registered jobs.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	if _, err := s.sweeper.Sweep(ctx); err != nil {
		s.logger.Error("scheduled expiry sweep failed", zap.Error(err))
	}
}

func (s *Scheduler) exportReport() {
	s.logger.Info("exporting weekly report")
	ctx, cancel := context.WithTimeout(context.Background(), exportTimeout)
	defer cancel()

	if err := s.exporter.ExportWeekly(ctx, time.Now()); err != nil {
		s.logger.Error("failed to export weekly report", zap.Error(err))
	}
}
