package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mamadbah2/epharmacy/internal/config"
	"github.com/mamadbah2/epharmacy/internal/domain/models"
)

type countingSweeper struct {
	calls int
	err   error
}

func (c *countingSweeper) Sweep(ctx context.Context) (models.SweepReport, error) {
	c.calls++
	if _, ok := ctx.Deadline(); !ok {
		return models.SweepReport{}, errors.New("sweep must run with a deadline")
	}
	return models.SweepReport{}, c.err
}

type countingExporter struct{ calls int }

func (c *countingExporter) ExportWeekly(ctx context.Context, now time.Time) error {
	c.calls++
	return nil
}

func testConfig() config.Config {
	return config.Config{
		Sweep:     config.SweepConfig{CronSchedule: "0 9 * * *", Timezone: "UTC"},
		Reporting: config.ReportingConfig{CronSchedule: "0 20 * * 5"},
	}
}

func TestStartRegistersJobs(t *testing.T) {
	s, err := NewScheduler(testConfig(), &countingSweeper{}, &countingExporter{}, nil)
	if err != nil {
		t.Fatalf("NewScheduler() error = %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()

	if got := s.Entries(); got != 2 {
		t.Fatalf("Entries() = %d, want 2", got)
	}
}

func TestStartWithoutExporter(t *testing.T) {
	s, err := NewScheduler(testConfig(), &countingSweeper{}, nil, nil)
	if err != nil {
		t.Fatalf("NewScheduler() error = %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()

	if got := s.Entries(); got != 1 {
		t.Fatalf("Entries() = %d, want 1", got)
	}
}

func TestInvalidScheduleAndTimezone(t *testing.T) {
	cfg := testConfig()
	cfg.Sweep.CronSchedule = "every day"
	s, err := NewScheduler(cfg, &countingSweeper{}, nil, nil)
	if err != nil {
		t.Fatalf("NewScheduler() error = %v", err)
	}
	if err := s.Start(); err == nil {
		t.Fatalf("expected invalid cron expression to fail")
	}

	cfg = testConfig()
	cfg.Sweep.Timezone = "Mars/Olympus_Mons"
	if _, err := NewScheduler(cfg, &countingSweeper{}, nil, nil); err == nil {
		t.Fatalf("expected unknown timezone to fail")
	}
}

func TestJobsInvokeSharedServices(t *testing.T) {
	sweeper := &countingSweeper{err: errors.New("ledger unavailable")}
	exporter := &countingExporter{}
	s, err := NewScheduler(testConfig(), sweeper, exporter, nil)
	if err != nil {
		t.Fatalf("NewScheduler() error = %v", err)
	}

	s.runSweep()
	s.exportReport()

	if sweeper.calls != 1 || exporter.calls != 1 {
		t.Fatalf("calls sweep=%d export=%d", sweeper.calls, exporter.calls)
	}
}
