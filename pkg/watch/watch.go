// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package watch implements the recurring-sweep mode: a cron-scheduled
// loop that bounds-scans a device on a recurring interval and keeps a
// rolling history of RunReports in memory. It does not persist scans to
// a database.
package watch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/stratastor/logger"

	"github.com/stratastor/diskscan/pkg/report"
	"github.com/stratastor/diskscan/pkg/scanerr"
)

// RunFunc performs one bounded scan and returns its report. The caller
// supplies this — Sweeper has no knowledge of device probing or engine
// construction.
type RunFunc func(ctx context.Context) (*report.RunReport, error)

// Config parameterizes a recurring sweep.
type Config struct {
	CronExpression string
	HistorySize    int // number of recent RunReports retained; default 20
}

// DefaultConfig returns the sweeper's default history retention.
func DefaultConfig(cron string) Config {
	return Config{CronExpression: cron, HistorySize: 20}
}

// Sweeper runs a RunFunc on a cron schedule and retains the most recent
// HistorySize reports, oldest evicted first.
type Sweeper struct {
	logger logger.Logger
	run    RunFunc
	cfg    Config

	scheduler gocron.Scheduler

	mu      sync.RWMutex
	history []*report.RunReport
	running bool
}

// New builds a Sweeper. It does not start the schedule — call Start.
func New(l logger.Logger, run RunFunc, cfg Config) (*Sweeper, error) {
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 20
	}
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, scanerr.New(scanerr.SetupInvalidArgument, "failed to create scheduler: "+err.Error())
	}
	return &Sweeper{logger: l, run: run, cfg: cfg, scheduler: scheduler}, nil
}

// Start registers the cron job and begins the scheduler. The supplied
// context bounds every individual sweep, not the scheduler's lifetime.
func (s *Sweeper) Start(ctx context.Context) error {
	_, err := s.scheduler.NewJob(
		gocron.CronJob(s.cfg.CronExpression, false),
		gocron.NewTask(func() { s.runOnce(ctx) }),
		gocron.WithName("diskscan-watch"),
	)
	if err != nil {
		return scanerr.New(scanerr.SetupInvalidArgument, "invalid cron expression: "+err.Error())
	}

	s.scheduler.Start()
	s.log("Info", "watch sweeper started", "cron", s.cfg.CronExpression, "history_size", s.cfg.HistorySize)
	return nil
}

// Stop shuts the scheduler down, waiting for an in-flight sweep to finish.
func (s *Sweeper) Stop() error {
	s.log("Info", "watch sweeper stopping")
	if err := s.scheduler.Shutdown(); err != nil {
		return scanerr.New(scanerr.SetupInvalidArgument, "scheduler shutdown: "+err.Error())
	}
	return nil
}

// History returns a snapshot of the retained reports, oldest first.
func (s *Sweeper) History() []*report.RunReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*report.RunReport, len(s.history))
	copy(out, s.history)
	return out
}

// Latest returns the most recent report, or nil if no sweep has
// completed yet.
func (s *Sweeper) Latest() *report.RunReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.history) == 0 {
		return nil
	}
	return s.history[len(s.history)-1]
}

func (s *Sweeper) runOnce(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.log("Warn", "skipping sweep, previous sweep still running")
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	start := time.Now()
	rr, err := s.run(ctx)
	if err != nil {
		s.log("Error", "sweep failed", "error", err.Error(), "elapsed", time.Since(start).String())
		return
	}

	s.mu.Lock()
	s.history = append(s.history, rr)
	if len(s.history) > s.cfg.HistorySize {
		s.history = s.history[len(s.history)-s.cfg.HistorySize:]
	}
	s.mu.Unlock()

	s.log("Info", "sweep completed",
		"run_id", rr.RunID,
		"verdict", string(rr.Verdict),
		"hardware_fault_warning", rr.HardwareFaultWarning,
		"elapsed", time.Since(start).String(),
	)
}

// Summary renders a one-line human summary of a report.
func Summary(rr *report.RunReport) string {
	if rr == nil {
		return "no sweeps completed yet"
	}
	return fmt.Sprintf("run=%s device=%s verdict=%s reads=%d fault_warning=%t",
		rr.RunID, rr.DevicePath, rr.Verdict, rr.TotalReads, rr.HardwareFaultWarning)
}

func (s *Sweeper) log(level, msg string, kv ...interface{}) {
	if s.logger == nil {
		return
	}
	switch level {
	case "Warn":
		s.logger.Warn(msg, kv...)
	case "Error":
		s.logger.Error(msg, kv...)
	default:
		s.logger.Info(msg, kv...)
	}
}
