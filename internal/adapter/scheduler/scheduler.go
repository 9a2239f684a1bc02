// Package scheduler runs the periodic maintenance jobs: the recipient
// vault sweep and the rate cache warm-up.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/remitflow/remitflow-backend/internal/domain"
)

// Sweeper drops idle recipient details
type Sweeper interface {
	SweepSessions(now time.Time) int
}

// Refresher forces a rate table fetch
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Jobs holds the job bodies run by the scheduler
type Jobs struct {
	Sessions    Sweeper
	Rates       Refresher
	Clock       domain.Clock
	WarmTimeout time.Duration
}

// SweepVault removes idle recipient details
func (j *Jobs) SweepVault() {
	now := time.Now()
	if j.Clock != nil {
		now = j.Clock()
	}
	if removed := j.Sessions.SweepSessions(now); removed > 0 {
		log.Printf("level=info component=scheduler job=vault_sweep msg=\"idle sessions removed\" count=%d", removed)
	}
}

// WarmRates refreshes the rate cache ahead of its expiry. Failures leave
// the cached table in place.
func (j *Jobs) WarmRates() {
	timeout := j.WarmTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := j.Rates.Refresh(ctx); err != nil {
		log.Printf("level=warn component=scheduler job=rate_warmup msg=\"rate refresh failed\" err=%v", err)
	}
}

// Schedules holds the cron specs for each job. An empty spec disables the job.
type Schedules struct {
	VaultSweep string
	RateWarmup string
}

// Scheduler manages the cron jobs.
type Scheduler struct {
	cron      *cron.Cron
	jobs      *Jobs
	schedules Schedules
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(jobs *Jobs, schedules Schedules) *Scheduler {
	cronLogger := cron.PrintfLogger(log.Default())
	c := cron.New(cron.WithChain(cron.Recover(cronLogger)))

	return &Scheduler{
		cron:      c,
		jobs:      jobs,
		schedules: schedules,
	}
}

// Start registers the jobs and starts the cron scheduler.
func (s *Scheduler) Start() error {
	if err := s.add("vault sweep", s.schedules.VaultSweep, s.jobs.SweepVault); err != nil {
		return err
	}
	if err := s.add("rate warm-up", s.schedules.RateWarmup, s.jobs.WarmRates); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) add(name, spec string, job func()) error {
	if spec == "" {
		log.Printf("level=info component=scheduler msg=\"job disabled\" job=%q", name)
		return nil
	}
	if _, err := s.cron.AddFunc(spec, job); err != nil {
		return fmt.Errorf("schedule %s job %q: %w", name, spec, err)
	}
	log.Printf("level=info component=scheduler msg=\"job scheduled\" job=%q schedule=%q", name, spec)
	return nil
}
