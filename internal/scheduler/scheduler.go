// Package scheduler registers the recurring training jobs with cron.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"marathononline/training-api/internal/config"
	"marathononline/training-api/internal/service"

	"github.com/robfig/cron"
	"github.com/rs/zerolog/log"
)

const jobTimeout = 30 * time.Minute

// Scheduler owns the cron runner. Jobs never overlap with themselves.
type Scheduler struct {
	cron *cron.Cron
	jobs service.DailyScheduler
	ctx  context.Context

	mu      sync.Mutex
	running map[string]bool
}

// New registers the daily update and the expired-plan job. Specs use the
// six-field cron format with a leading seconds field.
func New(ctx context.Context, cfg config.SchedulerConfig, jobs service.DailyScheduler) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.NewWithLocation(cfg.Location()),
		jobs:    jobs,
		ctx:     ctx,
		running: map[string]bool{},
	}
	if err := s.cron.AddFunc(cfg.DailySpec, s.wrap("daily-training-update", s.runDaily)); err != nil {
		return nil, fmt.Errorf("daily spec %q: %w", cfg.DailySpec, err)
	}
	if err := s.cron.AddFunc(cfg.ExpireSpec, s.wrap("complete-expired-plans", s.completeExpired)); err != nil {
		return nil, fmt.Errorf("expire spec %q: %w", cfg.ExpireSpec, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Info().Int("jobs", len(s.cron.Entries())).Msg("scheduler started")
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Info().Msg("scheduler stopped")
}

func (s *Scheduler) runDaily(ctx context.Context) error {
	_, err := s.jobs.RunDaily(ctx)
	return err
}

func (s *Scheduler) completeExpired(ctx context.Context) error {
	_, err := s.jobs.CompleteExpiredPlans(ctx)
	return err
}

// wrap adds a timeout, skips a run while the previous one is still going and
// keeps a panicking job from taking the process down.
func (s *Scheduler) wrap(name string, job func(context.Context) error) func() {
	return func() {
		s.mu.Lock()
		if s.running[name] {
			s.mu.Unlock()
			log.Warn().Str("job", name).Msg("previous run still in progress, skipping")
			return
		}
		s.running[name] = true
		s.mu.Unlock()

		defer func() {
			s.mu.Lock()
			delete(s.running, name)
			s.mu.Unlock()
			if r := recover(); r != nil {
				log.Error().Str("job", name).Interface("panic", r).Msg("job panicked")
			}
		}()

		ctx, cancel := context.WithTimeout(s.ctx, jobTimeout)
		defer cancel()
		started := time.Now()
		if err := job(ctx); err != nil {
			log.Error().Err(err).Str("job", name).Msg("job failed")
			return
		}
		log.Debug().Str("job", name).Dur("elapsed", time.Since(started)).Msg("job done")
	}
}
