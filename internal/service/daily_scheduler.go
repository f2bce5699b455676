package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marathononline/training-api/internal/domain"
	"marathononline/training-api/internal/notify"
	"marathononline/training-api/internal/repository"

	"github.com/rs/zerolog/log"
)

// DailyReport summarises one scheduler pass.
type DailyReport struct {
	Plans   int `json:"plans"`
	Failed  int `json:"failed"`
	Missed  int `json:"missed"`
	Created int `json:"created"`
}

type PlanReport struct {
	Missed  []domain.TrainingDay
	Created bool
}

type DailyScheduler interface {
	// RunDaily processes every ACTIVE plan running today. One plan failing
	// does not stop the others. Safe to run more than once a day.
	RunDaily(ctx context.Context) (DailyReport, error)
	// ProcessPlan sweeps past untouched days to MISSED and creates today's day
	// if it does not exist, as one unit of work.
	ProcessPlan(ctx context.Context, plan *domain.TrainingPlan) (PlanReport, error)
	// CompleteExpiredPlans closes ACTIVE plans whose window has ended.
	CompleteExpiredPlans(ctx context.Context) (int, error)
}

type dailyScheduler struct {
	tx        repository.Transactor
	planRepo  repository.TrainingPlanRepository
	dayRepo   repository.TrainingDayRepository
	generator PlanGenerator
	notifier  notify.Notifier
	cal       Calendar
}

func NewDailyScheduler(
	tx repository.Transactor,
	planRepo repository.TrainingPlanRepository,
	dayRepo repository.TrainingDayRepository,
	generator PlanGenerator,
	notifier notify.Notifier,
	cal Calendar,
) DailyScheduler {
	return &dailyScheduler{
		tx:        tx,
		planRepo:  planRepo,
		dayRepo:   dayRepo,
		generator: generator,
		notifier:  notifier,
		cal:       cal,
	}
}

func (s *dailyScheduler) RunDaily(ctx context.Context) (DailyReport, error) {
	started := time.Now()
	var report DailyReport

	plans, err := s.planRepo.ListActiveAt(ctx, s.cal.Now())
	if err != nil {
		return report, fmt.Errorf("list active plans: %w", err)
	}
	report.Plans = len(plans)

	for i := range plans {
		plan := &plans[i]
		if err := ctx.Err(); err != nil {
			return report, err
		}
		res, err := s.ProcessPlan(ctx, plan)
		if err != nil {
			report.Failed++
			log.Error().Err(err).Str("planId", plan.ID.Hex()).Str("userId", plan.UserID.Hex()).Msg("daily training update failed")
			continue
		}
		report.Missed += len(res.Missed)
		if res.Created {
			report.Created++
		}
		s.notifyMissed(ctx, plan, res.Missed)
	}

	log.Info().
		Int("plans", report.Plans).
		Int("failed", report.Failed).
		Int("missed", report.Missed).
		Int("created", report.Created).
		Dur("elapsed", time.Since(started)).
		Msg("daily training update finished")
	return report, nil
}

func (s *dailyScheduler) ProcessPlan(ctx context.Context, plan *domain.TrainingPlan) (PlanReport, error) {
	today := s.cal.Today()

	var report PlanReport
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		report = PlanReport{}
		missed, err := s.dayRepo.MarkMissedBefore(ctx, plan.ID, today)
		if err != nil {
			return fmt.Errorf("sweep missed days: %w", err)
		}
		report.Missed = missed

		day, err := s.generator.GenerateTrainingDayForDate(plan, today)
		if err != nil {
			if errors.Is(err, ErrValidation) {
				// today lies past the last plan week
				return nil
			}
			return err
		}
		report.Created, err = s.dayRepo.CreateIfAbsent(ctx, day)
		if err != nil {
			return fmt.Errorf("create today's training day: %w", err)
		}
		return nil
	})
	if err != nil {
		return PlanReport{}, err
	}
	return report, nil
}

func (s *dailyScheduler) CompleteExpiredPlans(ctx context.Context) (int, error) {
	plans, err := s.planRepo.ListActiveEndedBefore(ctx, s.cal.Now())
	if err != nil {
		return 0, fmt.Errorf("list expired plans: %w", err)
	}

	completed := 0
	for i := range plans {
		plan := &plans[i]
		var missed []domain.TrainingDay
		err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
			// the last day is never swept by RunDaily once the window closed
			var err error
			missed, err = s.dayRepo.MarkMissedBefore(ctx, plan.ID, plan.EndDate)
			if err != nil {
				return err
			}
			return s.planRepo.UpdateStatus(ctx, plan.ID, domain.PlanStatusCompleted)
		})
		if err != nil {
			log.Error().Err(err).Str("planId", plan.ID.Hex()).Msg("failed to complete expired plan")
			continue
		}
		completed++
		s.notifyMissed(ctx, plan, missed)
		notify.Send(ctx, s.notifier, notify.Message{
			UserID: plan.UserID,
			Kind:   notify.KindPlanCompleted,
			Title:  "Training plan finished",
			Body:   fmt.Sprintf("%s has ended. Time to plan the next block!", plan.Name),
		})
	}
	log.Info().Int("expired", len(plans)).Int("completed", completed).Msg("expired plans processed")
	return completed, nil
}

func (s *dailyScheduler) notifyMissed(ctx context.Context, plan *domain.TrainingPlan, missed []domain.TrainingDay) {
	if len(missed) == 0 {
		return
	}
	body := fmt.Sprintf("You missed %d training day(s) of %s. Keep going, today is a new day!", len(missed), plan.Name)
	if len(missed) == 1 {
		body = fmt.Sprintf("You missed %s on %s. Keep going, today is a new day!",
			missed[0].Session.Name, missed[0].DateTime.In(s.cal.Location()).Format("2006-01-02"))
	}
	notify.Send(ctx, s.notifier, notify.Message{
		UserID: plan.UserID,
		Kind:   notify.KindMissedTraining,
		Title:  "Missed training",
		Body:   body,
	})
}
