package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"marathononline/training-api/internal/domain"
	"marathononline/training-api/internal/notify"
	"marathononline/training-api/internal/repository"
	"marathononline/training-api/internal/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	maxPlanWeeks      = 52
	defaultPageSize   = 20
	maxPageSize       = 100
	exportURLLifetime = 15 * time.Minute
)

// CreatePlanInput is what a runner asks for. Nil measurements are derived
// from their approved records.
type CreatePlanInput struct {
	Level       domain.Level
	Goal        domain.Goal
	MaxDistance *float64
	AveragePace *float64
	Weeks       int
	DaysPerWeek int
}

type PlanWithDays struct {
	Plan domain.TrainingPlan
	Days []domain.TrainingDay
}

type PlanExport struct {
	ObjectKey string
	URL       string
	ExpiresAt time.Time
}

type TrainingPlanService interface {
	// CreatePlan archives the runner's ACTIVE plans and stores a freshly
	// generated one in the same unit of work.
	CreatePlan(ctx context.Context, userID primitive.ObjectID, in CreatePlanInput) (*PlanWithDays, error)
	GetCurrentPlan(ctx context.Context, userID primitive.ObjectID) (*PlanWithDays, error)
	GetPlan(ctx context.Context, userID, planID primitive.ObjectID) (*PlanWithDays, error)
	ListPlans(ctx context.Context, userID primitive.ObjectID, filter repository.PlanFilter) ([]domain.TrainingPlan, int64, error)
	UpdateStatus(ctx context.Context, userID, planID primitive.ObjectID, status domain.PlanStatus) (*domain.TrainingPlan, error)
	GetProgress(ctx context.Context, userID primitive.ObjectID) (*domain.PlanProgress, error)
	ExportPlan(ctx context.Context, userID, planID primitive.ObjectID) (*PlanExport, error)
}

type trainingPlanService struct {
	tx         repository.Transactor
	userRepo   repository.UserRepository
	planRepo   repository.TrainingPlanRepository
	dayRepo    repository.TrainingDayRepository
	recordRepo repository.RecordRepository
	generator  PlanGenerator
	store      storage.ObjectStorage
	notifier   notify.Notifier
	cal        Calendar
}

// NewTrainingPlanService wires the plan service. store may be nil, which
// disables exports.
func NewTrainingPlanService(
	tx repository.Transactor,
	userRepo repository.UserRepository,
	planRepo repository.TrainingPlanRepository,
	dayRepo repository.TrainingDayRepository,
	recordRepo repository.RecordRepository,
	generator PlanGenerator,
	store storage.ObjectStorage,
	notifier notify.Notifier,
	cal Calendar,
) TrainingPlanService {
	return &trainingPlanService{
		tx:         tx,
		userRepo:   userRepo,
		planRepo:   planRepo,
		dayRepo:    dayRepo,
		recordRepo: recordRepo,
		generator:  generator,
		store:      store,
		notifier:   notifier,
		cal:        cal,
	}
}

func (in CreatePlanInput) validate() error {
	if !in.Level.Valid() {
		return validationError("invalid level %q", in.Level)
	}
	if !in.Goal.Valid() {
		return validationError("invalid goal %q", in.Goal)
	}
	if in.Weeks < 1 || in.Weeks > maxPlanWeeks {
		return validationError("weeks must be between 1 and %d", maxPlanWeeks)
	}
	if in.DaysPerWeek < 1 || in.DaysPerWeek > 7 {
		return validationError("daysPerWeek must be between 1 and 7")
	}
	if in.MaxDistance != nil && *in.MaxDistance < 0 {
		return validationError("maxDistance cannot be negative")
	}
	if in.AveragePace != nil && *in.AveragePace < 0 {
		return validationError("averagePace cannot be negative")
	}
	return nil
}

func (s *trainingPlanService) CreatePlan(ctx context.Context, userID primitive.ObjectID, in CreatePlanInput) (*PlanWithDays, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: user", ErrNotFound)
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	input := domain.TrainingPlanInput{
		Level:       in.Level,
		Goal:        in.Goal,
		Weeks:       in.Weeks,
		DaysPerWeek: in.DaysPerWeek,
		CreatedAt:   s.cal.Now().UTC(),
	}
	if in.MaxDistance != nil && in.AveragePace != nil {
		input.MaxDistance, input.AveragePace = *in.MaxDistance, *in.AveragePace
	} else {
		stats, err := s.recordRepo.RunningStats(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("load running stats: %w", err)
		}
		input.MaxDistance, input.AveragePace = round2(stats.MaxDistance), round2(stats.AveragePace)
		if in.MaxDistance != nil {
			input.MaxDistance = *in.MaxDistance
		}
		if in.AveragePace != nil {
			input.AveragePace = *in.AveragePace
		}
	}

	start := s.cal.Today()
	plan := &domain.TrainingPlan{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Input:     input,
		Name:      planName(input, user.FullName),
		StartDate: start,
		EndDate:   start.AddDate(0, 0, input.Weeks*7),
		Status:    domain.PlanStatusActive,
	}

	// outside the transaction: the AI call can take a while
	days := s.generator.GenerateTrainingDays(ctx, plan)

	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		archived, err := s.planRepo.ArchiveActiveForUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("archive active plans: %w", err)
		}
		if archived > 0 {
			log.Info().Str("userId", userID.Hex()).Int64("archived", archived).Msg("archived previous active plans")
		}
		if _, err := s.planRepo.Create(ctx, plan); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return fmt.Errorf("%w: another active plan was created concurrently", ErrDomainRule)
			}
			return fmt.Errorf("create plan: %w", err)
		}
		if err := s.dayRepo.CreateMany(ctx, days); err != nil {
			return fmt.Errorf("create training days: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	notify.Send(ctx, s.notifier, notify.Message{
		UserID: userID,
		Kind:   notify.KindPlanCreated,
		Title:  "Your training plan is ready",
		Body:   fmt.Sprintf("%s starts today and runs for %d weeks.", plan.Name, input.Weeks),
	})

	out := &PlanWithDays{Plan: *plan, Days: make([]domain.TrainingDay, 0, len(days))}
	for _, d := range days {
		out.Days = append(out.Days, *d)
	}
	return out, nil
}

// planName reads like "Beginner finish plan, 4 weeks - Jane Doe".
func planName(in domain.TrainingPlanInput, runner string) string {
	name := fmt.Sprintf("%s %s plan, %d weeks", titleCase(string(in.Level)),
		strings.ToLower(strings.ReplaceAll(string(in.Goal), "_", " ")), in.Weeks)
	if runner = strings.TrimSpace(runner); runner != "" {
		name += " - " + runner
	}
	return name
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	s = strings.ToLower(s)
	return strings.ToUpper(s[:1]) + s[1:]
}

func (s *trainingPlanService) GetCurrentPlan(ctx context.Context, userID primitive.ObjectID) (*PlanWithDays, error) {
	plan, err := s.planRepo.GetActiveByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoActivePlan
		}
		return nil, fmt.Errorf("load active plan: %w", err)
	}
	return s.withDays(ctx, plan)
}

func (s *trainingPlanService) GetPlan(ctx context.Context, userID, planID primitive.ObjectID) (*PlanWithDays, error) {
	plan, err := s.ownedPlan(ctx, userID, planID)
	if err != nil {
		return nil, err
	}
	return s.withDays(ctx, plan)
}

func (s *trainingPlanService) ownedPlan(ctx context.Context, userID, planID primitive.ObjectID) (*domain.TrainingPlan, error) {
	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("load plan: %w", err)
	}
	if plan.UserID != userID {
		return nil, ErrPlanAccessDenied
	}
	return plan, nil
}

func (s *trainingPlanService) withDays(ctx context.Context, plan *domain.TrainingPlan) (*PlanWithDays, error) {
	days, err := s.dayRepo.ListByPlan(ctx, plan.ID)
	if err != nil {
		return nil, fmt.Errorf("list training days: %w", err)
	}
	return &PlanWithDays{Plan: *plan, Days: days}, nil
}

func (s *trainingPlanService) ListPlans(ctx context.Context, userID primitive.ObjectID, filter repository.PlanFilter) ([]domain.TrainingPlan, int64, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, validationError("invalid status %q", filter.Status)
	}
	if filter.StartFrom != nil && filter.StartTo != nil && filter.StartFrom.After(*filter.StartTo) {
		return nil, 0, validationError("startFrom must not be after startTo")
	}
	if filter.Page < 0 {
		return nil, 0, validationError("page cannot be negative")
	}
	switch {
	case filter.Size <= 0:
		filter.Size = defaultPageSize
	case filter.Size > maxPageSize:
		filter.Size = maxPageSize
	}
	plans, total, err := s.planRepo.ListByUser(ctx, userID, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list plans: %w", err)
	}
	return plans, total, nil
}

func (s *trainingPlanService) UpdateStatus(ctx context.Context, userID, planID primitive.ObjectID, status domain.PlanStatus) (*domain.TrainingPlan, error) {
	if !status.Valid() {
		return nil, validationError("invalid status %q", status)
	}
	plan, err := s.ownedPlan(ctx, userID, planID)
	if err != nil {
		return nil, err
	}
	if plan.Status == status {
		return plan, nil
	}
	if status == domain.PlanStatusActive && !s.cal.Now().Before(plan.EndDate) {
		return nil, fmt.Errorf("%w: plan has already ended", ErrDomainRule)
	}

	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if status == domain.PlanStatusActive {
			if _, err := s.planRepo.ArchiveActiveForUser(ctx, userID); err != nil {
				return fmt.Errorf("archive active plans: %w", err)
			}
		}
		if err := s.planRepo.UpdateStatus(ctx, planID, status); err != nil {
			return fmt.Errorf("update plan status: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	plan.Status = status
	return plan, nil
}

func (s *trainingPlanService) GetProgress(ctx context.Context, userID primitive.ObjectID) (*domain.PlanProgress, error) {
	current, err := s.GetCurrentPlan(ctx, userID)
	if err != nil {
		return nil, err
	}
	return ComputeProgress(current.Plan.ID, current.Days), nil
}

// ComputeProgress counts COMPLETED days (REST days included) as done and
// everything else as remaining, so completed+remaining always equals total.
func ComputeProgress(planID primitive.ObjectID, days []domain.TrainingDay) *domain.PlanProgress {
	p := &domain.PlanProgress{PlanID: planID, TotalDays: len(days)}
	for _, d := range days {
		switch d.Status {
		case domain.DayStatusCompleted:
			p.CompletedDays++
		case domain.DayStatusMissed:
			p.MissedDays++
		}
	}
	p.RemainingDays = p.TotalDays - p.CompletedDays
	if p.TotalDays > 0 {
		p.Percentage = round2(float64(p.CompletedDays) / float64(p.TotalDays) * 100)
	}
	return p
}

type planSnapshot struct {
	Plan       domain.TrainingPlan  `json:"plan"`
	Days       []domain.TrainingDay `json:"days"`
	Progress   *domain.PlanProgress `json:"progress"`
	ExportedAt time.Time            `json:"exportedAt"`
}

func (s *trainingPlanService) ExportPlan(ctx context.Context, userID, planID primitive.ObjectID) (*PlanExport, error) {
	if s.store == nil {
		return nil, ErrExportUnavailable
	}
	full, err := s.GetPlan(ctx, userID, planID)
	if err != nil {
		return nil, err
	}
	now := s.cal.Now().UTC()
	body, err := json.Marshal(planSnapshot{
		Plan:       full.Plan,
		Days:       full.Days,
		Progress:   ComputeProgress(full.Plan.ID, full.Days),
		ExportedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("encode plan snapshot: %w", err)
	}

	key := fmt.Sprintf("exports/%s/%s/%s.json", userID.Hex(), planID.Hex(), uuid.NewString())
	if err := s.store.PutObject(ctx, key, "application/json", body); err != nil {
		return nil, fmt.Errorf("upload plan snapshot: %w", err)
	}
	url, err := s.store.GeneratePresignedDownloadURL(ctx, key, exportURLLifetime)
	if err != nil {
		if delErr := s.store.DeleteObject(ctx, key); delErr != nil {
			log.Warn().Err(delErr).Str("key", key).Msg("failed to remove unreachable plan snapshot")
		}
		return nil, fmt.Errorf("presign plan snapshot: %w", err)
	}
	return &PlanExport{ObjectKey: key, URL: url, ExpiresAt: now.Add(exportURLLifetime)}, nil
}
