package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"marathononline/training-api/internal/domain"
	"marathononline/training-api/internal/repository"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const maxAttachAttempts = 3

// TrainingDayService manages today's training day of a runner.
type TrainingDayService interface {
	GetCurrentTrainingDay(ctx context.Context, userID primitive.ObjectID) (*domain.TrainingDay, error)
	GetTrainingDay(ctx context.Context, userID, dayID primitive.ObjectID) (*domain.TrainingDay, error)
	// SaveRecordIntoTrainingDay attaches an approved record to today's day,
	// enforcing the session's rest-gap threshold.
	SaveRecordIntoTrainingDay(ctx context.Context, userID, recordID primitive.ObjectID) (*domain.TrainingDay, error)
	// ResetTrainingDay drops every record attached to today's day.
	ResetTrainingDay(ctx context.Context, userID primitive.ObjectID) (*domain.TrainingDay, error)
	// DetachRecords removes deleted records from whichever days hold them.
	DetachRecords(ctx context.Context, recordIDs []primitive.ObjectID) error
}

type trainingDayService struct {
	planRepo   repository.TrainingPlanRepository
	dayRepo    repository.TrainingDayRepository
	recordRepo repository.RecordRepository
	cal        Calendar
}

func NewTrainingDayService(
	planRepo repository.TrainingPlanRepository,
	dayRepo repository.TrainingDayRepository,
	recordRepo repository.RecordRepository,
	cal Calendar,
) TrainingDayService {
	return &trainingDayService{
		planRepo:   planRepo,
		dayRepo:    dayRepo,
		recordRepo: recordRepo,
		cal:        cal,
	}
}

func (s *trainingDayService) GetCurrentTrainingDay(ctx context.Context, userID primitive.ObjectID) (*domain.TrainingDay, error) {
	plan, err := s.planRepo.GetActiveByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoActivePlan
		}
		return nil, fmt.Errorf("load active plan: %w", err)
	}
	day, err := s.dayRepo.GetByPlanAndDate(ctx, plan.ID, s.cal.Today())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoTrainingDayToday
		}
		return nil, fmt.Errorf("load today's training day: %w", err)
	}
	return day, nil
}

func (s *trainingDayService) GetTrainingDay(ctx context.Context, userID, dayID primitive.ObjectID) (*domain.TrainingDay, error) {
	day, err := s.dayRepo.GetByID(ctx, dayID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTrainingDayNotFound
		}
		return nil, fmt.Errorf("load training day: %w", err)
	}
	if day.UserID != userID {
		return nil, ErrDayAccessDenied
	}
	return day, nil
}

func (s *trainingDayService) SaveRecordIntoTrainingDay(ctx context.Context, userID, recordID primitive.ObjectID) (*domain.TrainingDay, error) {
	record, err := s.recordRepo.GetByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("load record: %w", err)
	}
	if record.UserID != userID {
		return nil, ErrRecordAccessDenied
	}
	if !record.Approved() {
		return nil, ErrRecordNotApproved
	}

	for attempt := 1; ; attempt++ {
		day, err := s.attach(ctx, userID, record)
		if !errors.Is(err, repository.ErrUpdateFailed) {
			return day, err
		}
		// another attach or the nightly sweep changed the day since it was read
		if attempt == maxAttachAttempts {
			return nil, ErrAttachConflict
		}
		log.Debug().Str("recordId", record.ID.Hex()).Int("attempt", attempt).Msg("training day changed, re-checking attachment")
	}
}

// attach runs the checks against a fresh read of today's day and writes only
// if the day is unchanged. repository.ErrUpdateFailed means it was not.
func (s *trainingDayService) attach(ctx context.Context, userID primitive.ObjectID, record *domain.Record) (*domain.TrainingDay, error) {
	day, err := s.GetCurrentTrainingDay(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, r := range day.Records {
		if r.RecordID == record.ID {
			return day, nil
		}
	}
	if !day.Status.Attachable() {
		return nil, ErrDayNotAttachable
	}

	if latest, ok := day.LatestRecord(); ok {
		threshold, defined := day.Session.Type.MaxRestMinutes()
		if !defined {
			return nil, fmt.Errorf("%w: %q", ErrRestThresholdUndefined, day.Session.Type)
		}
		gap := restGapMinutes(latest.EndTime, record.StartTime)
		if gap > threshold {
			return nil, fmt.Errorf("%w: %d minutes since the previous record, %s allows %d; restart the session",
				ErrRestIntervalExceeded, gap, day.Session.Type, threshold)
		}
	}

	attached := domain.AttachedRecord{
		RecordID:  record.ID,
		StartTime: record.StartTime,
		EndTime:   record.EndTime,
	}
	if record.Distance != nil {
		attached.Distance = *record.Distance
	}
	records := append(append([]domain.AttachedRecord{}, day.Records...), attached)
	completion, status := completionFor(day.Session, records)

	updated, err := s.dayRepo.AttachRecord(ctx, day.ID, len(day.Records), attached, completion, status)
	if err != nil {
		if errors.Is(err, repository.ErrUpdateFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("attach record: %w", err)
	}
	log.Info().
		Str("userId", userID.Hex()).
		Str("dayId", day.ID.Hex()).
		Str("recordId", record.ID.Hex()).
		Float64("completion", completion).
		Msg("record attached to training day")
	return updated, nil
}

func (s *trainingDayService) ResetTrainingDay(ctx context.Context, userID primitive.ObjectID) (*domain.TrainingDay, error) {
	day, err := s.GetCurrentTrainingDay(ctx, userID)
	if err != nil {
		return nil, err
	}
	completion, status := completionFor(day.Session, nil)
	updated, err := s.dayRepo.ReplaceRecords(ctx, day.ID, nil, completion, status)
	if err != nil {
		return nil, fmt.Errorf("reset training day: %w", err)
	}
	return updated, nil
}

func (s *trainingDayService) DetachRecords(ctx context.Context, recordIDs []primitive.ObjectID) error {
	if len(recordIDs) == 0 {
		return nil
	}
	drop := make(map[primitive.ObjectID]struct{}, len(recordIDs))
	for _, id := range recordIDs {
		drop[id] = struct{}{}
	}

	days, err := s.dayRepo.ListByRecordIDs(ctx, recordIDs)
	if err != nil {
		return fmt.Errorf("find days holding records: %w", err)
	}
	for _, day := range days {
		kept := make([]domain.AttachedRecord, 0, len(day.Records))
		for _, r := range day.Records {
			if _, gone := drop[r.RecordID]; !gone {
				kept = append(kept, r)
			}
		}
		completion, status := completionFor(day.Session, kept)
		if _, err := s.dayRepo.ReplaceRecords(ctx, day.ID, kept, completion, status); err != nil {
			return fmt.Errorf("detach records from day %s: %w", day.ID.Hex(), err)
		}
	}
	return nil
}

// restGapMinutes floors the pause between two records; overlap counts as 0.
func restGapMinutes(prevEnd, nextStart time.Time) int64 {
	gap := nextStart.Sub(prevEnd)
	if gap <= 0 {
		return 0
	}
	return int64(gap / time.Minute)
}

// completionFor derives completion percentage and status from the attached
// distance. Sessions without a distance target are complete by definition.
func completionFor(session domain.TrainingSession, records []domain.AttachedRecord) (float64, domain.DayStatus) {
	if session.Type == domain.SessionRest || session.Distance <= 0 {
		return 100, domain.DayStatusCompleted
	}
	var metres float64
	for _, r := range records {
		metres += r.Distance
	}
	pct := round2(math.Min(100, metres/1000/session.Distance*100))
	switch {
	case pct >= 100:
		return pct, domain.DayStatusCompleted
	case pct > 0:
		return pct, domain.DayStatusPartiallyCompleted
	default:
		return 0, domain.DayStatusActive
	}
}
