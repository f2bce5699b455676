package service

import (
	"context"
	"fmt"

	"marathononline/training-api/internal/domain"
	"marathononline/training-api/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrFeedbackForFutureDay = fmt.Errorf("%w: feedback for a day that has not happened yet", ErrDomainRule)

type FeedbackInput struct {
	DifficultyRating domain.DifficultyRating
	FeelingRating    domain.FeelingRating
	Notes            string
}

type FeedbackService interface {
	// SaveFeedback creates the day's feedback or replaces the existing one.
	SaveFeedback(ctx context.Context, userID, dayID primitive.ObjectID, in FeedbackInput) (*domain.TrainingFeedback, error)
	GetFeedback(ctx context.Context, userID, dayID primitive.ObjectID) (*domain.TrainingFeedback, error)
}

type feedbackService struct {
	days    TrainingDayService
	dayRepo repository.TrainingDayRepository
	cal     Calendar
}

func NewFeedbackService(days TrainingDayService, dayRepo repository.TrainingDayRepository, cal Calendar) FeedbackService {
	return &feedbackService{days: days, dayRepo: dayRepo, cal: cal}
}

func (s *feedbackService) SaveFeedback(ctx context.Context, userID, dayID primitive.ObjectID, in FeedbackInput) (*domain.TrainingFeedback, error) {
	if !in.DifficultyRating.Valid() {
		return nil, validationError("invalid difficultyRating %q", in.DifficultyRating)
	}
	if !in.FeelingRating.Valid() {
		return nil, validationError("invalid feelingRating %q", in.FeelingRating)
	}

	day, err := s.days.GetTrainingDay(ctx, userID, dayID)
	if err != nil {
		return nil, err
	}
	if day.DateTime.After(s.cal.Today()) {
		return nil, ErrFeedbackForFutureDay
	}

	fb := &domain.TrainingFeedback{
		DifficultyRating: in.DifficultyRating,
		FeelingRating:    in.FeelingRating,
		Notes:            in.Notes,
	}
	if day.Feedback != nil {
		fb.ID = day.Feedback.ID
	}
	saved, err := s.dayRepo.UpsertFeedback(ctx, day.ID, fb)
	if err != nil {
		return nil, fmt.Errorf("save feedback: %w", err)
	}
	return saved, nil
}

func (s *feedbackService) GetFeedback(ctx context.Context, userID, dayID primitive.ObjectID) (*domain.TrainingFeedback, error) {
	day, err := s.days.GetTrainingDay(ctx, userID, dayID)
	if err != nil {
		return nil, err
	}
	if day.Feedback == nil {
		return nil, ErrFeedbackNotFound
	}
	return day.Feedback, nil
}
