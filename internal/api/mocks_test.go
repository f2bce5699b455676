package api

import (
	"context"
	"time"

	"marathononline/training-api/internal/domain"
	"marathononline/training-api/internal/repository"
	"marathononline/training-api/internal/service"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type mockAuthService struct{ mock.Mock }

func (m *mockAuthService) Register(ctx context.Context, fullName, email, password string, role domain.Role) (*domain.User, error) {
	args := m.Called(ctx, fullName, email, password, role)
	u, _ := args.Get(0).(*domain.User)
	return u, args.Error(1)
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	args := m.Called(ctx, email, password)
	u, _ := args.Get(1).(*domain.User)
	return args.String(0), u, args.Error(2)
}

func (m *mockAuthService) GetJWTSecret() string { return testSecret }

type mockPlanService struct{ mock.Mock }

func (m *mockPlanService) CreatePlan(ctx context.Context, userID primitive.ObjectID, in service.CreatePlanInput) (*service.PlanWithDays, error) {
	args := m.Called(ctx, userID, in)
	p, _ := args.Get(0).(*service.PlanWithDays)
	return p, args.Error(1)
}

func (m *mockPlanService) GetCurrentPlan(ctx context.Context, userID primitive.ObjectID) (*service.PlanWithDays, error) {
	args := m.Called(ctx, userID)
	p, _ := args.Get(0).(*service.PlanWithDays)
	return p, args.Error(1)
}

func (m *mockPlanService) GetPlan(ctx context.Context, userID, planID primitive.ObjectID) (*service.PlanWithDays, error) {
	args := m.Called(ctx, userID, planID)
	p, _ := args.Get(0).(*service.PlanWithDays)
	return p, args.Error(1)
}

func (m *mockPlanService) ListPlans(ctx context.Context, userID primitive.ObjectID, filter repository.PlanFilter) ([]domain.TrainingPlan, int64, error) {
	args := m.Called(ctx, userID, filter)
	p, _ := args.Get(0).([]domain.TrainingPlan)
	return p, args.Get(1).(int64), args.Error(2)
}

func (m *mockPlanService) UpdateStatus(ctx context.Context, userID, planID primitive.ObjectID, status domain.PlanStatus) (*domain.TrainingPlan, error) {
	args := m.Called(ctx, userID, planID, status)
	p, _ := args.Get(0).(*domain.TrainingPlan)
	return p, args.Error(1)
}

func (m *mockPlanService) GetProgress(ctx context.Context, userID primitive.ObjectID) (*domain.PlanProgress, error) {
	args := m.Called(ctx, userID)
	p, _ := args.Get(0).(*domain.PlanProgress)
	return p, args.Error(1)
}

func (m *mockPlanService) ExportPlan(ctx context.Context, userID, planID primitive.ObjectID) (*service.PlanExport, error) {
	args := m.Called(ctx, userID, planID)
	p, _ := args.Get(0).(*service.PlanExport)
	return p, args.Error(1)
}

type mockDayService struct{ mock.Mock }

func (m *mockDayService) GetCurrentTrainingDay(ctx context.Context, userID primitive.ObjectID) (*domain.TrainingDay, error) {
	args := m.Called(ctx, userID)
	d, _ := args.Get(0).(*domain.TrainingDay)
	return d, args.Error(1)
}

func (m *mockDayService) GetTrainingDay(ctx context.Context, userID, dayID primitive.ObjectID) (*domain.TrainingDay, error) {
	args := m.Called(ctx, userID, dayID)
	d, _ := args.Get(0).(*domain.TrainingDay)
	return d, args.Error(1)
}

func (m *mockDayService) SaveRecordIntoTrainingDay(ctx context.Context, userID, recordID primitive.ObjectID) (*domain.TrainingDay, error) {
	args := m.Called(ctx, userID, recordID)
	d, _ := args.Get(0).(*domain.TrainingDay)
	return d, args.Error(1)
}

func (m *mockDayService) ResetTrainingDay(ctx context.Context, userID primitive.ObjectID) (*domain.TrainingDay, error) {
	args := m.Called(ctx, userID)
	d, _ := args.Get(0).(*domain.TrainingDay)
	return d, args.Error(1)
}

func (m *mockDayService) DetachRecords(ctx context.Context, recordIDs []primitive.ObjectID) error {
	return m.Called(ctx, recordIDs).Error(0)
}

type mockFeedbackService struct{ mock.Mock }

func (m *mockFeedbackService) SaveFeedback(ctx context.Context, userID, dayID primitive.ObjectID, in service.FeedbackInput) (*domain.TrainingFeedback, error) {
	args := m.Called(ctx, userID, dayID, in)
	f, _ := args.Get(0).(*domain.TrainingFeedback)
	return f, args.Error(1)
}

func (m *mockFeedbackService) GetFeedback(ctx context.Context, userID, dayID primitive.ObjectID) (*domain.TrainingFeedback, error) {
	args := m.Called(ctx, userID, dayID)
	f, _ := args.Get(0).(*domain.TrainingFeedback)
	return f, args.Error(1)
}

type mockRecordService struct{ mock.Mock }

func (m *mockRecordService) SubmitRecords(ctx context.Context, userID primitive.ObjectID, raws []domain.RawRecordSubmission) ([]service.SubmissionResult, error) {
	args := m.Called(ctx, userID, raws)
	r, _ := args.Get(0).([]service.SubmissionResult)
	return r, args.Error(1)
}

func (m *mockRecordService) ListRecords(ctx context.Context, userID primitive.ObjectID, from, to time.Time) ([]domain.Record, error) {
	args := m.Called(ctx, userID, from, to)
	r, _ := args.Get(0).([]domain.Record)
	return r, args.Error(1)
}

func (m *mockRecordService) ListPendingRecords(ctx context.Context, limit int) ([]domain.Record, error) {
	args := m.Called(ctx, limit)
	recs, _ := args.Get(0).([]domain.Record)
	return recs, args.Error(1)
}

func (m *mockRecordService) ReviewRecord(ctx context.Context, recordID primitive.ObjectID, in service.ReviewInput) (*service.SubmissionResult, error) {
	args := m.Called(ctx, recordID, in)
	res, _ := args.Get(0).(*service.SubmissionResult)
	return res, args.Error(1)
}

type mockScheduler struct{ mock.Mock }

func (m *mockScheduler) RunDaily(ctx context.Context) (service.DailyReport, error) {
	args := m.Called(ctx)
	return args.Get(0).(service.DailyReport), args.Error(1)
}

func (m *mockScheduler) ProcessPlan(ctx context.Context, plan *domain.TrainingPlan) (service.PlanReport, error) {
	args := m.Called(ctx, plan)
	return args.Get(0).(service.PlanReport), args.Error(1)
}

func (m *mockScheduler) CompleteExpiredPlans(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}
