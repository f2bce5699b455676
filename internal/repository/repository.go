package repository

import (
	"context"
	"time"

	"marathononline/training-api/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for repository layer
var (
	ErrNotFound     = RepositoryError("not found")
	ErrUpdateFailed = RepositoryError("update failed")
	ErrDuplicate    = RepositoryError("duplicate key")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// Transactor runs fn as a single unit of work. Repositories called with the
// ctx handed to fn take part in the same transaction.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// UserRepository defines the interface for interacting with user data.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
}

// PlanFilter narrows ListByUser. Zero values mean "any".
type PlanFilter struct {
	Status    domain.PlanStatus
	StartFrom *time.Time
	StartTo   *time.Time
	Page      int // zero-based
	Size      int
}

// TrainingPlanRepository defines the interface for interacting with training plan data.
type TrainingPlanRepository interface {
	Create(ctx context.Context, plan *domain.TrainingPlan) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.TrainingPlan, error)
	// GetActiveByUser returns the most recently started ACTIVE plan of the user.
	GetActiveByUser(ctx context.Context, userID primitive.ObjectID) (*domain.TrainingPlan, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID, filter PlanFilter) ([]domain.TrainingPlan, int64, error)
	// ListActiveAt returns ACTIVE plans whose [startDate, endDate] window contains at.
	ListActiveAt(ctx context.Context, at time.Time) ([]domain.TrainingPlan, error)
	// ListActiveEndedBefore returns ACTIVE plans whose endDate is before t.
	ListActiveEndedBefore(ctx context.Context, t time.Time) ([]domain.TrainingPlan, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status domain.PlanStatus) error
	// ArchiveActiveForUser moves every ACTIVE plan of the user to ARCHIVED.
	ArchiveActiveForUser(ctx context.Context, userID primitive.ObjectID) (int64, error)
}

// TrainingDayRepository defines the interface for interacting with training day data.
type TrainingDayRepository interface {
	CreateMany(ctx context.Context, days []*domain.TrainingDay) error
	// CreateIfAbsent inserts day unless the plan already has a day on that date.
	// created is false when an existing day was found.
	CreateIfAbsent(ctx context.Context, day *domain.TrainingDay) (created bool, err error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.TrainingDay, error)
	// GetByPlanAndDate returns the plan's day whose date falls in [dayStart, dayStart+24h).
	GetByPlanAndDate(ctx context.Context, planID primitive.ObjectID, dayStart time.Time) (*domain.TrainingDay, error)
	ListByPlan(ctx context.Context, planID primitive.ObjectID) ([]domain.TrainingDay, error)
	// MarkMissedBefore moves ACTIVE days dated before t that have neither
	// feedback nor records to MISSED, returning the affected days.
	MarkMissedBefore(ctx context.Context, planID primitive.ObjectID, t time.Time) ([]domain.TrainingDay, error)
	// AttachRecord appends rec and sets completion/status, provided the day is
	// still in an attachable status and still holds exactly seen records.
	// Returns ErrUpdateFailed otherwise.
	AttachRecord(ctx context.Context, dayID primitive.ObjectID, seen int, rec domain.AttachedRecord, completion float64, status domain.DayStatus) (*domain.TrainingDay, error)
	// ListByRecordIDs returns the days holding any of the given records.
	ListByRecordIDs(ctx context.Context, recordIDs []primitive.ObjectID) ([]domain.TrainingDay, error)
	// ReplaceRecords overwrites the attached records, completion and status of a day.
	ReplaceRecords(ctx context.Context, dayID primitive.ObjectID, records []domain.AttachedRecord, completion float64, status domain.DayStatus) (*domain.TrainingDay, error)
	UpsertFeedback(ctx context.Context, dayID primitive.ObjectID, feedback *domain.TrainingFeedback) (*domain.TrainingFeedback, error)
}

// RecordRepository defines the interface for interacting with canonical records.
type RecordRepository interface {
	Create(ctx context.Context, record *domain.Record) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Record, error)
	// FindOverlapCandidates returns the user's records whose interval may
	// intersect [start, end). Callers filter precisely.
	FindOverlapCandidates(ctx context.Context, userID primitive.ObjectID, start, end time.Time) ([]domain.Record, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID, from, to time.Time) ([]domain.Record, error)
	DeleteMany(ctx context.Context, ids []primitive.ObjectID) error
	// ListByApprovalStatus returns records in the given approval state, oldest first.
	ListByApprovalStatus(ctx context.Context, status domain.ApprovalStatus, limit int) ([]domain.Record, error)
	// UpdateApproval overwrites the embedded approval and returns the updated record.
	UpdateApproval(ctx context.Context, id primitive.ObjectID, approval domain.RecordApproval) (*domain.Record, error)
	RunningStats(ctx context.Context, userID primitive.ObjectID) (*domain.RunningStats, error)
}
