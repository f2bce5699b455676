package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marathononline/training-api/internal/domain"
	"marathononline/training-api/internal/repository"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	defaultRecordWindow = 30 * 24 * time.Hour
	defaultPendingLimit = 50
	maxPendingLimit     = 200
)

// SubmissionResult reports what happened to one raw submission.
type SubmissionResult struct {
	Record      domain.Record
	ReplacedIDs []primitive.ObjectID
	TrainingDay *domain.TrainingDay
	// AttachErr is set when an approved record could not join today's day.
	AttachErr error
}

type RecordService interface {
	// SubmitRecords merges each submission with the runner's overlapping
	// records, runs the approval gate, stores the result and attaches approved
	// records to today's training day.
	SubmitRecords(ctx context.Context, userID primitive.ObjectID, raws []domain.RawRecordSubmission) ([]SubmissionResult, error)
	ListRecords(ctx context.Context, userID primitive.ObjectID, from, to time.Time) ([]domain.Record, error)
	// ListPendingRecords returns records waiting for manual review, oldest first.
	ListPendingRecords(ctx context.Context, limit int) ([]domain.Record, error)
	// ReviewRecord settles a record's approval by hand. A record approved on
	// the day it was run joins today's training day; a rejected record leaves
	// any day it was attached to.
	ReviewRecord(ctx context.Context, recordID primitive.ObjectID, in ReviewInput) (*SubmissionResult, error)
}

// ReviewInput is a manual approval decision. A nil FraudRisk keeps the
// classifier's score.
type ReviewInput struct {
	Status     domain.ApprovalStatus
	FraudRisk  *float64
	ReviewNote string
}

type recordService struct {
	tx         repository.Transactor
	recordRepo repository.RecordRepository
	approvals  RecordApprovalService
	days       TrainingDayService
	cal        Calendar
}

func NewRecordService(
	tx repository.Transactor,
	recordRepo repository.RecordRepository,
	approvals RecordApprovalService,
	days TrainingDayService,
	cal Calendar,
) RecordService {
	return &recordService{
		tx:         tx,
		recordRepo: recordRepo,
		approvals:  approvals,
		days:       days,
		cal:        cal,
	}
}

func (s *recordService) SubmitRecords(ctx context.Context, userID primitive.ObjectID, raws []domain.RawRecordSubmission) ([]SubmissionResult, error) {
	if len(raws) == 0 {
		return nil, validationError("at least one record is required")
	}
	candidates := make([]domain.Record, 0, len(raws))
	for i, raw := range raws {
		rec, err := RecordFromSubmission(userID, raw)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		candidates = append(candidates, rec)
	}

	results := make([]SubmissionResult, 0, len(candidates))
	for _, candidate := range candidates {
		res, err := s.store(ctx, candidate)
		if err != nil {
			return results, err
		}
		if res.Record.Approved() {
			res.TrainingDay, res.AttachErr = s.days.SaveRecordIntoTrainingDay(ctx, userID, res.Record.ID)
			if res.AttachErr != nil {
				log.Info().Err(res.AttachErr).Str("recordId", res.Record.ID.Hex()).Msg("approved record not attached")
			}
		}
		results = append(results, res)
	}
	return results, nil
}

// store merges, approves and persists a single candidate as one unit of work.
func (s *recordService) store(ctx context.Context, candidate domain.Record) (SubmissionResult, error) {
	var res SubmissionResult
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		res = SubmissionResult{}
		existing, err := s.recordRepo.FindOverlapCandidates(ctx, candidate.UserID, candidate.StartTime, candidate.EndTime)
		if err != nil {
			return fmt.Errorf("find overlapping records: %w", err)
		}
		over := overlapping(candidate, existing)
		merged := MergeRecords(candidate, over)

		approval := s.approvals.AnalyzeRecordApproval(ctx, &merged)
		merged.Approval = &approval

		if len(over) > 0 {
			for _, r := range over {
				res.ReplacedIDs = append(res.ReplacedIDs, r.ID)
			}
			if err := s.recordRepo.DeleteMany(ctx, res.ReplacedIDs); err != nil {
				return fmt.Errorf("delete merged records: %w", err)
			}
			if err := s.days.DetachRecords(ctx, res.ReplacedIDs); err != nil {
				return err
			}
		}

		id, err := s.recordRepo.Create(ctx, &merged)
		if err != nil {
			return fmt.Errorf("create record: %w", err)
		}
		merged.ID = id
		res.Record = merged
		return nil
	})
	if err != nil {
		return SubmissionResult{}, err
	}
	log.Info().
		Str("userId", candidate.UserID.Hex()).
		Str("recordId", res.Record.ID.Hex()).
		Str("source", string(res.Record.Source)).
		Int("replaced", len(res.ReplacedIDs)).
		Str("approval", string(res.Record.Approval.ApprovalStatus)).
		Msg("record stored")
	return res, nil
}

func (s *recordService) ListRecords(ctx context.Context, userID primitive.ObjectID, from, to time.Time) ([]domain.Record, error) {
	if to.IsZero() {
		to = s.cal.Now()
	}
	if from.IsZero() {
		from = to.Add(-defaultRecordWindow)
	}
	if !from.Before(to) {
		return nil, validationError("from must be before to")
	}
	records, err := s.recordRepo.ListByUser(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return records, nil
}

func (s *recordService) ListPendingRecords(ctx context.Context, limit int) ([]domain.Record, error) {
	switch {
	case limit < 0 || limit > maxPendingLimit:
		return nil, validationError("limit must be between 1 and %d", maxPendingLimit)
	case limit == 0:
		limit = defaultPendingLimit
	}
	records, err := s.recordRepo.ListByApprovalStatus(ctx, domain.ApprovalPending, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending records: %w", err)
	}
	return records, nil
}

func (s *recordService) ReviewRecord(ctx context.Context, recordID primitive.ObjectID, in ReviewInput) (*SubmissionResult, error) {
	switch in.Status {
	case domain.ApprovalApproved, domain.ApprovalRejected:
	default:
		return nil, validationError("status must be %s or %s", domain.ApprovalApproved, domain.ApprovalRejected)
	}
	if in.FraudRisk != nil && (*in.FraudRisk < 0 || *in.FraudRisk > 100) {
		return nil, validationError("fraud risk must be between 0 and 100")
	}

	var updated *domain.Record
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		record, err := s.recordRepo.GetByID(ctx, recordID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrRecordNotFound
			}
			return fmt.Errorf("load record: %w", err)
		}

		approval := domain.RecordApproval{ID: primitive.NewObjectID()}
		if record.Approval != nil {
			approval = *record.Approval
		}
		approval.ApprovalStatus = in.Status
		approval.ReviewNote = in.ReviewNote
		if in.FraudRisk != nil {
			approval.FraudRisk = *in.FraudRisk
		}

		updated, err = s.recordRepo.UpdateApproval(ctx, record.ID, approval)
		if err != nil {
			return fmt.Errorf("update approval: %w", err)
		}
		if in.Status == domain.ApprovalRejected {
			return s.days.DetachRecords(ctx, []primitive.ObjectID{record.ID})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	res := &SubmissionResult{Record: *updated}
	today := s.cal.Today()
	if in.Status == domain.ApprovalApproved && !updated.StartTime.Before(today) && updated.StartTime.Before(today.AddDate(0, 0, 1)) {
		res.TrainingDay, res.AttachErr = s.days.SaveRecordIntoTrainingDay(ctx, updated.UserID, updated.ID)
		if res.AttachErr != nil {
			log.Info().Err(res.AttachErr).Str("recordId", updated.ID.Hex()).Msg("reviewed record not attached")
		}
	}
	log.Info().
		Str("recordId", updated.ID.Hex()).
		Str("userId", updated.UserID.Hex()).
		Str("approval", string(in.Status)).
		Msg("record reviewed")
	return res, nil
}
