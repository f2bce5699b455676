package service

import (
	"context"
	"fmt"

	"marathononline/training-api/internal/domain"
	"marathononline/training-api/internal/fraud"

	"github.com/rs/zerolog/log"
)

const (
	missingDataFraudType = "MISSING_DATA"
	missingDataNote      = "Missing required data: steps, distance or time taken."
	analysisFailedType   = "ANALYSIS_ERROR"
	pendingFraudRisk     = 50.0
	missingDataFraudRisk = 100.0
)

// RecordApprovalService decides whether a canonical record counts.
type RecordApprovalService interface {
	// AnalyzeRecordApproval never fails: classifier problems yield PENDING.
	AnalyzeRecordApproval(ctx context.Context, record *domain.Record) domain.RecordApproval
}

type recordApprovalService struct {
	classifier fraud.Classifier
}

func NewRecordApprovalService(classifier fraud.Classifier) RecordApprovalService {
	return &recordApprovalService{classifier: classifier}
}

func (s *recordApprovalService) AnalyzeRecordApproval(ctx context.Context, record *domain.Record) domain.RecordApproval {
	if record.Steps == nil || record.Distance == nil || record.TimeTaken == nil {
		return domain.RecordApproval{
			ApprovalStatus: domain.ApprovalRejected,
			FraudRisk:      missingDataFraudRisk,
			FraudType:      missingDataFraudType,
			ReviewNote:     missingDataNote,
		}
	}

	res, err := s.classifier.Classify(ctx, record)
	if err != nil {
		log.Warn().Err(err).Str("userId", record.UserID.Hex()).Msg("fraud classifier failed, record left for manual review")
		return domain.RecordApproval{
			ApprovalStatus: domain.ApprovalPending,
			FraudRisk:      pendingFraudRisk,
			FraudType:      analysisFailedType,
			ReviewNote:     fmt.Sprintf("Record analysis failed: %v", err),
		}
	}

	approval := domain.RecordApproval{
		ApprovalStatus: res.ApprovalStatus,
		FraudType:      res.FraudType,
		ReviewNote:     res.ReviewNote,
	}
	switch {
	case res.FraudRisk == nil:
		approval.FraudRisk = pendingFraudRisk
	case *res.FraudRisk < 0:
		approval.FraudRisk = 0
	case *res.FraudRisk > 100:
		approval.FraudRisk = 100
	default:
		approval.FraudRisk = *res.FraudRisk
	}
	return approval
}
