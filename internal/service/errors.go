package service

import (
	"errors"
	"fmt"
)

// Error kinds. Every service error wraps exactly one of these so the API can
// pick a status code with errors.Is.
var (
	ErrValidation    = errors.New("validation failed")
	ErrNotFound      = errors.New("not found")
	ErrDomainRule    = errors.New("domain rule violated")
	ErrConfiguration = errors.New("configuration error")
)

var (
	ErrPlanNotFound         = fmt.Errorf("%w: training plan", ErrNotFound)
	ErrNoActivePlan         = fmt.Errorf("%w: no active training plan", ErrNotFound)
	ErrTrainingDayNotFound  = fmt.Errorf("%w: training day", ErrNotFound)
	ErrNoTrainingDayToday   = fmt.Errorf("%w: no training day scheduled for today", ErrNotFound)
	ErrRecordNotFound       = fmt.Errorf("%w: record", ErrNotFound)
	ErrFeedbackNotFound     = fmt.Errorf("%w: feedback", ErrNotFound)
	ErrPlanAccessDenied     = fmt.Errorf("%w: plan belongs to another user", ErrNotFound)
	ErrDayAccessDenied      = fmt.Errorf("%w: training day belongs to another user", ErrNotFound)
	ErrRecordAccessDenied   = fmt.Errorf("%w: record belongs to another user", ErrNotFound)
	ErrRestIntervalExceeded = fmt.Errorf("%w: rest interval exceeded", ErrDomainRule)
	ErrDayNotAttachable     = fmt.Errorf("%w: training day no longer accepts records", ErrDomainRule)
	ErrRecordNotApproved    = fmt.Errorf("%w: record is not approved", ErrDomainRule)
	ErrAttachConflict       = fmt.Errorf("%w: training day changed concurrently, retry", ErrDomainRule)
	// ErrRestThresholdUndefined means a session type has no rest gap configured.
	ErrRestThresholdUndefined = fmt.Errorf("%w: rest threshold undefined for session type", ErrConfiguration)
	ErrExportUnavailable      = fmt.Errorf("%w: plan export storage is not configured", ErrConfiguration)
)

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
