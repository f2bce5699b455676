package api

import (
	"time"

	"marathononline/training-api/internal/domain"
	"marathononline/training-api/internal/service"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Response DTOs ---

// UserResponse excludes sensitive info like password hash
type UserResponse struct {
	ID        string      `json:"id"`
	FullName  string      `json:"fullName"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	CreatedAt time.Time   `json:"createdAt"`
}

type PlanInputResponse struct {
	Level       domain.Level `json:"level"`
	Goal        domain.Goal  `json:"goal"`
	MaxDistance float64      `json:"maxDistance"`
	AveragePace float64      `json:"averagePace"`
	Weeks       int          `json:"weeks"`
	DaysPerWeek int          `json:"daysPerWeek"`
}

type TrainingPlanResponse struct {
	ID        string                `json:"id"`
	Name      string                `json:"name"`
	Status    domain.PlanStatus     `json:"status"`
	StartDate time.Time             `json:"startDate"`
	EndDate   time.Time             `json:"endDate"`
	Input     PlanInputResponse     `json:"input"`
	Days      []TrainingDayResponse `json:"days,omitempty"`
}

type PlanPageResponse struct {
	Items []TrainingPlanResponse `json:"items"`
	Total int64                  `json:"total"`
	Page  int                    `json:"page"`
	Size  int                    `json:"size"`
}

type TrainingSessionResponse struct {
	Name     string             `json:"name"`
	Type     domain.SessionType `json:"type"`
	Distance float64            `json:"distance"`
	Pace     float64            `json:"pace"`
	Notes    string             `json:"notes,omitempty"`
}

type AttachedRecordResponse struct {
	RecordID  string    `json:"recordId"`
	Distance  float64   `json:"distance"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
}

type FeedbackResponse struct {
	ID               string                  `json:"id"`
	TrainingDayID    string                  `json:"trainingDayId"`
	DifficultyRating domain.DifficultyRating `json:"difficultyRating"`
	FeelingRating    domain.FeelingRating    `json:"feelingRating"`
	Notes            string                  `json:"notes,omitempty"`
	UpdatedAt        time.Time               `json:"updatedAt"`
}

type TrainingDayResponse struct {
	ID                   string                   `json:"id"`
	PlanID               string                   `json:"planId"`
	Week                 int                      `json:"week"`
	DayOfWeek            int                      `json:"dayOfWeek"`
	Date                 time.Time                `json:"date"`
	Session              TrainingSessionResponse  `json:"session"`
	Status               domain.DayStatus         `json:"status"`
	CompletionPercentage float64                  `json:"completionPercentage"`
	Records              []AttachedRecordResponse `json:"records"`
	Feedback             *FeedbackResponse        `json:"feedback,omitempty"`
}

type ProgressResponse struct {
	PlanID        string  `json:"planId"`
	TotalDays     int     `json:"totalDays"`
	CompletedDays int     `json:"completedDays"`
	RemainingDays int     `json:"remainingDays"`
	MissedDays    int     `json:"missedDays"`
	Percentage    float64 `json:"percentage"`
}

type ApprovalResponse struct {
	Status     domain.ApprovalStatus `json:"status"`
	FraudRisk  float64               `json:"fraudRisk"`
	FraudType  string                `json:"fraudType,omitempty"`
	ReviewNote string                `json:"reviewNote,omitempty"`
}

type RecordResponse struct {
	ID        string              `json:"id"`
	UserID    string              `json:"userId"`
	Steps     *int                `json:"steps,omitempty"`
	Distance  *float64            `json:"distance,omitempty"`
	TimeTaken *int64              `json:"timeTaken,omitempty"`
	AvgSpeed  *float64            `json:"avgSpeed,omitempty"`
	HeartRate *float64            `json:"heartRate,omitempty"`
	StartTime time.Time           `json:"startTime"`
	EndTime   time.Time           `json:"endTime"`
	Source    domain.RecordSource `json:"source"`
	Approval  *ApprovalResponse   `json:"approval,omitempty"`
}

type SubmissionResponse struct {
	Record            RecordResponse       `json:"record"`
	ReplacedRecordIDs []string             `json:"replacedRecordIds"`
	TrainingDay       *TrainingDayResponse `json:"trainingDay,omitempty"`
	AttachError       string               `json:"attachError,omitempty"`
}

type ExportResponse struct {
	ObjectKey string    `json:"objectKey"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// --- Mappers ---

// MapUserToResponse converts a domain User to a UserResponse DTO.
func MapUserToResponse(user *domain.User) UserResponse {
	if user == nil {
		return UserResponse{}
	}
	return UserResponse{
		ID:        user.ID.Hex(),
		FullName:  user.FullName,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}
}

func MapPlanToResponse(plan *domain.TrainingPlan) TrainingPlanResponse {
	if plan == nil {
		return TrainingPlanResponse{}
	}
	return TrainingPlanResponse{
		ID:        plan.ID.Hex(),
		Name:      plan.Name,
		Status:    plan.Status,
		StartDate: plan.StartDate,
		EndDate:   plan.EndDate,
		Input: PlanInputResponse{
			Level:       plan.Input.Level,
			Goal:        plan.Input.Goal,
			MaxDistance: plan.Input.MaxDistance,
			AveragePace: plan.Input.AveragePace,
			Weeks:       plan.Input.Weeks,
			DaysPerWeek: plan.Input.DaysPerWeek,
		},
	}
}

// MapPlanWithDaysToResponse includes the days; a plan always lists them, even
// when there are none yet.
func MapPlanWithDaysToResponse(p *service.PlanWithDays) TrainingPlanResponse {
	if p == nil {
		return TrainingPlanResponse{}
	}
	resp := MapPlanToResponse(&p.Plan)
	resp.Days = make([]TrainingDayResponse, len(p.Days))
	for i := range p.Days {
		resp.Days[i] = MapDayToResponse(&p.Days[i])
	}
	return resp
}

func MapPlansToPage(plans []domain.TrainingPlan, total int64, page, size int) PlanPageResponse {
	resp := PlanPageResponse{Items: make([]TrainingPlanResponse, len(plans)), Total: total, Page: page, Size: size}
	for i := range plans {
		resp.Items[i] = MapPlanToResponse(&plans[i])
	}
	return resp
}

func MapDayToResponse(day *domain.TrainingDay) TrainingDayResponse {
	if day == nil {
		return TrainingDayResponse{}
	}
	resp := TrainingDayResponse{
		ID:        day.ID.Hex(),
		PlanID:    day.PlanID.Hex(),
		Week:      day.Week,
		DayOfWeek: day.DayOfWeek,
		Date:      day.DateTime,
		Session: TrainingSessionResponse{
			Name:     day.Session.Name,
			Type:     day.Session.Type,
			Distance: day.Session.Distance,
			Pace:     day.Session.Pace,
			Notes:    day.Session.Notes,
		},
		Status:               day.Status,
		CompletionPercentage: day.CompletionPercentage,
		Records:              make([]AttachedRecordResponse, len(day.Records)),
	}
	for i, r := range day.Records {
		resp.Records[i] = AttachedRecordResponse{
			RecordID:  r.RecordID.Hex(),
			Distance:  r.Distance,
			StartTime: r.StartTime,
			EndTime:   r.EndTime,
		}
	}
	if day.Feedback != nil {
		fb := MapFeedbackToResponse(day.Feedback)
		resp.Feedback = &fb
	}
	return resp
}

func MapFeedbackToResponse(fb *domain.TrainingFeedback) FeedbackResponse {
	if fb == nil {
		return FeedbackResponse{}
	}
	return FeedbackResponse{
		ID:               fb.ID.Hex(),
		TrainingDayID:    fb.TrainingDayID.Hex(),
		DifficultyRating: fb.DifficultyRating,
		FeelingRating:    fb.FeelingRating,
		Notes:            fb.Notes,
		UpdatedAt:        fb.UpdatedAt,
	}
}

func MapProgressToResponse(p *domain.PlanProgress) ProgressResponse {
	if p == nil {
		return ProgressResponse{}
	}
	return ProgressResponse{
		PlanID:        p.PlanID.Hex(),
		TotalDays:     p.TotalDays,
		CompletedDays: p.CompletedDays,
		RemainingDays: p.RemainingDays,
		MissedDays:    p.MissedDays,
		Percentage:    p.Percentage,
	}
}

func MapRecordToResponse(rec *domain.Record) RecordResponse {
	if rec == nil {
		return RecordResponse{}
	}
	resp := RecordResponse{
		ID:        rec.ID.Hex(),
		UserID:    rec.UserID.Hex(),
		Steps:     rec.Steps,
		Distance:  rec.Distance,
		TimeTaken: rec.TimeTaken,
		AvgSpeed:  rec.AvgSpeed,
		HeartRate: rec.HeartRate,
		StartTime: rec.StartTime,
		EndTime:   rec.EndTime,
		Source:    rec.Source,
	}
	if rec.Approval != nil {
		resp.Approval = &ApprovalResponse{
			Status:     rec.Approval.ApprovalStatus,
			FraudRisk:  rec.Approval.FraudRisk,
			FraudType:  rec.Approval.FraudType,
			ReviewNote: rec.Approval.ReviewNote,
		}
	}
	return resp
}

func MapRecordsToResponse(records []domain.Record) []RecordResponse {
	out := make([]RecordResponse, len(records))
	for i := range records {
		out[i] = MapRecordToResponse(&records[i])
	}
	return out
}

func MapSubmissionToResponse(res *service.SubmissionResult) SubmissionResponse {
	resp := SubmissionResponse{
		Record:            MapRecordToResponse(&res.Record),
		ReplacedRecordIDs: hexIDs(res.ReplacedIDs),
	}
	if res.TrainingDay != nil {
		day := MapDayToResponse(res.TrainingDay)
		resp.TrainingDay = &day
	}
	if res.AttachErr != nil {
		resp.AttachError = res.AttachErr.Error()
	}
	return resp
}

func hexIDs(ids []primitive.ObjectID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.Hex()
	}
	return out
}
