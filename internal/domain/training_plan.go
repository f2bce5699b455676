// internal/domain/training_plan.go
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PlanStatus tracks the lifecycle of a training plan.
type PlanStatus string

const (
	PlanStatusActive    PlanStatus = "ACTIVE"
	PlanStatusCompleted PlanStatus = "COMPLETED"
	PlanStatusArchived  PlanStatus = "ARCHIVED"
)

func (s PlanStatus) Valid() bool {
	switch s {
	case PlanStatusActive, PlanStatusCompleted, PlanStatusArchived:
		return true
	}
	return false
}

// Level is the self-reported experience of the runner.
type Level string

const (
	LevelBeginner     Level = "BEGINNER"
	LevelIntermediate Level = "INTERMEDIATE"
	LevelAdvanced     Level = "ADVANCED"
)

func (l Level) Valid() bool {
	switch l {
	case LevelBeginner, LevelIntermediate, LevelAdvanced:
		return true
	}
	return false
}

// Goal is what the runner wants out of the plan.
type Goal string

const (
	GoalFinish   Goal = "FINISH"
	GoalTime     Goal = "TIME"
	GoalNoInjury Goal = "NO_INJURY"
	GoalOther    Goal = "OTHER"
)

func (g Goal) Valid() bool {
	switch g {
	case GoalFinish, GoalTime, GoalNoInjury, GoalOther:
		return true
	}
	return false
}

// TrainingPlanInput is the runner profile a plan was generated from.
// It is embedded in the plan and never modified afterwards.
type TrainingPlanInput struct {
	Level       Level     `bson:"level" json:"level"`
	Goal        Goal      `bson:"goal" json:"goal"`
	MaxDistance float64   `bson:"maxDistance" json:"maxDistance"` // km
	AveragePace float64   `bson:"averagePace" json:"averagePace"` // min/km
	Weeks       int       `bson:"weeks" json:"weeks"`
	DaysPerWeek int       `bson:"daysPerWeek" json:"daysPerWeek"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
}

// TrainingPlan is a multi-week plan owned by a single runner.
type TrainingPlan struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	Input     TrainingPlanInput  `bson:"input" json:"input"`
	Name      string             `bson:"name" json:"name"`
	StartDate time.Time          `bson:"startDate" json:"startDate"`
	EndDate   time.Time          `bson:"endDate" json:"endDate"`
	Status    PlanStatus         `bson:"status" json:"status"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Contains reports whether t falls inside the plan window (inclusive).
func (p *TrainingPlan) Contains(t time.Time) bool {
	return !t.Before(p.StartDate) && !t.After(p.EndDate)
}

// PlanProgress is recomputed from the plan's days on every read.
type PlanProgress struct {
	PlanID        primitive.ObjectID `json:"planId"`
	TotalDays     int                `json:"totalDays"`
	CompletedDays int                `json:"completedDays"`
	RemainingDays int                `json:"remainingDays"`
	MissedDays    int                `json:"missedDays"`
	Percentage    float64            `json:"percentage"`
}
