package domain

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SessionType classifies what a runner is expected to do on a day.
type SessionType string

const (
	SessionLongRun     SessionType = "LONG_RUN"
	SessionRecoveryRun SessionType = "RECOVERY_RUN"
	SessionSpeedWork   SessionType = "SPEED_WORK"
	SessionRest        SessionType = "REST"
)

// Unlimited rest gap for REST sessions.
const NoRestLimit int64 = math.MaxInt64

var maxRestMinutes = map[SessionType]int64{
	SessionLongRun:     5,
	SessionRecoveryRun: 10,
	SessionSpeedWork:   3,
	SessionRest:        NoRestLimit,
}

// MaxRestMinutes returns the longest pause allowed between two records of the
// same session. ok is false for types without a configured threshold.
func (t SessionType) MaxRestMinutes() (minutes int64, ok bool) {
	minutes, ok = maxRestMinutes[t]
	return
}

func (t SessionType) Valid() bool {
	_, ok := maxRestMinutes[t]
	return ok
}

// DayStatus tracks completion of a single training day.
type DayStatus string

const (
	DayStatusActive             DayStatus = "ACTIVE"
	DayStatusCompleted          DayStatus = "COMPLETED"
	DayStatusPartiallyCompleted DayStatus = "PARTIALLY_COMPLETED"
	DayStatusSkipped            DayStatus = "SKIPPED"
	DayStatusMissed             DayStatus = "MISSED"
)

// Attachable reports whether records may still be added to a day in this status.
func (s DayStatus) Attachable() bool {
	switch s {
	case DayStatusActive, DayStatusPartiallyCompleted, DayStatusCompleted:
		return true
	}
	return false
}

// TrainingSession describes what to do: type, distance and target pace.
type TrainingSession struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name     string             `bson:"name" json:"name"`
	Type     SessionType        `bson:"type" json:"type"`
	Distance float64            `bson:"distance" json:"distance"` // km
	Pace     float64            `bson:"pace" json:"pace"`         // min/km
	Notes    string             `bson:"notes,omitempty" json:"notes,omitempty"`
}

// DifficultyRating and FeelingRating are the runner's post-session self report.
type DifficultyRating string

const (
	DifficultyVeryEasy DifficultyRating = "VERY_EASY"
	DifficultyEasy     DifficultyRating = "EASY"
	DifficultyModerate DifficultyRating = "MODERATE"
	DifficultyHard     DifficultyRating = "HARD"
	DifficultyVeryHard DifficultyRating = "VERY_HARD"
)

func (r DifficultyRating) Valid() bool {
	switch r {
	case DifficultyVeryEasy, DifficultyEasy, DifficultyModerate, DifficultyHard, DifficultyVeryHard:
		return true
	}
	return false
}

type FeelingRating string

const (
	FeelingExcellent FeelingRating = "EXCELLENT"
	FeelingGood      FeelingRating = "GOOD"
	FeelingOkay      FeelingRating = "OKAY"
	FeelingTired     FeelingRating = "TIRED"
	FeelingExhausted FeelingRating = "EXHAUSTED"
)

func (r FeelingRating) Valid() bool {
	switch r {
	case FeelingExcellent, FeelingGood, FeelingOkay, FeelingTired, FeelingExhausted:
		return true
	}
	return false
}

// TrainingFeedback is stored inside its training day (one per day).
type TrainingFeedback struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TrainingDayID    primitive.ObjectID `bson:"trainingDayId" json:"trainingDayId"`
	DifficultyRating DifficultyRating   `bson:"difficultyRating" json:"difficultyRating"`
	FeelingRating    FeelingRating      `bson:"feelingRating" json:"feelingRating"`
	Notes            string             `bson:"notes,omitempty" json:"notes,omitempty"`
	UpdatedAt        time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// AttachedRecord is the slice of a record a training day needs for its rest-gap
// and completion bookkeeping.
type AttachedRecord struct {
	RecordID  primitive.ObjectID `bson:"recordId" json:"recordId"`
	Distance  float64            `bson:"distance" json:"distance"` // metres
	StartTime time.Time          `bson:"startTime" json:"startTime"`
	EndTime   time.Time          `bson:"endTime" json:"endTime"`
}

// TrainingDay is one calendar slot of a plan.
type TrainingDay struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PlanID               primitive.ObjectID `bson:"planId" json:"planId"`
	UserID               primitive.ObjectID `bson:"userId" json:"userId"`
	Week                 int                `bson:"week" json:"week"`
	DayOfWeek            int                `bson:"dayOfWeek" json:"dayOfWeek"` // 1 (Mon) - 7 (Sun)
	Session              TrainingSession    `bson:"session" json:"session"`
	DateTime             time.Time          `bson:"dateTime" json:"dateTime"`
	Status               DayStatus          `bson:"status" json:"status"`
	Records              []AttachedRecord   `bson:"records" json:"records"`
	Feedback             *TrainingFeedback  `bson:"feedback,omitempty" json:"feedback,omitempty"`
	CompletionPercentage float64            `bson:"completionPercentage" json:"completionPercentage"`
	CreatedAt            time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt            time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// LatestRecord returns the attached record that ended last.
func (d *TrainingDay) LatestRecord() (AttachedRecord, bool) {
	if len(d.Records) == 0 {
		return AttachedRecord{}, false
	}
	latest := d.Records[0]
	for _, r := range d.Records[1:] {
		if r.EndTime.After(latest.EndTime) {
			latest = r
		}
	}
	return latest, true
}

// StartOfDay truncates t to local midnight in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}

// DayDate places (week, dayOfWeek) relative to the plan start.
func DayDate(planStart time.Time, week, dayOfWeek int, loc *time.Location) time.Time {
	return StartOfDay(planStart, loc).AddDate(0, 0, (week-1)*7+(dayOfWeek-1))
}

// SlotForDate is the inverse of DayDate. ok is false for dates before the start.
func SlotForDate(planStart, date time.Time, loc *time.Location) (week, dayOfWeek int, ok bool) {
	start := StartOfDay(planStart, loc)
	day := StartOfDay(date, loc)
	if day.Before(start) {
		return 0, 0, false
	}
	offset := calendarDaysBetween(start, day)
	return offset/7 + 1, offset%7 + 1, true
}

// calendarDaysBetween counts civil days, so DST shifts do not skew the result.
func calendarDaysBetween(a, b time.Time) int {
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}
