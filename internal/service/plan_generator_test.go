package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"marathononline/training-api/internal/ai"
	"marathononline/training-api/internal/config"
	"marathononline/training-api/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func testPlan(in domain.TrainingPlanInput) *domain.TrainingPlan {
	start := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC) // Monday
	return &domain.TrainingPlan{
		ID:        primitive.NewObjectID(),
		UserID:    primitive.NewObjectID(),
		Input:     in,
		StartDate: start,
		EndDate:   start.AddDate(0, 0, in.Weeks*7),
		Status:    domain.PlanStatusActive,
	}
}

type sessionKey struct {
	Type     domain.SessionType
	Distance float64
	Pace     float64
}

func sessionSeq(days []*domain.TrainingDay) []sessionKey {
	out := make([]sessionKey, len(days))
	for i, d := range days {
		out[i] = sessionKey{d.Session.Type, d.Session.Distance, d.Session.Pace}
	}
	return out
}

func TestFallbackTrainingDays_Deterministic(t *testing.T) {
	in := domain.TrainingPlanInput{Level: domain.LevelIntermediate, Goal: domain.GoalTime, MaxDistance: 10, AveragePace: 6.0, Weeks: 2, DaysPerWeek: 4}

	first := FallbackTrainingDays(testPlan(in), time.UTC)
	second := FallbackTrainingDays(testPlan(in), time.UTC)

	require.Len(t, first, 14)
	assert.Equal(t, sessionSeq(first), sessionSeq(second))

	// three rest days, then even/odd alternation and the Sunday long run
	want := []domain.SessionType{
		domain.SessionRest, domain.SessionRest, domain.SessionRest,
		domain.SessionSpeedWork, domain.SessionRecoveryRun, domain.SessionSpeedWork, domain.SessionLongRun,
	}
	for i, d := range first[:7] {
		assert.Equal(t, want[i], d.Session.Type, "day %d", i+1)
	}
	assert.Equal(t, 10.0, first[13].Session.Distance) // week 2 long run: 5 + 2*2.5
	assert.Equal(t, 7.0, first[13].Session.Pace)
	assert.Equal(t, 5.0, first[12].Session.Pace) // speed work: 6 - 1
	assert.Equal(t, 7.5, first[11].Session.Pace) // recovery: 6 + 1.5
	assert.Equal(t, 4.0, first[11].Session.Distance)
}

func TestFallbackSession_Caps(t *testing.T) {
	in := domain.TrainingPlanInput{AveragePace: 4.5, Weeks: 20, DaysPerWeek: 7}

	long := FallbackSession(in, 20, 7)
	assert.InDelta(t, 42.195, long.Distance, 0.006)
	speed := FallbackSession(in, 3, 2)
	assert.Equal(t, 4.0, speed.Pace)
	recovery := FallbackSession(in, 20, 1)
	assert.Equal(t, 10.0, recovery.Distance)

	noPace := FallbackSession(domain.TrainingPlanInput{Weeks: 1, DaysPerWeek: 7}, 1, 7)
	assert.Equal(t, 7.0, noPace.Pace)
}

func TestGenerateTrainingDays_AIUnavailable(t *testing.T) {
	gen := new(mockTextGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("connection refused"))
	plan := testPlan(domain.TrainingPlanInput{Level: domain.LevelBeginner, Goal: domain.GoalFinish, MaxDistance: 5.0, AveragePace: 7.0, Weeks: 1, DaysPerWeek: 3})

	days := NewPlanGenerator(gen, time.UTC).GenerateTrainingDays(context.Background(), plan)

	require.Len(t, days, 7)
	for _, d := range days {
		assert.Equal(t, 1, d.Week)
		assert.Equal(t, plan.ID, d.PlanID)
		assert.Equal(t, plan.StartDate.AddDate(0, 0, d.DayOfWeek-1), d.DateTime)
		if d.DayOfWeek <= 4 {
			assert.Equal(t, domain.SessionRest, d.Session.Type)
			assert.Equal(t, 0.0, d.Session.Distance)
			assert.Equal(t, domain.DayStatusCompleted, d.Status)
		} else {
			assert.NotEqual(t, domain.SessionRest, d.Session.Type)
			assert.Equal(t, domain.DayStatusActive, d.Status)
		}
	}
	assert.Equal(t, domain.SessionLongRun, days[6].Session.Type)
	assert.Equal(t, 7.5, days[6].Session.Distance)
	gen.AssertExpectations(t)
}

func TestGenerateTrainingDays_ClientWithoutKeyFallsBack(t *testing.T) {
	plan := testPlan(domain.TrainingPlanInput{Weeks: 1, DaysPerWeek: 3, AveragePace: 7})

	days := NewPlanGenerator(ai.NewClient(config.AIConfig{}), time.UTC).GenerateTrainingDays(context.Background(), plan)

	assert.Equal(t, sessionSeq(FallbackTrainingDays(plan, time.UTC)), sessionSeq(days))
}

func TestGenerateTrainingDays_UsesAIPlan(t *testing.T) {
	reply := "Here is your plan:\n```json\n[\n" +
		`{"week":1,"dayOfWeek":2,"session":{"name":"Intervals","type":"SPEED_WORK","distance":6,"pace":5.2,"notes":"8x400m"}},` + "\n" +
		`{"week":1,"dayOfWeek":4,"session":{"name":"Easy","type":"recovery_run","distance":4.333,"pace":7.5}},` + "\n" +
		`{"week":1,"dayOfWeek":7,"session":{"name":"Long","type":"LONG_RUN","distance":12,"pace":6.5}}` +
		"\n]\n```\nGood luck!"
	gen := new(mockTextGenerator)
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(p string) bool {
		return assert.Contains(t, p, "Training days per week: 3")
	})).Return(reply, nil)
	plan := testPlan(domain.TrainingPlanInput{Level: domain.LevelAdvanced, Goal: domain.GoalTime, MaxDistance: 15, AveragePace: 5.5, Weeks: 1, DaysPerWeek: 3})

	days := NewPlanGenerator(gen, time.UTC).GenerateTrainingDays(context.Background(), plan)

	require.Len(t, days, 7)
	types := make([]domain.SessionType, 7)
	for i, d := range days {
		types[i] = d.Session.Type
	}
	assert.Equal(t, []domain.SessionType{
		domain.SessionRest, domain.SessionSpeedWork, domain.SessionRest, domain.SessionRecoveryRun,
		domain.SessionRest, domain.SessionRest, domain.SessionLongRun,
	}, types)
	assert.Equal(t, 4.33, days[3].Session.Distance)
	assert.Equal(t, "8x400m", days[1].Session.Notes)
}

func TestGenerateTrainingDays_InvalidAIPlanFallsBack(t *testing.T) {
	gen := new(mockTextGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).
		Return(`[{"week":1,"dayOfWeek":7,"session":{"name":"Swim","type":"SWIM","distance":2,"pace":3}}]`, nil)
	plan := testPlan(domain.TrainingPlanInput{Weeks: 1, DaysPerWeek: 3, AveragePace: 7})

	days := NewPlanGenerator(gen, time.UTC).GenerateTrainingDays(context.Background(), plan)

	assert.Equal(t, sessionSeq(FallbackTrainingDays(plan, time.UTC)), sessionSeq(days))
}

func TestGenerateTrainingDays_TooFewAISessionsFallsBack(t *testing.T) {
	gen := new(mockTextGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).
		Return(`[{"week":1,"dayOfWeek":1,"session":{"name":"Off","type":"REST","distance":0,"pace":0}}]`, nil)
	plan := testPlan(domain.TrainingPlanInput{Weeks: 2, DaysPerWeek: 4, AveragePace: 6})

	days := NewPlanGenerator(gen, time.UTC).GenerateTrainingDays(context.Background(), plan)

	require.Len(t, days, 14)
	assert.Equal(t, sessionSeq(FallbackTrainingDays(plan, time.UTC)), sessionSeq(days))
}

func TestParseAISessions(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		days    int
		wantErr bool
		want    int
	}{
		{"no array", "sorry, I cannot help", 1, true, 0},
		{"broken json", `[{"week":1,}]`, 1, true, 0},
		{"week out of range", `[{"week":3,"dayOfWeek":1,"session":{"name":"a","type":"LONG_RUN","distance":5,"pace":6}}]`, 1, true, 0},
		{"missing distance", `[{"week":1,"dayOfWeek":1,"session":{"name":"a","type":"LONG_RUN","pace":6}}]`, 1, true, 0},
		{"negative pace", `[{"week":1,"dayOfWeek":1,"session":{"name":"a","type":"LONG_RUN","distance":5,"pace":-1}}]`, 1, true, 0},
		{"duplicate slot", `[{"week":1,"dayOfWeek":1,"session":{"name":"a","type":"LONG_RUN","distance":5,"pace":6}},{"week":1,"dayOfWeek":1,"session":{"name":"b","type":"LONG_RUN","distance":5,"pace":6}}]`, 1, true, 0},
		{"explicit rest", `[{"week":2,"dayOfWeek":3,"session":{"name":"Off","type":"REST","distance":0,"pace":0}}]`, 0, false, 1},
		{"single rest day for whole plan", `[{"week":1,"dayOfWeek":1,"session":{"name":"Off","type":"REST","distance":0,"pace":0}}]`, 2, true, 0},
		{"second week short of training days", `[{"week":1,"dayOfWeek":1,"session":{"name":"a","type":"SPEED_WORK","distance":5,"pace":5}},{"week":1,"dayOfWeek":7,"session":{"name":"b","type":"LONG_RUN","distance":12,"pace":6}},{"week":2,"dayOfWeek":7,"session":{"name":"c","type":"LONG_RUN","distance":14,"pace":6}},{"week":2,"dayOfWeek":1,"session":{"name":"Off","type":"REST","distance":0,"pace":0}}]`, 2, true, 0},
		{"two entries", `noise [ {"week":1,"dayOfWeek":1,"session":{"name":"a","type":"SPEED_WORK","distance":5,"pace":5}}, {"week":2,"dayOfWeek":7,"session":{"name":"b","type":"LONG_RUN","distance":15,"pace":6}} ] trailing`, 1, false, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAISessions(tt.raw, 2, tt.days)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestBuildPlanPrompt_ListsEveryDay(t *testing.T) {
	p := buildPlanPrompt(domain.TrainingPlanInput{Level: domain.LevelBeginner, Goal: domain.GoalFinish, MaxDistance: 5, AveragePace: 7, Weeks: 4, DaysPerWeek: 3})

	assert.Contains(t, p, "Exactly 7 elements per week, 28 in total: 3 training days and the other 4 days as REST")
	assert.Contains(t, p, "SPEED_WORK | REST")
	assert.NotContains(t, p, "Do not list rest days")
}

func TestGenerateTrainingDayForDate(t *testing.T) {
	plan := testPlan(domain.TrainingPlanInput{Weeks: 2, DaysPerWeek: 4, AveragePace: 6})
	g := NewPlanGenerator(nil, time.UTC)

	day, err := g.GenerateTrainingDayForDate(plan, plan.StartDate.AddDate(0, 0, 9).Add(13*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, day.Week)
	assert.Equal(t, 3, day.DayOfWeek)
	assert.Equal(t, plan.StartDate.AddDate(0, 0, 9), day.DateTime)
	assert.Equal(t, FallbackSession(plan.Input, 2, 3), day.Session)

	_, err = g.GenerateTrainingDayForDate(plan, plan.StartDate.AddDate(0, 0, 14))
	assert.ErrorIs(t, err, ErrValidation)
	_, err = g.GenerateTrainingDayForDate(plan, plan.StartDate.AddDate(0, 0, -1))
	assert.ErrorIs(t, err, ErrValidation)
}
