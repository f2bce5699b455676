package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"marathononline/training-api/internal/ai"
	"marathononline/training-api/internal/domain"

	"github.com/rs/zerolog/log"
)

const (
	marathonKm      = 42.195
	defaultBasePace = 6.0
	maxSessionKm    = 100.0
	maxSessionPace  = 30.0
)

var (
	// greedy on purpose: the outermost array wins
	aiArrayPattern = regexp.MustCompile(`(?s)\[\s*\{.*\}\s*\]`)

	errNoJSONArray = errors.New("no JSON array in ai response")
)

// PlanGenerator produces the training days of a plan.
type PlanGenerator interface {
	// GenerateTrainingDays returns weeks*7 days for plan. It asks the AI first
	// and falls back to the rule-based plan on any problem; it never fails.
	GenerateTrainingDays(ctx context.Context, plan *domain.TrainingPlan) []*domain.TrainingDay
	// GenerateTrainingDayForDate builds the rule-based day for one calendar date.
	GenerateTrainingDayForDate(plan *domain.TrainingPlan, date time.Time) (*domain.TrainingDay, error)
}

type planGenerator struct {
	ai  ai.TextGenerator
	loc *time.Location
}

func NewPlanGenerator(textGen ai.TextGenerator, loc *time.Location) PlanGenerator {
	if loc == nil {
		loc = time.Local
	}
	return &planGenerator{ai: textGen, loc: loc}
}

type slot struct{ week, dayOfWeek int }

func (g *planGenerator) GenerateTrainingDays(ctx context.Context, plan *domain.TrainingPlan) []*domain.TrainingDay {
	logger := log.With().Str("planId", plan.ID.Hex()).Logger()
	if g.ai == nil {
		return FallbackTrainingDays(plan, g.loc)
	}

	raw, err := g.ai.Generate(ctx, buildPlanPrompt(plan.Input))
	if err != nil {
		logger.Warn().Err(err).Msg("ai plan generation failed, using rule-based plan")
		return FallbackTrainingDays(plan, g.loc)
	}
	sessions, err := parseAISessions(raw, plan.Input.Weeks, plan.Input.DaysPerWeek)
	if err != nil {
		logger.Warn().Err(err).Msg("ai plan unusable, using rule-based plan")
		return FallbackTrainingDays(plan, g.loc)
	}
	logger.Info().Int("sessions", len(sessions)).Msg("ai plan accepted")
	return buildDays(plan, g.loc, func(s slot) domain.TrainingSession {
		if sess, ok := sessions[s]; ok {
			return sess
		}
		return restSession()
	})
}

func (g *planGenerator) GenerateTrainingDayForDate(plan *domain.TrainingPlan, date time.Time) (*domain.TrainingDay, error) {
	week, dow, ok := domain.SlotForDate(plan.StartDate, date, g.loc)
	if !ok || week > plan.Input.Weeks {
		return nil, validationError("date %s is outside plan %s", date.Format("2006-01-02"), plan.ID.Hex())
	}
	return newDay(plan, g.loc, slot{week, dow}, FallbackSession(plan.Input, week, dow)), nil
}

// FallbackTrainingDays is the deterministic plan: a pure function of the plan.
func FallbackTrainingDays(plan *domain.TrainingPlan, loc *time.Location) []*domain.TrainingDay {
	return buildDays(plan, loc, func(s slot) domain.TrainingSession {
		return FallbackSession(plan.Input, s.week, s.dayOfWeek)
	})
}

// FallbackSession applies the rule-based schedule to one (week, dayOfWeek):
// the first 7-daysPerWeek days of each week rest, Sunday is the long run,
// other even days are speed work and odd days recovery runs.
func FallbackSession(in domain.TrainingPlanInput, week, dayOfWeek int) domain.TrainingSession {
	restDays := 7 - clamp(in.DaysPerWeek, 1, 7)
	if dayOfWeek <= restDays {
		return restSession()
	}
	base := in.AveragePace
	if base <= 0 {
		base = defaultBasePace
	}
	w := float64(week)

	switch {
	case dayOfWeek == 7:
		return domain.TrainingSession{
			Name:     fmt.Sprintf("Long run - week %d", week),
			Type:     domain.SessionLongRun,
			Distance: round2(math.Min(5.0+w*2.5, marathonKm)),
			Pace:     round2(base + 1.0),
			Notes:    "Keep an even, comfortable effort; this run builds endurance.",
		}
	case dayOfWeek%2 == 0:
		kind, note := speedWorkVariant(week)
		return domain.TrainingSession{
			Name:     fmt.Sprintf("%s - week %d", kind, week),
			Type:     domain.SessionSpeedWork,
			Distance: 5.0,
			Pace:     round2(math.Max(base-1.0, 4.0)),
			Notes:    note,
		}
	default:
		return domain.TrainingSession{
			Name:     fmt.Sprintf("Recovery run - week %d", week),
			Type:     domain.SessionRecoveryRun,
			Distance: round2(3.0 + math.Min(w*0.5, 7.0)),
			Pace:     round2(base + 1.5),
			Notes:    "Easy conversational pace, focus on recovery.",
		}
	}
}

var speedWorkVariants = [][2]string{
	{"Interval", "Run 400m fast, 200m easy, repeat 6-8 times."},
	{"Tempo", "Hold a comfortably hard pace for 15-20 minutes."},
	{"Fartlek", "Alternate fast and easy segments by feel."},
	{"Hill repeats", "Run up a 100-200m hill, walk back down, repeat."},
}

func speedWorkVariant(week int) (string, string) {
	v := speedWorkVariants[(week-1+len(speedWorkVariants))%len(speedWorkVariants)]
	return v[0], v[1]
}

func restSession() domain.TrainingSession {
	return domain.TrainingSession{
		Name:  "Rest",
		Type:  domain.SessionRest,
		Notes: "Recovery day. Light stretching is fine.",
	}
}

func buildDays(plan *domain.TrainingPlan, loc *time.Location, sessionFor func(slot) domain.TrainingSession) []*domain.TrainingDay {
	days := make([]*domain.TrainingDay, 0, plan.Input.Weeks*7)
	for week := 1; week <= plan.Input.Weeks; week++ {
		for dow := 1; dow <= 7; dow++ {
			s := slot{week, dow}
			days = append(days, newDay(plan, loc, s, sessionFor(s)))
		}
	}
	return days
}

// newDay dates the slot and sets the starting status. REST days need no
// activity, so they start out complete.
func newDay(plan *domain.TrainingPlan, loc *time.Location, s slot, session domain.TrainingSession) *domain.TrainingDay {
	day := &domain.TrainingDay{
		PlanID:    plan.ID,
		UserID:    plan.UserID,
		Week:      s.week,
		DayOfWeek: s.dayOfWeek,
		Session:   session,
		DateTime:  domain.DayDate(plan.StartDate, s.week, s.dayOfWeek, loc),
		Status:    domain.DayStatusActive,
		Records:   []domain.AttachedRecord{},
	}
	day.CompletionPercentage, day.Status = completionFor(day.Session, day.Records)
	return day
}

// buildPlanPrompt describes the runner and the exact JSON we expect back.
func buildPlanPrompt(in domain.TrainingPlanInput) string {
	longStart := math.Max(in.MaxDistance, 5.0)
	var b strings.Builder
	fmt.Fprintf(&b, "Create a detailed marathon training schedule as JSON for this runner:\n\n")
	fmt.Fprintf(&b, "- Level: %s\n", in.Level)
	fmt.Fprintf(&b, "- Goal: %s\n", in.Goal)
	fmt.Fprintf(&b, "- Longest distance ever run: %.2f km\n", in.MaxDistance)
	fmt.Fprintf(&b, "- Average pace: %.2f min/km\n", in.AveragePace)
	fmt.Fprintf(&b, "- Total weeks: %d\n", in.Weeks)
	fmt.Fprintf(&b, "- Training days per week: %d\n\n", in.DaysPerWeek)
	b.WriteString("OUTPUT: return ONLY a valid JSON array, no explanation. One element per day of the plan:\n")
	b.WriteString(`{"week": <1..` + fmt.Sprint(in.Weeks) + `>, "dayOfWeek": <1 (Monday)..7 (Sunday)>, "session": {"name": "<name>", "type": "LONG_RUN | RECOVERY_RUN | SPEED_WORK | REST", "distance": <km>, "pace": <min/km>, "notes": "<short reminder>"}}` + "\n\n")
	fmt.Fprintf(&b, "Rules:\n")
	fmt.Fprintf(&b, "1. Exactly 7 elements per week, %d in total: %d training days and the other %d days as REST with distance 0 and pace 0.\n", 7*in.Weeks, in.DaysPerWeek, 7-in.DaysPerWeek)
	fmt.Fprintf(&b, "2. LONG_RUN grows week over week starting from %.1f km and never exceeds %.3f km.\n", longStart, marathonKm)
	b.WriteString("3. Vary SPEED_WORK (intervals, tempo, fartlek, hill repeats).\n")
	b.WriteString("4. RECOVERY_RUN is 1-2 min/km slower than the average pace.\n")
	b.WriteString("5. Never put LONG_RUN and SPEED_WORK on consecutive days.\n")
	return b.String()
}

type aiSession struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Distance *float64 `json:"distance"`
	Pace     *float64 `json:"pace"`
	Notes    string   `json:"notes"`
}

type aiDay struct {
	Week      int        `json:"week"`
	DayOfWeek int        `json:"dayOfWeek"`
	Session   *aiSession `json:"session"`
}

// parseAISessions extracts the first JSON array from raw model text and
// validates every entry. Any bad entry rejects the whole response, and so
// does a week with fewer than daysPerWeek non-REST sessions.
func parseAISessions(raw string, weeks, daysPerWeek int) (map[slot]domain.TrainingSession, error) {
	match := aiArrayPattern.FindString(raw)
	if match == "" {
		return nil, errNoJSONArray
	}
	var entries []aiDay
	if err := json.Unmarshal([]byte(match), &entries); err != nil {
		return nil, fmt.Errorf("decode ai plan: %w", err)
	}

	sessions := make(map[slot]domain.TrainingSession, len(entries))
	for i, e := range entries {
		if e.Week < 1 || e.Week > weeks || e.DayOfWeek < 1 || e.DayOfWeek > 7 {
			return nil, fmt.Errorf("entry %d: slot week=%d day=%d out of range", i, e.Week, e.DayOfWeek)
		}
		if e.Session == nil || e.Session.Distance == nil || e.Session.Pace == nil || e.Session.Name == "" {
			return nil, fmt.Errorf("entry %d: incomplete session", i)
		}
		typ := domain.SessionType(strings.ToUpper(strings.TrimSpace(e.Session.Type)))
		if !typ.Valid() {
			return nil, fmt.Errorf("entry %d: unknown session type %q", i, e.Session.Type)
		}
		dist, pace := *e.Session.Distance, *e.Session.Pace
		if dist < 0 || dist > maxSessionKm || pace < 0 || pace > maxSessionPace {
			return nil, fmt.Errorf("entry %d: distance %.2f or pace %.2f out of range", i, dist, pace)
		}
		if typ != domain.SessionRest && dist == 0 {
			return nil, fmt.Errorf("entry %d: %s without distance", i, typ)
		}
		s := slot{e.Week, e.DayOfWeek}
		if _, dup := sessions[s]; dup {
			return nil, fmt.Errorf("entry %d: duplicate slot week=%d day=%d", i, e.Week, e.DayOfWeek)
		}
		sessions[s] = domain.TrainingSession{
			Name:     e.Session.Name,
			Type:     typ,
			Distance: round2(dist),
			Pace:     round2(pace),
			Notes:    e.Session.Notes,
		}
	}

	training := make([]int, weeks+1)
	for s, sess := range sessions {
		if sess.Type != domain.SessionRest {
			training[s.week]++
		}
	}
	for w := 1; w <= weeks; w++ {
		if training[w] < daysPerWeek {
			return nil, fmt.Errorf("week %d: %d training sessions, want %d", w, training[w], daysPerWeek)
		}
	}
	return sessions, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
