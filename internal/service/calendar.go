package service

import (
	"time"

	"marathononline/training-api/internal/domain"
)

// Calendar answers "what day is it" in the scheduler's time zone. Tests swap
// the clock.
type Calendar struct {
	loc *time.Location
	now func() time.Time
}

func NewCalendar(loc *time.Location, now func() time.Time) Calendar {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return Calendar{loc: loc, now: now}
}

func (c Calendar) Location() *time.Location { return c.loc }

func (c Calendar) Now() time.Time { return c.now().In(c.loc) }

// Today is local midnight of the current day.
func (c Calendar) Today() time.Time { return domain.StartOfDay(c.now(), c.loc) }
