package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// FallbackInterval is used for schedules that cannot be parsed
const FallbackInterval = 24 * time.Hour

// Cadence computes the next run of a recurring job
type Cadence interface {
	// Next returns the earliest run strictly after now
	Next(now time.Time) time.Time
	String() string
}

// Daily runs once a day at Hour:Minute in the location of now
type Daily struct {
	Hour   int
	Minute int
}

func (d Daily) Next(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), d.Hour, d.Minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (d Daily) String() string {
	return fmt.Sprintf("daily:%02d:%02d", d.Hour, d.Minute)
}

// Weekly runs once a week on Weekday at Hour:Minute
type Weekly struct {
	Weekday time.Weekday
	Hour    int
	Minute  int
}

func (w Weekly) Next(now time.Time) time.Time {
	days := (int(w.Weekday) - int(now.Weekday()) + 7) % 7
	next := time.Date(now.Year(), now.Month(), now.Day()+days, w.Hour, w.Minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 7)
	}
	return next
}

func (w Weekly) String() string {
	return fmt.Sprintf("weekly:%s:%02d:%02d", weekdayNames[w.Weekday], w.Hour, w.Minute)
}

// cronCadence covers any other standard cron expression
type cronCadence struct {
	expr     string
	schedule cron.Schedule
}

func (c cronCadence) Next(now time.Time) time.Time {
	next := c.schedule.Next(now)
	if next.IsZero() {
		return now.Add(FallbackInterval)
	}
	return next
}

func (c cronCadence) String() string {
	return "cron:" + c.expr
}

// Fallback runs FallbackInterval after each computation
type Fallback struct {
	Raw string
}

func (f Fallback) Next(now time.Time) time.Time {
	return now.Add(FallbackInterval)
}

func (f Fallback) String() string {
	return "fallback:" + f.Raw
}

var weekdayNames = [...]string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}

// ParseCadence turns a schedule string into a Cadence. Recognized forms:
//
//	"M H * * *"          daily at H:M
//	"M H * * D"          weekly on weekday D (0-7, 0 and 7 are Sunday)
//	"daily:HH:MM"
//	"weekly:sun:HH:MM"
//	any other standard cron expression, including descriptors like "@hourly"
//
// Anything else yields a Fallback.
func ParseCadence(expr string) Cadence {
	expr = strings.TrimSpace(expr)

	if typ, param, ok := strings.Cut(expr, ":"); ok {
		switch typ {
		case "daily":
			if h, m, err := parseClock(param); err == nil {
				return Daily{Hour: h, Minute: m}
			}
			return Fallback{Raw: expr}
		case "weekly":
			day, clock, ok := strings.Cut(param, ":")
			if !ok {
				return Fallback{Raw: expr}
			}
			wd, err := parseWeekday(day)
			if err != nil {
				return Fallback{Raw: expr}
			}
			if h, m, err := parseClock(clock); err == nil {
				return Weekly{Weekday: wd, Hour: h, Minute: m}
			}
			return Fallback{Raw: expr}
		}
	}

	if fields := strings.Fields(expr); len(fields) == 5 && fields[2] == "*" && fields[3] == "*" {
		minute, errM := strconv.Atoi(fields[0])
		hour, errH := strconv.Atoi(fields[1])
		if errM == nil && errH == nil && validClock(hour, minute) {
			if fields[4] == "*" {
				return Daily{Hour: hour, Minute: minute}
			}
			if wd, err := parseWeekday(fields[4]); err == nil {
				return Weekly{Weekday: wd, Hour: hour, Minute: minute}
			}
		}
	}

	if schedule, err := cron.ParseStandard(expr); err == nil {
		return cronCadence{expr: expr, schedule: schedule}
	}
	return Fallback{Raw: expr}
}

func parseClock(s string) (int, int, error) {
	hs, ms, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("clock %q is not HH:MM", s)
	}
	h, err := strconv.Atoi(hs)
	if err != nil {
		return 0, 0, err
	}
	m, err := strconv.Atoi(ms)
	if err != nil {
		return 0, 0, err
	}
	if !validClock(h, m) {
		return 0, 0, fmt.Errorf("clock %q out of range", s)
	}
	return h, m, nil
}

func validClock(h, m int) bool {
	return h >= 0 && h < 24 && m >= 0 && m < 60
}

func parseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n > 7 {
			return 0, fmt.Errorf("weekday %d out of range", n)
		}
		return time.Weekday(n % 7), nil
	}
	for i, name := range weekdayNames {
		if s == name {
			return time.Weekday(i), nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}
