// Package scheduler computes the calendar time grid: which dates a view
// shows, which appointments land in which column, and where each one sits
// on the hourly axis. Everything here is a pure function of its inputs.
package scheduler

import (
	"fmt"
	"strings"
	"time"

	"salondesk/internal/model"
)

// Granularity is the calendar view mode.
type Granularity string

const (
	Day   Granularity = "day"
	Week  Granularity = "week"
	Month Granularity = "month"
)

// ParseGranularity accepts day/week/month (case-insensitive). Anything else
// falls back to def.
func ParseGranularity(s string, def Granularity) Granularity {
	switch g := Granularity(strings.ToLower(strings.TrimSpace(s))); g {
	case Day, Week, Month:
		return g
	default:
		return def
	}
}

// Direction is a navigation step.
type Direction string

const (
	Next Direction = "next"
	Prev Direction = "prev"
)

// ViewWindow is transient view state: a granularity and the anchor date the
// visible range is derived from.
type ViewWindow struct {
	Granularity Granularity
	Anchor      model.Date
	WeekStart   time.Weekday

	// pinDay is the day-of-month the user was on before month navigation
	// clamped it (e.g. 31 while sitting on Feb 29). Zero means Anchor.Day.
	pinDay int
}

// NewWindow returns a window anchored on anchor.
func NewWindow(g Granularity, anchor model.Date, weekStart time.Weekday) ViewWindow {
	return ViewWindow{Granularity: g, Anchor: anchor, WeekStart: weekStart}
}

// WithPin restores a preferred day-of-month carried across requests. A pin
// only survives clamping, so it is ignored unless the anchor sits on the last
// day of its month and the pin is larger than that day.
func (w ViewWindow) WithPin(day int) ViewWindow {
	lastDay := w.Anchor.Day == model.DaysIn(w.Anchor.Year, w.Anchor.Month)
	if lastDay && day > w.Anchor.Day && day <= 31 {
		w.pinDay = day
	} else {
		w.pinDay = 0
	}
	return w
}

// Pin returns the preferred day-of-month, or 0 when it equals the anchor's.
func (w ViewWindow) Pin() int {
	if w.pinDay > w.Anchor.Day {
		return w.pinDay
	}
	return 0
}

// WithGranularity toggles the view mode, keeping the anchor.
func (w ViewWindow) WithGranularity(g Granularity) ViewWindow {
	w.Granularity = g
	return w
}

// Range returns the first and last visible dates, inclusive.
func (w ViewWindow) Range() (start, end model.Date) {
	switch w.Granularity {
	case Month:
		return startOfWeek(w.Anchor.FirstOfMonth(), w.WeekStart),
			endOfWeek(w.Anchor.LastOfMonth(), w.WeekStart)
	case Week:
		start = startOfWeek(w.Anchor, w.WeekStart)
		return start, start.AddDays(6)
	default:
		return w.Anchor, w.Anchor
	}
}

// Contains reports whether d falls inside the visible range.
func (w ViewWindow) Contains(d model.Date) bool {
	start, end := w.Range()
	return !d.Before(start) && !d.After(end)
}

// Title is the heading shown above the grid.
func (w ViewWindow) Title() string {
	if w.Granularity == Day {
		return w.Anchor.Format("January 2, 2006")
	}
	return w.Anchor.Format("January 2006")
}

func (w ViewWindow) String() string {
	return fmt.Sprintf("%s@%s", w.Granularity, w.Anchor)
}

// VisibleDates lists every date in the window's range, ascending. Month
// views always produce whole weeks; week views 7 dates; day views 1.
func VisibleDates(w ViewWindow) []model.Date {
	start, end := w.Range()
	dates := make([]model.Date, 0, 42)
	for d := start; !d.After(end); d = d.AddDays(1) {
		dates = append(dates, d)
	}
	return dates
}

// Navigate moves the anchor one unit of the window's granularity.
func Navigate(w ViewWindow, dir Direction) ViewWindow {
	step := 1
	if dir == Prev {
		step = -1
	}

	switch w.Granularity {
	case Month:
		want := w.Anchor.Day
		if w.pinDay > want {
			want = w.pinDay
		}
		first := model.NewDate(w.Anchor.Year, w.Anchor.Month+time.Month(step), 1)
		day := min(want, model.DaysIn(first.Year, first.Month))
		w.Anchor = model.Date{Year: first.Year, Month: first.Month, Day: day}
		w.pinDay = 0
		if want > day {
			w.pinDay = want
		}
	case Week:
		w.Anchor = w.Anchor.AddDays(7 * step)
		w.pinDay = 0
	default:
		w.Anchor = w.Anchor.AddDays(step)
		w.pinDay = 0
	}
	return w
}

// Today re-anchors the window on now's date, keeping the granularity.
func Today(w ViewWindow, now time.Time) ViewWindow {
	w.Anchor = model.DateOf(now)
	w.pinDay = 0
	return w
}

func startOfWeek(d model.Date, weekStart time.Weekday) model.Date {
	back := (int(d.Weekday()) - int(weekStart) + 7) % 7
	return d.AddDays(-back)
}

func endOfWeek(d model.Date, weekStart time.Weekday) model.Date {
	return startOfWeek(d, weekStart).AddDays(6)
}

// ParseWeekStart maps a config value ("sunday", "monday") onto a weekday.
func ParseWeekStart(s string) time.Weekday {
	if strings.EqualFold(strings.TrimSpace(s), "monday") {
		return time.Monday
	}
	return time.Sunday
}
