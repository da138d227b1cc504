package scheduler

import (
	"time"

	"salondesk/internal/model"
)

// Default layout constants for the hourly time grid.
const (
	DefaultStartHour   = 9
	DefaultEndHour     = 21
	DefaultRowHeightPx = 96

	// EventHeightPx is the fixed box height of a time-grid event. Service
	// duration does not affect it.
	EventHeightPx = 80

	// DefaultMonthCellLimit is how many events a month cell shows before
	// collapsing the rest into "+N more".
	DefaultMonthCellLimit = 3
)

// Axis is the fixed hourly range events are positioned against.
type Axis struct {
	StartHour   int `json:"start_hour"`
	EndHour     int `json:"end_hour"`
	RowHeightPx int `json:"row_height_px"`
}

// DefaultAxis is 9:00 to 21:00 at 96px per hour.
func DefaultAxis() Axis {
	return Axis{StartHour: DefaultStartHour, EndHour: DefaultEndHour, RowHeightPx: DefaultRowHeightPx}
}

// Hours lists the hour labels, StartHour..EndHour inclusive.
func (a Axis) Hours() []int {
	if a.EndHour < a.StartHour {
		return nil
	}
	hours := make([]int, 0, a.EndHour-a.StartHour+1)
	for h := a.StartHour; h <= a.EndHour; h++ {
		hours = append(hours, h)
	}
	return hours
}

// HeightPx is the total pixel height of the axis.
func (a Axis) HeightPx() int {
	return len(a.Hours()) * a.RowHeightPx
}

// HourOffset returns the top offset of ev on the axis. ok is false when the
// event's hour is before StartHour or after EndHour; such events are not
// drawn on the time grid.
func HourOffset(ev model.CalendarEvent, a Axis) (px float64, ok bool) {
	h := ev.Time.Hour
	if h < a.StartHour || h > a.EndHour {
		return 0, false
	}
	row := float64(a.RowHeightPx)
	return float64(h-a.StartHour)*row + float64(ev.Time.Minute)/60*row, true
}

// BucketEventsByDate groups events by exact date match. Every date in dates
// gets a bucket (possibly empty); events on other dates are left out. Source
// order is preserved within a bucket.
func BucketEventsByDate(events []model.CalendarEvent, dates []model.Date) map[model.Date][]model.CalendarEvent {
	buckets := make(map[model.Date][]model.CalendarEvent, len(dates))
	for _, d := range dates {
		buckets[d] = nil
	}
	for _, ev := range events {
		if _, ok := buckets[ev.Date]; !ok {
			continue
		}
		buckets[ev.Date] = append(buckets[ev.Date], ev)
	}
	return buckets
}

// Truncate keeps the first limit events and reports how many were hidden.
// A limit <= 0 keeps everything.
func Truncate(events []model.CalendarEvent, limit int) (shown []model.CalendarEvent, hidden int) {
	if limit <= 0 || len(events) <= limit {
		return events, 0
	}
	return events[:limit], len(events) - limit
}

// Placed is an event positioned in a grid column. TopPx is only meaningful
// on day/week grids.
type Placed struct {
	model.CalendarEvent
	TopPx    float64 `json:"top_px"`
	HeightPx int     `json:"height_px"`
}

// DayColumn is one visible date with its events.
type DayColumn struct {
	Date    model.Date `json:"date"`
	InMonth bool       `json:"in_month"`
	IsToday bool       `json:"is_today"`
	Closed  bool       `json:"closed"`
	Events  []Placed   `json:"events"`
	// Overflow counts month-cell events hidden behind "+N more".
	Overflow int `json:"overflow"`
	// OutOfAxis counts events dropped from the time grid because their
	// hour falls outside the axis.
	OutOfAxis int `json:"out_of_axis"`
}

// Grid is a fully composed calendar view.
type Grid struct {
	Granularity Granularity `json:"granularity"`
	Anchor      model.Date  `json:"anchor"`
	Pin         int         `json:"pin,omitempty"`
	Start       model.Date  `json:"start"`
	End         model.Date  `json:"end"`
	Title       string      `json:"title"`
	Axis        Axis        `json:"axis"`
	Hours       []int       `json:"hours,omitempty"`
	Days        []DayColumn `json:"days"`
	Weekdays    []string    `json:"weekdays"`
}

// Options tunes grid composition.
type Options struct {
	Axis           Axis
	MonthCellLimit int
	Closures       *Closures
	// Today marks the IsToday column. Zero means no column is marked.
	Today model.Date
}

// BuildGrid composes the visible dates, bucketed events and offsets for w.
func BuildGrid(w ViewWindow, events []model.CalendarEvent, opts Options) Grid {
	if opts.Axis.RowHeightPx <= 0 {
		opts.Axis = DefaultAxis()
	}

	dates := VisibleDates(w)
	buckets := BucketEventsByDate(events, dates)
	start, end := w.Range()

	g := Grid{
		Granularity: w.Granularity,
		Anchor:      w.Anchor,
		Pin:         w.Pin(),
		Start:       start,
		End:         end,
		Title:       w.Title(),
		Axis:        opts.Axis,
		Days:        make([]DayColumn, 0, len(dates)),
		Weekdays:    weekdayLabels(w.WeekStart),
	}
	if w.Granularity != Month {
		g.Hours = opts.Axis.Hours()
	}

	closed := opts.Closures.Between(start, end)
	for _, d := range dates {
		col := DayColumn{
			Date:    d,
			InMonth: d.Month == w.Anchor.Month && d.Year == w.Anchor.Year,
			IsToday: !opts.Today.IsZero() && d == opts.Today,
			Closed:  closed[d],
		}

		dayEvents := buckets[d]
		if w.Granularity == Month {
			shown, hidden := Truncate(dayEvents, opts.MonthCellLimit)
			col.Overflow = hidden
			col.Events = make([]Placed, 0, len(shown))
			for _, ev := range shown {
				col.Events = append(col.Events, Placed{CalendarEvent: ev})
			}
		} else {
			col.Events = make([]Placed, 0, len(dayEvents))
			for _, ev := range dayEvents {
				top, ok := HourOffset(ev, opts.Axis)
				if !ok {
					col.OutOfAxis++
					continue
				}
				col.Events = append(col.Events, Placed{CalendarEvent: ev, TopPx: top, HeightPx: EventHeightPx})
			}
		}
		g.Days = append(g.Days, col)
	}
	return g
}

// OutOfAxis sums hidden out-of-axis events across the grid.
func (g Grid) OutOfAxis() int {
	n := 0
	for _, d := range g.Days {
		n += d.OutOfAxis
	}
	return n
}

// Weeks splits a month grid into rows of seven columns.
func (g Grid) Weeks() [][]DayColumn {
	rows := make([][]DayColumn, 0, len(g.Days)/7)
	for i := 0; i+7 <= len(g.Days); i += 7 {
		rows = append(rows, g.Days[i:i+7])
	}
	return rows
}

func weekdayLabels(weekStart time.Weekday) []string {
	labels := make([]string, 0, 7)
	for i := 0; i < 7; i++ {
		labels = append(labels, time.Weekday((int(weekStart)+i)%7).String()[:3])
	}
	return labels
}
