// Package ics renders calendar events as an iCalendar feed so a visible
// calendar window can be subscribed to or imported elsewhere.
package ics

import (
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "salondesk/internal/log"
	"salondesk/internal/model"
)

const (
	defaultProductID = "-//salondesk//calendar//EN"
	defaultHost      = "salondesk.local"

	// DefaultDuration is used for appointments whose services carry no
	// duration.
	DefaultDuration = 60 * time.Minute
)

// Options controls the exported feed.
type Options struct {
	// Location is the wall-clock zone appointment times are expressed in.
	// If nil, time.Local is used.
	Location *time.Location

	// Host is the right-hand side of every UID.
	Host string

	// Name becomes X-WR-CALNAME.
	Name string

	// Start/End limit the export to an inclusive date range. Zero values
	// leave that side open.
	Start model.Date
	End   model.Date

	// Now stamps DTSTAMP. Zero means time.Now.
	Now time.Time
}

// UID is the stable identifier of an appointment in exported feeds.
func UID(id int64, host string) string {
	if host == "" {
		host = defaultHost
	}
	return fmt.Sprintf("appointment-%d@%s", id, host)
}

// Summary is the VEVENT title: the customer and the first service.
func Summary(ev model.CalendarEvent) string {
	if s := ev.FirstService(); s != "" {
		return ev.CustomerLabel + " — " + s
	}
	return ev.CustomerLabel
}

// Status maps an appointment status to a VEVENT STATUS.
func Status(s model.Status) ical.ObjectStatus {
	switch s {
	case model.StatusCompleted:
		return ical.ObjectStatusConfirmed
	case model.StatusCancelled:
		return ical.ObjectStatusCancelled
	default:
		return ical.ObjectStatusTentative
	}
}

// Export builds a VCALENDAR with one VEVENT per event in range.
func Export(events []model.CalendarEvent, opts Options) ([]byte, error) {
	if !opts.Start.IsZero() && !opts.End.IsZero() && opts.End.Before(opts.Start) {
		return nil, errors.New("ics: end before start")
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	stamp := opts.Now
	if stamp.IsZero() {
		stamp = time.Now()
	}

	cal := ical.NewCalendar()
	cal.SetProductId(defaultProductID)
	cal.SetMethod(ical.MethodPublish)
	if opts.Name != "" {
		cal.SetXWRCalName(opts.Name)
	}
	cal.SetXWRTimezone(loc.String())

	n := 0
	for _, ev := range events {
		if !opts.Start.IsZero() && ev.Date.Before(opts.Start) {
			continue
		}
		if !opts.End.IsZero() && ev.Date.After(opts.End) {
			continue
		}

		start := time.Date(ev.Date.Year, ev.Date.Month, ev.Date.Day, ev.Time.Hour, ev.Time.Minute, 0, 0, loc)
		dur := time.Duration(ev.DurationMin) * time.Minute
		if dur <= 0 {
			dur = DefaultDuration
		}

		ve := cal.AddEvent(UID(ev.ID, opts.Host))
		ve.SetDtStampTime(stamp)
		ve.SetStartAt(start)
		ve.SetEndAt(start.Add(dur))
		ve.SetSummary(Summary(ev))
		ve.SetStatus(Status(ev.Status))
		ve.SetDescription(description(ev))
		n++
	}

	appLog.Debug("ics export", "events", n, "start", opts.Start, "end", opts.End)
	return []byte(cal.Serialize()), nil
}

func description(ev model.CalendarEvent) string {
	var b strings.Builder
	if len(ev.Services) > 0 {
		b.WriteString("Services: ")
		b.WriteString(strings.Join(ev.Services, ", "))
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Total: %.2f\n", ev.TotalAmount)
	fmt.Fprintf(&b, "Status: %s", ev.Status.Class())
	return b.String()
}
