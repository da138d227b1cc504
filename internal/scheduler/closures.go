package scheduler

import (
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"salondesk/internal/model"
)

// closureEpoch anchors rules given without a DTSTART. rrule-go would
// otherwise default to time.Now(), which would never match past dates.
var closureEpoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// Closures is a set of recurrence rules marking days the salon is closed.
// A nil *Closures marks nothing.
type Closures struct {
	sets []*rrule.Set
	raw  []string
}

// ParseClosures builds closure rules from RFC 5545 strings. Each entry is
// either a bare rule ("FREQ=WEEKLY;BYDAY=MO") or a DTSTART/RRULE/EXDATE
// block separated by newlines.
func ParseClosures(rules []string) (*Closures, error) {
	c := &Closures{}
	for _, raw := range rules {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}

		var set *rrule.Set
		if strings.Contains(raw, "\n") || strings.HasPrefix(strings.ToUpper(raw), "DTSTART") {
			s, err := rrule.StrToRRuleSet(raw)
			if err != nil {
				return nil, fmt.Errorf("closure rule %q: %w", raw, err)
			}
			set = s
		} else {
			r, err := rrule.StrToRRule(raw)
			if err != nil {
				return nil, fmt.Errorf("closure rule %q: %w", raw, err)
			}
			r.DTStart(closureEpoch)
			set = &rrule.Set{}
			set.RRule(r)
		}

		c.sets = append(c.sets, set)
		c.raw = append(c.raw, raw)
	}
	return c, nil
}

// Rules returns the source strings, in order.
func (c *Closures) Rules() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.raw...)
}

// Between returns every closed date in [start, end].
func (c *Closures) Between(start, end model.Date) map[model.Date]bool {
	closed := make(map[model.Date]bool)
	if c == nil || end.Before(start) {
		return closed
	}
	from := start.Time()
	to := end.Time().Add(24*time.Hour - time.Nanosecond)
	for _, set := range c.sets {
		for _, t := range set.Between(from, to, true) {
			closed[model.DateOf(t)] = true
		}
	}
	return closed
}

// Closed reports whether d is a closed day.
func (c *Closures) Closed(d model.Date) bool {
	return c.Between(d, d)[d]
}
