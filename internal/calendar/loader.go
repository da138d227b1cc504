// Package calendar loads appointments and customers for a session and
// projects them into calendar events.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	appLog "salondesk/internal/log"
	"salondesk/internal/model"
	"salondesk/internal/salonapi"
	"salondesk/internal/session"
)

var (
	// ErrSuperseded means a newer fetch started for the same session; the
	// result was discarded.
	ErrSuperseded = errors.New("calendar: fetch superseded")

	// ErrUnauthorized means the API rejected the session's token.
	ErrUnauthorized = salonapi.ErrUnauthorized
)

// Source is the slice of the API the loader reads.
type Source interface {
	Appointments(ctx context.Context, token string) ([]model.Appointment, error)
	Customers(ctx context.Context, token string) ([]model.Customer, error)
}

// Snapshot is one fetch cycle's worth of calendar data.
type Snapshot struct {
	Events    []model.CalendarEvent
	Directory model.Directory
	// Skipped counts appointments dropped for malformed date or time.
	Skipped int
	// Degraded is set when either list could not be fetched.
	Degraded  bool
	FetchedAt time.Time
}

// Loader fetches calendar data through a Source.
type Loader struct {
	API Source
	Now func() time.Time
}

func NewLoader(api Source) *Loader {
	return &Loader{API: api, Now: time.Now}
}

// Load fetches appointments and customers concurrently for sess. Starting a
// Load supersedes any earlier one still running for the same session. Fetch
// failures degrade to empty lists; only a rejected token or a superseded
// fetch is reported as an error.
func (l *Loader) Load(ctx context.Context, sess *session.Session) (Snapshot, error) {
	f := sess.BeginFetch(ctx)
	defer f.Done()

	snap, err := l.fetch(f.Context(), sess.Token, f.Current, f.Generation())
	if !f.Current() {
		appLog.Debug("calendar fetch superseded", "gen", f.Generation())
		return Snapshot{}, ErrSuperseded
	}
	return snap, err
}

// LoadDetached is Load without the session's fetch generation: it neither
// supersedes nor can be superseded by navigation. Downloads and summary
// pages use it.
func (l *Loader) LoadDetached(ctx context.Context, token string) (Snapshot, error) {
	return l.fetch(ctx, token, func() bool { return true }, 0)
}

func (l *Loader) fetch(ctx context.Context, token string, current func() bool, gen uint64) (Snapshot, error) {
	var (
		mu        sync.Mutex
		degraded  bool
		appts     []model.Appointment
		customers []model.Customer
	)
	degrade := func(what string, err error) error {
		if errors.Is(err, ErrUnauthorized) {
			return err
		}
		mu.Lock()
		degraded = true
		mu.Unlock()
		if current() {
			appLog.Error("calendar fetch failed", err, "list", what, "gen", gen)
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := l.API.Appointments(gctx, token)
		if err != nil {
			return degrade("appointments", err)
		}
		appts = list
		return nil
	})
	g.Go(func() error {
		list, err := l.API.Customers(gctx, token)
		if err != nil {
			return degrade("customers", err)
		}
		customers = list
		return nil
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, fmt.Errorf("calendar: %w", err)
	}

	snap := Build(appts, customers)
	snap.Degraded = degraded
	snap.FetchedAt = l.now()
	if current() {
		appLog.Debug("calendar loaded",
			"gen", gen,
			"events", len(snap.Events),
			"customers", snap.Directory.Len(),
			"skipped", snap.Skipped,
		)
	}
	return snap, nil
}

func (l *Loader) now() time.Time {
	if l.Now == nil {
		return time.Now()
	}
	return l.Now()
}

// Build projects appointments through a directory built from customers.
// Malformed rows are skipped and logged. Events are ordered by date and
// time.
func Build(appts []model.Appointment, customers []model.Customer) Snapshot {
	dir := model.NewDirectory(customers)
	snap := Snapshot{
		Directory: dir,
		Events:    make([]model.CalendarEvent, 0, len(appts)),
	}
	for _, a := range appts {
		ev, err := model.Project(a, dir)
		if err != nil {
			snap.Skipped++
			appLog.Warn("skipping malformed appointment", "id", a.ID, "date", a.Date, "time", a.Time, "err", err)
			continue
		}
		snap.Events = append(snap.Events, ev)
	}
	sort.SliceStable(snap.Events, func(i, j int) bool {
		a, b := snap.Events[i], snap.Events[j]
		if a.Date != b.Date {
			return a.Date.Before(b.Date)
		}
		return a.Time.Minutes() < b.Time.Minutes()
	})
	return snap
}
