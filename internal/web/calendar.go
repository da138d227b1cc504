package web

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/csrf"

	"salondesk/internal/calendar"
	"salondesk/internal/ics"
	appLog "salondesk/internal/log"
	"salondesk/internal/model"
	"salondesk/internal/scheduler"
	"salondesk/internal/session"
)

// calendarLinks are the navigation targets of a calendar page.
type calendarLinks struct {
	Self  string `json:"self"`
	Prev  string `json:"prev"`
	Next  string `json:"next"`
	Today string `json:"today"`
	Day   string `json:"day"`
	Week  string `json:"week"`
	Month string `json:"month"`
	ICS   string `json:"ics"`
}

type calendarPage struct {
	Grid      scheduler.Grid
	Links     calendarLinks
	Degraded  bool
	OutOfAxis int
	Selected  *model.CalendarEvent
}

// calendarResponse is the JSON shape of /api/calendar.
type calendarResponse struct {
	Grid      scheduler.Grid `json:"grid"`
	Links     calendarLinks  `json:"links"`
	Degraded  bool           `json:"degraded"`
	OutOfAxis int            `json:"out_of_axis"`
	Skipped   int            `json:"skipped"`
}

// viewURL encodes w as query parameters on path.
func viewURL(path string, w scheduler.ViewWindow) string {
	q := url.Values{}
	q.Set("view", string(w.Granularity))
	q.Set("date", w.Anchor.String())
	if p := w.Pin(); p > 0 {
		q.Set("pin", strconv.Itoa(p))
	}
	return path + "?" + q.Encode()
}

func (s *Server) linksFor(w scheduler.ViewWindow) calendarLinks {
	return calendarLinks{
		Self:  viewURL("/calendar", w),
		Prev:  viewURL("/calendar", scheduler.Navigate(w, scheduler.Prev)),
		Next:  viewURL("/calendar", scheduler.Navigate(w, scheduler.Next)),
		Today: viewURL("/calendar", scheduler.Today(w, s.now().In(s.loc))),
		Day:   viewURL("/calendar", w.WithGranularity(scheduler.Day)),
		Week:  viewURL("/calendar", w.WithGranularity(scheduler.Week)),
		Month: viewURL("/calendar", w.WithGranularity(scheduler.Month)),
		ICS:   viewURL("/calendar.ics", w),
	}
}

func (s *Server) today() model.Date {
	return model.DateOf(s.now().In(s.loc))
}

// viewFromRequest resolves the requested window. Without view/date the
// session's last view is reused; a malformed date falls back to today.
// nav=next|prev|today is applied last.
func (s *Server) viewFromRequest(r *http.Request, sess *session.Session) scheduler.ViewWindow {
	q := r.URL.Query()

	w, ok := sess.View()
	if !ok {
		w = scheduler.NewWindow(scheduler.Month, s.today(), s.weekStart)
	}
	w.WeekStart = s.weekStart

	if v := q.Get("view"); v != "" {
		w = w.WithGranularity(scheduler.ParseGranularity(v, w.Granularity))
	}
	if v := q.Get("date"); v != "" {
		d, err := model.ParseDate(v)
		if err != nil {
			appLog.Debug("ignoring malformed date parameter", "date", v)
			d = s.today()
		}
		w.Anchor = d
		w = w.WithPin(parseIntDefault(q.Get("pin"), 0))
	}

	switch q.Get("nav") {
	case "next":
		w = scheduler.Navigate(w, scheduler.Next)
	case "prev":
		w = scheduler.Navigate(w, scheduler.Prev)
	case "today":
		w = scheduler.Today(w, s.now().In(s.loc))
	}
	return w
}

func (s *Server) gridOptions() scheduler.Options {
	return scheduler.Options{
		Axis:           s.cfg.SchedulerAxis(),
		MonthCellLimit: s.cfg.MonthCellLimit,
		Closures:       s.closures,
		Today:          s.today(),
	}
}

// loadWindow fetches the session's calendar and composes the grid for w.
func (s *Server) loadWindow(r *http.Request, sess *session.Session, w scheduler.ViewWindow) (scheduler.Grid, calendar.Snapshot, error) {
	snap, err := s.loader.Load(r.Context(), sess)
	if err != nil {
		return scheduler.Grid{}, calendar.Snapshot{}, err
	}
	sess.SetView(w)
	return scheduler.BuildGrid(w, snap.Events, s.gridOptions()), snap, nil
}

// loadFailed handles the two errors a calendar load can report. It returns
// false when err is nil.
func (s *Server) loadFailed(w http.ResponseWriter, r *http.Request, sess *session.Session, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, calendar.ErrUnauthorized):
		s.endSession(w, r, sess)
	case errors.Is(err, calendar.ErrSuperseded):
		if wantsJSON(r) {
			writeError(w, http.StatusConflict, "superseded by a newer request")
		} else {
			http.Error(w, "superseded by a newer request", http.StatusConflict)
		}
	default:
		appLog.Error("calendar load failed", err)
		if wantsJSON(r) {
			writeError(w, http.StatusInternalServerError, "failed to load calendar")
		} else {
			http.Error(w, "failed to load calendar", http.StatusInternalServerError)
		}
	}
	return true
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	view := s.viewFromRequest(r, sess)
	grid, snap, err := s.loadWindow(r, sess, view)
	if s.loadFailed(w, r, sess, err) {
		return
	}

	page := calendarPage{
		Grid:      grid,
		Links:     s.linksFor(view),
		Degraded:  snap.Degraded,
		OutOfAxis: grid.OutOfAxis(),
	}
	if id, err := strconv.ParseInt(r.URL.Query().Get("appointment"), 10, 64); err == nil {
		for i := range snap.Events {
			if snap.Events[i].ID == id {
				page.Selected = &snap.Events[i]
				break
			}
		}
	}

	s.render(w, http.StatusOK, "calendar.html", pageData{
		Title: grid.Title,
		Nav:   "calendar",
		User:  userLabel(sess),
		Role:  sess.Role,
		CSRF:  csrf.TemplateField(r),
		Body:  page,
	})
}

func (s *Server) handleCalendarAPI(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	view := s.viewFromRequest(r, sess)
	grid, snap, err := s.loadWindow(r, sess, view)
	if s.loadFailed(w, r, sess, err) {
		return
	}

	writeJSON(w, http.StatusOK, calendarResponse{
		Grid:      grid,
		Links:     s.linksFor(view),
		Degraded:  snap.Degraded,
		OutOfAxis: grid.OutOfAxis(),
		Skipped:   snap.Skipped,
	})
}

// handleCalendarICS exports every appointment in the visible window,
// including those a month cell would hide behind "+N more". Navigating
// while the download runs does not cancel it.
func (s *Server) handleCalendarICS(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	view := s.viewFromRequest(r, sess)
	snap, err := s.loader.LoadDetached(r.Context(), sess.Token)
	if s.loadFailed(w, r, sess, err) {
		return
	}

	start, end := view.Range()
	body, err := ics.Export(snap.Events, ics.Options{
		Location: s.loc,
		Host:     hostOnly(r.Host),
		Name:     "salondesk " + view.Title(),
		Start:    start,
		End:      end,
		Now:      s.now(),
	})
	if err != nil {
		appLog.Error("ics export failed", err, "view", view.String())
		http.Error(w, "failed to export calendar", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="salondesk-%s-%s.ics"`, view.Granularity, view.Anchor))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func hostOnly(hostport string) string {
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		return h
	}
	return hostport
}
