package web

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/csrf"

	appLog "salondesk/internal/log"
	"salondesk/internal/model"
	"salondesk/internal/report"
	"salondesk/internal/salonapi"
	"salondesk/internal/scheduler"
	"salondesk/internal/session"
)

type dashboardPage struct {
	Summary  model.Summary
	Today    []model.CalendarEvent
	Degraded bool
}

// bar is one row of a server-rendered bar chart.
type bar struct {
	Label string
	Value float64
	Pct   float64
}

type reportsPage struct {
	Reports  model.Reports
	Daily    []bar
	Monthly  []bar
	Degraded bool
}

// summary returns the dashboard counters for sess, served from a short
// per-token cache. Failures yield a zeroed summary.
func (s *Server) summary(r *http.Request, sess *session.Session) (model.Summary, bool, error) {
	now := s.now()

	s.summaryMu.RLock()
	sc, ok := s.summaryCache[sess.Token]
	s.summaryMu.RUnlock()
	if ok && now.Sub(sc.updatedAt) < summaryCacheTTL {
		return sc.summary, false, nil
	}

	sum, err := s.api.Summary(r.Context(), sess.Token)
	if err != nil {
		if errors.Is(err, salonapi.ErrUnauthorized) {
			return model.Summary{}, false, err
		}
		appLog.Error("dashboard summary fetch failed", err)
		return model.Summary{}, true, nil
	}

	s.summaryMu.Lock()
	s.summaryCache[sess.Token] = summaryCache{summary: sum, updatedAt: now}
	s.summaryMu.Unlock()
	return sum, false, nil
}

func (s *Server) forgetSummary(token string) {
	s.summaryMu.Lock()
	delete(s.summaryCache, token)
	s.summaryMu.Unlock()
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	sum, degraded, err := s.summary(r, sess)
	if errors.Is(err, salonapi.ErrUnauthorized) {
		s.endSession(w, r, sess)
		return
	}

	page := dashboardPage{Summary: sum, Degraded: degraded}

	// Today's agenda; a failed load leaves it empty.
	today := s.today()
	snap, err := s.loader.LoadDetached(r.Context(), sess.Token)
	switch {
	case errors.Is(err, salonapi.ErrUnauthorized):
		s.endSession(w, r, sess)
		return
	case err == nil:
		page.Today = scheduler.BucketEventsByDate(snap.Events, []model.Date{today})[today]
	}

	s.render(w, http.StatusOK, "dashboard.html", pageData{
		Title: "Dashboard",
		Nav:   "dashboard",
		User:  userLabel(sess),
		Role:  sess.Role,
		CSRF:  csrf.TemplateField(r),
		Body:  page,
	})
}

// loadReports fetches the revenue report; failures yield an empty report.
func (s *Server) loadReports(r *http.Request, sess *session.Session) (model.Reports, bool, error) {
	rep, err := s.api.Reports(r.Context(), sess.Token)
	if err != nil {
		if errors.Is(err, salonapi.ErrUnauthorized) {
			return model.Reports{}, false, err
		}
		appLog.Error("reports fetch failed", err)
		return model.Reports{}, true, nil
	}
	return rep, false, nil
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	rep, degraded, err := s.loadReports(r, sess)
	if err != nil {
		s.endSession(w, r, sess)
		return
	}

	daily := make([]bar, 0, len(rep.DailyRevenue))
	for _, d := range rep.DailyRevenue {
		daily = append(daily, bar{Label: d.Date, Value: d.Revenue})
	}
	monthly := make([]bar, 0, len(rep.MonthlyRevenue))
	for _, m := range rep.MonthlyRevenue {
		monthly = append(monthly, bar{Label: m.Month, Value: m.Revenue})
	}

	s.render(w, http.StatusOK, "reports.html", pageData{
		Title: "Reports",
		Nav:   "reports",
		User:  userLabel(sess),
		Role:  sess.Role,
		CSRF:  csrf.TemplateField(r),
		Body: reportsPage{
			Reports:  rep,
			Daily:    scaleBars(daily),
			Monthly:  scaleBars(monthly),
			Degraded: degraded,
		},
	})
}

func (s *Server) handleReportsXLSX(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	rep, _, err := s.loadReports(r, sess)
	if err != nil {
		s.endSession(w, r, sess)
		return
	}

	var buf bytes.Buffer
	if err := report.Write(&buf, rep); err != nil {
		appLog.Error("report workbook failed", err)
		http.Error(w, "failed to build report", http.StatusInternalServerError)
		return
	}

	name := fmt.Sprintf("salondesk-report-%s.xlsx", s.now().In(s.loc).Format(time.DateOnly))
	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// scaleBars sets each bar's width relative to the largest value.
func scaleBars(bars []bar) []bar {
	max := 0.0
	for _, b := range bars {
		if b.Value > max {
			max = b.Value
		}
	}
	if max <= 0 {
		return bars
	}
	for i := range bars {
		bars[i].Pct = bars[i].Value / max * 100
	}
	return bars
}
