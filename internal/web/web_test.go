package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"salondesk/internal/config"
	"salondesk/internal/model"
	"salondesk/internal/salonapi"
)

type fakeAPI struct {
	mu         sync.Mutex
	appts      []model.Appointment
	customers  []model.Customer
	apptErr    error
	summary    model.Summary
	summaryErr error
	reports    model.Reports
	reportsErr error
	// block, when set, holds the next Appointments call until released.
	block *gate
}

type gate struct {
	entered chan struct{}
	release chan struct{}
}

func newGate() *gate {
	return &gate{entered: make(chan struct{}), release: make(chan struct{})}
}

func (f *fakeAPI) Login(_ context.Context, username, password string) (salonapi.Token, error) {
	if username == "admin" && password == "secret" {
		return salonapi.Token{AccessToken: "opaque-test-token", TokenType: "bearer"}, nil
	}
	return salonapi.Token{}, salonapi.ErrInvalidCredentials
}

func (f *fakeAPI) Appointments(ctx context.Context, _ string) ([]model.Appointment, error) {
	f.mu.Lock()
	g := f.block
	f.block = nil
	f.mu.Unlock()
	if g != nil {
		close(g.entered)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-g.release:
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.appts, f.apptErr
}

func (f *fakeAPI) Customers(context.Context, string) ([]model.Customer, error) {
	return f.customers, nil
}

func (f *fakeAPI) Summary(context.Context, string) (model.Summary, error) {
	return f.summary, f.summaryErr
}

func (f *fakeAPI) Reports(context.Context, string) (model.Reports, error) {
	return f.reports, f.reportsErr
}

func (f *fakeAPI) setApptErr(err error) {
	f.mu.Lock()
	f.apptErr = err
	f.mu.Unlock()
}

func cid(v int64) *int64 { return &v }

func newFakeAPI() *fakeAPI {
	appt := func(id int64, date, clock string, status model.Status) model.Appointment {
		return model.Appointment{
			ID: id, CustomerID: cid(1), Date: date, Time: clock, Status: status, TotalAmount: 500,
			Services: []model.ServiceRef{{ID: 1, Name: "Haircut", Duration: 45}},
		}
	}
	return &fakeAPI{
		appts: []model.Appointment{
			appt(1, "2024-03-04", "09:00:00", model.StatusPending),
			appt(2, "2024-03-04", "10:00:00", model.StatusCompleted),
			appt(3, "2024-03-04", "11:00:00", model.StatusCancelled),
			appt(4, "2024-03-04", "14:30:00", model.StatusPending),
			appt(5, "2024-03-04", "22:15:00", model.StatusPending),
			{ID: 6, CustomerID: cid(99), Date: "2024-03-07", Time: "12:00", Status: model.StatusPending},
		},
		customers: []model.Customer{{ID: 1, Name: "Asha Rao"}},
		summary:   model.Summary{TotalCustomers: 42, TotalAppointments: 7, RevenueToday: 1500, TotalRevenue: 98000},
		reports: model.Reports{
			DailyRevenue:      []model.DailyRevenue{{Date: "2024-03-04", Revenue: 1500}},
			MonthlyRevenue:    []model.MonthlyRevenue{{Month: "2024-03", Revenue: 98000}},
			PopularServices:   []model.ServiceRevenue{{Name: "Haircut", Category: "Hair", Bookings: 12, Revenue: 6000}},
			FrequentCustomers: []model.FrequentCustomer{{Name: "Asha Rao", Phone: "98450", Visits: 5, Spent: 4200}},
		},
	}
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Timezone = "UTC"
	cfg.CSRFKey = "0123456789abcdef0123456789abcdef"
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config, api API) *httptest.Server {
	t.Helper()
	s, err := NewServer(cfg, api, false)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	s.now = func() time.Time { return time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC) }
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{Jar: jar}
}

func noRedirect(c *http.Client) *http.Client {
	cp := *c
	cp.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
	return &cp
}

func getDoc(t *testing.T, c *http.Client, u string) (*http.Response, *goquery.Document) {
	t.Helper()
	resp, err := c.Get(u)
	if err != nil {
		t.Fatalf("GET %s: %v", u, err)
	}
	defer resp.Body.Close()
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		t.Fatalf("parse %s: %v", u, err)
	}
	return resp, doc
}

// csrfToken scrapes the hidden form token from a page.
func csrfToken(t *testing.T, doc *goquery.Document) string {
	t.Helper()
	tok, ok := doc.Find(`input[name="gorilla.csrf.Token"]`).First().Attr("value")
	if !ok || tok == "" {
		t.Fatalf("no csrf token on page")
	}
	return tok
}

func login(t *testing.T, ts *httptest.Server, c *http.Client, user, pass string) *http.Response {
	t.Helper()
	_, doc := getDoc(t, c, ts.URL+"/login")
	form := url.Values{
		"gorilla.csrf.Token": {csrfToken(t, doc)},
		"username":           {user},
		"password":           {pass},
	}
	resp, err := c.PostForm(ts.URL+"/login", form)
	if err != nil {
		t.Fatalf("POST /login: %v", err)
	}
	return resp
}

func loggedIn(t *testing.T, ts *httptest.Server) *http.Client {
	t.Helper()
	c := newClient(t)
	resp := login(t, ts, c, "admin", "secret")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Request.URL.Path != "/calendar" {
		t.Fatalf("login did not land on /calendar: %d %s", resp.StatusCode, resp.Request.URL)
	}
	return c
}

func TestHealthAndSecurityHeaders(t *testing.T) {
	ts := newTestServer(t, testConfig(), newFakeAPI())

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "OK" {
		t.Fatalf("unexpected health response %d %q", resp.StatusCode, body)
	}
	if resp.Header.Get("X-Frame-Options") != "DENY" || resp.Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("missing security headers: %v", resp.Header)
	}
}

func TestUnauthenticatedRedirectsToLogin(t *testing.T) {
	ts := newTestServer(t, testConfig(), newFakeAPI())
	c := noRedirect(newClient(t))

	resp, err := c.Get(ts.URL + "/calendar")
	if err != nil {
		t.Fatalf("GET /calendar: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/login" {
		t.Fatalf("expected redirect to /login, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}

	resp, err = c.Get(ts.URL + "/api/calendar")
	if err != nil {
		t.Fatalf("GET /api/calendar: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	var e struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e.Error == "" {
		t.Fatalf("expected JSON error body, got %v %+v", err, e)
	}
}

func TestLoginRequiresCSRFToken(t *testing.T) {
	ts := newTestServer(t, testConfig(), newFakeAPI())
	c := newClient(t)

	resp, err := c.PostForm(ts.URL+"/login", url.Values{"username": {"admin"}, "password": {"secret"}})
	if err != nil {
		t.Fatalf("POST /login: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 without csrf token, got %d", resp.StatusCode)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ts := newTestServer(t, testConfig(), newFakeAPI())
	c := newClient(t)

	resp := login(t, ts, c, "admin", "wrong")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if msg := strings.TrimSpace(doc.Find(".error").Text()); msg != "Invalid username or password." {
		t.Fatalf("unexpected error message %q", msg)
	}
	if v, _ := doc.Find(`input[name="username"]`).Attr("value"); v != "admin" {
		t.Fatalf("username should be kept, got %q", v)
	}
}

func TestMonthPageRendersOverflow(t *testing.T) {
	ts := newTestServer(t, testConfig(), newFakeAPI())
	c := loggedIn(t, ts)

	_, doc := getDoc(t, c, ts.URL+"/calendar?view=month&date=2024-03-15")

	if title := strings.TrimSpace(doc.Find(".cal-title").Text()); title != "March 2024" {
		t.Fatalf("unexpected title %q", title)
	}
	if n := doc.Find(".month .cell").Length(); n != 42 {
		t.Fatalf("expected 42 cells (Feb 25 to Apr 6), got %d", n)
	}
	cell := doc.Find(`.cell[data-date="2024-03-04"]`)
	if n := cell.Find(".event").Length(); n != 3 {
		t.Fatalf("expected 3 visible events, got %d", n)
	}
	if more := strings.TrimSpace(cell.Find(".more").Text()); more != "+2 more" {
		t.Fatalf("unexpected overflow text %q", more)
	}
	if !strings.Contains(cell.Find(".event").First().Text(), "Asha Rao") {
		t.Fatalf("customer label missing: %q", cell.Find(".event").First().Text())
	}
	walkIn := doc.Find(`.cell[data-date="2024-03-07"] .event`).Text()
	if !strings.Contains(walkIn, model.WalkIn) {
		t.Fatalf("unknown customer should render as walk-in, got %q", walkIn)
	}
	if !doc.Find(`.cell[data-date="2024-03-04"]`).HasClass("today") {
		t.Fatalf("today's cell not marked")
	}
}

func TestMonthNavigationLinksCarryPin(t *testing.T) {
	ts := newTestServer(t, testConfig(), newFakeAPI())
	c := loggedIn(t, ts)

	_, doc := getDoc(t, c, ts.URL+"/calendar?view=month&date=2024-01-31")
	next, _ := doc.Find(`a[rel="next"]`).Attr("href")
	u, err := url.Parse(next)
	if err != nil {
		t.Fatalf("parse next link: %v", err)
	}
	if u.Query().Get("date") != "2024-02-29" || u.Query().Get("pin") != "31" {
		t.Fatalf("unexpected next link %q", next)
	}

	_, doc = getDoc(t, c, ts.URL+next)
	next, _ = doc.Find(`a[rel="next"]`).Attr("href")
	u, _ = url.Parse(next)
	if u.Query().Get("date") != "2024-03-31" || u.Query().Get("pin") != "" {
		t.Fatalf("pin should restore March 31, got %q", next)
	}
}

func TestMonthPinIgnoredMidMonth(t *testing.T) {
	ts := newTestServer(t, testConfig(), newFakeAPI())
	c := loggedIn(t, ts)

	_, doc := getDoc(t, c, ts.URL+"/calendar?view=month&date=2024-03-15&pin=31")
	next, _ := doc.Find(`a[rel="next"]`).Attr("href")
	u, err := url.Parse(next)
	if err != nil {
		t.Fatalf("parse next link: %v", err)
	}
	if u.Query().Get("date") != "2024-04-15" || u.Query().Get("pin") != "" {
		t.Fatalf("unexpected next link %q", next)
	}
}

func TestCalendarAPIWeekOffsets(t *testing.T) {
	ts := newTestServer(t, testConfig(), newFakeAPI())
	c := loggedIn(t, ts)

	resp, err := c.Get(ts.URL + "/api/calendar?view=week&date=2024-03-06")
	if err != nil {
		t.Fatalf("GET /api/calendar: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Grid struct {
			Start string `json:"start"`
			End   string `json:"end"`
			Days  []struct {
				Date      string `json:"date"`
				OutOfAxis int    `json:"out_of_axis"`
				Events    []struct {
					ID    int64   `json:"id"`
					TopPx float64 `json:"top_px"`
				} `json:"events"`
			} `json:"days"`
		} `json:"grid"`
		OutOfAxis int `json:"out_of_axis"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Grid.Start != "2024-03-03" || body.Grid.End != "2024-03-09" || len(body.Grid.Days) != 7 {
		t.Fatalf("unexpected week range %s..%s (%d days)", body.Grid.Start, body.Grid.End, len(body.Grid.Days))
	}
	if body.OutOfAxis != 1 {
		t.Fatalf("expected 1 out-of-axis event, got %d", body.OutOfAxis)
	}

	monday := body.Grid.Days[1]
	if monday.Date != "2024-03-04" || len(monday.Events) != 4 || monday.OutOfAxis != 1 {
		t.Fatalf("unexpected monday column %+v", monday)
	}
	tops := map[int64]float64{}
	for _, ev := range monday.Events {
		tops[ev.ID] = ev.TopPx
	}
	if tops[1] != 0 || tops[4] != 528 {
		t.Fatalf("unexpected offsets %v", tops)
	}
}

func TestCalendarAPINavRemembersView(t *testing.T) {
	ts := newTestServer(t, testConfig(), newFakeAPI())
	c := loggedIn(t, ts)

	decode := func(u string) string {
		resp, err := c.Get(u)
		if err != nil {
			t.Fatalf("GET %s: %v", u, err)
		}
		defer resp.Body.Close()
		var body struct {
			Grid struct {
				Anchor string `json:"anchor"`
			} `json:"grid"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return body.Grid.Anchor
	}

	if got := decode(ts.URL + "/api/calendar?view=day&date=2024-03-04"); got != "2024-03-04" {
		t.Fatalf("unexpected anchor %s", got)
	}
	if got := decode(ts.URL + "/api/calendar?nav=next"); got != "2024-03-05" {
		t.Fatalf("expected next day from remembered view, got %s", got)
	}
}

func TestUnauthorizedAPIEndsSession(t *testing.T) {
	api := newFakeAPI()
	ts := newTestServer(t, testConfig(), api)
	c := loggedIn(t, ts)

	api.setApptErr(&salonapi.StatusError{Code: http.StatusUnauthorized})
	resp, err := noRedirect(c).Get(ts.URL + "/calendar")
	if err != nil {
		t.Fatalf("GET /calendar: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/login" {
		t.Fatalf("expected redirect to login, got %d", resp.StatusCode)
	}

	api.setApptErr(nil)
	resp, err = noRedirect(c).Get(ts.URL + "/calendar")
	if err != nil {
		t.Fatalf("GET /calendar: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("session should be gone, got %d", resp.StatusCode)
	}
}

func TestFailedAppointmentFetchDegrades(t *testing.T) {
	api := newFakeAPI()
	api.apptErr = errors.New("connection refused")
	ts := newTestServer(t, testConfig(), api)
	c := loggedIn(t, ts)

	resp, doc := getDoc(t, c, ts.URL+"/calendar?view=month&date=2024-03-15")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected page to render, got %d", resp.StatusCode)
	}
	if doc.Find(".event").Length() != 0 {
		t.Fatalf("expected no events")
	}
	if doc.Find(".degraded").Length() != 1 {
		t.Fatalf("expected degraded notice")
	}
}

func TestCalendarICS(t *testing.T) {
	ts := newTestServer(t, testConfig(), newFakeAPI())
	c := loggedIn(t, ts)

	resp, err := c.Get(ts.URL + "/calendar.ics?view=day&date=2024-03-04")
	if err != nil {
		t.Fatalf("GET /calendar.ics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/calendar") {
		t.Fatalf("unexpected content type %q", resp.Header.Get("Content-Type"))
	}
	text := string(body)
	if strings.Count(text, "BEGIN:VEVENT") != 5 {
		t.Fatalf("expected the 5 appointments of the day, got:\n%s", text)
	}
	if !strings.Contains(text, "UID:appointment-4@127.0.0.1") {
		t.Fatalf("missing appointment uid:\n%s", text)
	}
}

func TestCalendarICSNotCancelledByNavigation(t *testing.T) {
	api := newFakeAPI()
	g := newGate()
	api.block = g
	ts := newTestServer(t, testConfig(), api)
	c := loggedIn(t, ts)

	type result struct {
		code int
		body string
		err  error
	}
	download := make(chan result, 1)
	go func() {
		resp, err := c.Get(ts.URL + "/calendar.ics?view=day&date=2024-03-04")
		if err != nil {
			download <- result{err: err}
			return
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		download <- result{code: resp.StatusCode, body: string(body), err: err}
	}()

	select {
	case <-g.entered:
	case <-time.After(2 * time.Second):
		t.Fatalf("export never reached the api")
	}

	resp, err := c.Get(ts.URL + "/calendar?view=month&date=2024-03-04")
	if err != nil {
		t.Fatalf("GET /calendar: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("navigation: expected 200, got %d", resp.StatusCode)
	}
	close(g.release)

	select {
	case r := <-download:
		if r.err != nil {
			t.Fatalf("GET /calendar.ics: %v", r.err)
		}
		if r.code != http.StatusOK {
			t.Fatalf("export: expected 200, got %d", r.code)
		}
		if strings.Count(r.body, "BEGIN:VEVENT") != 5 {
			t.Fatalf("expected the 5 appointments of the day, got:\n%s", r.body)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("export did not finish")
	}
}

func TestDashboard(t *testing.T) {
	ts := newTestServer(t, testConfig(), newFakeAPI())
	c := loggedIn(t, ts)

	_, doc := getDoc(t, c, ts.URL+"/dashboard")
	if v := strings.TrimSpace(doc.Find(`[data-stat="customers"] .value`).Text()); v != "42" {
		t.Fatalf("unexpected customers value %q", v)
	}
	if v := strings.TrimSpace(doc.Find(`[data-stat="revenue-today"] .value`).Text()); v != "₹1500" {
		t.Fatalf("unexpected revenue value %q", v)
	}
	if n := doc.Find(".today-list li").Length(); n != 5 {
		t.Fatalf("expected 5 appointments today, got %d", n)
	}
}

func TestDashboardDegradesToZero(t *testing.T) {
	api := newFakeAPI()
	api.summaryErr = &salonapi.StatusError{Code: http.StatusInternalServerError}
	ts := newTestServer(t, testConfig(), api)
	c := loggedIn(t, ts)

	resp, doc := getDoc(t, c, ts.URL+"/dashboard")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if v := strings.TrimSpace(doc.Find(`[data-stat="customers"] .value`).Text()); v != "0" {
		t.Fatalf("expected zeroed summary, got %q", v)
	}
}

func TestReportsPageAndWorkbook(t *testing.T) {
	ts := newTestServer(t, testConfig(), newFakeAPI())
	c := loggedIn(t, ts)

	_, doc := getDoc(t, c, ts.URL+"/reports")
	if n := doc.Find("table.customers tbody tr").Length(); n != 1 {
		t.Fatalf("expected 1 customer row, got %d", n)
	}
	if v := strings.TrimSpace(doc.Find(`[data-stat="revenue-total"] .value`).Text()); v != "₹1500" {
		t.Fatalf("unexpected revenue total %q", v)
	}
	if style, _ := doc.Find(`[data-series="monthly"] .bar-fill`).Attr("style"); !strings.Contains(style, "100%") {
		t.Fatalf("largest bar should be full width, got %q", style)
	}

	resp, err := c.Get(ts.URL + "/reports.xlsx")
	if err != nil {
		t.Fatalf("GET /reports.xlsx: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.Header.Get("Content-Type") != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Fatalf("unexpected content type %q", resp.Header.Get("Content-Type"))
	}
	if len(body) < 4 || string(body[:2]) != "PK" {
		t.Fatalf("expected a zip container")
	}
}

func TestLogout(t *testing.T) {
	ts := newTestServer(t, testConfig(), newFakeAPI())
	c := loggedIn(t, ts)

	_, doc := getDoc(t, c, ts.URL+"/dashboard")
	resp, err := noRedirect(c).PostForm(ts.URL+"/logout", url.Values{"gorilla.csrf.Token": {csrfToken(t, doc)}})
	if err != nil {
		t.Fatalf("POST /logout: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/login" {
		t.Fatalf("unexpected logout response %d", resp.StatusCode)
	}

	resp, err = noRedirect(c).Get(ts.URL + "/dashboard")
	if err != nil {
		t.Fatalf("GET /dashboard: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected redirect after logout, got %d", resp.StatusCode)
	}
}

func TestBasicAuth(t *testing.T) {
	cfg := testConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "desk", Password: "pw"}
	ts := newTestServer(t, cfg, newFakeAPI())

	resp, err := http.Get(ts.URL + "/login")
	if err != nil {
		t.Fatalf("GET /login: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized || resp.Header.Get("WWW-Authenticate") == "" {
		t.Fatalf("expected basic auth challenge, got %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/health must bypass basic auth, got %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/login", nil)
	req.SetBasicAuth("desk", "pw")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /login with auth: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with credentials, got %d", resp.StatusCode)
	}
}

func TestAssetsServed(t *testing.T) {
	ts := newTestServer(t, testConfig(), newFakeAPI())

	resp, err := http.Get(ts.URL + "/assets/style.css")
	if err != nil {
		t.Fatalf("GET /assets/style.css: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/css") {
		t.Fatalf("unexpected asset response %d %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
}

func TestHourLabelAndMoney(t *testing.T) {
	cases := map[int]string{9: "9 AM", 12: "12 PM", 13: "1 PM", 21: "9 PM", 0: "12 AM"}
	for h, want := range cases {
		if got := hourLabel(h); got != want {
			t.Errorf("hourLabel(%d) = %q, want %q", h, got, want)
		}
	}
	if money(1200) != "₹1200" || money(99.5) != "₹99.50" {
		t.Fatalf("unexpected money formatting %q %q", money(1200), money(99.5))
	}
}
