package web

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/csrf"

	"salondesk/internal/calendar"
	"salondesk/internal/config"
	appLog "salondesk/internal/log"
	"salondesk/internal/model"
	"salondesk/internal/salonapi"
	"salondesk/internal/scheduler"
	"salondesk/internal/session"
)

// API is everything the console reads from the salon backend.
type API interface {
	calendar.Source
	Login(ctx context.Context, username, password string) (salonapi.Token, error)
	Summary(ctx context.Context, token string) (model.Summary, error)
	Reports(ctx context.Context, token string) (model.Reports, error)
}

// Server is the staff console: login, calendar, dashboard and reports over
// the salon API.
type Server struct {
	cfg   *config.Config
	debug bool
	mux   *http.ServeMux

	api       API
	loader    *calendar.Loader
	sessions  *session.Store
	renderer  *Renderer
	closures  *scheduler.Closures
	loc       *time.Location
	weekStart time.Weekday
	csrfKey   []byte
	now       func() time.Time

	// Short-lived per-token cache for /dashboard so page reloads do not
	// hit the API every time.
	summaryMu    sync.RWMutex
	summaryCache map[string]summaryCache
}

// summaryCache holds a dashboard summary and its timestamp.
type summaryCache struct {
	summary   model.Summary
	updatedAt time.Time
}

const summaryCacheTTL = 30 * time.Second

// NewServer constructs a Server. cfg must already be validated.
func NewServer(cfg *config.Config, api API, debug bool) (*Server, error) {
	renderer, err := NewRenderer()
	if err != nil {
		return nil, err
	}
	closures, err := scheduler.ParseClosures(cfg.Closures)
	if err != nil {
		return nil, err
	}

	key := []byte(cfg.CSRFKey)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate csrf key: %w", err)
		}
		appLog.Warn("csrf_key not configured; generated an ephemeral key")
	}

	s := &Server{
		cfg:          cfg,
		debug:        debug,
		mux:          http.NewServeMux(),
		api:          api,
		loader:       calendar.NewLoader(api),
		sessions:     session.NewStore(cfg.SessionTTL),
		renderer:     renderer,
		closures:     closures,
		loc:          cfg.Location(),
		weekStart:    scheduler.ParseWeekStart(cfg.WeekStart),
		csrfKey:      key,
		now:          time.Now,
		summaryCache: make(map[string]summaryCache),
	}
	s.registerRoutes()
	return s, nil
}

// Sessions exposes the session store, e.g. for periodic sweeping.
func (s *Server) Sessions() *session.Store {
	return s.sessions
}

// Handler returns the fully wrapped http.Handler for this server.
func (s *Server) Handler() http.Handler {
	protect := csrf.Protect(s.csrfKey,
		csrf.Secure(s.cfg.SecureCookies),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(s.handleCSRFFailure)),
	)

	h := protect(s.mux)
	h = s.plaintextMiddleware(h)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		h = s.basicAuthMiddleware(h)
	}
	return securityHeaders(h)
}

// StartServer serves the console on cfg.Listen until ctx is cancelled, then
// drains in-flight requests for up to five seconds.
func StartServer(ctx context.Context, cfg *config.Config, api API, debug bool) error {
	s, err := NewServer(cfg, api, debug)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.sweepSessions(ctx, time.Minute)

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen, "debug", debug)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	appLog.Info("shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func (s *Server) sweepSessions(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := s.sessions.Sweep(); n > 0 {
				appLog.Debug("expired sessions swept", "count", n)
			}
		}
	}
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /login", s.handleLoginForm)
	s.mux.HandleFunc("POST /login", s.handleLogin)
	s.mux.HandleFunc("POST /logout", s.handleLogout)

	s.mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/calendar", http.StatusFound)
	})
	s.mux.HandleFunc("GET /calendar", s.withSession(s.handleCalendar))
	s.mux.HandleFunc("GET /api/calendar", s.withSession(s.handleCalendarAPI))
	s.mux.HandleFunc("GET /calendar.ics", s.withSession(s.handleCalendarICS))
	s.mux.HandleFunc("GET /dashboard", s.withSession(s.handleDashboard))
	s.mux.HandleFunc("GET /reports", s.withSession(s.handleReports))
	s.mux.HandleFunc("GET /reports.xlsx", s.withSession(s.handleReportsXLSX))
	s.mux.HandleFunc("GET /preview.png", s.withSession(s.handlePreview))

	s.mux.Handle("GET /assets/", s.staticFileServer())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// staticFileServer serves the embedded stylesheet under /assets/.
func (s *Server) staticFileServer() http.Handler {
	sub, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		appLog.Error("failed to initialize embedded static filesystem", err)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "assets not available", http.StatusServiceUnavailable)
		})
	}
	return http.StripPrefix("/assets/", http.FileServer(http.FS(sub)))
}

// handlePreview serves the last front-desk snapshot from disk.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request, _ *session.Session) {
	if !s.cfg.Display.Enabled {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Cache-Control", "no-cache")
	// ServeFile answers 404 for a missing file.
	http.ServeFile(w, r, s.cfg.Display.Output)
}

func (s *Server) handleCSRFFailure(w http.ResponseWriter, r *http.Request) {
	appLog.Warn("csrf check failed", "path", r.URL.Path, "reason", csrf.FailureReason(r))
	http.Error(w, "Forbidden - invalid or missing form token. Reload the page and try again.", http.StatusForbidden)
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Blank credentials disable it.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="salondesk", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// plaintextMiddleware tells the CSRF layer which requests arrived over plain
// HTTP, where it must not demand an HTTPS Referer.
func (s *Server) plaintextMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.TLS == nil && !s.cfg.SecureCookies {
			r = csrf.PlaintextHTTPRequest(r)
		}
		next.ServeHTTP(w, r)
	})
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "same-origin")
		h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
		h.Set("Content-Security-Policy", "default-src 'self'; img-src 'self' data:; style-src 'self' 'unsafe-inline'; frame-ancestors 'none'; form-action 'self'")
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
