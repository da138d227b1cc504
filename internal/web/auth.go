package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/csrf"

	appLog "salondesk/internal/log"
	"salondesk/internal/salonapi"
	"salondesk/internal/session"
)

const sessionCookieName = "salondesk_session"

type loginForm struct {
	Username string
	Error    string
}

// sessionHandler is a handler that runs with an authenticated session.
type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *session.Session)

// withSession resolves the session cookie. Without a live session, HTML
// routes redirect to /login and JSON routes answer 401.
func (s *Server) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.currentSession(r)
		if !ok {
			s.unauthenticated(w, r)
			return
		}
		h(w, r, sess)
	}
}

func (s *Server) currentSession(r *http.Request) (*session.Session, bool) {
	c, err := r.Cookie(sessionCookieName)
	if err != nil {
		return nil, false
	}
	return s.sessions.Get(c.Value)
}

func (s *Server) unauthenticated(w http.ResponseWriter, r *http.Request) {
	if wantsJSON(r) {
		writeError(w, http.StatusUnauthorized, "not signed in")
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// endSession drops a session whose token the API no longer accepts.
func (s *Server) endSession(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	appLog.Info("api rejected session token; signing out", "subject", sess.Subject)
	s.sessions.Delete(sess.ID)
	s.clearSessionCookie(w)
	s.forgetSummary(sess.Token)
	s.unauthenticated(w, r)
}

func wantsJSON(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/")
}

func (s *Server) setSessionCookie(w http.ResponseWriter, sess *session.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sess.ID,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) renderLogin(w http.ResponseWriter, r *http.Request, status int, form loginForm) {
	s.render(w, status, "login.html", pageData{
		Title: "Sign in",
		CSRF:  csrf.TemplateField(r),
		Body:  form,
	})
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.currentSession(r); ok {
		http.Redirect(w, r, "/calendar", http.StatusSeeOther)
		return
	}
	s.renderLogin(w, r, http.StatusOK, loginForm{})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderLogin(w, r, http.StatusBadRequest, loginForm{Error: "Invalid form submission."})
		return
	}
	username := strings.TrimSpace(r.PostForm.Get("username"))
	password := r.PostForm.Get("password")
	if username == "" || password == "" {
		s.renderLogin(w, r, http.StatusBadRequest, loginForm{Username: username, Error: "Enter a username and password."})
		return
	}

	tok, err := s.api.Login(r.Context(), username, password)
	switch {
	case errors.Is(err, salonapi.ErrInvalidCredentials):
		appLog.Info("login rejected", "username", username)
		s.renderLogin(w, r, http.StatusUnauthorized, loginForm{Username: username, Error: "Invalid username or password."})
		return
	case err != nil:
		appLog.Error("login failed", err, "username", username)
		s.renderLogin(w, r, http.StatusBadGateway, loginForm{Username: username, Error: "Sign-in is unavailable right now. Try again shortly."})
		return
	}

	sess := s.sessions.Create(tok.AccessToken)
	s.setSessionCookie(w, sess)
	appLog.Info("login succeeded",
		"username", username,
		"role", sess.Role,
		"token", appLog.RedactToken(tok.AccessToken),
		"expires", sess.ExpiresAt.Format("2006-01-02T15:04:05Z07:00"),
	)
	http.Redirect(w, r, "/calendar", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess, ok := s.currentSession(r); ok {
		s.sessions.Delete(sess.ID)
		s.forgetSummary(sess.Token)
	}
	s.clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// userLabel is shown in the top bar.
func userLabel(sess *session.Session) string {
	if sess.Subject != "" {
		return sess.Subject
	}
	return "signed in"
}
