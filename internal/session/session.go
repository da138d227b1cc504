// Package session keeps console logins in memory. A session owns the API
// bearer token, the user's last calendar view and the generation counter
// that lets a newer calendar fetch supersede an older one.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"salondesk/internal/scheduler"
)

// Claims are the token fields the console displays. They are read without
// verifying the signature; the API remains the only authority on the token.
type Claims struct {
	Subject   string
	Role      string
	ExpiresAt time.Time
}

type tokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// ParseClaims decodes token's payload. ok is false for tokens that are not
// JWTs; such tokens are still usable as opaque bearer tokens.
func ParseClaims(token string) (Claims, bool) {
	var tc tokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &tc); err != nil {
		return Claims{}, false
	}
	c := Claims{Subject: tc.Subject, Role: tc.Role}
	if tc.ExpiresAt != nil {
		c.ExpiresAt = tc.ExpiresAt.Time
	}
	return c, true
}

// Session is one logged-in console user.
type Session struct {
	ID        string
	Token     string
	Subject   string
	Role      string
	CreatedAt time.Time
	ExpiresAt time.Time

	mu      sync.Mutex
	view    scheduler.ViewWindow
	hasView bool
	gen     uint64
	cancel  context.CancelFunc
}

// New builds a session for token. The token's exp claim wins; otherwise
// the session lives for ttl.
func New(token string, ttl time.Duration, now time.Time) *Session {
	s := &Session{
		ID:        uuid.NewString(),
		Token:     token,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if c, ok := ParseClaims(token); ok {
		s.Subject = c.Subject
		s.Role = c.Role
		if !c.ExpiresAt.IsZero() {
			s.ExpiresAt = c.ExpiresAt
		}
	}
	return s
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// View returns the last calendar view the user looked at.
func (s *Session) View() (scheduler.ViewWindow, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view, s.hasView
}

// SetView remembers w as the user's current view.
func (s *Session) SetView(w scheduler.ViewWindow) {
	s.mu.Lock()
	s.view, s.hasView = w, true
	s.mu.Unlock()
}

// cancelFetch aborts the in-flight fetch, if any. The fetch stays current
// so its owner still observes a cancelled context rather than supersession.
func (s *Session) cancelFetch() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()
}

// Fetch is one generation of calendar loading for a session.
type Fetch struct {
	ctx    context.Context
	cancel context.CancelFunc
	sess   *Session
	gen    uint64
}

// BeginFetch starts a new fetch generation. The previous generation's
// context is cancelled; its result must be discarded.
func (s *Session) BeginFetch(parent context.Context) *Fetch {
	ctx, cancel := context.WithCancel(parent)

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	s.cancel = cancel
	gen := s.gen
	s.mu.Unlock()

	return &Fetch{ctx: ctx, cancel: cancel, sess: s, gen: gen}
}

// Context is cancelled when the fetch is superseded or done.
func (f *Fetch) Context() context.Context {
	return f.ctx
}

// Generation is the fetch's sequence number within its session.
func (f *Fetch) Generation() uint64 {
	return f.gen
}

// Current reports whether no newer fetch has started.
func (f *Fetch) Current() bool {
	f.sess.mu.Lock()
	defer f.sess.mu.Unlock()
	return f.sess.gen == f.gen
}

// Done releases the fetch's context.
func (f *Fetch) Done() {
	f.sess.mu.Lock()
	if f.sess.gen == f.gen {
		f.sess.cancel = nil
	}
	f.sess.mu.Unlock()
	f.cancel()
}
