// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package auth

import (
	"crypto/rand"
	"net/http"
	"sync"
	"time"
)

// User is the signed-in identity carried by a session.
type User struct {
	ID       int64
	Username string
	Role     string
}

// Session ties a random id, sent to the browser as a cookie, to a User.
type Session struct {
	ID        string
	User      User
	ExpiresAt time.Time
}

func (s *Session) expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// SessionStore keeps sessions in memory; they do not survive a restart.
type SessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]*Session
}

const DefaultSessionTTL = 24 * time.Hour

func NewSessionStore() *SessionStore {
	return NewSessionStoreWithTTL(DefaultSessionTTL)
}

func NewSessionStoreWithTTL(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// SetClock replaces the store's time source for testing.
func (s *SessionStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *SessionStore) Create(user User) *Session {
	session := &Session{ID: rand.Text(), User: user}

	s.mu.Lock()
	defer s.mu.Unlock()
	session.ExpiresAt = s.now().Add(s.ttl)
	s.sessions[session.ID] = session
	return session
}

// Get returns the live session for id, or nil.
// An expired session is dropped on lookup.
func (s *SessionStore) Get(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil
	} else if session.expired(s.now()) {
		delete(s.sessions, id)
		return nil
	}
	return session
}

func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// DeleteUser removes every session belonging to username and returns how many were removed.
func (s *SessionStore) DeleteUser(username string) int {
	return s.deleteWhere(func(session *Session) bool {
		return session.User.Username == username
	})
}

// Prune removes expired sessions and returns how many were removed.
func (s *SessionStore) Prune() int {
	now := s.clock()
	return s.deleteWhere(func(session *Session) bool {
		return session.expired(now)
	})
}

// Len returns the number of sessions held, expired or not.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *SessionStore) clock() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now()
}

func (s *SessionStore) deleteWhere(match func(*Session) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, session := range s.sessions {
		if match(session) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

const SessionCookieName = "mdip_session"

func SetSessionCookie(w http.ResponseWriter, session *Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    session.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  session.ExpiresAt,
	})
}

// ClearSessionCookie tells the browser to forget the session cookie.
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// GetSessionFromRequest returns the live session named by the request's cookie, or nil.
func GetSessionFromRequest(r *http.Request, store *SessionStore) *Session {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	return store.Get(cookie.Value)
}
