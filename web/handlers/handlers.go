// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package handlers

import (
	"context"
	"log"
	"net/http"
	"net/url"

	"github.com/a-h/templ"
	"github.com/mdhender/mdip"
	"github.com/mdhender/mdip/pipelines/csvload"
	store "github.com/mdhender/mdip/stores/sqlite"
	"github.com/mdhender/mdip/web/auth"
	"github.com/mdhender/mdip/web/templates"
)

// Options tune the handlers.
type Options struct {
	BcryptCost     int
	UploadMaxBytes int64
}

// DefaultUploadMaxBytes limits CSV uploads when Options.UploadMaxBytes is not set.
const DefaultUploadMaxBytes = 10 << 20

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	store    *store.SQLiteStore
	sessions *auth.SessionStore
	loader   *csvload.Loader
	opts     Options
}

// New creates a new Handlers with the given store, session store and loader.
func New(s *store.SQLiteStore, sessions *auth.SessionStore, loader *csvload.Loader, opts Options) *Handlers {
	if opts.BcryptCost == 0 {
		opts.BcryptCost = auth.DefaultCost
	}
	if opts.UploadMaxBytes <= 0 {
		opts.UploadMaxBytes = DefaultUploadMaxBytes
	}
	return &Handlers{store: s, sessions: sessions, loader: loader, opts: opts}
}

// Store returns the underlying SQLite store.
func (h *Handlers) Store() *store.SQLiteStore {
	return h.store
}

// Sessions returns the session store.
func (h *Handlers) Sessions() *auth.SessionStore {
	return h.sessions
}

type sessionKey struct{}

func withSession(r *http.Request, session *auth.Session) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), sessionKey{}, session))
}

// sessionFrom returns the session attached by RequireAuth, if any.
func sessionFrom(r *http.Request) *auth.Session {
	session, _ := r.Context().Value(sessionKey{}).(*auth.Session)
	return session
}

// getLayoutData returns layout data for the current request.
// ?flash= and ?error= carry messages across a redirect.
func (h *Handlers) getLayoutData(r *http.Request) templates.LayoutData {
	data := templates.LayoutData{
		CurrentPath: r.URL.Path,
		Version:     mdip.Version().String(),
		Flash:       r.URL.Query().Get("flash"),
		Error:       r.URL.Query().Get("error"),
	}
	if session := sessionFrom(r); session != nil {
		data.Username = session.User.Username
		data.Role = session.User.Role
	}
	return data
}

func render(w http.ResponseWriter, r *http.Request, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := c.Render(r.Context(), w); err != nil {
		log.Printf("server: render %s: %v", r.URL.Path, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// redirectFlash redirects to path with a message for the next page.
func redirectFlash(w http.ResponseWriter, r *http.Request, path, key, msg string) {
	if msg != "" {
		path += "?" + url.Values{key: {msg}}.Encode()
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

func serverError(w http.ResponseWriter, r *http.Request, op string, err error) {
	log.Printf("server: %s %s: %s: %v", r.Method, r.URL.Path, op, err)
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}
