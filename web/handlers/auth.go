// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/mdhender/mdip/model"
	"github.com/mdhender/mdip/web/auth"
	"github.com/mdhender/mdip/web/templates"
)

func (h *Handlers) LoginPage(w http.ResponseWriter, r *http.Request) {
	if session := auth.GetSessionFromRequest(r, h.sessions); session != nil {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	render(w, r, templates.LoginPage("", h.getLayoutData(r)))
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	data := h.getLayoutData(r)

	if err := r.ParseForm(); err != nil {
		render(w, r, templates.LoginPage("Invalid form submission", data))
		return
	}

	username := r.FormValue("username")
	password := r.FormValue("password")
	if username == "" || password == "" {
		render(w, r, templates.LoginPage("Please enter both username and password", data))
		return
	}

	user, err := h.store.ValidateCredentials(r.Context(), username, password)
	if err != nil {
		log.Printf("auth: login %q: %v", username, err)
		render(w, r, templates.LoginPage("Authentication error", data))
		return
	}
	if user == nil {
		render(w, r, templates.LoginPage("Invalid username or password", data))
		return
	}

	session := h.sessions.Create(*user)
	auth.SetSessionCookie(w, session)

	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (h *Handlers) RegisterPage(w http.ResponseWriter, r *http.Request) {
	render(w, r, templates.RegisterPage("", "", h.getLayoutData(r)))
}

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	data := h.getLayoutData(r)

	if err := r.ParseForm(); err != nil {
		render(w, r, templates.RegisterPage("Invalid form submission", "", data))
		return
	}

	username := r.FormValue("username")
	password := r.FormValue("password")
	if err := auth.ValidateUsername(username); err != nil {
		render(w, r, templates.RegisterPage(err.Error(), username, data))
		return
	}
	if err := auth.ValidatePassword(password); err != nil {
		render(w, r, templates.RegisterPage(err.Error(), username, data))
		return
	}
	if password != r.FormValue("confirm") {
		render(w, r, templates.RegisterPage("passwords do not match", username, data))
		return
	}

	_, err := h.store.RegisterUser(r.Context(), username, password, model.DefaultRole, h.opts.BcryptCost)
	if errors.Is(err, model.ErrUserExists) {
		render(w, r, templates.RegisterPage(fmt.Sprintf("username %q already exists", username), username, data))
		return
	} else if err != nil {
		log.Printf("auth: register %q: %v", username, err)
		render(w, r, templates.RegisterPage("Registration failed", username, data))
		return
	}

	log.Printf("auth: registered %q", username)
	redirectFlash(w, r, "/login", "flash", "Account created. Please log in.")
}

func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.SessionCookieName); err == nil {
		h.sessions.Delete(cookie.Value)
	}
	auth.ClearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *Handlers) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := auth.GetSessionFromRequest(r, h.sessions)
		if session == nil {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next(w, withSession(r, session))
	}
}
