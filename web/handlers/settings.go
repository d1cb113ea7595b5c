// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/mdhender/mdip"
	"github.com/mdhender/mdip/model"
	"github.com/mdhender/mdip/web/auth"
	"github.com/mdhender/mdip/web/templates"
)

func (h *Handlers) Settings(w http.ResponseWriter, r *http.Request) {
	data := h.getLayoutData(r)
	build := mdip.Build()
	render(w, r, templates.SettingsPage(data, templates.SettingsData{
		Username:  data.Username,
		Role:      data.Role,
		Version:   build.Version,
		GoVersion: build.GoVersion,
		OS:        build.OS,
		Arch:      build.Arch,
	}))
}

func (h *Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)
	if session == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	current := r.FormValue("current")
	next := r.FormValue("password")
	if current == "" || next == "" {
		redirectFlash(w, r, "/settings", "error", "please fill in all password fields")
		return
	}
	if next != r.FormValue("confirm") {
		redirectFlash(w, r, "/settings", "error", "new passwords do not match")
		return
	}
	if err := auth.ValidatePassword(next); err != nil {
		redirectFlash(w, r, "/settings", "error", err.Error())
		return
	}

	err := h.store.ChangePassword(r.Context(), session.User.Username, current, next, h.opts.BcryptCost)
	if errors.Is(err, model.ErrInvalidCredentials) {
		redirectFlash(w, r, "/settings", "error", "current password is incorrect")
		return
	} else if err != nil {
		serverError(w, r, "change password", err)
		return
	}

	log.Printf("auth: %q changed password", session.User.Username)
	redirectFlash(w, r, "/settings", "flash", "Password updated")
}
