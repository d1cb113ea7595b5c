// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/mdhender/mdip/model"
	"github.com/mdhender/mdip/web/templates"
)

// manyCasesMin is the threshold for "incident types with many cases".
const manyCasesMin = 5

func (h *Handlers) Incidents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	d := templates.IncidentsData{
		Filter: model.IncidentFilter{
			Severity:     q.Get("severity"),
			Status:       q.Get("status"),
			IncidentType: q.Get("type"),
		},
		ManyCasesMin: manyCasesMin,
	}

	var err error
	if d.Incidents, err = h.store.ListIncidents(ctx, d.Filter); err != nil {
		serverError(w, r, "list incidents", err)
		return
	}

	if r.Header.Get("HX-Request") == "true" {
		render(w, r, templates.IncidentsTable(d.Incidents))
		return
	}

	if d.Severities, d.Statuses, d.Types, err = h.store.IncidentFilterOptions(ctx); err != nil {
		serverError(w, r, "incident filter options", err)
		return
	}
	if d.Summary, err = h.store.IncidentSummary(ctx); err != nil {
		serverError(w, r, "incident summary", err)
		return
	}
	for _, agg := range []struct {
		op   string
		dst  *[]model.Count
		load func() ([]model.Count, error)
	}{
		{"incidents by severity", &d.BySeverity, func() ([]model.Count, error) { return h.store.IncidentsBySeverity(ctx) }},
		{"incidents by status", &d.ByStatus, func() ([]model.Count, error) { return h.store.IncidentsByStatus(ctx) }},
		{"incidents by type", &d.ByType, func() ([]model.Count, error) { return h.store.IncidentsByType(ctx) }},
		{"high severity by status", &d.HighByStatus, func() ([]model.Count, error) { return h.store.HighSeverityByStatus(ctx) }},
		{"types with many cases", &d.ManyCases, func() ([]model.Count, error) { return h.store.IncidentTypesWithManyCases(ctx, manyCasesMin) }},
		{"incidents by month", &d.ByMonth, func() ([]model.Count, error) { return h.store.IncidentsByMonth(ctx) }},
	} {
		if *agg.dst, err = agg.load(); err != nil {
			serverError(w, r, agg.op, err)
			return
		}
	}

	render(w, r, templates.IncidentsPage(h.getLayoutData(r), d))
}

func (h *Handlers) CreateIncident(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	inc := &model.Incident{
		Date:         r.FormValue("date"),
		IncidentType: r.FormValue("incident_type"),
		Severity:     r.FormValue("severity"),
		Status:       r.FormValue("status"),
		Description:  r.FormValue("description"),
	}
	if inc.IncidentType == "" || inc.Severity == "" {
		redirectFlash(w, r, "/incidents", "error", "incident type and severity are required")
		return
	}
	if inc.Date == "" {
		inc.Date = time.Now().Format(time.DateOnly)
	}
	if inc.Status == "" {
		inc.Status = "Open"
	}
	if session := sessionFrom(r); session != nil {
		inc.ReportedBy = session.User.Username
	}

	id, err := h.store.InsertIncident(r.Context(), inc)
	if err != nil {
		serverError(w, r, "insert incident", err)
		return
	}
	redirectFlash(w, r, "/incidents", "flash", "Incident "+strconv.FormatInt(id, 10)+" added")
}

func (h *Handlers) UpdateIncidentStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid incident id", http.StatusBadRequest)
		return
	}
	status := r.FormValue("status")
	if status == "" {
		redirectFlash(w, r, "/incidents", "error", "status is required")
		return
	}

	err = h.store.UpdateIncidentStatus(r.Context(), id, status)
	if errors.Is(err, model.ErrNotFound) {
		http.Error(w, "Incident not found", http.StatusNotFound)
		return
	} else if err != nil {
		serverError(w, r, "update incident", err)
		return
	}
	redirectFlash(w, r, "/incidents", "flash", "Incident "+r.PathValue("id")+" updated")
}

func (h *Handlers) DeleteIncident(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid incident id", http.StatusBadRequest)
		return
	}

	err = h.store.DeleteIncident(r.Context(), id)
	if errors.Is(err, model.ErrNotFound) {
		http.Error(w, "Incident not found", http.StatusNotFound)
		return
	} else if err != nil {
		serverError(w, r, "delete incident", err)
		return
	}
	redirectFlash(w, r, "/incidents", "flash", "Incident "+r.PathValue("id")+" deleted")
}
