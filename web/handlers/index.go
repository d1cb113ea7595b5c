// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package handlers

import (
	"net/http"

	"github.com/mdhender/mdip/web/auth"
	"github.com/mdhender/mdip/web/templates"
)

func (h *Handlers) Index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if session := auth.GetSessionFromRequest(r, h.sessions); session != nil {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// recentLoadLimit bounds the load history shown on a page.
const recentLoadLimit = 10

func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var dash templates.DashboardData
	var err error

	if dash.Incidents, err = h.store.IncidentSummary(ctx); err != nil {
		serverError(w, r, "incident summary", err)
		return
	}
	if dash.Datasets, err = h.store.DatasetSummary(ctx); err != nil {
		serverError(w, r, "dataset summary", err)
		return
	}
	if dash.Tickets, err = h.store.TicketSummary(ctx); err != nil {
		serverError(w, r, "ticket summary", err)
		return
	}
	if dash.Loads, err = h.store.RecentLoads(ctx, recentLoadLimit); err != nil {
		serverError(w, r, "recent loads", err)
		return
	}

	render(w, r, templates.DashboardPage(h.getLayoutData(r), dash))
}
