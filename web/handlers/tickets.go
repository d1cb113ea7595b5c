// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/mdhender/mdip/model"
	"github.com/mdhender/mdip/web/templates"
)

func (h *Handlers) Tickets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	d := templates.TicketsData{
		Filter: model.TicketFilter{
			Priority: q.Get("priority"),
			Status:   q.Get("status"),
			Category: q.Get("category"),
		},
	}

	var err error
	if d.Tickets, err = h.store.ListTickets(ctx, d.Filter); err != nil {
		serverError(w, r, "list tickets", err)
		return
	}

	if r.Header.Get("HX-Request") == "true" {
		render(w, r, templates.TicketsTable(d.Tickets))
		return
	}

	if d.Priorities, d.Statuses, d.Categories, err = h.store.TicketFilterOptions(ctx); err != nil {
		serverError(w, r, "ticket filter options", err)
		return
	}
	if d.Summary, err = h.store.TicketSummary(ctx); err != nil {
		serverError(w, r, "ticket summary", err)
		return
	}
	if d.ByPriority, err = h.store.TicketsByPriority(ctx); err != nil {
		serverError(w, r, "tickets by priority", err)
		return
	}
	if d.ByStatus, err = h.store.TicketsByStatus(ctx); err != nil {
		serverError(w, r, "tickets by status", err)
		return
	}

	render(w, r, templates.TicketsPage(h.getLayoutData(r), d))
}

func (h *Handlers) CreateTicket(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	t := &model.Ticket{
		TicketID:    r.FormValue("ticket_id"),
		Priority:    r.FormValue("priority"),
		Status:      r.FormValue("status"),
		Category:    r.FormValue("category"),
		Subject:     r.FormValue("subject"),
		Description: r.FormValue("description"),
		CreatedDate: r.FormValue("created_date"),
		AssignedTo:  r.FormValue("assigned_to"),
	}
	if t.TicketID == "" || t.Subject == "" {
		redirectFlash(w, r, "/tickets", "error", "ticket id and subject are required")
		return
	}
	if t.CreatedDate == "" {
		t.CreatedDate = time.Now().Format(time.DateOnly)
	}
	if t.Status == "" {
		t.Status = "Open"
	}

	_, err := h.store.InsertTicket(r.Context(), t)
	if errors.Is(err, model.ErrConstraint) {
		redirectFlash(w, r, "/tickets", "error", "ticket "+t.TicketID+" already exists")
		return
	} else if err != nil {
		serverError(w, r, "insert ticket", err)
		return
	}
	redirectFlash(w, r, "/tickets", "flash", "Ticket "+t.TicketID+" added")
}

func (h *Handlers) UpdateTicketStatus(w http.ResponseWriter, r *http.Request) {
	ticketID := r.PathValue("ticket")
	status := r.FormValue("status")
	if status == "" {
		redirectFlash(w, r, "/tickets", "error", "status is required")
		return
	}

	err := h.store.UpdateTicketStatus(r.Context(), ticketID, status)
	if errors.Is(err, model.ErrNotFound) {
		http.Error(w, "Ticket not found", http.StatusNotFound)
		return
	} else if err != nil {
		serverError(w, r, "update ticket", err)
		return
	}
	redirectFlash(w, r, "/tickets", "flash", "Ticket "+ticketID+" updated")
}

func (h *Handlers) DeleteTicket(w http.ResponseWriter, r *http.Request) {
	ticketID := r.PathValue("ticket")

	err := h.store.DeleteTicket(r.Context(), ticketID)
	if errors.Is(err, model.ErrNotFound) {
		http.Error(w, "Ticket not found", http.StatusNotFound)
		return
	} else if err != nil {
		serverError(w, r, "delete ticket", err)
		return
	}
	redirectFlash(w, r, "/tickets", "flash", "Ticket "+ticketID+" deleted")
}
