// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package handlers

import (
	"net/http"

	"github.com/mdhender/mdip/web/static"
)

// Routes returns the application's request router.
func (h *Handlers) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static.FS)))

	mux.HandleFunc("/", h.Index)
	mux.HandleFunc("GET /login", h.LoginPage)
	mux.HandleFunc("POST /login", h.Login)
	mux.HandleFunc("GET /register", h.RegisterPage)
	mux.HandleFunc("POST /register", h.Register)
	mux.HandleFunc("/logout", h.Logout)

	mux.HandleFunc("GET /dashboard", h.RequireAuth(h.Dashboard))

	mux.HandleFunc("GET /incidents", h.RequireAuth(h.Incidents))
	mux.HandleFunc("POST /incidents", h.RequireAuth(h.CreateIncident))
	mux.HandleFunc("POST /incidents/{id}/status", h.RequireAuth(h.UpdateIncidentStatus))
	mux.HandleFunc("POST /incidents/{id}/delete", h.RequireAuth(h.DeleteIncident))

	mux.HandleFunc("GET /datasets", h.RequireAuth(h.Datasets))
	mux.HandleFunc("POST /datasets", h.RequireAuth(h.CreateDataset))
	mux.HandleFunc("POST /datasets/{id}/records", h.RequireAuth(h.UpdateDatasetRecords))
	mux.HandleFunc("POST /datasets/{id}/delete", h.RequireAuth(h.DeleteDataset))

	mux.HandleFunc("GET /tickets", h.RequireAuth(h.Tickets))
	mux.HandleFunc("POST /tickets", h.RequireAuth(h.CreateTicket))
	mux.HandleFunc("POST /tickets/{ticket}/status", h.RequireAuth(h.UpdateTicketStatus))
	mux.HandleFunc("POST /tickets/{ticket}/delete", h.RequireAuth(h.DeleteTicket))

	mux.HandleFunc("GET /settings", h.RequireAuth(h.Settings))
	mux.HandleFunc("POST /settings/password", h.RequireAuth(h.ChangePassword))

	mux.HandleFunc("GET /upload", h.RequireAuth(h.UploadPage))
	mux.HandleFunc("POST /upload", h.RequireAuth(h.Upload))

	return mux
}
