// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/mdhender/mdip/model"
	"github.com/mdhender/mdip/pipelines/csvload"
	"github.com/mdhender/mdip/web/templates"
)

type uploadResponse struct {
	Success           bool     `json:"success"`
	Error             string   `json:"error,omitempty"`
	Code              string   `json:"code,omitempty"`
	ID                string   `json:"id,omitempty"`
	Table             string   `json:"table,omitempty"`
	RowsRead          int      `json:"rowsRead"`
	RowsWritten       int      `json:"rowsWritten"`
	DuplicatesDropped int      `json:"duplicatesDropped"`
	ExistingSkipped   int      `json:"existingSkipped"`
	ReferencesNulled  int      `json:"referencesNulled"`
	Messages          []string `json:"messages,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, resp uploadResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// UploadPage renders the CSV upload form and recent load history.
func (h *Handlers) UploadPage(w http.ResponseWriter, r *http.Request) {
	h.renderUpload(w, r, http.StatusOK, h.getLayoutData(r), templates.UploadData{})
}

func (h *Handlers) renderUpload(w http.ResponseWriter, r *http.Request, status int, data templates.LayoutData, u templates.UploadData) {
	u.Tables = model.LoadableTables
	loads, err := h.store.RecentLoads(r.Context(), recentLoadLimit)
	if err != nil {
		serverError(w, r, "recent loads", err)
		return
	}
	u.Loads = loads
	if status != http.StatusOK {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
	}
	render(w, r, templates.UploadPage(data, u))
}

// Upload loads a CSV file into the selected table.
// Clients that accept application/json get a JSON result instead of the page.
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	data := h.getLayoutData(r)
	fail := func(status int, code, msg string, u templates.UploadData) {
		if wantsJSON(r) {
			writeJSON(w, status, uploadResponse{Error: msg, Code: code})
			return
		}
		data.Error = msg
		h.renderUpload(w, r, status, data, u)
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.opts.UploadMaxBytes)
	if err := r.ParseMultipartForm(h.opts.UploadMaxBytes); err != nil {
		fail(http.StatusBadRequest, "", "failed to parse form: "+err.Error(), templates.UploadData{})
		return
	}
	defer r.MultipartForm.RemoveAll()

	table, err := model.ParseTable(r.FormValue("table"))
	if err != nil {
		fail(http.StatusBadRequest, csvload.ErrCodeUnknownTable, err.Error(), templates.UploadData{})
		return
	}
	u := templates.UploadData{Selected: table}

	file, header, err := r.FormFile("file")
	if err != nil {
		fail(http.StatusBadRequest, "", "no file uploaded", u)
		return
	}
	defer file.Close()

	result, err := h.loader.LoadReader(r.Context(), header.Filename, file, table)
	if err != nil {
		code := csvload.ErrorCode(err)
		fail(uploadStatus(code), code, err.Error(), u)
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, uploadResponse{
			Success:           true,
			ID:                result.ID,
			Table:             string(result.Table),
			RowsRead:          result.RowsRead,
			RowsWritten:       result.RowsWritten,
			DuplicatesDropped: result.DuplicatesDropped,
			ExistingSkipped:   result.ExistingSkipped,
			ReferencesNulled:  result.ReferencesNulled,
			Messages:          result.Messages,
		})
		return
	}

	u.Result = result.String()
	u.Messages = result.Messages
	h.renderUpload(w, r, http.StatusOK, data, u)
}

func uploadStatus(code string) int {
	switch code {
	case csvload.ErrCodeReadSource, csvload.ErrCodeSchemaMismatch, csvload.ErrCodeUnknownTable:
		return http.StatusBadRequest
	case csvload.ErrCodeConstraintViolation:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
