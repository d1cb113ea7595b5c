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

func (h *Handlers) Datasets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	d := templates.DatasetsData{Category: r.URL.Query().Get("category")}

	var err error
	if d.Datasets, err = h.store.ListDatasets(ctx, d.Category); err != nil {
		serverError(w, r, "list datasets", err)
		return
	}

	if r.Header.Get("HX-Request") == "true" {
		render(w, r, templates.DatasetsTable(d.Datasets))
		return
	}

	if d.Categories, err = h.store.DatasetCategories(ctx); err != nil {
		serverError(w, r, "dataset categories", err)
		return
	}
	if d.Summary, err = h.store.DatasetSummary(ctx); err != nil {
		serverError(w, r, "dataset summary", err)
		return
	}
	if d.ByCategory, err = h.store.DatasetsByCategory(ctx); err != nil {
		serverError(w, r, "datasets by category", err)
		return
	}
	if d.BySource, err = h.store.DatasetsBySource(ctx); err != nil {
		serverError(w, r, "datasets by source", err)
		return
	}

	render(w, r, templates.DatasetsPage(h.getLayoutData(r), d))
}

func (h *Handlers) CreateDataset(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	ds := &model.Dataset{
		Name:        r.FormValue("dataset_name"),
		Category:    r.FormValue("category"),
		Source:      r.FormValue("source"),
		LastUpdated: r.FormValue("last_updated"),
	}
	if ds.Name == "" {
		redirectFlash(w, r, "/datasets", "error", "dataset name is required")
		return
	}
	if ds.LastUpdated == "" {
		ds.LastUpdated = time.Now().Format(time.DateOnly)
	}
	if v := r.FormValue("record_count"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			redirectFlash(w, r, "/datasets", "error", "record count must be a whole number")
			return
		}
		ds.RecordCount = n
	}
	if v := r.FormValue("file_size_mb"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			redirectFlash(w, r, "/datasets", "error", "file size must be a number")
			return
		}
		ds.FileSizeMB = f
	}

	if _, err := h.store.InsertDataset(r.Context(), ds); err != nil {
		serverError(w, r, "insert dataset", err)
		return
	}
	redirectFlash(w, r, "/datasets", "flash", "Dataset "+ds.Name+" added")
}

func (h *Handlers) UpdateDatasetRecords(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid dataset id", http.StatusBadRequest)
		return
	}
	count, err := strconv.ParseInt(r.FormValue("record_count"), 10, 64)
	if err != nil || count < 0 {
		redirectFlash(w, r, "/datasets", "error", "record count must be a whole number")
		return
	}

	err = h.store.UpdateDatasetRecordCount(r.Context(), id, count)
	if errors.Is(err, model.ErrNotFound) {
		http.Error(w, "Dataset not found", http.StatusNotFound)
		return
	} else if err != nil {
		serverError(w, r, "update dataset", err)
		return
	}
	redirectFlash(w, r, "/datasets", "flash", "Dataset "+r.PathValue("id")+" updated")
}

func (h *Handlers) DeleteDataset(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid dataset id", http.StatusBadRequest)
		return
	}

	err = h.store.DeleteDataset(r.Context(), id)
	if errors.Is(err, model.ErrNotFound) {
		http.Error(w, "Dataset not found", http.StatusNotFound)
		return
	} else if err != nil {
		serverError(w, r, "delete dataset", err)
		return
	}
	redirectFlash(w, r, "/datasets", "flash", "Dataset "+r.PathValue("id")+" deleted")
}
