// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package model

import (
	"time"
)

// User is an account that can sign in to the dashboard.
type User struct {
	ID           int64  `json:"id"           db:"id"`
	Username     string `json:"username"     db:"username"`
	PasswordHash string `json:"-"            db:"password_hash"`
	Role         string `json:"role"         db:"role"`
}

const DefaultRole = "user"

// Incident is one row of cyber_incidents.
// Date is kept as the text SQLite stores (usually YYYY-MM-DD).
type Incident struct {
	ID           int64  `json:"id"           db:"id"`
	Date         string `json:"date"         db:"date"`
	IncidentType string `json:"incidentType" db:"incident_type"`
	Severity     string `json:"severity"     db:"severity"`
	Status       string `json:"status"       db:"status"`
	Description  string `json:"description"  db:"description"`
	ReportedBy   string `json:"reportedBy"   db:"reported_by"` // empty when NULL
}

// Dataset is one row of datasets_metadata.
type Dataset struct {
	ID          int64   `json:"id"          db:"id"`
	Name        string  `json:"name"        db:"dataset_name"`
	Category    string  `json:"category"    db:"category"`
	Source      string  `json:"source"      db:"source"`
	LastUpdated string  `json:"lastUpdated" db:"last_updated"`
	RecordCount int64   `json:"recordCount" db:"record_count"`
	FileSizeMB  float64 `json:"fileSizeMb"  db:"file_size_mb"`
}

// Ticket is one row of it_tickets.
// TicketID is the business key ("T-100"); ID is the row identity.
type Ticket struct {
	ID           int64  `json:"id"           db:"id"`
	TicketID     string `json:"ticketId"     db:"ticket_id"`
	Priority     string `json:"priority"     db:"priority"`
	Status       string `json:"status"       db:"status"`
	Category     string `json:"category"     db:"category"`
	Subject      string `json:"subject"      db:"subject"`
	Description  string `json:"description"  db:"description"`
	CreatedDate  string `json:"createdDate"  db:"created_date"`
	ResolvedDate string `json:"resolvedDate" db:"resolved_date"`
	AssignedTo   string `json:"assignedTo"   db:"assigned_to"`
}

// LoadRecord is the history entry written for every CSV load.
type LoadRecord struct {
	ID                string    `json:"id"                db:"id"`
	Table             Table     `json:"table"             db:"table_name"`
	Source            string    `json:"source"            db:"source"`
	RowsRead          int       `json:"rowsRead"          db:"rows_read"`
	RowsWritten       int       `json:"rowsWritten"       db:"rows_written"`
	DuplicatesDropped int       `json:"duplicatesDropped" db:"duplicates_dropped"`
	ExistingSkipped   int       `json:"existingSkipped"   db:"existing_skipped"`
	ReferencesNulled  int       `json:"referencesNulled"  db:"references_nulled"`
	Status            string    `json:"status"            db:"status"`
	Message           string    `json:"message"           db:"message"`
	CreatedAt         time.Time `json:"createdAt"         db:"created_at"`
}

// Load statuses.
const (
	LoadStatusLoaded  = "loaded"
	LoadStatusEmpty   = "empty"
	LoadStatusMissing = "missing"
	LoadStatusFailed  = "failed"
)

// Count is a label with a row count, used by the aggregate queries.
type Count struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// IncidentFilter narrows ListIncidents. Empty fields match everything.
type IncidentFilter struct {
	Severity     string
	Status       string
	IncidentType string
}

// IncidentSummary holds the headline numbers for the cybersecurity page.
type IncidentSummary struct {
	Total        int64
	HighSeverity int64
	Open         int64
	Resolved     int64
}

// DatasetSummary holds the headline numbers for the data science page.
type DatasetSummary struct {
	Total        int64
	TotalRecords int64
	TotalSizeMB  float64
	Categories   int64
}

// TicketFilter narrows ListTickets. Empty fields match everything.
type TicketFilter struct {
	Priority string
	Status   string
	Category string
}

// TicketSummary holds the headline numbers for the IT operations page.
type TicketSummary struct {
	Total        int64
	Open         int64
	HighPriority int64
	// AvgResolutionDays is nil when no ticket has both dates.
	AvgResolutionDays *float64
}
