// Copyright (c) 2025 Michael D Henderson. All rights reserved.

// Package templates renders the dashboard pages as templ components.
//
// The *_templ.go files are generated from the .templ sources; run
// "templ generate" after editing a .templ file.
package templates

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/mdhender/mdip/model"
)

//go:generate templ generate

// LayoutData is shared by every page.
type LayoutData struct {
	Title       string
	CurrentPath string
	Username    string
	Role        string
	Version     string
	Flash       string
	Error       string
}

// titled returns a copy of d for the page called title.
func (d LayoutData) titled(title string) LayoutData {
	d.Title = title
	return d
}

func (d LayoutData) failed(msg string) LayoutData {
	d.Error = msg
	return d
}

func (d LayoutData) fullTitle() string {
	if d.Title == "" {
		return "Intelligence Platform"
	}
	return d.Title + " - Intelligence Platform"
}

func (d LayoutData) signedIn() string {
	return fmt.Sprintf("Logged in as: %s | Role: %s |", d.Username, d.Role)
}

var navItems = []struct{ Path, Label string }{
	{"/dashboard", "Dashboard"},
	{"/incidents", "Cybersecurity"},
	{"/datasets", "Data Science"},
	{"/tickets", "IT Operations"},
	{"/upload", "Upload"},
	{"/settings", "Settings"},
}

// Choices offered by the incident forms.
var (
	Severities     = []string{"Low", "Medium", "High", "Critical"}
	IncidentStatus = []string{"Open", "In Progress", "Resolved", "Closed"}
	IncidentTypes  = []string{"Phishing", "Malware", "DDoS", "Misconfiguration", "Unauthorized Access"}
)

// Choices offered by the ticket forms.
var (
	Priorities     = []string{"Low", "Medium", "High", "Critical"}
	TicketStatus   = []string{"Open", "In Progress", "Resolved", "Closed"}
	TicketCategory = []string{"Hardware", "Software", "Network", "Access", "Other"}
)

type DashboardData struct {
	Incidents model.IncidentSummary
	Datasets  model.DatasetSummary
	Tickets   model.TicketSummary
	Loads     []model.LoadRecord
}

type IncidentsData struct {
	Filter     model.IncidentFilter
	Severities []string
	Statuses   []string
	Types      []string
	Incidents  []model.Incident
	Summary    model.IncidentSummary

	BySeverity   []model.Count
	ByStatus     []model.Count
	ByType       []model.Count
	HighByStatus []model.Count
	ManyCases    []model.Count
	ManyCasesMin int
	ByMonth      []model.Count
}

type DatasetsData struct {
	Category   string
	Categories []string
	Datasets   []model.Dataset
	Summary    model.DatasetSummary
	ByCategory []model.Count
	BySource   []model.Count
}

type TicketsData struct {
	Filter     model.TicketFilter
	Priorities []string
	Statuses   []string
	Categories []string
	Tickets    []model.Ticket
	Summary    model.TicketSummary
	ByPriority []model.Count
	ByStatus   []model.Count
}

type SettingsData struct {
	Username  string
	Role      string
	Version   string
	GoVersion string
	OS        string
	Arch      string
}

type UploadData struct {
	Tables   []model.Table
	Selected model.Table
	// Result is the report line of the last load, if any.
	Result   string
	Messages []string
	Loads    []model.LoadRecord
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

func megabytes(mb float64) string {
	return fmt.Sprintf("%.1f MB", mb)
}

func avgDays(avg *float64) string {
	if avg == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.1f", *avg)
}

func manyCasesTitle(min int) string {
	return fmt.Sprintf("Types with more than %d cases", min)
}

// rowPath is the base path of the actions on one row of a table page.
func rowPath(page string, id int64) string {
	return "/" + page + "/" + itoa(id)
}

// ticketPath escapes the business key so ids like "T 1/2" stay one segment.
func ticketPath(ticketID string) string {
	return "/tickets/" + url.PathEscape(ticketID)
}

func tableNames(tables []model.Table) []string {
	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = string(t)
	}
	return names
}

// withCurrent returns options plus current when current is not already listed.
func withCurrent(options []string, current string) []string {
	if current == "" {
		return options
	}
	for _, o := range options {
		if o == current {
			return options
		}
	}
	return append(append([]string{}, options...), current)
}
