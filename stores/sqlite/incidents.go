// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/mdhender/mdip/model"
)

// InsertIncident inserts an incident and returns its assigned ID.
// An empty ReportedBy is stored as NULL.
func (s *SQLiteStore) InsertIncident(ctx context.Context, inc *model.Incident) (int64, error) {
	const query = `
		INSERT INTO cyber_incidents (date, incident_type, severity, status, description, reported_by)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query,
		nullString(inc.Date),
		nullString(inc.IncidentType),
		nullString(inc.Severity),
		nullString(inc.Status),
		nullString(inc.Description),
		nullString(inc.ReportedBy),
	)
	if err != nil {
		return 0, storeError("insert incident", err)
	}
	return result.LastInsertId()
}

// ListIncidents returns incidents newest first, narrowed by filter.
func (s *SQLiteStore) ListIncidents(ctx context.Context, filter model.IncidentFilter) ([]model.Incident, error) {
	var where []string
	var args []any
	if filter.Severity != "" {
		where, args = append(where, "severity = ?"), append(args, filter.Severity)
	}
	if filter.Status != "" {
		where, args = append(where, "status = ?"), append(args, filter.Status)
	}
	if filter.IncidentType != "" {
		where, args = append(where, "incident_type = ?"), append(args, filter.IncidentType)
	}

	query := `SELECT id, date, incident_type, severity, status, description, reported_by FROM cyber_incidents`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query incidents: %w", err)
	}
	defer rows.Close()

	var incidents []model.Incident
	for rows.Next() {
		var inc model.Incident
		var date, kind, severity, status, desc, reportedBy sql.NullString
		if err := rows.Scan(&inc.ID, &date, &kind, &severity, &status, &desc, &reportedBy); err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		inc.Date = date.String
		inc.IncidentType = kind.String
		inc.Severity = severity.String
		inc.Status = status.String
		inc.Description = desc.String
		inc.ReportedBy = reportedBy.String
		incidents = append(incidents, inc)
	}
	return incidents, rows.Err()
}

// UpdateIncidentStatus sets the status of one incident.
func (s *SQLiteStore) UpdateIncidentStatus(ctx context.Context, id int64, status string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE cyber_incidents SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return storeError("update incident", err)
	}
	return expectOne(result, "update incident", id)
}

// DeleteIncident removes one incident.
func (s *SQLiteStore) DeleteIncident(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM cyber_incidents WHERE id = ?`, id)
	if err != nil {
		return storeError("delete incident", err)
	}
	return expectOne(result, "delete incident", id)
}

// IncidentSummary returns the headline counts.
func (s *SQLiteStore) IncidentSummary(ctx context.Context) (model.IncidentSummary, error) {
	const query = `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN severity = 'High' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN status = 'Open' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN status = 'Resolved' THEN 1 ELSE 0 END), 0)
		FROM cyber_incidents
	`
	var sum model.IncidentSummary
	if err := s.db.QueryRowContext(ctx, query).Scan(&sum.Total, &sum.HighSeverity, &sum.Open, &sum.Resolved); err != nil {
		return sum, fmt.Errorf("incident summary: %w", err)
	}
	return sum, nil
}

// IncidentsByType counts incidents per type, largest first.
func (s *SQLiteStore) IncidentsByType(ctx context.Context) ([]model.Count, error) {
	return s.counts(ctx, "incidents by type", `
		SELECT incident_type, COUNT(*) AS count
		FROM cyber_incidents
		GROUP BY incident_type
		ORDER BY count DESC, incident_type
	`)
}

// HighSeverityByStatus counts High severity incidents per status.
func (s *SQLiteStore) HighSeverityByStatus(ctx context.Context) ([]model.Count, error) {
	return s.counts(ctx, "high severity by status", `
		SELECT status, COUNT(*) AS count
		FROM cyber_incidents
		WHERE severity = 'High'
		GROUP BY status
		ORDER BY count DESC, status
	`)
}

// IncidentTypesWithManyCases returns the types with more than minCount incidents.
func (s *SQLiteStore) IncidentTypesWithManyCases(ctx context.Context, minCount int) ([]model.Count, error) {
	return s.counts(ctx, "incident types with many cases", `
		SELECT incident_type, COUNT(*) AS count
		FROM cyber_incidents
		GROUP BY incident_type
		HAVING COUNT(*) > ?
		ORDER BY count DESC, incident_type
	`, minCount)
}

// IncidentsBySeverity counts incidents per severity.
func (s *SQLiteStore) IncidentsBySeverity(ctx context.Context) ([]model.Count, error) {
	return s.counts(ctx, "incidents by severity", `
		SELECT severity, COUNT(*) AS count
		FROM cyber_incidents
		GROUP BY severity
		ORDER BY count DESC, severity
	`)
}

// IncidentsByStatus counts incidents per status.
func (s *SQLiteStore) IncidentsByStatus(ctx context.Context) ([]model.Count, error) {
	return s.counts(ctx, "incidents by status", `
		SELECT status, COUNT(*) AS count
		FROM cyber_incidents
		GROUP BY status
		ORDER BY count DESC, status
	`)
}

// IncidentsByMonth counts dated incidents per YYYY-MM, oldest first.
func (s *SQLiteStore) IncidentsByMonth(ctx context.Context) ([]model.Count, error) {
	return s.counts(ctx, "incidents by month", `
		SELECT strftime('%Y-%m', date) AS month, COUNT(*) AS count
		FROM cyber_incidents
		WHERE strftime('%Y-%m', date) IS NOT NULL
		GROUP BY month
		ORDER BY month
	`)
}

// IncidentFilterOptions returns the distinct severities, statuses and types
// present, for building filter controls.
func (s *SQLiteStore) IncidentFilterOptions(ctx context.Context) (severities, statuses, types []string, err error) {
	if severities, err = s.distinct(ctx, model.TableCyberIncidents, "severity"); err != nil {
		return nil, nil, nil, err
	}
	if statuses, err = s.distinct(ctx, model.TableCyberIncidents, "status"); err != nil {
		return nil, nil, nil, err
	}
	if types, err = s.distinct(ctx, model.TableCyberIncidents, "incident_type"); err != nil {
		return nil, nil, nil, err
	}
	return severities, statuses, types, nil
}
