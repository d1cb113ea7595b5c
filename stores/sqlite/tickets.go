// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/mdhender/mdip/model"
)

// InsertTicket inserts a ticket and returns its assigned row ID.
// A duplicate TicketID fails with model.ErrConstraint.
func (s *SQLiteStore) InsertTicket(ctx context.Context, t *model.Ticket) (int64, error) {
	const query = `
		INSERT INTO it_tickets (
			ticket_id, priority, status, category, subject, description,
			created_date, resolved_date, assigned_to
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query,
		nullString(t.TicketID),
		nullString(t.Priority),
		nullString(t.Status),
		nullString(t.Category),
		nullString(t.Subject),
		nullString(t.Description),
		nullString(t.CreatedDate),
		nullString(t.ResolvedDate),
		nullString(t.AssignedTo),
	)
	if err != nil {
		return 0, storeError("insert ticket", err)
	}
	return result.LastInsertId()
}

// ListTickets returns tickets newest first, narrowed by filter.
func (s *SQLiteStore) ListTickets(ctx context.Context, filter model.TicketFilter) ([]model.Ticket, error) {
	var where []string
	var args []any
	if filter.Priority != "" {
		where, args = append(where, "priority = ?"), append(args, filter.Priority)
	}
	if filter.Status != "" {
		where, args = append(where, "status = ?"), append(args, filter.Status)
	}
	if filter.Category != "" {
		where, args = append(where, "category = ?"), append(args, filter.Category)
	}

	query := `
		SELECT id, ticket_id, priority, status, category, subject, description,
		       created_date, resolved_date, assigned_to
		FROM it_tickets`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tickets: %w", err)
	}
	defer rows.Close()

	var tickets []model.Ticket
	for rows.Next() {
		var t model.Ticket
		var ticketID, priority, status, category, subject, desc, created, resolved, assigned sql.NullString
		if err := rows.Scan(&t.ID, &ticketID, &priority, &status, &category, &subject, &desc, &created, &resolved, &assigned); err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		t.TicketID = ticketID.String
		t.Priority = priority.String
		t.Status = status.String
		t.Category = category.String
		t.Subject = subject.String
		t.Description = desc.String
		t.CreatedDate = created.String
		t.ResolvedDate = resolved.String
		t.AssignedTo = assigned.String
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

// UpdateTicketStatus sets the status of the ticket with the given business key.
func (s *SQLiteStore) UpdateTicketStatus(ctx context.Context, ticketID, status string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE it_tickets SET status = ? WHERE ticket_id = ?`, status, ticketID)
	if err != nil {
		return storeError("update ticket", err)
	}
	return expectOne(result, "update ticket", ticketID)
}

// DeleteTicket removes the ticket with the given business key.
func (s *SQLiteStore) DeleteTicket(ctx context.Context, ticketID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM it_tickets WHERE ticket_id = ?`, ticketID)
	if err != nil {
		return storeError("delete ticket", err)
	}
	return expectOne(result, "delete ticket", ticketID)
}

// TicketSummary returns the headline numbers. Resolution time is averaged
// over Resolved tickets with both dates, in whole days per ticket.
func (s *SQLiteStore) TicketSummary(ctx context.Context) (model.TicketSummary, error) {
	const query = `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN status = 'Open' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN priority = 'High' THEN 1 ELSE 0 END), 0),
		       AVG(CASE WHEN status = 'Resolved'
		                THEN CAST(julianday(resolved_date) - julianday(created_date) AS INTEGER)
		           END)
		FROM it_tickets
	`
	var sum model.TicketSummary
	var avg sql.NullFloat64
	if err := s.db.QueryRowContext(ctx, query).Scan(&sum.Total, &sum.Open, &sum.HighPriority, &avg); err != nil {
		return sum, fmt.Errorf("ticket summary: %w", err)
	}
	if avg.Valid {
		sum.AvgResolutionDays = &avg.Float64
	}
	return sum, nil
}

// TicketsByPriority counts tickets per priority.
func (s *SQLiteStore) TicketsByPriority(ctx context.Context) ([]model.Count, error) {
	return s.counts(ctx, "tickets by priority", `
		SELECT priority, COUNT(*) AS count
		FROM it_tickets
		GROUP BY priority
		ORDER BY count DESC, priority
	`)
}

// TicketsByStatus counts tickets per status.
func (s *SQLiteStore) TicketsByStatus(ctx context.Context) ([]model.Count, error) {
	return s.counts(ctx, "tickets by status", `
		SELECT status, COUNT(*) AS count
		FROM it_tickets
		GROUP BY status
		ORDER BY count DESC, status
	`)
}

// TicketFilterOptions returns the distinct priorities, statuses and categories present.
func (s *SQLiteStore) TicketFilterOptions(ctx context.Context) (priorities, statuses, categories []string, err error) {
	if priorities, err = s.distinct(ctx, model.TableITTickets, "priority"); err != nil {
		return nil, nil, nil, err
	}
	if statuses, err = s.distinct(ctx, model.TableITTickets, "status"); err != nil {
		return nil, nil, nil, err
	}
	if categories, err = s.distinct(ctx, model.TableITTickets, "category"); err != nil {
		return nil, nil, nil, err
	}
	return priorities, statuses, categories, nil
}
