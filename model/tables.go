// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package model

import (
	"errors"
	"fmt"
)

// Table identifies one of the application's tables.
type Table string

const (
	TableUsers          Table = "users"
	TableCyberIncidents Table = "cyber_incidents"
	TableDatasets       Table = "datasets_metadata"
	TableITTickets      Table = "it_tickets"
	TableLoadHistory    Table = "load_history"
)

// LoadableTables are the tables that accept CSV loads, in seed order.
var LoadableTables = []Table{
	TableUsers,
	TableCyberIncidents,
	TableDatasets,
	TableITTickets,
}

// ParseTable returns the Table named by s.
// Only tables that accept CSV loads are recognized.
func ParseTable(s string) (Table, error) {
	for _, t := range LoadableTables {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown table %q", s)
}

func (t Table) String() string {
	return string(t)
}

var (
	// ErrNotFound is returned when a keyed row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConstraint is wrapped around store errors caused by a
	// UNIQUE, NOT NULL or other constraint failure.
	ErrConstraint = errors.New("constraint violation")
	// ErrUserExists is returned when registering a taken username.
	ErrUserExists = errors.New("username already exists")
	// ErrInvalidCredentials is returned when a password does not match.
	ErrInvalidCredentials = errors.New("invalid username or password")
)
