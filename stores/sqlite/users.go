// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package store

import (
	"bufio"
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/mdhender/mdip/model"
	"github.com/mdhender/mdip/web/auth"
	"github.com/spf13/afero"
)

// GetUserByUsername returns the user or nil if there is no such user.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	const query = `SELECT id, username, password_hash, role FROM users WHERE username = ?`

	var u model.User
	var role sql.NullString
	err := s.db.QueryRowContext(ctx, query, username).Scan(&u.ID, &u.Username, &u.PasswordHash, &role)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.Role = role.String
	if u.Role == "" {
		u.Role = model.DefaultRole
	}
	return &u, nil
}

// InsertUser inserts a user and returns its assigned ID.
func (s *SQLiteStore) InsertUser(ctx context.Context, u *model.User) (int64, error) {
	role := u.Role
	if role == "" {
		role = model.DefaultRole
	}
	const query = `INSERT INTO users (username, password_hash, role) VALUES (?, ?, ?)`
	result, err := s.db.ExecContext(ctx, query, u.Username, u.PasswordHash, role)
	if err != nil {
		return 0, storeError("insert user", err)
	}
	return result.LastInsertId()
}

// ListUsers returns all users ordered by ID.
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, username, password_hash, role FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		var role sql.NullString
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &role); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.Role = role.String
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdatePasswordHash replaces the stored hash for the user with the given ID.
func (s *SQLiteStore) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, hash, id)
	if err != nil {
		return storeError("update password", err)
	}
	n, err := rowsAffected(result, "update password")
	if err != nil {
		return err
	} else if n == 0 {
		return fmt.Errorf("update password: user %d: %w", id, model.ErrNotFound)
	}
	return nil
}

// RegisterUser hashes password and creates the account.
// Returns model.ErrUserExists if the username is taken.
func (s *SQLiteStore) RegisterUser(ctx context.Context, username, password, role string, cost int) (*model.User, error) {
	existing, err := s.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	} else if existing != nil {
		return nil, model.ErrUserExists
	}

	hash, err := auth.HashPasswordWithCost(password, cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &model.User{Username: username, PasswordHash: hash, Role: role}
	id, err := s.InsertUser(ctx, u)
	if errors.Is(err, model.ErrConstraint) {
		return nil, model.ErrUserExists
	} else if err != nil {
		return nil, err
	}
	u.ID = id
	if u.Role == "" {
		u.Role = model.DefaultRole
	}
	return u, nil
}

// ValidateCredentials checks username/password and returns an auth.User if valid.
// Returns nil, nil when the user does not exist or the password does not match.
func (s *SQLiteStore) ValidateCredentials(ctx context.Context, username, password string) (*auth.User, error) {
	u, err := s.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, nil
	}

	if !auth.CheckPassword(password, u.PasswordHash) {
		return nil, nil
	}

	return &auth.User{
		ID:       u.ID,
		Username: u.Username,
		Role:     u.Role,
	}, nil
}

// ChangePassword verifies the current password and stores a hash of the new one.
// Returns model.ErrInvalidCredentials if current does not match.
func (s *SQLiteStore) ChangePassword(ctx context.Context, username, current, next string, cost int) error {
	u, err := s.GetUserByUsername(ctx, username)
	if err != nil {
		return err
	} else if u == nil {
		return fmt.Errorf("change password: user %q: %w", username, model.ErrNotFound)
	}
	if !auth.CheckPassword(current, u.PasswordHash) {
		return model.ErrInvalidCredentials
	}

	hash, err := auth.HashPasswordWithCost(next, cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.UpdatePasswordHash(ctx, u.ID, hash)
}

// ImportUsersFile migrates accounts from a users.txt file.
// Each line is "username,bcrypt-hash". Existing usernames and malformed
// lines are skipped. Returns the number of users added.
func (s *SQLiteStore) ImportUsersFile(ctx context.Context, fs afero.Fs, path string) (int, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return 0, fmt.Errorf("read users file: %w", err)
	}

	migrated := 0
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		username, hash, ok := strings.Cut(line, ",")
		username, hash = strings.TrimSpace(username), strings.TrimSpace(hash)
		if !ok || username == "" || !auth.IsHash(hash) {
			log.Printf("store: %s:%d: skipping malformed line", path, lineNo)
			continue
		}

		existing, err := s.GetUserByUsername(ctx, username)
		if err != nil {
			return migrated, err
		} else if existing != nil {
			continue
		}

		if _, err := s.InsertUser(ctx, &model.User{Username: username, PasswordHash: hash}); err != nil {
			return migrated, fmt.Errorf("insert user %s: %w", username, err)
		}
		migrated++
	}
	if err := scanner.Err(); err != nil {
		return migrated, fmt.Errorf("scan users file: %w", err)
	}

	return migrated, nil
}
