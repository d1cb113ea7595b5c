// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/mdhender/mdip/model"
	store "github.com/mdhender/mdip/stores/sqlite"
	"github.com/mdhender/mdip/web/auth"
	"github.com/spf13/afero"
)

func newStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore()
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRegisterUser(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	u, err := s.RegisterUser(ctx, "alice", "Secret1", "", auth.MinCost)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.ID == 0 || u.Role != model.DefaultRole {
		t.Errorf("expected id and default role, got %+v", u)
	}

	if _, err := s.RegisterUser(ctx, "alice", "Other1x", "", auth.MinCost); !errors.Is(err, model.ErrUserExists) {
		t.Errorf("expected ErrUserExists, got %v", err)
	}

	got, err := s.ValidateCredentials(ctx, "alice", "Secret1")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got == nil || got.Username != "alice" {
		t.Errorf("expected alice to authenticate, got %+v", got)
	}

	got, err = s.ValidateCredentials(ctx, "alice", "secret1")
	if err != nil || got != nil {
		t.Errorf("expected wrong password to be rejected, got %+v, %v", got, err)
	}
	got, err = s.ValidateCredentials(ctx, "nobody", "Secret1")
	if err != nil || got != nil {
		t.Errorf("expected unknown user to be rejected, got %+v, %v", got, err)
	}
}

func TestGetUserByUsername_Missing(t *testing.T) {
	s := newStore(t)

	u, err := s.GetUserByUsername(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u != nil {
		t.Errorf("expected nil user, got %+v", u)
	}
}

func TestInsertUser_Constraint(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	if _, err := s.InsertUser(ctx, &model.User{Username: "bob", PasswordHash: "x"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	_, err := s.InsertUser(ctx, &model.User{Username: "bob", PasswordHash: "y"})
	if !errors.Is(err, model.ErrConstraint) {
		t.Errorf("expected ErrConstraint, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	if _, err := s.RegisterUser(ctx, "carol", "Start1x", "", auth.MinCost); err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := s.ChangePassword(ctx, "carol", "wrong", "Next2xx", auth.MinCost); !errors.Is(err, model.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	if err := s.ChangePassword(ctx, "carol", "Start1x", "Next2xx", auth.MinCost); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if u, _ := s.ValidateCredentials(ctx, "carol", "Next2xx"); u == nil {
		t.Error("expected new password to authenticate")
	}
	if err := s.ChangePassword(ctx, "ghost", "a", "b", auth.MinCost); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := s.UpdatePasswordHash(ctx, 999, "x"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestImportUsersFile(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	hash, err := auth.HashPasswordWithCost("Secret1", auth.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if _, err := s.InsertUser(ctx, &model.User{Username: "alice", PasswordHash: hash}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	fs := afero.NewMemMapFs()
	content := "alice," + hash + "\n" +
		"bob," + hash + "\n" +
		"\n" +
		"no-comma-here\n" +
		"dave,not-a-hash\n" +
		" erin , " + hash + "\n"
	if err := afero.WriteFile(fs, "/data/users.txt", []byte(content), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	n, err := s.ImportUsersFile(ctx, fs, "/data/users.txt")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 migrated, got %d", n)
	}

	users, err := s.ListUsers(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var names []string
	for _, u := range users {
		names = append(names, u.Username)
	}
	if len(names) != 3 || names[1] != "bob" || names[2] != "erin" {
		t.Errorf("expected [alice bob erin], got %v", names)
	}
	if u, _ := s.ValidateCredentials(ctx, "erin", "Secret1"); u == nil {
		t.Error("expected migrated user to authenticate")
	}

	if _, err := s.ImportUsersFile(ctx, fs, "/data/missing.txt"); err == nil {
		t.Error("expected error for missing file")
	}
}
