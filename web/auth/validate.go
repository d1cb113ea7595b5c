// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package auth

import (
	"errors"
	"unicode"
)

// ValidateUsername checks the username rules for new accounts.
func ValidateUsername(username string) error {
	n := len([]rune(username))
	if n < 3 {
		return errors.New("username must be at least 3 characters")
	}
	if n > 20 {
		return errors.New("username cannot exceed 20 characters")
	}
	for _, r := range username {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return errors.New("username may only contain letters and numbers")
		}
	}
	return nil
}

// ValidatePassword checks the strength rules for new passwords.
func ValidatePassword(password string) error {
	n := len([]rune(password))
	if n < 5 {
		return errors.New("password must be at least 5 characters")
	}
	if n > 50 {
		return errors.New("password cannot exceed 50 characters")
	}

	var hasDigit, hasUpper, hasLower bool
	for _, r := range password {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		}
	}
	if !hasDigit {
		return errors.New("password must contain at least one number")
	}
	if !hasUpper {
		return errors.New("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return errors.New("password must contain at least one lowercase letter")
	}
	return nil
}
