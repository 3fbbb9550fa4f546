// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package validate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/jeranaias/docent-tui/internal/catalog"
)

// Form field names.
const (
	FieldEmail    = "email"
	FieldPassword = "password"
	FieldConfirm  = "confirm"
	FieldCurrent  = "current_password"
	FieldName     = "name"
	FieldProvider = "provider"
	FieldModel    = "model"
)

// MinPasswordLength is the shortest password the backend accepts.
const MinPasswordLength = 8

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// =============================================================================
// ERRORS
// =============================================================================

// FieldError is one failed rule.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Errors collects the failures of a form. A nil Errors means valid.
type Errors []FieldError

func (e Errors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, len(e))
	for i, fe := range e {
		msgs[i] = fe.Message
	}
	return strings.Join(msgs, "; ")
}

// Any reports whether at least one rule failed.
func (e Errors) Any() bool { return len(e) > 0 }

// Field returns the first message for field, or "".
func (e Errors) Field(field string) string {
	for _, fe := range e {
		if fe.Field == field {
			return fe.Message
		}
	}
	return ""
}

// Err returns e as an error, or nil when empty.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

func (e *Errors) add(field, msg string) {
	if msg != "" {
		*e = append(*e, FieldError{Field: field, Message: msg})
	}
}

// =============================================================================
// RULES
// =============================================================================

// NormalizeEmail trims and lowercases an address the way the backend stores it.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Email returns a message when s is not a plausible address.
func Email(s string) string {
	s = NormalizeEmail(s)
	if s == "" {
		return "Email is required"
	}
	if !emailPattern.MatchString(s) {
		return "Invalid email address"
	}
	return ""
}

// Password returns a message when pw is too weak.
func Password(pw string) string {
	if pw == "" {
		return "Password is required"
	}
	if len([]rune(pw)) < MinPasswordLength {
		return fmt.Sprintf("Password must be at least %d characters long", MinPasswordLength)
	}
	var upper, lower, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	switch {
	case !upper:
		return "Password must contain at least one uppercase letter"
	case !lower:
		return "Password must contain at least one lowercase letter"
	case !digit:
		return "Password must contain at least one number"
	}
	return ""
}

// Confirm returns a message when the confirmation differs.
func Confirm(pw, confirm string) string {
	if pw != confirm {
		return "Passwords do not match"
	}
	return ""
}

// Name returns a message when the display name is blank.
func Name(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Name is required"
	}
	return ""
}

// =============================================================================
// FORMS
// =============================================================================

// SignupForm is the account creation form.
type SignupForm struct {
	Name     string
	Email    string
	Password string
	Confirm  string
}

// Signup checks every field of f.
func Signup(f SignupForm) Errors {
	var errs Errors
	errs.add(FieldName, Name(f.Name))
	errs.add(FieldEmail, Email(f.Email))
	errs.add(FieldPassword, Password(f.Password))
	if f.Password != "" {
		errs.add(FieldConfirm, Confirm(f.Password, f.Confirm))
	}
	return errs
}

// SignIn checks the login form. Password strength is not enforced here:
// accounts created under older rules must still be able to sign in.
func SignIn(email, password string) Errors {
	var errs Errors
	errs.add(FieldEmail, Email(email))
	if password == "" {
		errs.add(FieldPassword, "Password is required")
	}
	return errs
}

// PasswordChange checks a password update.
func PasswordChange(current, next, confirm string) Errors {
	var errs Errors
	if current == "" {
		errs.add(FieldCurrent, "Current password is required")
	}
	errs.add(FieldPassword, Password(next))
	if next != "" {
		errs.add(FieldConfirm, Confirm(next, confirm))
	}
	return errs
}

// LLMChoice checks a provider and optional model against the catalog and
// returns the normalised provider.
func LLMChoice(provider, model string) (catalog.Provider, Errors) {
	var errs Errors
	p, err := catalog.Parse(provider)
	if err != nil {
		errs.add(FieldProvider, err.Error())
		return "", errs
	}
	if model != "" && !catalog.Offers(p, model) {
		errs.add(FieldModel, fmt.Sprintf("%s does not offer model %q", p.Label(), model))
	}
	return p, errs
}
