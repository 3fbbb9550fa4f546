// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jeranaias/docent-tui/internal/catalog"
)

func TestEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ada@example.com", ""},
		{"  Ada@Example.COM ", ""},
		{"", "Email is required"},
		{"   ", "Email is required"},
		{"ada@", "Invalid email address"},
		{"ada.example.com", "Invalid email address"},
		{"ada@example.c", "Invalid email address"},
	}
	for _, tt := range tests {
		if got := Email(tt.in); got != tt.want {
			t.Errorf("Email(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Ada@Example.COM\n"); got != "ada@example.com" {
		t.Errorf("NormalizeEmail = %q, want %q", got, "ada@example.com")
	}
}

func TestPassword(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Secret123", ""},
		{"", "Password is required"},
		{"Ab1", "Password must be at least 8 characters long"},
		{"secret123", "Password must contain at least one uppercase letter"},
		{"SECRET123", "Password must contain at least one lowercase letter"},
		{"SecretPass", "Password must contain at least one number"},
	}
	for _, tt := range tests {
		if got := Password(tt.in); got != tt.want {
			t.Errorf("Password(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSignup(t *testing.T) {
	ok := SignupForm{Name: "Ada", Email: "ada@example.com", Password: "Secret123", Confirm: "Secret123"}
	assert.False(t, Signup(ok).Any())
	assert.NoError(t, Signup(ok).Err())

	bad := SignupForm{Name: " ", Email: "nope", Password: "Secret123", Confirm: "Secret124"}
	errs := Signup(bad)
	assert.Len(t, errs, 3)
	assert.Equal(t, "Name is required", errs.Field(FieldName))
	assert.Equal(t, "Invalid email address", errs.Field(FieldEmail))
	assert.Equal(t, "Passwords do not match", errs.Field(FieldConfirm))
	assert.Empty(t, errs.Field(FieldPassword))
	assert.Error(t, errs.Err())
}

func TestSignupEmptyPasswordSkipsConfirm(t *testing.T) {
	errs := Signup(SignupForm{Name: "Ada", Email: "ada@example.com", Confirm: "x"})
	assert.Equal(t, "Password is required", errs.Field(FieldPassword))
	assert.Empty(t, errs.Field(FieldConfirm))
}

func TestSignInDoesNotEnforceStrength(t *testing.T) {
	assert.False(t, SignIn("ada@example.com", "weak").Any())

	errs := SignIn("", "")
	assert.Equal(t, "Email is required", errs.Field(FieldEmail))
	assert.Equal(t, "Password is required", errs.Field(FieldPassword))
}

func TestPasswordChange(t *testing.T) {
	assert.False(t, PasswordChange("old", "Secret123", "Secret123").Any())

	errs := PasswordChange("", "short", "other")
	assert.Equal(t, "Current password is required", errs.Field(FieldCurrent))
	assert.Equal(t, "Password must be at least 8 characters long", errs.Field(FieldPassword))
	assert.Equal(t, "Passwords do not match", errs.Field(FieldConfirm))
}

func TestLLMChoice(t *testing.T) {
	p, errs := LLMChoice(" Groq ", "")
	assert.False(t, errs.Any())
	assert.Equal(t, catalog.Groq, p)

	_, errs = LLMChoice("openai", "gpt-4o")
	assert.False(t, errs.Any())

	_, errs = LLMChoice("mistral", "")
	assert.NotEmpty(t, errs.Field(FieldProvider))

	_, errs = LLMChoice("openai", "gemini-1.5-pro-latest")
	assert.Equal(t, `OpenAI does not offer model "gemini-1.5-pro-latest"`, errs.Field(FieldModel))
}

func TestErrorsMessage(t *testing.T) {
	var errs Errors
	if got := errs.Error(); got != "no validation errors" {
		t.Errorf("Error() = %q", got)
	}
	errs = Errors{{Field: FieldEmail, Message: "a"}, {Field: FieldName, Message: "b"}}
	if got := errs.Error(); got != "a; b" {
		t.Errorf("Error() = %q, want %q", got, "a; b")
	}
}
