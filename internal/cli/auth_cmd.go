// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// auth_cmd.go - login, signup, logout and whoami.
//
// Examples:
//   docent login --email ada@example.com
//   docent signup
//   docent whoami --json
//   docent logout

package cli

import (
	"context"

	"github.com/jeranaias/docent-tui/internal/api"
	"github.com/jeranaias/docent-tui/internal/util"
	"github.com/jeranaias/docent-tui/internal/validate"
)

// Login signs in and persists the token.
func (e *Env) Login(ctx context.Context, args Args) error {
	p := NewArgParser(args.Raw)

	email := p.FirstFlag("email", "e")
	if email == "" {
		var err error
		if email, err = e.prompt("Email: "); err != nil {
			return err
		}
	}
	password, err := e.promptSecret("Password: ")
	if err != nil {
		return err
	}

	email = validate.NormalizeEmail(email)
	if errs := validate.SignIn(email, password); errs.Any() {
		return errs
	}

	user, err := e.Gate.SignIn(ctx, email, password)
	if err != nil {
		return err
	}
	return e.emit("login", user, func() {
		e.printf("%s Signed in as %s <%s>\n", SuccessStyle.Render("[OK]"), user.DisplayName(), user.Email)
	})
}

// Signup creates an account and signs it in.
func (e *Env) Signup(ctx context.Context, args Args) error {
	p := NewArgParser(args.Raw)

	var form validate.SignupForm
	var err error
	if form.Name = p.Flag("name"); form.Name == "" {
		if form.Name, err = e.prompt("Name: "); err != nil {
			return err
		}
	}
	if form.Email = p.FirstFlag("email", "e"); form.Email == "" {
		if form.Email, err = e.prompt("Email: "); err != nil {
			return err
		}
	}
	form.Email = validate.NormalizeEmail(form.Email)
	if form.Password, err = e.promptSecret("Password: "); err != nil {
		return err
	}
	if form.Confirm, err = e.promptSecret("Confirm password: "); err != nil {
		return err
	}

	if errs := validate.Signup(form); errs.Any() {
		return errs
	}

	user, err := e.Gate.SignUp(ctx, api.SignupRequest{
		Email:    form.Email,
		Password: form.Password,
		Name:     form.Name,
	})
	if err != nil {
		return err
	}
	return e.emit("signup", user, func() {
		e.printf("%s Account created. Signed in as %s <%s>\n", SuccessStyle.Render("[OK]"), user.DisplayName(), user.Email)
	})
}

// Logout forgets the stored credential. It never touches the network.
func (e *Env) Logout(_ context.Context, _ Args) error {
	e.Gate.SignOut()
	return e.emit("logout", MessageData{Message: "Signed out"}, func() {
		e.printf("Signed out.\n")
	})
}

// Whoami verifies the session and shows the profile from /auth/me.
func (e *Env) Whoami(ctx context.Context, _ Args) error {
	if _, err := e.requireSession(ctx); err != nil {
		return err
	}
	user, err := e.Gate.Refresh(ctx)
	if err != nil {
		return err
	}
	return e.emit("whoami", user, func() {
		e.field("Name", user.DisplayName())
		e.field("Email", user.Email)
		e.field("Member since", util.FormatTimestamp(user.CreatedAt))
		e.field("Backend", e.Client.BaseURL())
	})
}
