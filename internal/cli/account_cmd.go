// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// account_cmd.go - Profile, password, LLM settings and account deletion.
//
// Examples:
//   docent account
//   docent account llm --provider groq --groq-key -
//   docent account llm --openai-key ""        (clears the key)
//   docent account profile --name "Ada Lovelace"
//   docent account password
//   docent account delete --confirm

package cli

import (
	"context"
	"strings"

	"github.com/jeranaias/docent-tui/internal/api"
	"github.com/jeranaias/docent-tui/internal/catalog"
	"github.com/jeranaias/docent-tui/internal/util"
	"github.com/jeranaias/docent-tui/internal/validate"
)

var accountSubcommands = []string{"show", "llm", "profile", "password", "delete"}

// Account routes the account subcommands.
func (e *Env) Account(ctx context.Context, args Args) error {
	p := NewArgParser(args.Raw, "confirm")

	if _, err := e.requireSession(ctx); err != nil {
		return err
	}

	switch p.Subcommand() {
	case "", "show":
		return e.accountShow(ctx)
	case "llm":
		return e.accountLLM(ctx, p)
	case "profile":
		return e.accountProfile(ctx, p)
	case "password":
		return e.accountPassword(ctx)
	case "delete":
		return e.accountDelete(ctx, p)
	default:
		return ErrUnknownSubcommand("account", p.Subcommand(), accountSubcommands)
	}
}

func (e *Env) accountShow(ctx context.Context) error {
	acct, err := e.Client.Account(ctx)
	if err != nil {
		return err
	}
	return e.emit("account", acct, func() {
		e.printf("%s\n", TitleStyle.Render("Profile"))
		e.field("Name", acct.User.DisplayName())
		e.field("Email", acct.User.Email)
		e.field("Member since", util.FormatTimestamp(acct.User.CreatedAt))
		e.printLLM(acct.LLM)
	})
}

// printLLM shows the defaults and which providers have a key.
func (e *Env) printLLM(s api.LLMSettings) {
	e.printf("%s\n", SectionStyle.Render("LLM"))
	provider := s.PreferredProvider
	if p, err := catalog.Parse(provider); err == nil {
		provider = p.Label()
		e.field("Provider", provider)
		e.field("Model", catalog.ModelLabel(p, s.ModelName))
	} else {
		e.field("Provider", provider)
		e.field("Model", s.ModelName)
	}
	configured := s.ConfiguredMap()
	for _, p := range catalog.Providers() {
		status := "not configured"
		if configured[string(p)] {
			status = "configured"
		}
		e.field(p.Label()+" key", RenderStatus(status)+" "+status)
	}
}

// keyFlag is the flag that sets provider's API key.
func keyFlag(p catalog.Provider) string {
	return string(p) + "-key"
}

func (e *Env) accountLLM(ctx context.Context, p *ArgParser) error {
	provider := strings.TrimSpace(p.Flag("provider"))
	model := strings.TrimSpace(p.Flag("model"))

	var upd api.LLMUpdate
	changed := false

	if provider != "" || model != "" {
		name := provider
		if name == "" {
			// A bare --model is checked against the current provider.
			acct, err := e.Client.Account(ctx)
			if err != nil {
				return err
			}
			name = acct.LLM.PreferredProvider
		}
		prov, errs := validate.LLMChoice(name, model)
		if errs.Any() {
			return errs
		}
		if provider != "" {
			upd.Provider = string(prov)
			if model == "" {
				model = catalog.DefaultModel(prov).ID
			}
		}
		upd.ModelName = model
		changed = true
	}

	for _, prov := range catalog.Providers() {
		flag := keyFlag(prov)
		if !p.HasFlag(flag) {
			continue
		}
		key := p.Flag(flag)
		if key == "-" {
			var err error
			if key, err = e.promptSecret(prov.Label() + " API key (empty clears): "); err != nil {
				return err
			}
		}
		upd.SetKey(string(prov), strings.TrimSpace(key))
		changed = true
	}

	if !changed {
		return ErrMissingArgument("setting", "docent account llm --provider groq --groq-key -")
	}

	settings, err := e.Client.UpdateLLM(ctx, upd)
	if err != nil {
		return err
	}
	return e.emit("account llm", settings, func() {
		e.printf("%s LLM settings updated\n", SuccessStyle.Render("[OK]"))
		e.printLLM(*settings)
	})
}

func (e *Env) accountProfile(ctx context.Context, p *ArgParser) error {
	name := p.Flag("name")
	email := p.FirstFlag("email", "e")
	if name == "" && email == "" {
		return ErrMissingArgument("--name or --email", `docent account profile --name "Ada Lovelace"`)
	}

	// Fields not given keep their current value.
	acct, err := e.Client.Account(ctx)
	if err != nil {
		return err
	}
	if name == "" {
		name = acct.User.Name
	}
	if email == "" {
		email = acct.User.Email
	}
	email = validate.NormalizeEmail(email)

	var errs validate.Errors
	if msg := validate.Name(name); msg != "" {
		errs = append(errs, validate.FieldError{Field: validate.FieldName, Message: msg})
	}
	if msg := validate.Email(email); msg != "" {
		errs = append(errs, validate.FieldError{Field: validate.FieldEmail, Message: msg})
	}
	if errs.Any() {
		return errs
	}

	user, err := e.Client.UpdateProfile(ctx, api.ProfileUpdate{Name: strings.TrimSpace(name), Email: email})
	if err != nil {
		return err
	}
	if _, err := e.Gate.Refresh(ctx); err != nil {
		return err
	}
	return e.emit("account profile", user, func() {
		e.printf("%s Profile updated: %s <%s>\n", SuccessStyle.Render("[OK]"), user.DisplayName(), user.Email)
	})
}

func (e *Env) accountPassword(ctx context.Context) error {
	current, err := e.promptSecret("Current password: ")
	if err != nil {
		return err
	}
	next, err := e.promptSecret("New password: ")
	if err != nil {
		return err
	}
	confirm, err := e.promptSecret("Confirm new password: ")
	if err != nil {
		return err
	}
	if errs := validate.PasswordChange(current, next, confirm); errs.Any() {
		return errs
	}

	msg, err := e.Client.UpdatePassword(ctx, api.PasswordUpdate{CurrentPassword: current, NewPassword: next})
	if err != nil {
		return err
	}
	return e.emit("account password", MessageData{Message: msg}, func() {
		e.printf("%s %s\n", SuccessStyle.Render("[OK]"), msg)
	})
}

func (e *Env) accountDelete(ctx context.Context, p *ArgParser) error {
	if !p.BoolFlag("confirm") {
		return NewValidationErrorWithExample("confirmation", "",
			"deleting an account removes all documents and history; pass --confirm",
			"docent account delete --confirm")
	}
	password, err := e.promptSecret("Password: ")
	if err != nil {
		return err
	}
	if password == "" {
		return validate.Errors{{Field: validate.FieldPassword, Message: "Password is required"}}
	}

	msg, err := e.Client.DeleteAccount(ctx, password)
	if err != nil {
		return err
	}
	e.Gate.SignOut()
	return e.emit("account delete", MessageData{Message: msg}, func() {
		e.printf("%s %s\n", SuccessStyle.Render("[OK]"), msg)
	})
}
