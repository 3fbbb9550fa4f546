// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package validate holds the business rules checked on the client before a
// form is submitted to the backend.
//
// The sign-in screen and the CLI share these checks, so a bad password or a
// mismatched confirmation is reported inline without a round trip. Messages
// mirror the backend's wording.
//
// # Key Types
//
//   - FieldError: one failed rule attached to a form field
//   - Errors: the collected failures of a form, in field order
//
// # Usage
//
//	errs := validate.Signup(validate.SignupForm{Email: e, Password: p, Confirm: c, Name: n})
//	if errs.Any() {
//	    fmt.Println(errs.Field(validate.FieldPassword))
//	}
package validate
