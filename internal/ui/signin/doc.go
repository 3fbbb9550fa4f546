// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package signin provides the sign-in and sign-up screen.
//
// The form validates locally before anything is sent; failures are shown
// beneath the offending field. Server rejections ("Invalid email or
// password", "User with this email already exists") are shown above the
// form. On success the screen emits AuthenticatedMsg; the session store has
// already been updated by then.
package signin
