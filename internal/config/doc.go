// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for docent.
//
// Configuration lives in ~/.docent/config.toml, with built-in defaults,
// .env files and DOCENT_* environment overrides layered on top.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - APIConfig: Backend location, timeouts and retry policy
//   - AuthConfig: Where the session token is persisted
//   - WatchConfig: Folder auto-upload behavior
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (DOCENT_*), including those set by .env files
//   - ~/.docent/config.toml
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	config.LoadEnvFiles()
//	cfg := config.Global()
//
// Change a setting:
//
//	if err := cfg.Set("api.base_url", "https://docent.example.com/api"); err != nil {
//	    return err
//	}
//	err := config.Save(cfg)
package config
