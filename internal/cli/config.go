// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - Config command implementation for docent.
//
// Command: config [subcommand]
// Short:   View and modify configuration
//
// Subcommands:
//   show (default)      Display the effective configuration
//   get <key>           Print one value
//   set <key> <value>   Set a value in ~/.docent/config.toml
//   reset               Reset the file to defaults
//   path                Show configuration file location
//
// Examples:
//   docent config
//   docent config get api.base_url
//   docent config set api.base_url http://localhost:5000/api
//   docent config set chat.provider groq
//   docent config set watch.extensions pdf,txt
//   docent config set cache.enabled false
//   docent config show --json
//
// Keys use dot notation; `docent config show` lists them all.

package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jeranaias/docent-tui/internal/config"
)

var configSubcommands = []string{"show", "get", "set", "reset", "path"}

// ConfigPathData is the JSON payload of `config path`.
type ConfigPathData struct {
	Path   string `json:"path"`
	Exists bool   `json:"exists"`
}

// HandleConfig runs the config subcommands. cfg is the effective
// configuration, environment overrides included; set and reset edit the
// file alone so overrides are never persisted.
func HandleConfig(w io.Writer, cfg *config.Config, args Args) error {
	p := NewArgParser(args.Raw)

	switch args.Subcommand {
	case "", "show":
		return configShow(w, cfg, args.JSON)
	case "get":
		return configGet(w, cfg, p.Positional(1), args.JSON)
	case "set":
		return configSet(w, p.Positional(1), JoinPositionalArgs(p, 2), args.JSON)
	case "reset":
		return configReset(w, args.JSON)
	case "path":
		return configPath(w, args.JSON)
	default:
		return ErrUnknownSubcommand("config", args.Subcommand, configSubcommands)
	}
}

func configShow(w io.Writer, cfg *config.Config, jsonMode bool) error {
	if jsonMode {
		return NewJSONResponse("config show", cfg).Print(w)
	}

	fmt.Fprintln(w, TitleStyle.Render("docent configuration"))
	if path, err := config.ConfigPathTOML(); err == nil {
		fmt.Fprintln(w, DimStyle.Render(path))
	}

	section := ""
	for _, key := range config.GetAllKeys() {
		if s, _, ok := strings.Cut(key, "."); ok && s != section {
			section = s
			fmt.Fprintf(w, "\n%s\n", SectionStyle.Render("["+section+"]"))
		}
		v, err := cfg.Get(key)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "  %s %s\n", RenderLabel(key), ValueStyle.Render(formatConfigValue(v)))
	}
	return nil
}

func configGet(w io.Writer, cfg *config.Config, key string, jsonMode bool) error {
	if key == "" {
		return ErrMissingArgument("key", "docent config get api.base_url")
	}
	v, err := cfg.Get(key)
	if err != nil {
		return NewValidationErrorWithExample("key", key, err.Error(), "docent config show")
	}
	if jsonMode {
		return NewJSONResponse("config get", ConfigValueData{Key: key, Value: v}).Print(w)
	}
	fmt.Fprintln(w, formatConfigValue(v))
	return nil
}

func configSet(w io.Writer, key, value string, jsonMode bool) error {
	if key == "" {
		return ErrMissingArgument("key", "docent config set chat.provider groq")
	}

	cfg, err := loadConfigFile()
	if err != nil {
		return &ConfigError{Err: err}
	}
	if err := cfg.Set(key, value); err != nil {
		return NewValidationErrorWithExample("key", key, err.Error(), "docent config set chat.provider groq")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(cfg); err != nil {
		return &ConfigError{Err: err}
	}

	v, _ := cfg.Get(key)
	if jsonMode {
		return NewJSONResponse("config set", ConfigValueData{Key: key, Value: v}).Print(w)
	}
	fmt.Fprintf(w, "%s %s = %s\n", SuccessStyle.Render("[OK]"), key, formatConfigValue(v))
	return nil
}

func configReset(w io.Writer, jsonMode bool) error {
	if err := config.Save(config.Default()); err != nil {
		return &ConfigError{Err: err}
	}
	if jsonMode {
		return NewJSONResponse("config reset", MessageData{Message: "Configuration reset to defaults"}).Print(w)
	}
	fmt.Fprintf(w, "%s Configuration reset to defaults\n", SuccessStyle.Render("[OK]"))
	return nil
}

func configPath(w io.Writer, jsonMode bool) error {
	path, err := config.ConfigPathTOML()
	if err != nil {
		return &ConfigError{Err: err}
	}
	_, statErr := os.Stat(path)
	if jsonMode {
		return NewJSONResponse("config path", ConfigPathData{Path: path, Exists: statErr == nil}).Print(w)
	}
	fmt.Fprintln(w, path)
	return nil
}

// loadConfigFile reads config.toml without environment overrides.
func loadConfigFile() (*config.Config, error) {
	cfg := config.Default()
	path, err := config.ConfigPathTOML()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return cfg, nil
	}
	if err := config.LoadTOML(cfg, path); err != nil {
		return nil, err
	}
	return cfg, nil
}

func formatConfigValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		if val == "" {
			return "(unset)"
		}
		return val
	case []string:
		return strings.Join(val, ",")
	default:
		return fmt.Sprint(val)
	}
}
