// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package main is the entry point for docent, a terminal client for
// chatting with your documents.
package main

import (
	"fmt"
	"io"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/docent-tui/internal/cli"
	"github.com/jeranaias/docent-tui/internal/config"
	"github.com/jeranaias/docent-tui/internal/session"
	"github.com/jeranaias/docent-tui/internal/storage"
	"github.com/jeranaias/docent-tui/internal/ui/app"
	"github.com/jeranaias/docent-tui/internal/ui/styles"
)

func main() {
	cmd, args := cli.Parse(os.Args[1:])

	if err := config.LoadEnvFiles(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	cfg, err := config.Load()
	if err != nil {
		cli.DisplayError(os.Stderr, cmd.String(), &cli.ConfigError{Err: err}, false)
		os.Exit(cli.ExitConfigError)
	}

	if cmd != cli.CmdTUI {
		os.Exit(cli.Execute(cmd, args, cfg))
	}
	os.Exit(runTUI(cfg, args))
}

// runTUI starts the full-screen application and returns the exit code.
func runTUI(cfg *config.Config, args cli.Args) int {
	// Bubble Tea owns the terminal; diagnostics go to a file or nowhere.
	if os.Getenv("DOCENT_DEBUG") != "" {
		if path, err := config.DebugLogPath(); err == nil && config.EnsureConfigDir() == nil {
			if f, err := tea.LogToFile(path, "docent"); err == nil {
				defer f.Close()
			}
		}
	} else {
		log.SetOutput(io.Discard)
	}

	client := cli.NewClient(cfg, args.API)
	tokenFile, err := cfg.TokenFilePath()
	if err != nil {
		cli.DisplayError(os.Stderr, "tui", &cli.ConfigError{Err: err}, false)
		return cli.ExitConfigError
	}
	creds := storage.NewCredentialStore(cfg.Auth.CredentialStore, client.Host(), tokenFile)

	store := session.NewStore()
	defer store.Close()
	gate := session.NewGate(store, client, creds)
	client.OnUnauthorized(gate.HandleUnauthorized)

	opts := app.Options{
		Gate:       gate,
		Client:     client,
		Theme:      styles.NewThemeForMode(cfg.UI.Theme),
		Provider:   cfg.Chat.Provider,
		Model:      cfg.Chat.Model,
		Markdown:   cfg.UI.Markdown,
		ShowChunks: cfg.UI.ShowChunks,
	}
	// A nil *TranscriptCache must not become a non-nil interface.
	if cache := cli.OpenCache(cfg, client); cache != nil {
		defer cache.Close()
		opts.Cache = cache
	}

	m := app.New(opts)
	defer m.Shutdown()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running docent: %v\n", err)
		return cli.ExitGeneralError
	}
	return cli.ExitSuccess
}
