// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// devserver_cmd.go - Run the in-memory development backend.
//
// Command: devserver
// Aliases: serve
//
// Flags:
//   --addr ADDR            Listen address (default 127.0.0.1:5000)
//   --seed FILE            TOML file of users and documents to preload
//   --index-delay DUR      How long uploads stay unindexed (default 3s)
//   --secret SECRET        JWT signing secret (default $DOCENT_JWT_SECRET, else random)
//
// Provider keys in OPENAI_API_KEY, GEMINI_API_KEY, CLAUDE_API_KEY and
// GROQ_API_KEY count as configured for every account.
//
// Examples:
//   docent devserver
//   docent devserver --seed testdata/seed.toml --index-delay 0s

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jeranaias/docent-tui/internal/catalog"
	"github.com/jeranaias/docent-tui/internal/devserver"
)

// shutdownTimeout bounds graceful shutdown of the devserver.
const shutdownTimeout = 10 * time.Second

// HandleDevserver runs the development backend until interrupted.
func HandleDevserver(w io.Writer, args Args) error {
	opts, seedPath, err := devserverOptions(args)
	if err != nil {
		return err
	}
	opts.Logger = log.New(w, "", log.LstdFlags)
	log.SetOutput(w)

	srv := devserver.New(opts)
	if seedPath != "" {
		seed, err := devserver.LoadSeed(seedPath)
		if err != nil {
			return &ConfigError{Err: err}
		}
		if err := srv.Load(seed); err != nil {
			return &ConfigError{Err: err}
		}
		fmt.Fprintf(w, "Loaded %d seed user(s) from %s\n", len(seed.Users), seedPath)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()
	fmt.Fprintf(w, "docent devserver listening on http://%s/api (Ctrl+C to stop)\n", opts.Addr)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-sig:
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// devserverOptions reads the flags and environment.
func devserverOptions(args Args) (devserver.Options, string, error) {
	p := NewArgParser(args.Raw)
	opts := devserver.Options{
		Addr:       p.FlagOrDefault("addr", devserver.DefaultAddr),
		IndexDelay: devserver.DefaultIndexDelay,
	}

	if v := p.Flag("index-delay"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return opts, "", NewValidationErrorWithExample("index-delay", v, "must be a non-negative duration", "docent devserver --index-delay 500ms")
		}
		opts.IndexDelay = d
	}

	secret := p.Flag("secret")
	if secret == "" {
		secret = os.Getenv("DOCENT_JWT_SECRET")
	}
	if secret != "" {
		opts.Secret = []byte(secret)
	}

	opts.EnvKeys = make(map[string]string)
	for _, prov := range catalog.Providers() {
		if key := os.Getenv(strings.ToUpper(string(prov)) + "_API_KEY"); key != "" {
			opts.EnvKeys[string(prov)] = key
		}
	}

	return opts, p.Flag("seed"), nil
}
