// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// env.go - The wiring shared by every backend command.

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/jeranaias/docent-tui/internal/api"
	"github.com/jeranaias/docent-tui/internal/config"
	"github.com/jeranaias/docent-tui/internal/session"
	"github.com/jeranaias/docent-tui/internal/storage"
)

// Env holds the client, session gate and cache a command runs against.
type Env struct {
	Config *config.Config
	Client *api.Client
	Gate   *session.Gate
	Cache  *storage.TranscriptCache // nil when disabled

	Out io.Writer
	Err io.Writer
	In  io.Reader

	JSON  bool
	Quiet bool

	reader *bufio.Reader
}

// NewClient builds the API client for cfg. A non-empty baseURL overrides
// api.base_url.
func NewClient(cfg *config.Config, baseURL string) *api.Client {
	if baseURL == "" {
		baseURL = cfg.API.BaseURL
	}
	return api.New(api.Options{
		BaseURL:        baseURL,
		RequestTimeout: cfg.API.RequestTimeout(),
		ChatTimeout:    cfg.API.ChatTimeout(),
		MaxRetries:     cfg.API.MaxRetries,
		UserAgent:      "docent/" + Version,
	})
}

// OpenCache opens the transcript cache for client's origin, or returns nil
// when caching is disabled or the database cannot be opened.
func OpenCache(cfg *config.Config, client *api.Client) *storage.TranscriptCache {
	if !cfg.Cache.Enabled {
		return nil
	}
	path, err := cfg.CachePath()
	if err != nil {
		log.Printf("cache: %v", err)
		return nil
	}
	cache, err := storage.OpenTranscriptCache(path, client.BaseURL())
	if err != nil {
		log.Printf("cache: disabled: %v", err)
		return nil
	}
	return cache
}

// NewEnv wires a client, credential store, session gate and cache from cfg.
func NewEnv(cfg *config.Config, args Args) (*Env, error) {
	if !args.Verbose {
		log.SetOutput(io.Discard)
	}

	client := NewClient(cfg, args.API)
	tokenFile, err := cfg.TokenFilePath()
	if err != nil {
		return nil, &ConfigError{Err: err}
	}
	creds := storage.NewCredentialStore(cfg.Auth.CredentialStore, client.Host(), tokenFile)

	env := newEnv(cfg, client, creds, OpenCache(cfg, client))
	env.JSON = args.JSON
	env.Quiet = args.Quiet
	return env, nil
}

// newEnv assembles an Env on stdio. Every 401 goes through the gate.
func newEnv(cfg *config.Config, client *api.Client, creds storage.CredentialStore, cache *storage.TranscriptCache) *Env {
	gate := session.NewGate(session.NewStore(), client, creds)
	client.OnUnauthorized(gate.HandleUnauthorized)
	return &Env{
		Config: cfg,
		Client: client,
		Gate:   gate,
		Cache:  cache,
		Out:    os.Stdout,
		Err:    os.Stderr,
		In:     os.Stdin,
	}
}

// Close releases the cache and the session store.
func (e *Env) Close() {
	if e.Cache != nil {
		if err := e.Cache.Close(); err != nil {
			log.Printf("cache: close: %v", err)
		}
	}
	e.Gate.Store().Close()
}

// Run dispatches cmd.
func (e *Env) Run(cmd Command, args Args) error {
	if cmd == CmdChat {
		// The REPL owns Ctrl+C itself.
		return e.Chat(context.Background(), args)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case CmdLogin:
		return e.Login(ctx, args)
	case CmdSignup:
		return e.Signup(ctx, args)
	case CmdLogout:
		return e.Logout(ctx, args)
	case CmdWhoami:
		return e.Whoami(ctx, args)
	case CmdAccount:
		return e.Account(ctx, args)
	case CmdDocs:
		return e.Docs(ctx, args)
	case CmdAsk:
		return e.Ask(ctx, args)
	case CmdHistory:
		return e.History(ctx, args)
	case CmdExport:
		return e.Export(ctx, args)
	case CmdWatch:
		return e.Watch(ctx, args)
	}
	return fmt.Errorf("command %s cannot run here", cmd)
}

// =============================================================================
// SESSION
// =============================================================================

// requireSession verifies the stored credential and returns the user.
func (e *Env) requireSession(ctx context.Context) (*api.User, error) {
	if _, err := e.Gate.Check(ctx); err != nil {
		return nil, err
	}
	s := e.Gate.Store().Current()
	if s.User == nil {
		return nil, session.ErrNoCredential
	}
	return s.User, nil
}

// =============================================================================
// OUTPUT
// =============================================================================

// emit prints data as a JSONResponse under --json, otherwise runs human.
func (e *Env) emit(command string, data interface{}, human func()) error {
	if e.JSON {
		return NewJSONResponse(command, data).Print(e.Out)
	}
	human()
	return nil
}

// printf writes human output to stdout.
func (e *Env) printf(format string, args ...interface{}) {
	fmt.Fprintf(e.Out, format, args...)
}

// notef writes a progress note to stderr unless quiet or in JSON mode.
func (e *Env) notef(format string, args ...interface{}) {
	if e.Quiet || e.JSON {
		return
	}
	fmt.Fprintf(e.Err, format, args...)
}

// field prints one "label  value" line.
func (e *Env) field(label string, value interface{}) {
	e.printf("%s %s\n", RenderLabel(label), ValueStyle.Render(fmt.Sprint(value)))
}

// =============================================================================
// PROMPTS
// =============================================================================

// prompt reads one line, after writing label to stderr.
func (e *Env) prompt(label string) (string, error) {
	fmt.Fprint(e.Err, label)
	return e.readLine()
}

// promptSecret reads one line without echo when stdin is a terminal.
// Piped input is read as a plain line.
func (e *Env) promptSecret(label string) (string, error) {
	fmt.Fprint(e.Err, label)
	if f, ok := e.In.(*os.File); ok && isTerminalFile(f) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(e.Err)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}
	return e.readLine()
}

// confirm asks a yes/no question; anything but yes is no.
func (e *Env) confirm(question string) (bool, error) {
	answer, err := e.prompt(question + " [y/N] ")
	if err != nil {
		return false, err
	}
	yes, err := ParseBoolString(answer)
	return err == nil && yes, nil
}

func (e *Env) readLine() (string, error) {
	if e.reader == nil {
		e.reader = bufio.NewReader(e.In)
	}
	line, err := e.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", errors.New("no input")
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
