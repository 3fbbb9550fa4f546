// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// history_cmd.go - Conversation history and transcript export.
//
// Examples:
//   docent history 12
//   docent history 12 --offline
//   docent export 12                      (markdown file in the current directory)
//   docent export 12 --format json --output contract.json
//   docent export 12 --output -           (write to stdout)
//   docent export 12 --no-contexts --offline

package cli

import (
	"context"
	"errors"
	"time"

	"github.com/jeranaias/docent-tui/internal/api"
	"github.com/jeranaias/docent-tui/internal/export"
	"github.com/jeranaias/docent-tui/internal/storage"
)

// History prints a document's conversation. Without a reachable backend the
// cached transcript is shown instead.
func (e *Env) History(ctx context.Context, args Args) error {
	p := NewArgParser(args.Raw, "offline")
	id, err := ParseDocumentID(p.Positional(0))
	if err != nil {
		return err
	}

	t, err := e.transcript(ctx, id, p.BoolFlag("offline"))
	if err != nil {
		return err
	}

	return e.emit("history", t, func() {
		if len(t.History) == 0 {
			e.printf("%s\n", DimStyle.Render("No questions asked about "+t.Document.OriginalName+" yet."))
			return
		}
		opts := export.DefaultOptions()
		opts.IncludeContexts = false
		content, err := export.NewMarkdownExporter(opts).Export(t)
		if err != nil {
			e.printf("%s %v\n", ErrorStyle.Render("[Error]"), err)
			return
		}
		e.printf("%s", e.renderMarkdown(string(content)))
	})
}

// Export writes a transcript file.
func (e *Env) Export(ctx context.Context, args Args) error {
	p := NewArgParser(args.Raw, "offline", "no-contexts", "no-timestamps")
	id, err := ParseDocumentID(p.Positional(0))
	if err != nil {
		return err
	}

	opts := export.DefaultOptions()
	opts.IncludeContexts = !p.BoolFlag("no-contexts")
	opts.IncludeTimestamps = !p.BoolFlag("no-timestamps")
	format := p.FirstFlag("format", "f")
	exporter, err := export.ForFormat(format, opts)
	if err != nil {
		return NewValidationErrorWithExample("format", format, err.Error(), "docent export 12 --format json")
	}

	t, err := e.transcript(ctx, id, p.BoolFlag("offline"))
	if err != nil {
		return err
	}

	output := p.FirstFlag("output", "o")
	if output == "-" {
		content, err := exporter.Export(t)
		if err != nil {
			return err
		}
		_, err = e.Out.Write(content)
		return err
	}

	path := output
	if path == "" {
		if path, err = export.ExportToFile(t, exporter, opts); err != nil {
			return err
		}
	} else if err := export.WriteFile(t, exporter, path); err != nil {
		return err
	}

	return e.emit("export", map[string]interface{}{"path": path, "entries": len(t.History)}, func() {
		e.printf("%s Exported %d exchange(s) to %s\n", SuccessStyle.Render("[OK]"), len(t.History), path)
	})
}

// transcript reads a document and its history from the backend and caches
// them. It uses the cache when offline is set or the backend is unreachable.
func (e *Env) transcript(ctx context.Context, id int64, offline bool) (*storage.Transcript, error) {
	if offline {
		return e.cachedTranscript(id)
	}

	if _, err := e.requireSession(ctx); err != nil {
		if errors.Is(err, api.ErrNetwork) && e.Cache != nil {
			return e.fallbackTranscript(id, err)
		}
		return nil, err
	}

	doc, err := e.Client.Document(ctx, id)
	if err == nil {
		var history []api.HistoryEntry
		if history, err = e.Client.History(ctx, id); err == nil {
			e.cacheTranscript(*doc, history)
			return &storage.Transcript{Document: *doc, History: history, CachedAt: time.Now()}, nil
		}
	}
	if errors.Is(err, api.ErrNetwork) && e.Cache != nil {
		return e.fallbackTranscript(id, err)
	}
	return nil, err
}

func (e *Env) fallbackTranscript(id int64, cause error) (*storage.Transcript, error) {
	t, err := e.cachedTranscript(id)
	if err != nil {
		return nil, cause
	}
	e.notef("%s\n", WarningStyle.Render("Backend unreachable; showing the copy cached "+t.CachedAt.Local().Format("2006-01-02 15:04")+"."))
	return t, nil
}

func (e *Env) cachedTranscript(id int64) (*storage.Transcript, error) {
	if e.Cache == nil {
		return nil, &ConfigError{Err: errors.New("the transcript cache is disabled (cache.enabled = false)")}
	}
	return e.Cache.Transcript(id)
}
