// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// watch_cmd.go - Upload new files from a folder as they appear.
//
// Examples:
//   docent watch ~/Contracts
//   docent watch . --existing
//   docent watch inbox --ext pdf,docx --rate 2
//
// Press Ctrl+C to stop.

package cli

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/jeranaias/docent-tui/internal/watch"
)

// Watch runs the folder watcher until interrupted.
func (e *Env) Watch(ctx context.Context, args Args) error {
	p := NewArgParser(args.Raw, "existing")

	dir := p.Positional(0)
	if dir == "" {
		dir = "."
	}
	if _, err := e.requireSession(ctx); err != nil {
		return err
	}

	opts := watch.Options{
		Dir:              dir,
		Extensions:       e.Config.Watch.Extensions,
		UploadsPerMinute: p.FlagIntOrDefault("rate", e.Config.Watch.UploadsPerMinute),
		Debounce:         e.Config.Watch.Debounce(),
		Existing:         p.BoolFlag("existing"),
	}
	if exts := p.Flag("ext"); exts != "" {
		opts.Extensions = strings.Split(exts, ",")
	}

	w, err := watch.New(e.Client, opts)
	if err != nil {
		return err
	}

	abs, _ := filepath.Abs(dir)
	e.notef("%s\n", DimStyle.Render("Watching "+abs+" (Ctrl+C to stop)"))

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	var uploaded, failed int
	for r := range w.Results() {
		if r.Err != nil {
			failed++
			if e.JSON {
				_ = NewJSONResponse("watch", UploadData{Path: r.Path, Error: errorText(r.Err)}).Print(e.Out)
			} else {
				e.printf("%s %s: %s\n", ErrorStyle.Render("[FAIL]"), r.Path, errorText(r.Err))
			}
			continue
		}
		uploaded++
		e.cacheDocuments(*r.Document)
		if e.JSON {
			_ = NewJSONResponse("watch", UploadData{Path: r.Path, Document: r.Document}).Print(e.Out)
		} else {
			e.printf("%s %s uploaded as document %d\n", SuccessStyle.Render("[OK]"), filepath.Base(r.Path), r.Document.ID)
		}
	}

	if err := <-done; err != nil {
		return err
	}
	e.notef("\nStopped. %d uploaded, %d failed.\n", uploaded, failed)
	return nil
}
