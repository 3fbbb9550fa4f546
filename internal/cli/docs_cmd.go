// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// docs_cmd.go - Document management.
//
// Examples:
//   docent docs
//   docent docs upload contract.pdf notes.txt
//   docent docs show 12
//   docent docs chunks 12
//   docent docs delete 12 --yes
//   docent docs list --offline

package cli

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jeranaias/docent-tui/internal/api"
)

var docsSubcommands = []string{"list", "show", "upload", "delete", "chunks"}

// Docs routes the document subcommands.
func (e *Env) Docs(ctx context.Context, args Args) error {
	p := NewArgParser(args.Raw, "offline", "yes", "y")

	sub := p.Subcommand()
	if (sub == "" || sub == "list" || sub == "ls") && p.BoolFlag("offline") {
		return e.docsListOffline()
	}

	if _, err := e.requireSession(ctx); err != nil {
		return err
	}

	switch sub {
	case "", "list", "ls":
		return e.docsList(ctx)
	case "show":
		return e.docsShow(ctx, p.Positional(1))
	case "upload":
		return e.docsUpload(ctx, p.PositionalFrom(1))
	case "delete", "rm":
		return e.docsDelete(ctx, p.Positional(1), p.BoolFlag("yes", "y"))
	case "chunks":
		return e.docsChunks(ctx, p.Positional(1))
	default:
		return ErrUnknownSubcommand("docs", sub, docsSubcommands)
	}
}

func (e *Env) docsList(ctx context.Context) error {
	docs, err := e.Client.Documents(ctx)
	if err != nil {
		return err
	}
	e.cacheDocuments(docs...)
	return e.emit("docs list", docs, func() {
		e.printDocuments(docs)
	})
}

func (e *Env) docsListOffline() error {
	if e.Cache == nil {
		return &ConfigError{Err: fmt.Errorf("the transcript cache is disabled (cache.enabled = false)")}
	}
	docs, err := e.Cache.Documents()
	if err != nil {
		return err
	}
	return e.emit("docs list", docs, func() {
		e.notef("%s\n", DimStyle.Render("Cached documents (status as last seen):"))
		e.printDocuments(docs)
	})
}

func (e *Env) docsShow(ctx context.Context, arg string) error {
	id, err := ParseDocumentID(arg)
	if err != nil {
		return err
	}
	doc, err := e.Client.Document(ctx, id)
	if err != nil {
		return err
	}
	e.cacheDocuments(*doc)
	return e.emit("docs show", doc, func() {
		e.printDocument(*doc)
	})
}

// docsUpload uploads every path, validating each before any request. One
// failure does not stop the rest; the command fails if any file failed.
func (e *Env) docsUpload(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return ErrMissingArgument("file", "docent docs upload contract.pdf")
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if info.IsDir() {
			return NewValidationError("file", path, "is a directory (use `docent watch` for folders)")
		}
		if err := api.ValidateUpload(path, info.Size()); err != nil {
			return err
		}
	}

	results := make([]UploadData, 0, len(paths))
	failed := 0
	for _, path := range paths {
		e.notef("Uploading %s...\n", path)
		doc, err := e.Client.UploadFile(ctx, path)
		if err != nil {
			failed++
			results = append(results, UploadData{Path: path, Error: errorText(err)})
			if !e.JSON {
				e.printf("%s %s: %s\n", ErrorStyle.Render("[FAIL]"), path, errorText(err))
			}
			continue
		}
		e.cacheDocuments(*doc)
		results = append(results, UploadData{Path: path, Document: doc})
		if !e.JSON {
			e.printf("%s %s uploaded as document %d (%s)\n",
				SuccessStyle.Render("[OK]"), doc.OriginalName, doc.ID, indexState(*doc))
		}
	}

	if e.JSON {
		if err := NewJSONResponse("docs upload", results).Print(e.Out); err != nil {
			return err
		}
	}
	if failed > 0 {
		return NewCommandError("docs", "upload", fmt.Sprintf("%d of %d files failed", failed, len(paths)), nil)
	}
	return nil
}

func (e *Env) docsDelete(ctx context.Context, arg string, yes bool) error {
	id, err := ParseDocumentID(arg)
	if err != nil {
		return err
	}
	doc, err := e.Client.Document(ctx, id)
	if err != nil {
		return err
	}
	if !yes {
		ok, err := e.confirm(fmt.Sprintf("Delete %q and its chat history?", doc.OriginalName))
		if err != nil {
			return err
		}
		if !ok {
			e.notef("Cancelled.\n")
			return nil
		}
	}

	if err := e.Client.DeleteDocument(ctx, id); err != nil {
		return err
	}
	if e.Cache != nil {
		if err := e.Cache.DeleteDocument(id); err != nil {
			log.Printf("cache: %v", err)
		}
	}
	return e.emit("docs delete", doc, func() {
		e.printf("%s Deleted %s\n", SuccessStyle.Render("[OK]"), doc.OriginalName)
	})
}

func (e *Env) docsChunks(ctx context.Context, arg string) error {
	id, err := ParseDocumentID(arg)
	if err != nil {
		return err
	}
	chunks, err := e.Client.Chunks(ctx, id)
	if err != nil {
		return err
	}
	return e.emit("docs chunks", chunks, func() {
		if len(chunks) == 0 {
			e.printf("%s\n", DimStyle.Render("No chunks yet. The document may still be indexing."))
			return
		}
		e.printChunks(chunks, 0)
	})
}

// cacheDocuments writes documents through to the cache.
func (e *Env) cacheDocuments(docs ...api.Document) {
	if e.Cache == nil || len(docs) == 0 {
		return
	}
	if err := e.Cache.PutDocuments(docs...); err != nil {
		log.Printf("cache: %v", err)
	}
}
