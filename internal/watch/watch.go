// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package watch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/jeranaias/docent-tui/internal/api"
)

// Defaults applied by New for zero options.
const (
	DefaultDebounce         = 750 * time.Millisecond
	DefaultUploadsPerMinute = 6
)

// Uploader sends one file to the backend. *api.Client satisfies it.
type Uploader interface {
	UploadFile(ctx context.Context, path string) (*api.Document, error)
}

// Options configure a Watcher.
type Options struct {
	Dir              string
	Extensions       []string // without dots; defaults to api.AllowedExtensions
	UploadsPerMinute int
	Debounce         time.Duration

	// Existing also uploads files already in Dir when Run starts.
	Existing bool
}

// Result is the outcome of one upload.
type Result struct {
	Path     string
	Document *api.Document
	Err      error
}

// =============================================================================
// WATCHER
// =============================================================================

// Watcher uploads new files in one directory.
type Watcher struct {
	uploader Uploader
	opts     Options
	exts     map[string]bool
	limiter  *rate.Limiter
	results  chan Result

	mu       sync.Mutex
	pending  map[string]time.Time // path -> last event
	uploaded map[string]bool
}

// New validates opts and creates a watcher. Nothing is watched until Run.
func New(uploader Uploader, opts Options) (*Watcher, error) {
	info, err := os.Stat(opts.Dir)
	if err != nil {
		return nil, fmt.Errorf("cannot watch %s: %w", opts.Dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("cannot watch %s: not a directory", opts.Dir)
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = api.AllowedExtensions
	}
	if opts.UploadsPerMinute <= 0 {
		opts.UploadsPerMinute = DefaultUploadsPerMinute
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}

	exts := make(map[string]bool, len(opts.Extensions))
	for _, e := range opts.Extensions {
		exts[strings.ToLower(strings.TrimPrefix(e, "."))] = true
	}

	return &Watcher{
		uploader: uploader,
		opts:     opts,
		exts:     exts,
		limiter:  rate.NewLimiter(rate.Limit(float64(opts.UploadsPerMinute)/60), 1),
		results:  make(chan Result, 16),
		pending:  make(map[string]time.Time),
		uploaded: make(map[string]bool),
	}, nil
}

// Results delivers upload outcomes. It is closed when Run returns.
func (w *Watcher) Results() <-chan Result {
	return w.results
}

// Run watches until ctx is cancelled. Cancellation is not an error.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.results)

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(w.opts.Dir); err != nil {
		return fmt.Errorf("cannot watch %s: %w", w.opts.Dir, err)
	}

	if w.opts.Existing {
		w.queueExisting()
	}

	queue := make(chan string, 64)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(queue)
		return w.loop(gctx, fw, queue)
	})
	g.Go(func() error {
		return w.work(gctx, queue)
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (w *Watcher) queueExisting() {
	entries, err := os.ReadDir(w.opts.Dir)
	if err != nil {
		log.Printf("watch: read %s: %v", w.opts.Dir, err)
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	// Back-date so the first tick picks them up.
	past := time.Now().Add(-w.opts.Debounce)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(w.opts.Dir, e.Name())
		if w.wanted(path) {
			w.pending[path] = past
		}
	}
}

// loop turns filesystem events into debounced paths on queue.
func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher, queue chan<- string) error {
	tick := w.opts.Debounce / 4
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 || !w.wanted(event.Name) {
				continue
			}
			w.mu.Lock()
			if !w.uploaded[event.Name] {
				w.pending[event.Name] = time.Now()
			}
			w.mu.Unlock()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Printf("watch: %v", err)

		case now := <-ticker.C:
			for _, path := range w.due(now) {
				select {
				case queue <- path:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
}

// due removes and returns the paths quiet for at least the debounce window.
func (w *Watcher) due(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	var ready []string
	for path, last := range w.pending {
		if now.Sub(last) >= w.opts.Debounce {
			ready = append(ready, path)
			delete(w.pending, path)
			w.uploaded[path] = true
		}
	}
	return ready
}

// work uploads queued paths at the configured rate.
func (w *Watcher) work(ctx context.Context, queue <-chan string) error {
	for path := range queue {
		if err := w.limiter.Wait(ctx); err != nil {
			return err
		}
		r := w.upload(ctx, path)
		select {
		case w.results <- r:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (w *Watcher) upload(ctx context.Context, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		return Result{Path: path, Err: fmt.Errorf("file disappeared before upload: %w", err)}
	}
	if info.IsDir() {
		return Result{Path: path, Err: fmt.Errorf("%s is a directory", path)}
	}
	doc, err := w.uploader.UploadFile(ctx, path)
	if err != nil && api.IsRetryable(err) {
		// Let a later write event try again.
		w.mu.Lock()
		delete(w.uploaded, path)
		w.mu.Unlock()
	}
	return Result{Path: path, Document: doc, Err: err}
}

// wanted filters by extension and skips hidden and partial downloads.
func (w *Watcher) wanted(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "~$") {
		return false
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(base), "."))
	return w.exts[ext]
}
