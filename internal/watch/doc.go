// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package watch uploads documents dropped into a directory.
//
// Create and write events are debounced per file so a document is uploaded
// once its writer has finished. Each path is uploaded at most once per run.
// Uploads are throttled by a token bucket and their outcomes are reported on
// a channel.
//
// # Key Types
//
//   - Watcher: fsnotify loop, debounce table and upload worker
//   - Result: outcome of one upload attempt
//
// # Usage
//
//	w, err := watch.New(client, watch.Options{Dir: dir, UploadsPerMinute: 6})
//	go func() {
//	    for r := range w.Results() {
//	        fmt.Println(r.Path, r.Err)
//	    }
//	}()
//	err = w.Run(ctx)
package watch
