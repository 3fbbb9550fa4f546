// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and execution for docent.
//
// Every command except the full-screen TUI runs here: sign-in and account
// management, document upload and listing, one-shot questions, a line-based
// chat, history export, the folder watcher and the development backend.
//
// # Key Types
//
//   - Command: Enumeration of all available CLI commands
//   - Args: Global flags plus the raw arguments after the command word
//   - ArgParser: Flag and positional parsing for one command
//   - Env: The API client, session gate and transcript cache a command uses
//
// # Usage
//
//	cmd, args := cli.Parse(os.Args[1:])
//	if cmd == cli.CmdTUI {
//	    // start the Bubble Tea program
//	}
//	os.Exit(cli.Execute(cmd, args, cfg))
//
// # Commands Overview
//
// Session:
//   - login, signup, logout, whoami
//
// Documents:
//   - docs: list, show, upload, delete, chunks
//   - watch: upload new files from a folder
//
// Conversation:
//   - ask: one question
//   - chat: interactive REPL
//   - history, export: read or save a transcript, online or from the cache
//
// Other:
//   - account, config, devserver, version, help
//
// Every command that prints data supports --json.
package cli
