// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Command routing, global flags, usage and version for docent.

package cli

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/jeranaias/docent-tui/internal/config"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdLogin
	CmdSignup
	CmdLogout
	CmdWhoami
	CmdAccount
	CmdDocs
	CmdAsk
	CmdChat
	CmdHistory
	CmdExport
	CmdWatch
	CmdDevserver
	CmdConfig
	CmdVersion
	CmdHelp
	CmdUnknown
)

var commandNames = map[Command]string{
	CmdTUI:       "tui",
	CmdLogin:     "login",
	CmdSignup:    "signup",
	CmdLogout:    "logout",
	CmdWhoami:    "whoami",
	CmdAccount:   "account",
	CmdDocs:      "docs",
	CmdAsk:       "ask",
	CmdChat:      "chat",
	CmdHistory:   "history",
	CmdExport:    "export",
	CmdWatch:     "watch",
	CmdDevserver: "devserver",
	CmdConfig:    "config",
	CmdVersion:   "version",
	CmdHelp:      "help",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return "unknown"
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	JSON    bool   // machine-readable output
	Quiet   bool   // suppress banners and hints
	Verbose bool   // log diagnostics to stderr
	API     string // overrides api.base_url for this run

	// Name is the command word as typed.
	Name string

	// Subcommand is the first positional after the command, if any.
	Subcommand string

	// Raw holds the arguments after the command word, global flags removed.
	Raw []string
}

const usageText = `docent - chat with your documents from the terminal

Usage:
  docent                       Start the TUI (default)
  docent login [--email E]     Sign in (password prompted without echo)
  docent signup                Create an account
  docent logout                Forget the stored session
  docent whoami                Show the signed-in user

  docent account [show]        Show profile and LLM settings
  docent account llm           Change provider, model or API keys
      --provider P --model M
      --openai-key K --gemini-key K --claude-key K --groq-key K
                               A key of "-" is prompted hidden; "" clears it
  docent account profile [--name N] [--email E]
  docent account password      Change password (prompted)
  docent account delete --confirm

  docent docs [list] [--offline]
  docent docs show <id>
  docent docs upload <file>... Upload pdf, docx or txt files (max 50MB)
  docent docs delete <id> [--yes]
  docent docs chunks <id>      Show the text segments of an indexed document

  docent ask <id> "question" [--provider P] [--model M]
  docent chat <id> [--provider P] [--model M]
  docent history <id> [--offline]
  docent export <id> [--format md|json] [--output FILE|-] [--offline]

  docent watch <dir> [--existing]
                               Upload documents dropped into a directory
  docent devserver [--addr 127.0.0.1:5000] [--seed FILE] [--index-delay 3s]
                               Run the in-memory development backend

  docent config [show|get KEY|set KEY VALUE|path]
  docent version | help

Global flags:
  --json                       Print JSON instead of text
  -q, --quiet                  Only print results
  --verbose                    Log diagnostics to stderr
  --api URL                    Backend API root (overrides api.base_url)

Environment:
  DOCENT_API_URL               Backend API root
  DOCENT_CREDENTIAL_STORE      keyring or file
  DOCENT_DEBUG                 Log TUI diagnostics to ~/.docent/debug.log
  NO_COLOR                     Disable colors

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "docent version %s\n", Version)
	fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Build date: %s\n", BuildDate)
}

// HandleVersionWithJSON prints the version, as JSON under --json.
func HandleVersionWithJSON(w io.Writer, args Args) error {
	if args.JSON {
		return NewJSONResponse("version", VersionData{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
		}).Print(w)
	}
	PrintVersion(w)
	return nil
}

// =============================================================================
// PARSING
// =============================================================================

// Parse routes argv (without the program name) to a command.
func Parse(argv []string) (Command, Args) {
	remaining, parsedArgs := parseGlobalFlags(argv)

	if len(remaining) == 0 {
		return CmdTUI, parsedArgs
	}

	name := strings.ToLower(remaining[0])
	parsedArgs.Name = name
	parsedArgs.Raw = remaining[1:]
	if len(parsedArgs.Raw) > 0 && !strings.HasPrefix(parsedArgs.Raw[0], "-") {
		parsedArgs.Subcommand = strings.ToLower(parsedArgs.Raw[0])
	}

	switch name {
	case "tui":
		return CmdTUI, parsedArgs
	case "login", "signin":
		return CmdLogin, parsedArgs
	case "signup", "register":
		return CmdSignup, parsedArgs
	case "logout", "signout":
		return CmdLogout, parsedArgs
	case "whoami", "me":
		return CmdWhoami, parsedArgs
	case "account":
		return CmdAccount, parsedArgs
	case "docs", "doc", "documents":
		return CmdDocs, parsedArgs
	case "ask":
		return CmdAsk, parsedArgs
	case "chat":
		return CmdChat, parsedArgs
	case "history":
		return CmdHistory, parsedArgs
	case "export":
		return CmdExport, parsedArgs
	case "watch":
		return CmdWatch, parsedArgs
	case "devserver", "serve":
		return CmdDevserver, parsedArgs
	case "config":
		return CmdConfig, parsedArgs
	case "version", "-v", "--version":
		return CmdVersion, parsedArgs
	case "help", "-h", "--help":
		return CmdHelp, parsedArgs
	default:
		return CmdUnknown, parsedArgs
	}
}

// parseGlobalFlags pulls the global flags out of args wherever they appear.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	var parsedArgs Args

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			remaining = append(remaining, args[i:]...)
			break
		}
		switch {
		case arg == "--json":
			parsedArgs.JSON = true
		case arg == "-q" || arg == "--quiet":
			parsedArgs.Quiet = true
		case arg == "--verbose":
			parsedArgs.Verbose = true
		case arg == "--api":
			if i+1 < len(args) {
				i++
				parsedArgs.API = args[i]
			}
		case strings.HasPrefix(arg, "--api="):
			parsedArgs.API = strings.TrimPrefix(arg, "--api=")
		default:
			remaining = append(remaining, arg)
		}
	}
	return remaining, parsedArgs
}

// =============================================================================
// EXECUTION
// =============================================================================

// Execute runs every command except the TUI and returns the exit code.
// Errors are displayed here, once.
func Execute(cmd Command, args Args, cfg *config.Config) int {
	out, errOut := io.Writer(os.Stdout), io.Writer(os.Stderr)

	var err error
	switch cmd {
	case CmdVersion:
		err = HandleVersionWithJSON(out, args)
	case CmdHelp:
		PrintUsage(out)
	case CmdUnknown:
		err = NewValidationErrorWithExample("command", args.Name, "unknown command", "docent help")
	case CmdConfig:
		err = HandleConfig(out, cfg, args)
	case CmdDevserver:
		err = HandleDevserver(errOut, args)
	default:
		var env *Env
		env, err = NewEnv(cfg, args)
		if err == nil {
			defer env.Close()
			err = env.Run(cmd, args)
		}
	}

	if err != nil {
		if args.JSON {
			DisplayError(out, cmd.String(), err, true)
		} else {
			DisplayError(errOut, cmd.String(), err, false)
		}
		return GetExitCode(err)
	}
	return ExitSuccess
}
