package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/brushport/internal/config"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"convert": true, "inspect": true, "serve-mcp": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode(args []string) bool {
	if len(args) < 2 {
		return false
	}
	arg := args[1]
	if cliCommands[arg] {
		return true
	}
	// Global flags precede the subcommand.
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" ||
		arg == "--verbose" || arg == "--config-dir" {
		return true
	}
	return false
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}

func main() {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine home directory: %v\n", err)
		os.Exit(1)
	}

	st := &appState{
		baseDir:     filepath.Join(homeDir, config.DirName),
		stdin:       os.Stdin,
		interactive: isTerminal(),
	}
	args := os.Args

	switch {
	case len(args) < 2 && st.interactive:
		// No args on a terminal: prompt for the input and output paths.
		args = []string{args[0], "convert"}
	case len(args) < 2:
		// Piped stdin with no args: MCP client.
		args = []string{args[0], "serve-mcp"}
	case !isCLIMode(args) && st.interactive:
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", args[1])
		fmt.Fprintf(os.Stderr, "Run 'brushport --help' for usage.\n")
		os.Exit(1)
	case !isCLIMode(args):
		args = []string{args[0], "serve-mcp"}
	}

	if err := newCLIApp(st).Run(args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
