// Package main is the entry point for the fileknight application.
package main

import (
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term" //nolint:depguard // Required for TTY detection

	"github.com/joe/fileknight/internal/cli"
	"github.com/joe/fileknight/internal/tui"
)

func main() {
	os.Exit(cli.NewApp(runInteractive).Run(os.Args[1:]))
}

// runInteractive opens the form, using the alt screen only when stdout is a TTY.
func runInteractive(session cli.Session) error {
	var opts []tea.ProgramOption
	if term.IsTerminal(int(os.Stdout.Fd())) {
		opts = append(opts, tea.WithAltScreen())
	}

	return tui.Run(session, opts...)
}
