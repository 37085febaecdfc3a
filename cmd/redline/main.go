// cmd/redline/main.go
//
// This is the entry point for the redline client.
// When you run `redline` from any directory, this is what executes.
//
// Flow:
// 1. Initialize the .redline folder in the current directory
// 2. Build the app model (config, stored credential, journey log)
// 3. Run the TUI until the user quits

package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sableworks/redline/internal/config"
	"github.com/sableworks/redline/internal/tui"
)

func main() {
	// The current working directory is the "project" we review contracts in
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error getting working directory: %v\n", err)
		os.Exit(1)
	}

	if err := config.InitRedlineDir(cwd); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing .redline directory: %v\n", err)
		os.Exit(1)
	}

	app, err := tui.NewApp(cwd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error starting redline: %v\n", err)
		os.Exit(1)
	}

	// tea.NewProgram creates a new bubbletea application
	p := tea.NewProgram(
		app,
		tea.WithAltScreen(), // Use alternate screen buffer (like vim does)
	)

	// Run blocks until the user quits
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}
}
