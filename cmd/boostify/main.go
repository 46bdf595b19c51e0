// cmd/boostify/main.go
//
// This is the entry point for the Boostify CLI.
// Running `boostify` on its own opens the terminal client; the
// subcommands cover the same operations for scripts and quick checks.
//
// Flow:
// 1. Resolve ~/.boostify (or $BOOSTIFY_HOME) and make sure it exists
// 2. Load config.yaml and the BOOSTIFY_* overrides
// 3. Launch the TUI, or run the requested subcommand

package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/kingrea/boostify/internal/tui"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "boostify",
		Short: "Attendance client for Boostify lab assistants",
		Long: `Attendance client for Boostify lab assistants.

Without a subcommand boostify opens the interactive terminal client.
Credentials, config and logs live in ~/.boostify (override with
BOOSTIFY_HOME). BOOSTIFY_API_URL points the client at another backend,
for example one started with "boostify devserver".`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv()
			if err != nil {
				return err
			}
			app, err := tui.NewApp(env.cfg,
				tui.WithClient(env.client),
				tui.WithSessionStore(env.sessions),
				tui.WithLogbook(env.logbook),
			)
			if err != nil {
				return err
			}
			// tea.WithAltScreen uses the full terminal window
			p := tea.NewProgram(app, tea.WithAltScreen())
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("TUI error: %w", err)
			}
			return nil
		},
	}
	root.AddCommand(
		loginCmd(),
		logoutCmd(),
		whoamiCmd(),
		liveCmd(),
		recapCmd(),
		logsCmd(),
		devserverCmd(),
	)
	return root
}
