// Package cli defines Cobra command definitions for the cowork CLI.
// This file contains the root command, global flags and help output.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kuse-dev/cowork/internal/bridge"
	"github.com/kuse-dev/cowork/internal/tui"
	"github.com/kuse-dev/cowork/internal/tui/app"
	"github.com/kuse-dev/cowork/internal/tui/views"
)

var (
	configDir string
	verbose   bool
	version   = "dev" // set via ldflags at build time
)

var rootCmd = &cobra.Command{
	Use:   "cowork",
	Short: "Terminal front end for a tool-using coding agent",
	Long: `cowork sends a request to an external agent runtime and renders its
progress live: the text it produces, every tool it runs and the outcome of
each turn. Tasks and conversations are kept in a local SQLite database.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE: func(cmd *cobra.Command, args []string) error {
		// When no subcommand is provided, launch TUI if TTY, show help otherwise
		if !tui.IsTTY() {
			return cmd.Help()
		}

		env, err := openEnv()
		if err != nil {
			return err
		}
		defer env.Close()

		runner := bridge.NewProcessRunner(env.cfg, env.logger)
		tuiApp := app.New(app.Deps{
			Agent: views.AgentDeps{
				Controller: env.newController(runner, false),
				Configured: env.cfg.IsConfigured(),
				MaxTurns:   env.cfg.Agent.MaxTurns,
				Tools:      env.cfg.Agent.AllowedTools,
			},
			Stats: env.store,
		})
		return tui.Run(tuiApp)
	},
}

// Execute runs the root command. Called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// Verbose returns true if --verbose flag is set.
func Verbose() bool {
	return verbose
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "Configuration directory (default ~/.cowork)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Print every agent event as it arrives")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(chatsCmd)
	rootCmd.AddCommand(configCmd)
}
