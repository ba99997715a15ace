package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// statusError is a tool status string that already reads as an error.
type statusError string

func (e statusError) Error() string { return string(e) }

func main() {
	app := &App{}
	err := newRootCommand(app).Execute()
	_ = app.Close()
	if err != nil {
		var status statusError
		if errors.As(err, &status) {
			fmt.Fprintln(os.Stderr, status)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// newRootCommand builds the CLI around app. The caller closes app after
// Execute returns, whether or not the command failed.
func newRootCommand(app *App) *cobra.Command {
	var configPath string
	var cachePath string

	rootCmd := &cobra.Command{
		Use:           "screenshot-organizer",
		Short:         "Order files by a list read from a screenshot, and undo it",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			app.configPath = configPath
			app.cachePath = cachePath
			return app.Init()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Configuration file path (.json or .toml)")
	rootCmd.PersistentFlags().StringVar(&cachePath, "cache", "", "Path to the screenshot analysis cache file")

	rootCmd.AddCommand(newServeCommand(app))
	rootCmd.AddCommand(newAnalyzeCommand(app))
	rootCmd.AddCommand(newOrganizeCommand(app))
	rootCmd.AddCommand(newUndoCommand(app))
	rootCmd.AddCommand(newListCommand(app))
	rootCmd.AddCommand(newHistoryCommand(app))

	return rootCmd
}
