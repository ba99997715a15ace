package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"screenshot-organizer/internal/ordering"
	"screenshot-organizer/internal/organizer"
	"screenshot-organizer/internal/tools"
)

// printStatus writes a successful tool status to stdout and turns a failed
// one into a statusError.
func printStatus(cmd *cobra.Command, result string) error {
	if tools.IsError(result) {
		return statusError(result)
	}
	fmt.Fprintln(cmd.OutOrStdout(), result)
	return nil
}

func newServeCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the tools over HTTP and websocket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run()
		},
	}
}

func newAnalyzeCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <screenshot>",
		Short: "Extract the organization order from a screenshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printStatus(cmd, app.tools.AnalyzeScreenshot(cmd.Context(), args[0]))
		},
	}
}

func newOrganizeCommand(app *App) *cobra.Command {
	var orderText string
	var orderFile string
	var screenshot string
	var output string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "organize <folder>",
		Short: "Move matching files into an output folder with position prefixes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			folder := args[0]
			text, err := resolveOrderText(cmd, app, orderText, orderFile, screenshot)
			if err != nil {
				return err
			}

			if dryRun {
				return printPlan(cmd, app, folder, text, output)
			}

			progress := newBatchProgress(cmd.ErrOrStderr(), "organizing")
			result := app.tools.OrganizeFilesWithProgress(cmd.Context(), folder, text, output, progress.update)
			progress.finish()
			return printStatus(cmd, result)
		},
	}

	cmd.Flags().StringVar(&orderText, "order", "", "Organization order text")
	cmd.Flags().StringVar(&orderFile, "order-file", "", "Read the organization order from a file (- for stdin)")
	cmd.Flags().StringVar(&screenshot, "screenshot", "", "Read the organization order from a screenshot")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output folder (defaults to the order's section title inside the folder)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show the planned renames without moving anything")
	cmd.MarkFlagsMutuallyExclusive("order", "order-file", "screenshot")
	cmd.MarkFlagsOneRequired("order", "order-file", "screenshot")
	return cmd
}

func resolveOrderText(cmd *cobra.Command, app *App, orderText, orderFile, screenshot string) (string, error) {
	switch {
	case orderText != "":
		return orderText, nil
	case orderFile == "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read order from stdin: %w", err)
		}
		return string(data), nil
	case orderFile != "":
		data, err := os.ReadFile(orderFile)
		if err != nil {
			return "", fmt.Errorf("read order file: %w", err)
		}
		return string(data), nil
	case screenshot != "":
		result := app.tools.AnalyzeScreenshot(cmd.Context(), screenshot)
		if tools.IsError(result) {
			return "", statusError(result)
		}
		return result, nil
	}
	return "", errors.New("an organization order is required")
}

func printPlan(cmd *cobra.Command, app *App, folder, orderText, output string) error {
	destination, err := tools.ResolveOutputFolder(folder, orderText, output)
	if err != nil {
		return err
	}
	plan, err := app.organizer.Plan(folder, destination, ordering.Parse(orderText))
	if err != nil {
		if errors.Is(err, organizer.ErrSourceNotFound) {
			return statusError("Error: Source folder not found at " + folder)
		}
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Destination: %s\n", plan.Destination)
	if len(plan.Files) == 0 {
		fmt.Fprintln(out, "No files match the order.")
	} else {
		rows := make([][]string, 0, len(plan.Files))
		for _, f := range plan.Files {
			rows = append(rows, []string{f.OriginalName, f.NewName})
		}
		fmt.Fprintln(out, renderTable([]string{"File", "Renamed To"}, rows, nil))
	}
	if len(plan.Unmatched) > 0 {
		fmt.Fprintf(out, "%d unmatched: %s\n", len(plan.Unmatched), strings.Join(plan.Unmatched, ", "))
	}
	return nil
}

func newUndoCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "undo <organized-folder> <source-folder>",
		Short: "Move prefixed files back and strip their prefixes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			progress := newBatchProgress(cmd.ErrOrStderr(), "restoring")
			result := app.tools.UndoOrganizationWithProgress(cmd.Context(), args[0], args[1], progress.update)
			progress.finish()
			return printStatus(cmd, result)
		},
	}
}

func newListCommand(app *App) *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "list <folder>",
		Short: "List the files in a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			folder := args[0]
			if plain {
				return printStatus(cmd, app.tools.ListFiles(cmd.Context(), folder))
			}

			files, err := organizer.ListFiles(folder)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return statusError("Error: Folder not found at " + folder)
				}
				return err
			}
			if len(files) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No files.")
				return nil
			}

			rows := make([][]string, 0, len(files))
			for _, f := range files {
				prefixed := ""
				if organizer.HasNumericPrefix(f.Name) {
					prefixed = "yes"
				}
				rows = append(rows, []string{f.Name, humanize.Bytes(uint64(f.Size)), humanize.Time(f.ModTime), prefixed})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Name", "Size", "Modified", "Prefixed"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "Print one name per line")
	return cmd
}

func newHistoryCommand(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded organize and undo runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.db == nil {
				return errors.New("history requires a database; set database.driver in the config")
			}
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive, got %d", limit)
			}
			runs, err := app.db.ListRuns(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, r := range runs {
				rows = append(rows, []string{
					humanize.Time(r.StartedAt),
					r.Operation,
					r.Source,
					r.Destination,
					strconv.Itoa(r.Moved),
					r.Status,
					r.Duration().Round(time.Millisecond).String(),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Started", "Operation", "From", "To", "Moved", "Status", "Took"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")
	return cmd
}
