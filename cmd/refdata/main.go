package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/tarifflens/backend/internal/infrastructure/refdata"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var dbFlag string

	rootCmd := &cobra.Command{
		Use:           "refdata",
		Short:         "Manage the TariffLens commodity code reference database",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&dbFlag, "db", "tarifflens.db", "Path to the reference database")

	rootCmd.AddCommand(newInitCommand(&dbFlag))
	rootCmd.AddCommand(newImportCommand(&dbFlag))
	rootCmd.AddCommand(newImportURLsCommand(&dbFlag))
	rootCmd.AddCommand(newStatsCommand(&dbFlag))

	return rootCmd
}

func withStore(dbPath string, fn func(store *refdata.Store) error) error {
	store, err := refdata.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open reference database: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func newInitCommand(dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create an empty reference database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(*dbPath, func(store *refdata.Store) error {
				fmt.Fprintf(cmd.OutOrStdout(), "Initialized reference database at %s\n", store.Path())
				return nil
			})
		},
	}
}

func newImportCommand(dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "import <csv>",
		Short: "Import commodity code descriptions from a CSV export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(*dbPath, func(store *refdata.Store) error {
				result, err := store.ImportCommodityCodesCSV(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("import commodity codes: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d commodity codes (%d rows skipped)\n", result.Inserted, result.Skipped)
				return nil
			})
		},
	}
}

func newImportURLsCommand(dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "import-urls <csv>",
		Short: "Import nomenclature source URLs from a CSV export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(*dbPath, func(store *refdata.Store) error {
				result, err := store.ImportURLsCSV(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("import URLs: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d URLs (%d rows skipped)\n", result.Inserted, result.Skipped)
				return nil
			})
		},
	}
}

func newStatsCommand(dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show reference database contents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(*dbPath, func(store *refdata.Store) error {
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return fmt.Errorf("read stats: %w", err)
				}
				writeStats(cmd.OutOrStdout(), store.Path(), stats)
				return nil
			})
		},
	}
}

// writeStats renders a rounded table on terminals and plain key: value
// lines when output is piped
func writeStats(out io.Writer, path string, stats *refdata.Stats) {
	rows := [][2]string{
		{"Commodity codes", fmt.Sprintf("%d", stats.CommodityCodes)},
		{"Distinct HS headings", fmt.Sprintf("%d", stats.DistinctHSCodes)},
		{"Source URLs", fmt.Sprintf("%d", stats.URLs)},
	}

	if !isTerminal(out) {
		fmt.Fprintf(out, "database: %s\n", path)
		for _, row := range rows {
			fmt.Fprintf(out, "%s: %s\n", row[0], row[1])
		}
		return
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle("%s", path)
	tw.AppendHeader(table.Row{"Metric", "Count"})
	for _, row := range rows {
		tw.AppendRow(table.Row{row[0], row[1]})
	}
	fmt.Fprintln(out, tw.Render())
}

func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
