package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/franz/sparkify-etl/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database backend and table row counts",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	db, dsn, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	version, err := db.ServerVersion(ctx)
	if err != nil {
		return err
	}
	counts, err := db.TableCounts(ctx)
	if err != nil {
		return err
	}
	matched, err := db.CountMatchedSongplays(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Database: %s\n", store.RedactDSN(dsn))
	fmt.Fprintf(out, "Backend:  %s %s\n", db.Dialect(), version)
	fmt.Fprintln(out)
	for _, c := range counts {
		fmt.Fprintf(out, "  %-10s %12s\n", c.Table, humanize.Comma(c.Rows))
	}
	fmt.Fprintf(out, "  %-10s %12s\n", "matched", humanize.Comma(matched))
	return nil
}
