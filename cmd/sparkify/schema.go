package main

import (
	"github.com/spf13/cobra"

	"github.com/franz/sparkify-etl/internal/util"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Create the star schema tables",
	Long: `Create the songplays, users, songs, artists and time tables if they do not
exist. With --drop, the tables are dropped first and recreated empty.`,
	RunE: runSchema,
}

func init() {
	rootCmd.AddCommand(schemaCmd)

	schemaCmd.Flags().Bool("drop", false, "drop and recreate all tables (deletes loaded data)")
}

func runSchema(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	drop, _ := cmd.Flags().GetBool("drop")

	// Opening the store applies any pending migrations
	db, _, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	if drop {
		util.WarnLog("Dropping all tables")
		if err := db.Reset(ctx); err != nil {
			return err
		}
	}

	version, err := db.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	util.SuccessLog("Schema ready (version %d, %s)", version, db.Dialect())
	return nil
}
