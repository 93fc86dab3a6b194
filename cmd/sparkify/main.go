package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/franz/sparkify-etl/internal/util"
)

var (
	// Version is set at build time
	Version = "dev"

	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "sparkify",
		Short: "Sparkify ETL - load song and event logs into a star schema",
		Long: `sparkify loads the Sparkify song-metadata and event-log datasets into a
five-table star schema (songplays, users, songs, artists, time).

Every file is loaded in its own transaction and every row is written with an
idempotent upsert, so a load can be re-run over the same data at any time.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			util.SetVerbose(viper.GetBool("verbose"))
			util.SetQuiet(viper.GetBool("quiet"))
		},
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./configs/sparkify.yaml)")
	rootCmd.PersistentFlags().String("db", defaultDB, "database: SQLite file path or postgres:// URL")
	rootCmd.PersistentFlags().Int("connect-retries", 3, "connection attempts before giving up (0 or 1 = no retry)")
	rootCmd.PersistentFlags().String("event-dir", "artifacts", "directory for the JSONL event log")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "quiet output (errors only)")

	// Bind flags to viper
	viper.BindPFlag("db", rootCmd.PersistentFlags().Lookup("db"))
	viper.BindPFlag("connect-retries", rootCmd.PersistentFlags().Lookup("connect-retries"))
	viper.BindPFlag("event-dir", rootCmd.PersistentFlags().Lookup("event-dir"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
}

func initConfig() {
	// .env is optional; real environment variables take precedence
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		util.WarnLog("Failed to load .env: %v", err)
	}

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Search for config in common locations
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
		viper.SetConfigName("sparkify")
		viper.SetConfigType("yaml")
	}

	// SPARKIFY_SONG_DATA overrides song-data, and so on
	viper.SetEnvPrefix("SPARKIFY")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && !viper.GetBool("quiet") {
		util.InfoLog("Using config file: %s", viper.ConfigFileUsed())
	} else if err != nil && cfgFile != "" {
		util.WarnLog("Failed to read config file %s: %v", cfgFile, err)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
