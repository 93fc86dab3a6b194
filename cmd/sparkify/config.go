package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/franz/sparkify-etl/internal/report"
	"github.com/franz/sparkify-etl/internal/store"
	"github.com/franz/sparkify-etl/internal/util"
)

const defaultDB = "sparkify.db"

// GetConfigString retrieves a string config value with proper precedence:
// 1. Command-line flag (if set)
// 2. Environment variable (SPARKIFY_*)
// 3. Config file
// 4. Default value
func GetConfigString(key string, defaultValue string) string {
	val := viper.GetString(key)
	if val == "" {
		return defaultValue
	}
	return val
}

// GetConfigInt retrieves an int config value. An explicit 0 is kept;
// defaultValue only applies when the key was never set.
func GetConfigInt(key string, defaultValue int) int {
	if !viper.IsSet(key) {
		return defaultValue
	}
	return viper.GetInt(key)
}

// GetConfigBool retrieves a bool config value
func GetConfigBool(key string) bool {
	return viper.GetBool(key)
}

// GetConfigStringSlice retrieves a string slice config value
func GetConfigStringSlice(key string) []string {
	return viper.GetStringSlice(key)
}

// openStore opens the configured database, retrying the initial connection
func openStore(ctx context.Context) (*store.Store, string, error) {
	dsn := GetConfigString("db", defaultDB)

	retry := connectRetryConfig()

	util.InfoLog("Opening database: %s", store.RedactDSN(dsn))
	start := time.Now()

	db, err := store.OpenWithOptions(ctx, dsn, &store.OpenOptions{ConnectRetry: retry})
	if err != nil {
		return nil, "", err
	}
	util.DebugLog("Database ready in %v (%s)", time.Since(start).Round(time.Millisecond), db.Dialect())

	return db, dsn, nil
}

// connectRetryConfig builds the ping retry policy. connect-retries counts
// attempts, so 0 and 1 both mean a single try.
func connectRetryConfig() *util.RetryConfig {
	retry := util.DefaultRetryConfig()
	retry.MaxAttempts = GetConfigInt("connect-retries", retry.MaxAttempts)
	return retry
}

// openEventLogger creates the JSONL event log. Failure is not fatal; events
// are dropped instead.
func openEventLogger() *report.EventLogger {
	logLevel := report.LevelInfo // Default
	if GetConfigBool("quiet") {
		logLevel = report.LevelWarning // Only warnings and errors
	} else if GetConfigBool("verbose") {
		logLevel = report.LevelDebug // Everything
	}

	logger, err := report.NewEventLogger(GetConfigString("event-dir", "artifacts"), logLevel)
	if err != nil {
		util.WarnLog("Failed to create event logger: %v", err)
		return report.NullLogger()
	}

	if logger.Path() != "" {
		util.InfoLog("Event log: %s", logger.Path())
	}
	return logger
}

func invalidConfig(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), util.ErrInvalidConfig)
}
