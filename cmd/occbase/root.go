package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/safing/occbase/config"
	"github.com/safing/occbase/database"
	"github.com/safing/occbase/log"
)

var (
	logLevel   string
	configFile string
	dbType     string
	dbLocation string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "occbase",
	Short: "Optimistic locking for single rows",
	Long: `occbase stores rows with a version counter and applies updates and
deletes only if the row was not changed since it was read.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := log.ParseLevel(logLevel)
		if level == 0 {
			return fmt.Errorf("invalid log level %q", logLevel)
		}
		log.SetLogLevel(level)

		if configFile != "" {
			if err := config.LoadFile(configFile); err != nil {
				return err
			}
		}

		// Flags override the config file.
		if cmd.Flags().Changed("db-type") {
			if err := config.SetConfigOption(database.CfgTypeKey, dbType); err != nil {
				return err
			}
		}
		if cmd.Flags().Changed("db-location") {
			if err := config.SetConfigOption(database.CfgLocationKey, dbLocation); err != nil {
				return err
			}
		}

		return log.Start()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		log.Shutdown()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Shutdown()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info", "log level: trace, debug, info, warning, error or critical")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "JSON or YAML config file")
	rootCmd.PersistentFlags().StringVar(&dbType, "db-type", database.DefaultType, "storage type")
	rootCmd.PersistentFlags().StringVar(&dbLocation, "db-location", "", "storage directory, empty keeps sqlite in memory")
}

// openDatabase opens the configured database.
func openDatabase() (*database.Interface, error) {
	storageType := config.GetAsString(database.CfgTypeKey, database.DefaultType)()
	location := config.GetAsString(database.CfgLocationKey, "")()
	return database.Open("occbase", storageType, location)
}
