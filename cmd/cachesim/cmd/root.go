// Package cmd provides the command-line interface of cachesim.
package cmd

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/sarchlab/cachesim/internal/logging"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// NewRootCmd creates the cachesim command with all its subcommands.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cachesim",
		Short: "cachesim simulates a cache under a memory reference trace.",
		Long: `cachesim simulates a unified or split, set-associative cache ` +
			`with LRU replacement under a memory reference trace and reports ` +
			`hits, misses and memory traffic.`,
		SilenceUsage:      true,
		PersistentPreRunE: setUpEnvironment,
	}

	rootCmd.PersistentFlags().String("env-file", "",
		"Load environment variables from this file instead of .env.")
	rootCmd.PersistentFlags().String("log-level", "",
		"Log level (DEBUG, INFO, WARN, ERROR). Overrides "+
			logging.EnvLogLevel+".")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newSweepCmd())
	rootCmd.AddCommand(newShowCmd())

	return rootCmd
}

func setUpEnvironment(cmd *cobra.Command, _ []string) error {
	envFile, _ := cmd.Flags().GetString("env-file")
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return err
		}
	} else if err := godotenv.Load(); err != nil &&
		!errors.Is(err, fs.ErrNotExist) {
		return err
	}

	logging.ConfigureWriter(cmd.ErrOrStderr())

	levelName, _ := cmd.Flags().GetString("log-level")
	if levelName != "" {
		level, err := logging.ParseLevel(levelName)
		if err != nil {
			return err
		}

		logging.SetLevel(level)
	}

	return nil
}

// Execute runs the root command and exits. Exiting goes through atexit so
// that recordings are flushed.
func Execute() {
	err := NewRootCmd().Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
