// Package cmd provides the command-line interface of the visualizer.
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tebeka/atexit"
)

// EnvPrefix starts the environment variables that set flags.
const EnvPrefix = "GARNETVIS_"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "garnetvis",
	Short: "Configure, run, and visualize gem5 Garnet network simulations.",
	Long: `garnetvis builds gem5 command lines for the Garnet synthetic ` +
		`traffic script, runs them, keeps their statistics, and serves a ` +
		`web page to compare runs, sweep parameters, and replay flit traces.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := loadEnv(cmd); err != nil {
			return err
		}

		setupLogging(opts.logJSON, opts.logLevel)

		return nil
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		color.Red("Error: %v", err)
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

// loadEnv reads the .env file, if any, and sets every flag that was not
// given on the command line from its GARNETVIS_ variable.
func loadEnv(cmd *cobra.Command) error {
	err := godotenv.Load(opts.envFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", opts.envFile, err)
	}

	var setErr error

	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed || setErr != nil {
			return
		}

		v, ok := os.LookupEnv(envName(f.Name))
		if !ok {
			return
		}

		if err := f.Value.Set(v); err != nil {
			setErr = fmt.Errorf("%s: %w", envName(f.Name), err)
		}
	})

	return setErr
}

func envName(flag string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
}

func setupLogging(json bool, level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}

	handlerOpts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler = slog.NewTextHandler(os.Stderr, handlerOpts)
	if json {
		handler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	}

	slog.SetDefault(slog.New(handler))
}
