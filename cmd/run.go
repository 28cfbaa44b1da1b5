package cmd

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/sarchlab/garnetvis/config"
	"github.com/sarchlab/garnetvis/runner"
	"github.com/spf13/cobra"
)

type runOptions struct {
	sets   []string
	preset string
	dryRun bool
}

var runOpts runOptions

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one simulation and save its statistics.",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		c, err := configFrom(runOpts.preset, runOpts.sets)
		if err != nil {
			return err
		}

		check := c.Validate()
		if !check.Valid {
			return errors.New(check.Message)
		}

		a, err := newApp("run")
		if err != nil {
			return err
		}

		if runOpts.dryRun {
			fmt.Println(config.CommandString(a.runner.CommandBuilder().Build(c)))
			return nil
		}

		ctx, cancel := signalContext()
		defer cancel()

		res, err := a.runner.Run(ctx, c)
		if res != nil {
			printResult(res)
		}

		if err != nil {
			return err
		}

		if res.Status != runner.StatusSuccess {
			return fmt.Errorf("simulation ended with status %s", res.Status)
		}

		return nil
	},
}

func init() {
	f := runCmd.Flags()
	f.StringArrayVar(&runOpts.sets, "set", nil, "Set a parameter, as key=value (repeatable)")
	f.StringVar(&runOpts.preset, "preset", "", "Start from a saved preset")
	f.BoolVar(&runOpts.dryRun, "dry-run", false, "Print the command without running it")
	rootCmd.AddCommand(runCmd)
}

func printResult(res *runner.Result) {
	fmt.Println(res.CommandString)

	for _, m := range res.Messages {
		switch m.Level {
		case runner.LevelSuccess, runner.LevelInfo:
			color.Green("%s", m.Text)
		case runner.LevelWarning:
			color.Yellow("%s", m.Text)
		default:
			color.Red("%s", m.Text)
		}
	}

	for _, k := range res.Stats.Keys() {
		fmt.Printf("  %-55s %s\n", k, res.Stats[k])
	}

	fmt.Printf("Took %.2fs, peak CPU %.1f%%, peak memory %d bytes\n",
		res.Duration, res.Peak.CPUPercent, res.Peak.MemorySize)
}
