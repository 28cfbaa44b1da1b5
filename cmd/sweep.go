package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/sarchlab/garnetvis/experiment"
	"github.com/sarchlab/garnetvis/runstore"
	"github.com/spf13/cobra"
)

type sweepOptions struct {
	key    string
	values string
	sets   []string
	preset string
	stat   string
}

var sweepOpts sweepOptions

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run the simulation once per value of a parameter.",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		base, err := configFrom(sweepOpts.preset, sweepOpts.sets)
		if err != nil {
			return err
		}

		a, err := newApp("sweep")
		if err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()

		report, err := a.exp.Run(ctx, experiment.Sweep{
			Key:    sweepOpts.key,
			Values: experiment.ParseValues(sweepOpts.values),
			Base:   base,
		})
		if err != nil {
			return err
		}

		color.Green("Completed %d of %d runs.", report.Completed, report.Total)

		for _, f := range report.Failures {
			color.Red("%s=%s failed with code %d", report.Key, f.Value, f.ExitCode)
		}

		if report.Cancelled {
			color.Yellow("Sweep cancelled.")
		}

		recs, err := a.exp.Store().LoadAll()
		if err != nil {
			return err
		}

		y := sweepOpts.stat
		if y == "" {
			y = experiment.DefaultStat(runstore.StatKeys(recs))
		}

		fmt.Printf("%-20s %s\n", report.Key, y)

		for _, p := range experiment.Analyze(recs, report.Key, y) {
			fmt.Printf("%-20v %g\n", p.X, p.Y)
		}

		return nil
	},
}

func init() {
	f := sweepCmd.Flags()
	f.StringVar(&sweepOpts.key, "var", experiment.DefaultKey, "Parameter to sweep")
	f.StringVar(&sweepOpts.values, "values", experiment.DefaultValues,
		"Comma-separated values of the parameter")
	f.StringArrayVar(&sweepOpts.sets, "set", nil,
		"Set a base parameter, as key=value (repeatable)")
	f.StringVar(&sweepOpts.preset, "preset", "", "Start from a saved preset")
	f.StringVar(&sweepOpts.stat, "stat", "", "Statistic to report")
	rootCmd.AddCommand(sweepCmd)
}
