package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/sarchlab/garnetvis/datarecording"
	"github.com/sarchlab/garnetvis/runstore"
	"github.com/spf13/cobra"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect saved runs.",
}

func runStore() *runstore.Store {
	return runstore.New(opts.runDir, runstore.RunLayout)
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved runs.",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		names, err := runStore().List()
		if err != nil {
			return err
		}

		for _, n := range names {
			fmt.Println(n)
		}

		return nil
	},
}

var runsDiffCmd = &cobra.Command{
	Use:   "diff <run> [run...]",
	Short: "Show the differing parameters and the statistics of runs.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		recs, err := runStore().LoadMany(args)
		if err != nil {
			return err
		}

		header := []string{fmt.Sprintf("%-45s", "key")}
		for _, r := range recs {
			header = append(header, fmt.Sprintf("%-28s", r.RunName))
		}

		color.Cyan("%s", strings.Join(header, " "))

		diff := map[string]bool{}
		for _, k := range runstore.DiffKeys(recs) {
			diff[k] = true
		}

		for _, row := range runstore.Compare(recs) {
			line := []string{fmt.Sprintf("%-45s", row.Key)}
			for _, v := range row.Values {
				line = append(line, fmt.Sprintf("%-28s", v))
			}

			if diff[row.Key] {
				color.Yellow("%s", strings.Join(line, " "))
				continue
			}

			fmt.Println(strings.Join(line, " "))
		}

		return nil
	},
}

var runsDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete all saved runs.",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		n, err := runStore().DeleteAll()
		if err != nil {
			return err
		}

		color.Green("Deleted %d runs.", n)

		return nil
	},
}

var historyLimit int

var runsHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List the runs recorded in the run index.",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		path := strings.TrimPrefix(opts.index, "sqlite://")
		if path == "" || strings.HasPrefix(path, "clickhouse://") {
			return fmt.Errorf("history needs a SQLite run index, got %q", opts.index)
		}

		if !strings.HasSuffix(path, ".sqlite3") {
			path += ".sqlite3"
		}

		reader, err := datarecording.NewReader(path)
		if err != nil {
			return err
		}
		defer reader.Close()

		runs, total, err := datarecording.QueryRuns(context.Background(), reader,
			datarecording.QueryParams{
				OrderBy: "Timestamp DESC",
				Limit:   historyLimit,
			})
		if err != nil {
			return err
		}

		for _, r := range runs {
			fmt.Printf("%s  %-25s %-6s %-9s %7.2fs  %s\n",
				r.ID, r.Timestamp, r.Kind, r.Status, r.DurationSeconds, r.RunName)
		}

		fmt.Printf("%d of %d runs\n", len(runs), total)

		return nil
	},
}

func init() {
	runsHistoryCmd.Flags().IntVar(&historyLimit, "limit", 20, "Number of runs to show")

	runsCmd.AddCommand(runsListCmd, runsDiffCmd, runsDeleteCmd, runsHistoryCmd)
	rootCmd.AddCommand(runsCmd)
}
