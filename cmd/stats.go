package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sarchlab/garnetvis/stats"
	"github.com/spf13/cobra"
)

var (
	statsAll  bool
	statsJSON bool
)

var statsCmd = &cobra.Command{
	Use:   "stats <stats.txt>",
	Short: "Print the statistics of a gem5 stats file.",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		p := stats.NewParser()
		if statsAll {
			p = p.WithAll()
		}

		st, err := p.ParseFile(args[0])
		if err != nil {
			return err
		}

		if statsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "    ")

			return enc.Encode(st)
		}

		for _, k := range st.Keys() {
			fmt.Printf("%-55s %s\n", k, st[k])
		}

		return nil
	},
}

func init() {
	statsCmd.Flags().BoolVar(&statsAll, "all", false, "Print every statistic")
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Print as JSON")
	rootCmd.AddCommand(statsCmd)
}
