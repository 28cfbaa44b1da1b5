package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/sarchlab/garnetvis/flittrace"
	"github.com/spf13/cobra"
)

type traceOptions struct {
	mesh     int
	interval uint64
	json     bool
}

var traceOpts traceOptions

var traceCmd = &cobra.Command{
	Use:   "trace [event log]",
	Short: "Replay a Garnet flit event log.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		if traceOpts.mesh < 1 || traceOpts.mesh > flittrace.MaxMeshSize {
			return fmt.Errorf("mesh size must be between 1 and %d, got %d",
				flittrace.MaxMeshSize, traceOpts.mesh)
		}

		path := flittrace.DefaultPath
		if len(args) > 0 {
			path = args[0]
		}

		events, err := flittrace.ReadFile(path)
		if errors.Is(err, flittrace.ErrTruncated) && len(events) > 0 {
			color.Yellow("Warning: %v", err)
		} else if err != nil {
			return err
		}

		anim, err := flittrace.Animate(flittrace.Replay(events),
			flittrace.NewMesh(traceOpts.mesh), traceOpts.interval)
		if err != nil {
			return err
		}

		if traceOpts.json {
			return json.NewEncoder(os.Stdout).Encode(anim)
		}

		fmt.Printf("%d events, %d snapshots, %d frames\n",
			len(events), anim.Snapshots, len(anim.Frames))

		for _, f := range anim.Frames {
			busyRouters, busyLinks := 0, 0
			for _, r := range f.Routers {
				busyRouters += r.Flits
			}

			for _, l := range f.Links {
				busyLinks += l.Flits
			}

			fmt.Printf("tick %-10d flits in routers %-4d flits on links %d\n",
				f.Tick, busyRouters, busyLinks)
		}

		return nil
	},
}

func init() {
	f := traceCmd.Flags()
	f.IntVar(&traceOpts.mesh, "mesh", flittrace.DefaultMeshSize, "Side of the mesh")
	f.Uint64Var(&traceOpts.interval, "interval", flittrace.DefaultInterval,
		"Ticks between frames")
	f.BoolVar(&traceOpts.json, "json", false, "Print the frames as JSON")
	rootCmd.AddCommand(traceCmd)
}
