package cmd

import (
	"os"

	"github.com/sarchlab/garnetvis/bootstrap"
	"github.com/spf13/cobra"
)

type entrypointOptions struct {
	repoURL  string
	repoDir  string
	branches []string
}

var entrypointOpts entrypointOptions

var entrypointCmd = &cobra.Command{
	Use:   "entrypoint [-- command...]",
	Short: "Update the simulator checkout, then serve or run a command.",
	Long: `entrypoint pulls the simulator checkout, or clones it when it is ` +
		`missing. A checkout that cannot be pulled is used as it is. Then it ` +
		`serves the web interface, or runs the command given after --.`,
	RunE: func(_ *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		git := bootstrap.CommandGit{Stdout: os.Stderr, Stderr: os.Stderr}

		_, err := bootstrap.Sync(ctx, git, bootstrap.Repo{
			URL:      entrypointOpts.repoURL,
			Dir:      entrypointOpts.repoDir,
			Branches: entrypointOpts.branches,
		})
		if err != nil {
			return err
		}

		if len(args) > 0 {
			return bootstrap.Launch(ctx, args, opts.workDir)
		}

		return serve(ctx)
	},
}

func init() {
	f := entrypointCmd.Flags()
	f.StringVar(&entrypointOpts.repoURL, "repo-url", "", "Repository to clone")
	f.StringVar(&entrypointOpts.repoDir, "repo-dir", "../gem5-tracer", "Simulator checkout")
	f.StringSliceVar(&entrypointOpts.branches, "branch", bootstrap.DefaultBranches,
		"Branches to try pulling, in order")
	addServeFlags(entrypointCmd)
	rootCmd.AddCommand(entrypointCmd)
}
