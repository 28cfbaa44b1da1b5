package cmd

import (
	"context"
	"fmt"

	"github.com/sarchlab/garnetvis/bootstrap"
	"github.com/sarchlab/garnetvis/server"
	"github.com/spf13/cobra"
)

var healthURL string

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that a running visualizer answers.",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return bootstrap.CheckHealth(context.Background(), healthURL)
	},
}

func init() {
	healthCmd.Flags().StringVar(&healthURL, "url",
		fmt.Sprintf("http://localhost:%d/healthz", server.DefaultPort),
		"Health endpoint")
	rootCmd.AddCommand(healthCmd)
}
