// garnetvis configures, runs, and visualizes gem5 Garnet simulations.
package main

import "github.com/sarchlab/garnetvis/cmd"

func main() {
	cmd.Execute()
}
