package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var benchFlags = &searchFlags{}

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Run a single search from the starting position and report timing/node counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		g := newGame()
		start := time.Now()

		if benchFlags.useUCT {
			e := buildUCT(benchFlags)
			move, err := e.ComputeBestMove(g)
			if err != nil {
				return err
			}
			elapsed := time.Since(start)
			fmt.Fprintf(cmd.OutOrStdout(), "uct: move=%s score=%d probes=%d elapsed=%s\n",
				g.Board().ToCoordinates(move), e.ComputeBestScore(), e.Probes(), elapsed)
			return nil
		}

		e := buildNegamax(benchFlags)
		move, err := e.ComputeBestMove(g)
		if err != nil {
			return err
		}
		elapsed := time.Since(start)
		stats := e.Stats()
		fmt.Fprintf(cmd.OutOrStdout(), "negamax: move=%s score=%d nodes=%d evals=%d prunes=%d elapsed=%s nps=%.0f\n",
			g.Board().ToCoordinates(move), e.ComputeBestScore(), stats.Nodes, stats.Evals, stats.Prunes, elapsed,
			float64(stats.Nodes)/elapsed.Seconds())
		return nil
	},
}

func init() {
	addSearchFlags(benchCmd, benchFlags)
}
