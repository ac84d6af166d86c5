package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abapaengine/core/internal/game"
)

var perftDepth int

var perftCmd = &cobra.Command{
	Use:   "perft",
	Short: "Count leaf positions reachable from the start position at a fixed depth",
	RunE: func(cmd *cobra.Command, args []string) error {
		g := newGame()
		count := perft(g, perftDepth)
		fmt.Fprintf(cmd.OutOrStdout(), "perft(%d) = %d\n", perftDepth, count)
		return nil
	},
}

var divideCmd = &cobra.Command{
	Use:   "divide",
	Short: "Like perft, but broken down by the first move played",
	RunE: func(cmd *cobra.Command, args []string) error {
		g := newGame()
		var total int64
		for _, m := range g.LegalMoves() {
			if err := g.MakeMove(m); err != nil {
				return err
			}
			n := perft(g, perftDepth-1)
			total += n
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d\n", g.Board().ToCoordinates(m), n)
			if err := g.UnmakeMove(); err != nil {
				return err
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "total: %d\n", total)
		return nil
	},
}

func init() {
	perftCmd.Flags().IntVar(&perftDepth, "depth", 4, "perft depth in plies")
	divideCmd.Flags().IntVar(&perftDepth, "depth", 4, "perft depth in plies")
}

// perft counts the leaf positions depth plies below g's current position, without
// mutating g past the call (every MakeMove is paired with an UnmakeMove).
func perft(g game.Game, depth int) int64 {
	if depth <= 0 || g.HasEnded() {
		return 1
	}
	var count int64
	for _, m := range g.LegalMoves() {
		if err := g.MakeMove(m); err != nil {
			return count
		}
		count += perft(g, depth-1)
		if err := g.UnmakeMove(); err != nil {
			return count
		}
	}
	return count
}
