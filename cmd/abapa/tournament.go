package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/abapaengine/core/internal/game"
)

var (
	tournamentGames       int
	tournamentParallelism int
	tournamentSouth       = &searchFlags{}
	tournamentNorth       = &searchFlags{}
)

var tournamentCmd = &cobra.Command{
	Use:   "tournament",
	Short: "Play engine vs engine matches and report the win/draw/loss tally",
	RunE: func(cmd *cobra.Command, args []string) error {
		outcomes := make([]game.Score, tournamentGames)
		plies := make([]int, tournamentGames)

		var wg errgroup.Group
		wg.SetLimit(tournamentParallelismOrDefault())

		for i := 0; i < tournamentGames; i++ {
			wg.Go(func() error {
				// Engines and the game are built per match: neither search engine is
				// safe for concurrent use, so nothing is shared between goroutines.
				south := buildProtocolEngine(tournamentSouth)
				north := buildProtocolEngine(tournamentNorth)

				g := newGame()
				for !g.HasEnded() {
					mover := south
					if g.Turn() == game.NORTH {
						mover = north
					}
					move, err := mover.ComputeBestMove(g)
					if err != nil {
						return err
					}
					if err := g.MakeMove(move); err != nil {
						return err
					}
				}
				outcomes[i], plies[i] = g.Outcome(), g.Length()
				return nil
			})
		}
		if err := wg.Wait(); err != nil {
			return err
		}

		var southWins, northWins, draws int
		for i, outcome := range outcomes {
			switch {
			case outcome > 0:
				southWins++
			case outcome < 0:
				northWins++
			default:
				draws++
			}
			fmt.Fprintf(cmd.OutOrStdout(), "game %d: %d plies, outcome=%d\n", i+1, plies[i], outcome)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "south %d - draws %d - north %d\n", southWins, draws, northWins)
		return nil
	},
}

func tournamentParallelismOrDefault() int {
	if tournamentParallelism > 0 {
		return tournamentParallelism
	}
	return runtime.GOMAXPROCS(0)
}

func init() {
	tournamentCmd.Flags().IntVar(&tournamentGames, "games", 1, "number of games to play")
	tournamentCmd.Flags().IntVar(&tournamentParallelism, "parallelism", 0, "matches to play simultaneously (0: one per available CPU)")
	addSearchFlags(tournamentCmd, tournamentSouth)
	tournamentCmd.Flags().BoolVar(&tournamentNorth.useUCT, "north-uct", false, "have NORTH search with UCT instead of negamax")
	tournamentCmd.Flags().IntVar(&tournamentNorth.moveTimeMs, "north-movetime", 1000, "NORTH's per-move time budget in milliseconds")
	tournamentCmd.Flags().IntVar(&tournamentNorth.depth, "north-depth", 0, "NORTH's fixed search depth, 0 for time-bounded")
}
