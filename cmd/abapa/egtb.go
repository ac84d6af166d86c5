package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abapaengine/core/internal/leaves"
)

var egtbCmd = &cobra.Command{
	Use:   "egtb",
	Short: "Build, export and query the Oware endgame tablebase",
}

var egtbMaxSeeds int
var egtbPath string

var egtbSolveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Build a tablebase covering every position with at most --max-seeds seeds, and save it",
	RunE: func(cmd *cobra.Command, args []string) error {
		tb, err := leaves.Solve(egtbMaxSeeds)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "egtb: solved up to %d seeds\n", tb.MaxSeeds())
		return tb.Save(egtbPath)
	},
}

var egtbExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Re-save a loaded tablebase to a new path (e.g. after a format migration)",
	RunE: func(cmd *cobra.Command, args []string) error {
		tb, err := leaves.Load(egtbPath)
		if err != nil {
			return err
		}
		return tb.Save(egtbExportOut)
	},
}

var egtbExportOut string

var egtbQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Solve a tablebase in memory and report the start position's value",
	RunE: func(cmd *cobra.Command, args []string) error {
		tb, err := leaves.Solve(egtbMaxSeeds)
		if err != nil {
			return err
		}
		g := newGame()
		if !tb.Find(g) {
			fmt.Fprintln(cmd.OutOrStdout(), "start position is outside the tablebase's domain")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "score=%d flag=%s\n", tb.Score(), tb.Flag())
		return nil
	},
}

func init() {
	egtbSolveCmd.Flags().IntVar(&egtbMaxSeeds, "max-seeds", 12, "maximum on-board seed count to solve")
	egtbSolveCmd.Flags().StringVar(&egtbPath, "out", "egtb.bin", "output tablebase file")

	egtbExportCmd.Flags().StringVar(&egtbPath, "in", "egtb.bin", "input tablebase file")
	egtbExportCmd.Flags().StringVar(&egtbExportOut, "out", "egtb.export.bin", "output tablebase file")

	egtbQueryCmd.Flags().IntVar(&egtbMaxSeeds, "max-seeds", 12, "maximum on-board seed count to solve in memory")

	egtbCmd.AddCommand(egtbSolveCmd, egtbExportCmd, egtbQueryCmd)
}
