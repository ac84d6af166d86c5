package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abapaengine/core/internal/trainer"
)

var bookCmd = &cobra.Command{
	Use:   "book",
	Short: "Grow and export a drop-out expansion opening book",
}

var (
	bookTrainFlags = &searchFlags{}
	bookWeight     float64
	bookWindow     float64
	bookPaths      int
	bookGraphPath  string
	bookExportPath string
)

var bookTrainCmd = &cobra.Command{
	Use:   "train",
	Short: "Expand the opening-book graph by a number of drop-out expansion paths",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine := buildNegamax(bookTrainFlags)
		tr := trainer.New(newGame(), engine, trainer.Config{Weight: bookWeight, Window: bookWindow})

		if bookGraphPath != "" {
			if err := tr.LoadGraph(bookGraphPath); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "abapa: starting from an empty graph (%+v)\n", err)
			}
		}

		if err := tr.TrainPaths(bookPaths); err != nil {
			return err
		}
		tr.Refresh()

		fmt.Fprintf(cmd.OutOrStdout(), "book: %d nodes known\n", tr.NodeCount())

		if bookGraphPath != "" {
			if err := tr.SaveGraph(bookGraphPath); err != nil {
				return err
			}
		}
		if bookExportPath != "" {
			if err := tr.Export(bookExportPath, map[string]string{
				"Weight": fmt.Sprintf("%g", bookWeight),
				"Window": fmt.Sprintf("%g", bookWindow),
			}); err != nil {
				return err
			}
		}
		return nil
	},
}

var bookExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a previously-trained graph snapshot to the binary book format",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine := buildNegamax(bookTrainFlags)
		tr := trainer.New(newGame(), engine, trainer.Config{Weight: bookWeight, Window: bookWindow})
		if err := tr.LoadGraph(bookGraphPath); err != nil {
			return err
		}
		return tr.Export(bookExportPath, map[string]string{
			"Weight": fmt.Sprintf("%g", bookWeight),
			"Window": fmt.Sprintf("%g", bookWindow),
		})
	},
}

func init() {
	addSearchFlags(bookTrainCmd, bookTrainFlags)
	bookTrainCmd.Flags().Float64Var(&bookWeight, "weight", 1.7, "scorePenalty weight")
	bookTrainCmd.Flags().Float64Var(&bookWindow, "window", 68, "leafPenalty window")
	bookTrainCmd.Flags().IntVar(&bookPaths, "paths", 100, "number of expansion paths to train")
	bookTrainCmd.Flags().StringVar(&bookGraphPath, "graph", "", "persistent graph snapshot to resume from/save to, if set")
	bookTrainCmd.Flags().StringVar(&bookExportPath, "export", "", "binary book file to export to, if set")

	bookExportCmd.Flags().Float64Var(&bookWeight, "weight", 1.7, "scorePenalty weight (only recorded in the exported book's header)")
	bookExportCmd.Flags().Float64Var(&bookWindow, "window", 68, "leafPenalty window (only recorded in the exported book's header)")
	bookExportCmd.Flags().StringVar(&bookGraphPath, "graph", "", "persistent graph snapshot to load")
	bookExportCmd.Flags().StringVar(&bookExportPath, "export", "", "binary book file to write")
	_ = bookExportCmd.MarkFlagRequired("graph")
	_ = bookExportCmd.MarkFlagRequired("export")

	bookCmd.AddCommand(bookTrainCmd, bookExportCmd)
}
