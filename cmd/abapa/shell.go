package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/abapaengine/core/internal/game"
	"github.com/abapaengine/core/internal/report"
)

var shellFlags = &searchFlags{}

var boardStyle = lipgloss.NewStyle().Padding(0, 1).Border(lipgloss.RoundedBorder())

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Play an interactive match against the engine from a terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runShell(cmd, shellFlags)
	},
}

func init() {
	addSearchFlags(shellCmd, shellFlags)
}

func runShell(cmd *cobra.Command, f *searchFlags) error {
	engine := buildProtocolEngine(f)
	engine.AttachConsumer(func(r report.Report) { fmt.Fprintln(cmd.OutOrStdout(), r) })

	g := newGame()
	scanner := bufio.NewScanner(os.Stdin)

	for !g.HasEnded() {
		fmt.Fprintln(cmd.OutOrStdout(), boardStyle.Render(g.Board().ToDiagram()))

		if g.Turn() == game.SOUTH {
			fmt.Fprint(cmd.OutOrStdout(), "your move (house letter, or 'quit'): ")
			if !scanner.Scan() {
				return nil
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "quit" || line == "" {
				return nil
			}
			m, err := g.Board().ToMove(line)
			if err != nil || !g.IsLegal(m) {
				fmt.Fprintf(cmd.OutOrStdout(), "illegal move %q, try again\n", line)
				continue
			}
			if err := g.MakeMove(m); err != nil {
				return err
			}
			continue
		}

		move, err := engine.ComputeBestMove(g)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "engine plays %s\n", g.Board().ToCoordinates(move))
		if err := g.MakeMove(move); err != nil {
			return err
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), boardStyle.Render(g.Board().ToDiagram()))
	switch outcome := g.Outcome(); {
	case outcome > 0:
		fmt.Fprintln(cmd.OutOrStdout(), "SOUTH wins")
	case outcome < 0:
		fmt.Fprintln(cmd.OutOrStdout(), "NORTH wins")
	default:
		fmt.Fprintln(cmd.OutOrStdout(), "draw")
	}
	return nil
}
