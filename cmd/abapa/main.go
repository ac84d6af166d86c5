// Command abapa is the Oware Abapa search engine's command-line front end: a cobra
// subcommand tree over the same oware/negamax/uct/leaves/roots/trainer/protocol stack
// the engine packages implement (service, shell, bench, perft, divide, tournament,
// book train/export, egtb solve/export/query), without being bit-exact to any one
// existing engine's CLI.
//
// Flag wiring merges klog.InitFlags into cobra's persistent flags; subcommands are
// built around a shared searchFlags struct and fail loudly at startup through cobra's
// RunE error return, with klog for everything after.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

var rootCmd = &cobra.Command{
	Use:           "abapa",
	Short:         "Oware Abapa search engine: service, shell, bench, perft, book and egtb tooling",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	klog.InitFlags(nil)
	rootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)

	rootCmd.AddCommand(
		serviceCmd,
		shellCmd,
		benchCmd,
		perftCmd,
		divideCmd,
		tournamentCmd,
		bookCmd,
		egtbCmd,
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "abapa: %+v\n", err)
		os.Exit(1)
	}
}
