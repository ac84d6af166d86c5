package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/abapaengine/core/internal/protocol"
)

var serviceFlags = &searchFlags{}

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Run the set-position/set-option/search/stop/report protocol over stdin/stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine := buildProtocolEngine(serviceFlags)
		srv := protocol.NewServer(engine, newGame, os.Stdout)
		return srv.Serve(os.Stdin)
	},
}

func init() {
	addSearchFlags(serviceCmd, serviceFlags)
}
