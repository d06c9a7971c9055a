package main

import (
	"fmt"

	"github.com/danmuck/netstring/internal/observability"
	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags "-X main.version=x.y.z"
var version = "0.1.0"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "netstringctl",
		Short: "Serve and send netstring-framed messages over stream sockets",
		Long: `netstringctl runs a netstring channel on either end of a TCP or Unix
stream connection. "serve" answers every inbound message with the selected
handler, "send" dials a server and prints the replies.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			observability.InitLogger("netstringctl")
		},
	}
	root.AddCommand(
		newServeCmd(),
		newSendCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show netstringctl version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "netstringctl version %s\n", version)
		},
	}
}
