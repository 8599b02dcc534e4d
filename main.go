package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// LinkScheme prefixes the address a server shares with its clients.
const LinkScheme = "localboard://"

func main() {
	rootCmd := &cobra.Command{
		Use:   "whiteboard",
		Short: "Shared whiteboard server",
		Long: `A multi-client shared whiteboard server.

Clients connect over TCP, join named boards and draw strokes that every
other member of the board sees in order.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		boardsCmd(),
		discoverCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// serverAddr accepts host:port or a localboard:// link.
func serverAddr(s string) string {
	s = strings.TrimPrefix(s, LinkScheme)
	return strings.TrimSuffix(s, "/")
}
