package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"WhiteboardServer/internal/client"
)

func boardsCmd() *cobra.Command {
	var (
		server  string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "boards [localboard://host:port]",
		Short: "List the boards of a running server and who is in them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				server = args[0]
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			c, err := client.Dial(ctx, serverAddr(server), timeout)
			if err != nil {
				return err
			}
			defer c.Close()

			ids, err := c.BoardIDs()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "BOARD\tUSERS")
			for _, id := range ids {
				names, err := c.UsersForBoard(id)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%d\t%s\n", id, strings.Join(names, ", "))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			return c.Logout()
		},
	}

	cmd.Flags().StringVar(&server, "server", "127.0.0.1:4444", "Server address")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "Connect and read timeout")
	return cmd
}
