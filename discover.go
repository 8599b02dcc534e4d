package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	wbnet "WhiteboardServer/internal/net"
)

func discoverCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Find whiteboard servers on the local network",
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := wbnet.Browse(timeout)
			if err != nil {
				return err
			}
			if len(services) == 0 {
				fmt.Println("no servers found")
				return nil
			}
			for _, s := range services {
				fmt.Printf("%s%s\t%s\n", LinkScheme, s.Addr, s.Instance)
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Second, "How long to listen for answers")
	return cmd
}
