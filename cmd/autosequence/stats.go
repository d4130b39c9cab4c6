package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsFlags struct {
	clientConfig
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show capture state and counters",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	addClientFlags(statsCmd, &statsFlags.clientConfig)
}

func runStats(cmd *cobra.Command, args []string) error {
	c := statsFlags.newClient()

	state, err := c.GetState()
	if err != nil {
		return err
	}

	status := "stopped"
	if state.Recording {
		status = "recording"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%-10s  %s\n", "STATUS", status)
	fmt.Fprintf(cmd.OutOrStdout(), "%-10s  %d\n", "REQUESTS", state.RequestCount)
	fmt.Fprintf(cmd.OutOrStdout(), "%-10s  %d\n", "DOMAINS", state.DomainCount)
	return nil
}
