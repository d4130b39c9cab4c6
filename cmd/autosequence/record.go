package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var recordFlags struct {
	clientConfig
}

var recordCmd = &cobra.Command{
	Use:   "record <start|stop|clear>",
	Short: "Control the recording session",
	Long: `Control the recording session of a running capture service.

  start  begin a fresh recording; any prior records are discarded
  stop   stop recording; records are retained for diagram compilation
  clear  wipe the ledger without changing the recording state`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"start", "stop", "clear"},
	RunE:      runRecord,
}

func init() {
	rootCmd.AddCommand(recordCmd)

	addClientFlags(recordCmd, &recordFlags.clientConfig)
}

func runRecord(cmd *cobra.Command, args []string) error {
	c := recordFlags.newClient()

	switch args[0] {
	case "start":
		if err := c.StartRecording(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Recording started.")
	case "stop":
		if err := c.StopRecording(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Recording stopped.")
	case "clear":
		if err := c.ClearRecords(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Records cleared.")
	default:
		return fmt.Errorf("unknown action %q (want start, stop, or clear)", args[0])
	}
	return nil
}
