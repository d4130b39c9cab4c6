package main

import (
	"fmt"

	"github.com/inabajunmr/autosequence/internal/client"
	"github.com/spf13/cobra"
)

var diagramFlags struct {
	clientConfig
	domains []string
	types   []string
	max     int
}

var diagramCmd = &cobra.Command{
	Use:   "diagram",
	Short: "Compile and print the mermaid diagram",
	Long: `Compile the captured traffic into mermaid sequence-diagram text and
print it to stdout.

Without --domains or --types all records are included. An explicitly empty
selection (e.g. --domains="") selects nothing on that axis.`,
	RunE: runDiagram,
}

func init() {
	rootCmd.AddCommand(diagramCmd)

	addClientFlags(diagramCmd, &diagramFlags.clientConfig)
	diagramCmd.Flags().StringSliceVar(&diagramFlags.domains, "domains", nil, "domains to include (comma-separated)")
	diagramCmd.Flags().StringSliceVar(&diagramFlags.types, "types", nil, "content types to include (comma-separated)")
	diagramCmd.Flags().IntVar(&diagramFlags.max, "max", 0, "cap on message pairs (0 uses the server default)")
}

func runDiagram(cmd *cobra.Command, args []string) error {
	c := diagramFlags.newClient()

	q := client.DiagramQuery{
		Domains:    diagramFlags.domains,
		Types:      diagramFlags.types,
		HasDomains: cmd.Flags().Changed("domains"),
		HasTypes:   cmd.Flags().Changed("types"),
		Max:        diagramFlags.max,
	}

	text, err := c.GetDiagram(q)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}
