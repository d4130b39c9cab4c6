// Package main implements the autosequence CLI.
package main

import (
	"fmt"
	"os"

	"github.com/inabajunmr/autosequence/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var logger *zap.Logger

var rootCmd = &cobra.Command{
	Use:   "autosequence",
	Short: "HTTP capture service that compiles mermaid sequence diagrams",
	Long: `autosequence records browser network request lifecycles delivered by an
extension, correlates initiations with their completions, and compiles the
captured traffic into mermaid sequence-diagram text.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = logging.New(logging.FromEnv())
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			logging.Sync(logger)
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
