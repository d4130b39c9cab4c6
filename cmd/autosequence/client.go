package main

import (
	"github.com/inabajunmr/autosequence/internal/client"
	"github.com/inabajunmr/autosequence/internal/config"
	"github.com/spf13/cobra"
)

type clientConfig struct {
	apiURL string
}

func addClientFlags(cmd *cobra.Command, cfg *clientConfig) {
	cmd.Flags().StringVar(&cfg.apiURL, "api-url",
		config.GetEnv("AUTOSEQ_API_URL", "http://127.0.0.1:8765"), "capture service URL")
}

func (cfg *clientConfig) newClient() *client.Client {
	return client.NewClient(cfg.apiURL)
}
