package main

import (
	"context"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"sslingest/cmd/sslingest/ingest"
	"sslingest/cmd/sslingest/server"
)

var verbose bool

func Execute() error {
	rootCmd := &cobra.Command{
		Use:   "sslingest",
		Short: "Ingest raw SSL Labs API responses into a database",
		Long: `sslingest calls the Qualys SSL Labs API (/info, /analyze,
/getEndpointData) and stores the raw JSON responses in per-endpoint
database collections for later inspection`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				log.SetLevel(log.DebugLevel)
			} else {
				log.SetLevel(log.InfoLevel)
			}
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	// Add commands
	rootCmd.AddCommand(ingest.NewInfoCommand())
	rootCmd.AddCommand(ingest.NewAnalyzeCommand())
	rootCmd.AddCommand(ingest.NewEndpointCommand())
	rootCmd.AddCommand(ingest.NewRunCommand())
	rootCmd.AddCommand(ingest.NewBatchCommand())
	rootCmd.AddCommand(server.NewServerCommand())
	return rootCmd.ExecuteContext(context.Background())
}
