package server

import (
	"fmt"

	"github.com/spf13/cobra"

	"sslingest/api/routes"
	"sslingest/internal/config"
	"sslingest/internal/database"
)

type ServerOpts struct {
	Port       int
	ConfigPath string
}

func NewServerCommand() *cobra.Command {
	serverConfig := &ServerOpts{}

	serverCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the stored raw documents over HTTP",
		Long:  `Start a read-only HTTP API for inspecting the stored raw SSL Labs documents`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			cfg, err := config.Load(serverConfig.ConfigPath)
			if err != nil {
				return err
			}
			database.InitDB(&cfg.DB)
			defer database.Close()

			router := routes.InitRouter(database.DB)
			return router.Run(fmt.Sprintf(":%d", serverConfig.Port))
		},
	}

	serverCmd.Flags().IntVarP(&serverConfig.Port, "port", "p", 8080, "Port to run the server on")
	serverCmd.Flags().StringVar(&serverConfig.ConfigPath, "config", "", "Configuration file path")

	return serverCmd
}
