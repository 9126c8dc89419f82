package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/Sepheus7/dataforge-studio/internal/config"
	"github.com/Sepheus7/dataforge-studio/internal/server"
)

func serverCmd() *cli.Command {
	return &cli.Command{
		Name:  "server",
		Usage: "Run the API server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "api-key",
				Usage:   "Pre-shared API key for all endpoints",
				Sources: cli.EnvVars("DF_AUTH_API_KEY"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.Load(cmd.String("config"))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			if v := cmd.String("log-level"); v != "" {
				cfg.Logging.Level = v
			}
			if v := cmd.String("api-key"); v != "" {
				cfg.Auth.APIKey = v
			}

			return server.Run(ctx, cfg)
		},
	}
}
