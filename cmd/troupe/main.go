package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/troupehq/troupe/internal/config"
	"github.com/troupehq/troupe/internal/store"
)

func main() {
	root := &cobra.Command{
		Use:   "troupe",
		Short: "Multi-character AI roleplay bot for Discord",
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the Discord bot and admin API",
		Run: func(cmd *cobra.Command, args []string) {
			runServe()
		},
	}

	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return store.Migrate(cfg.Postgres)
		},
	}

	root.AddCommand(serve, migrate)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
