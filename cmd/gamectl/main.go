package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/yourusername/promptgame-api/internal/config"
	"github.com/yourusername/promptgame-api/pkg/logger"
)

func main() {
	_ = godotenv.Load()
	cobra.CheckErr(newRootCmd().Execute())
}

// newRootCmd собирает дерево команд обслуживания
func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "gamectl",
		Short:         "Maintenance tool for the prompt game: migrations and image catalog",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Init(logger.Options{Level: "info"})
		},
	}

	defaultPath := os.Getenv("CONFIG_PATH")
	if defaultPath == "" {
		defaultPath = "config/config.yaml"
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultPath, "path to config.yaml")

	load := func() (*config.Config, error) {
		return config.Load(configPath)
	}

	cmd.AddCommand(newMigrateCmd(load), newCatalogCmd(load))
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	return cmd
}
