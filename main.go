package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mattsolo1/grove-playground/cmd"
	"github.com/mattsolo1/grove-playground/cmd/config"
	"github.com/mattsolo1/grove-playground/pkg/logging"
	"github.com/mattsolo1/grove-playground/pkg/service"
)

var (
	svc *service.Service
	cfg *config.Config
)

// Commands that never touch a workspace.
var standalone = map[string]bool{
	"version":    true,
	"lang":       true,
	"help":       true,
	"completion": true,
}

func main() {
	cobra.OnInitialize(config.InitConfig)

	rootCmd := &cobra.Command{
		Use:           "playground",
		Short:         "A multi-file code playground with autosaving workspaces",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	config.AddGlobalFlags(rootCmd)

	rootCmd.PersistentPreRunE = func(c *cobra.Command, args []string) error {
		// This runs once before any subcommand
		var err error
		cfg, err = config.Load(viper.GetViper())
		if err != nil {
			return err
		}
		logging.SetLevel(cfg.Log.Level)

		if standalone[c.Name()] {
			return nil
		}

		svc, err = config.InitService(c.Context(), cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize service: %w", err)
		}
		return nil
	}

	rootCmd.PersistentPostRunE = func(c *cobra.Command, args []string) error {
		if svc == nil {
			return nil
		}
		err := svc.Close(context.Background())
		svc = nil
		return err
	}

	// Add subcommands
	rootCmd.AddCommand(cmd.NewTreeCmd(&svc))
	rootCmd.AddCommand(cmd.NewCatCmd(&svc))
	rootCmd.AddCommand(cmd.NewEditCmd(&svc))
	rootCmd.AddCommand(cmd.NewNewCmd(&svc))
	rootCmd.AddCommand(cmd.NewRmCmd(&svc))
	rootCmd.AddCommand(cmd.NewMvCmd(&svc))
	rootCmd.AddCommand(cmd.NewSearchCmd(&svc))
	rootCmd.AddCommand(cmd.NewExportCmd(&svc))
	rootCmd.AddCommand(cmd.NewImportCmd(&svc))
	rootCmd.AddCommand(cmd.NewWorkspaceCmd(&svc))
	rootCmd.AddCommand(cmd.NewBrowseCmd(&svc))
	rootCmd.AddCommand(cmd.NewServeCmd(&svc, &cfg))
	rootCmd.AddCommand(cmd.NewLangCmd())
	rootCmd.AddCommand(cmd.NewVersionCmd())

	err := rootCmd.ExecuteContext(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	// PersistentPostRunE is skipped when RunE fails.
	if err != nil && svc != nil {
		svc.Close(context.Background())
	}
	if err != nil {
		os.Exit(1)
	}
}
