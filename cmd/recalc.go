/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>

*/
package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/mautops/property-flow/internal/api"
	"github.com/mautops/property-flow/internal/config"
	"github.com/mautops/property-flow/internal/database"
	"github.com/mautops/property-flow/internal/workflow"
	"github.com/spf13/cobra"
)

// recalcCmd represents the recalc command
var recalcCmd = &cobra.Command{
	Use:   "recalc <instance-id>...",
	Short: "Recalculate progress of process instances",
	Long: `Recalculate percent complete and current stage of one or more process instances.
Useful after tasks were edited outside the API. Instances reaching 100%
are completed the same way the server would complete them.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logger, err := api.NewLoggerFromConfig(&cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		db, err := database.Connect(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect database: %w", err)
		}
		defer func() {
			sqlDB, _ := db.DB()
			if sqlDB != nil {
				sqlDB.Close()
			}
		}()

		engine := workflow.NewEngine(db, nil, nil, workflow.Options{
			MaxConflictRetries: cfg.Workflow.MaxConflictRetries,
			Logger:             logger,
		})

		enc := json.NewEncoder(cmd.OutOrStdout())
		for _, id := range args {
			result, err := engine.RecalcProgress(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("failed to recalc %s: %w", id, err)
			}
			if err := enc.Encode(result); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(recalcCmd)
}
