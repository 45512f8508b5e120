/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>

*/
package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/mautops/property-flow/internal/auth"
	"github.com/mautops/property-flow/internal/config"
	"github.com/mautops/property-flow/internal/database"
	"github.com/mautops/property-flow/internal/repository"
	"github.com/spf13/cobra"
)

// roleStore 角色写入方,按 workflow.role_source 选择
type roleStore interface {
	Grant(ctx context.Context, userID, role string) error
	Revoke(ctx context.Context, userID, role string) error
}

type databaseRoleStore struct {
	repo *repository.UserRoleRepository
}

func (s databaseRoleStore) Grant(_ context.Context, userID, role string) error {
	return s.repo.Grant(userID, role)
}

func (s databaseRoleStore) Revoke(_ context.Context, userID, role string) error {
	return s.repo.Revoke(userID, role)
}

type openFGARoleStore struct {
	client *auth.OpenFGAClient
}

func (s openFGARoleStore) Grant(ctx context.Context, userID, role string) error {
	return s.client.GrantRole(ctx, userID, role)
}

func (s openFGARoleStore) Revoke(ctx context.Context, userID, role string) error {
	return s.client.RevokeRole(ctx, userID, role)
}

// openRoleStore 打开角色存储,返回的 close 函数释放连接
func openRoleStore(cfg *config.Config) (roleStore, func(), error) {
	switch cfg.Workflow.RoleSource {
	case "openfga":
		client, err := auth.NewOpenFGAClient(cfg.OpenFGA.APIURL, cfg.OpenFGA.StoreID, cfg.OpenFGA.ModelID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize OpenFGA client: %w", err)
		}
		return openFGARoleStore{client: client}, func() {}, nil
	case "file":
		return nil, nil, fmt.Errorf("roles are read from %s, edit the file instead", cfg.Workflow.RoleFile)
	default:
		db, err := database.Connect(cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect database: %w", err)
		}
		closeFn := func() {
			if sqlDB, _ := db.DB(); sqlDB != nil {
				sqlDB.Close()
			}
		}
		return databaseRoleStore{repo: repository.NewUserRoleRepository(db)}, closeFn, nil
	}
}

// rolesCmd represents the roles command
var rolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "Manage user roles",
	Long: `Grant or revoke the roles used to authorize lifecycle transitions and task bypass.
Roles are written to the store selected by workflow.role_source.`,
}

func roleChange(grant bool) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		store, closeFn, err := openRoleStore(cfg)
		if err != nil {
			return err
		}
		defer closeFn()

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		userID, role := args[0], args[1]
		if grant {
			err = store.Grant(ctx, userID, role)
		} else {
			err = store.Revoke(ctx, userID, role)
		}
		if err != nil {
			return err
		}

		verb := "granted"
		if !grant {
			verb = "revoked"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "role %s %s user %s\n", role, verb, userID)
		return nil
	}
}

var rolesGrantCmd = &cobra.Command{
	Use:   "grant <user-id> <role>",
	Short: "Grant a role to a user",
	Args:  cobra.ExactArgs(2),
	RunE:  roleChange(true),
}

var rolesRevokeCmd = &cobra.Command{
	Use:   "revoke <user-id> <role>",
	Short: "Revoke a role from a user",
	Args:  cobra.ExactArgs(2),
	RunE:  roleChange(false),
}

var rolesModelCmd = &cobra.Command{
	Use:   "model",
	Short: "Print the OpenFGA authorization model",
	Long:  `Print the OpenFGA authorization model expected when workflow.role_source is openfga.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), auth.GetPermissionModel())
	},
}

func init() {
	rolesCmd.AddCommand(rolesGrantCmd, rolesRevokeCmd, rolesModelCmd)
	rootCmd.AddCommand(rolesCmd)
}
