package main

import (
	"errors"
	"fmt"

	"github.com/knowshare/internal/auth"
	"github.com/knowshare/internal/db"
	"github.com/knowshare/internal/seed"
	"github.com/knowshare/internal/service"
	"github.com/spf13/cobra"
)

var (
	adminUsername string
	adminEmail    string
	adminPassword string
	seedAuthor    string
)

// createAdminCmd 创建管理员账号，密码需满足强密码规则。
var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an administrator account",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := auth.ValidateStrong(adminPassword); err != nil {
			return err
		}

		_, log, gdb, err := bootstrap()
		if err != nil {
			return err
		}
		defer log.Sync()

		user, err := service.NewUserService(gdb).Create(service.CreateUserInput{
			Username:  adminUsername,
			Email:     adminEmail,
			Password:  adminPassword,
			FirstName: "Site",
			LastName:  "Admin",
			Role:      db.RoleAdmin,
		})
		if err != nil {
			if errors.Is(err, service.ErrUserExists) {
				return fmt.Errorf("user %q or email %q already exists", adminUsername, adminEmail)
			}
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "管理员创建成功: %s (id %d)\n", user.Username, user.ID)
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill an empty database with demo content",
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, log, gdb, err := bootstrap()
		if err != nil {
			return err
		}
		defer log.Sync()

		result, err := seed.Run(gdb, seedAuthor, log)
		if err != nil {
			return err
		}
		if result.Skipped {
			fmt.Fprintln(cmd.OutOrStdout(), "已有文章，跳过生成")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "生成完成: %d 个分类, %d 篇文章, %d 篇知识文档\n",
			result.Categories, result.Articles, result.Knowledge)
		return nil
	},
}

// migrateCmd only runs the schema migration, which db.Open performs.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, _, err := bootstrap()
		if err != nil {
			return err
		}
		defer log.Sync()
		fmt.Fprintf(cmd.OutOrStdout(), "schema up to date: %s\n", cfg.DatabasePath)
		return nil
	},
}

func init() {
	createAdminCmd.Flags().StringVar(&adminUsername, "username", "", "admin username")
	createAdminCmd.Flags().StringVar(&adminEmail, "email", "", "admin email")
	createAdminCmd.Flags().StringVar(&adminPassword, "password", "", "admin password (min 8, upper, lower and digit)")
	_ = createAdminCmd.MarkFlagRequired("username")
	_ = createAdminCmd.MarkFlagRequired("email")
	_ = createAdminCmd.MarkFlagRequired("password")

	seedCmd.Flags().StringVar(&seedAuthor, "author", "admin", "username that owns the demo content")
}
