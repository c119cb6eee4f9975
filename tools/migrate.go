package main

import (
	"fmt"
	"os"

	"eventpilot/config"
	"eventpilot/database"
	"eventpilot/database/seeders"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func connect() (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

func main() {
	root := &cobra.Command{
		Use:          "migrate-tool",
		Short:        "Database maintenance for eventpilot",
		SilenceUsage: true,
	}

	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Run migrations and create indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := connect()
			if err != nil {
				return err
			}
			fmt.Println("🚀 Running database migrations...")
			if err := database.RunMigration(db); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Println("✅ Migration completed successfully!")
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List tables and columns the database is missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := connect()
			if err != nil {
				return err
			}
			ops, err := database.NewMigrator(db).DetectChanges()
			if err != nil {
				return err
			}
			if len(ops) == 0 {
				fmt.Println("Schema is up to date")
				return nil
			}
			for _, op := range ops {
				fmt.Printf("%-13s %s\n", op.Type, op.Description)
			}
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "generate <file.sql>",
		Short: "Write the pending schema changes to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := connect()
			if err != nil {
				return err
			}
			fmt.Printf("📝 Generating migration file: %s\n", args[0])
			return database.GenerateMigrationFile(db, args[0])
		},
	})

	var name string
	seed := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the first SUPER_ADMIN from SUPER_ADMIN_EMAIL and SUPER_ADMIN_PASSWORD",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := connect()
			if err != nil {
				return err
			}
			if err := database.RunMigration(db); err != nil {
				return err
			}
			u, err := seeders.SeedSuperAdmin(db, name, cfg.SuperAdminEmail, cfg.SuperAdminPassword)
			if err != nil {
				return err
			}
			fmt.Printf("✅ Super admin ready: %s\n", u.Email)
			return nil
		},
	}
	seed.Flags().StringVar(&name, "name", "", "display name of the super admin")
	root.AddCommand(seed)

	if err := root.Execute(); err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}
}
