package cmd

import (
	"fmt"

	"course_progress_backend/internal/config"
	"course_progress_backend/pkg/database"
	"course_progress_backend/pkg/logger"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return migrate(cfg)
	},
}

func migrate(cfg *config.Config) error {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	fmt.Printf("migrated %d tables\n", len(database.Models))
	return nil
}
