package cmd

import (
	"course_progress_backend/internal/app"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server and background refresh",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		forceMigrate, _ := cmd.Flags().GetBool("migrate")
		migrateOnly, _ := cmd.Flags().GetBool("migrate-only")
		cfg.ForceMigrate = forceMigrate || migrateOnly
		cfg.MigrateOnly = migrateOnly

		application, err := app.NewApp(cfg)
		if err != nil {
			return err
		}
		// 迁移完成后直接退出
		if migrateOnly {
			application.Close()
			return nil
		}
		return application.Run()
	},
}

func init() {
	for _, c := range []*cobra.Command{serveCmd, rootCmd} {
		c.Flags().Bool("migrate", false, "启动时强制执行数据库迁移（即使是 release 模式）")
		c.Flags().Bool("migrate-only", false, "只执行数据库迁移，完成后退出")
	}
}
