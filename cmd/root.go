package cmd

import (
	"course_progress_backend/internal/app"
	"course_progress_backend/internal/config"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "course-progress",
	Short: "Course progress reconciliation service",
	Long:  "课程进度对账服务：维护每个 (学生, 课程) 的进度树，计算完成度与进度状态。",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("config", "configs", "配置目录（包含 config.yaml）")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(reconcileCmd)
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	dir, _ := cmd.Flags().GetString("config")
	return config.LoadConfig(dir)
}

// newApp 命令行子命令共用的初始化
func newApp(cmd *cobra.Command, forceMigrate bool) (*app.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	cfg.ForceMigrate = forceMigrate
	return app.NewApp(cfg)
}
