// @title 课程进度对账服务 API
// @version 1.0
// @description 学生课程进度树的对账、汇总与状态计算服务。

// @host localhost:8080
// @BasePath /api
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

package main

import (
	"os"

	"course_progress_backend/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
