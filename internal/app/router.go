package app

import (
	"course_progress_backend/docs"
	"course_progress_backend/internal/config"
	"course_progress_backend/internal/middleware"
	"course_progress_backend/internal/model"
	"course_progress_backend/pkg/monitoring"
	"course_progress_backend/pkg/security"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	public := router.Group("/api")
	public.GET("/health", c.health.HealthCheck)

	// 重算接口开销较大，按用户限流
	refreshLimiter := security.NewLimiter(config.RateLimitConfig{
		MaxRequests:   cfg.RateLimit.RefreshPerMinute,
		WindowMinutes: 1,
	})
	a.limiters = append(a.limiters, refreshLimiter)
	throttle := refreshLimiter.Middleware(security.ByUser)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg.JWT.Secret))
	{
		registerStudentRoutes(authGroup, c, throttle)
		registerAdminRoutes(authGroup, c, throttle)
	}
}

func registerStudentRoutes(rg *gin.RouterGroup, c *controllers, throttle gin.HandlerFunc) {
	progress := rg.Group("/progress")
	{
		progress.GET("/courses/:courseId", c.progress.GetMyProgress)
		progress.GET("/courses/:courseId/status", c.progress.GetMyStatus)
		progress.POST("/courses/:courseId/refresh", throttle, c.progress.RefreshMyProgress)
		progress.POST("/quizzes/:quizId/submitted", throttle, c.progress.QuizSubmitted)
	}
}

// 教师与管理员
func registerAdminRoutes(rg *gin.RouterGroup, c *controllers, throttle gin.HandlerFunc) {
	admin := rg.Group("/admin/progress")
	admin.Use(middleware.RoleMiddleware(model.Teacher))
	{
		student := admin.Group("/students/:studentId/courses/:courseId")
		student.GET("", c.progress.GetStudentProgress)
		student.POST("/refresh", throttle, c.progress.RefreshStudentProgress)
		student.POST("/mark", c.progress.MarkComplete)

		admin.POST("/courses/:courseId/sync", c.progress.SyncCourse)
	}
}
