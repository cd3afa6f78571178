package controller

import (
	"errors"

	"course_progress_backend/internal/progress"
	"course_progress_backend/internal/service"
	"course_progress_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	ProgressService *service.ProgressService
}

func NewProgressController(progressService *service.ProgressService) *ProgressController {
	return &ProgressController{ProgressService: progressService}
}

// MarkCompleteRequest 手动标记完成；只给 lessonId 时标记整个课时
type MarkCompleteRequest struct {
	LessonID    uint `json:"lessonId" binding:"required"`
	TopicID     uint `json:"topicId"`
	AutoCorrect bool `json:"autoCorrect"`
}

// StatusResponse 课程进度状态
type StatusResponse struct {
	Status             string  `json:"status"`
	ExpectedPercentage float64 `json:"expectedPercentage"`
}

func respondError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrEnrollmentNotFound),
		errors.Is(err, util.ErrCourseNotFound),
		errors.Is(err, util.ErrNodeNotFound):
		util.NotFound(ctx, err.Error())
	case errors.Is(err, util.ErrLockNotAcquired),
		errors.Is(err, util.ErrProgressConflict):
		util.Conflict(ctx, err.Error())
	case errors.Is(err, util.ErrPermissionDenied):
		util.Forbidden(ctx)
	default:
		util.LogInternalError(ctx, err)
	}
}

func idParam(ctx *gin.Context, name string) (uint, bool) {
	id := util.MustParseUint(ctx.Param(name))
	if id == 0 {
		util.BadRequest(ctx, "invalid "+name)
		return 0, false
	}
	return id, true
}

// @Summary 获取我的课程进度
// @Description 返回进度树、汇总、百分比与状态；记录过期时自动重算
// @Tags 学习进度
// @Produce json
// @Security ApiKeyAuth
// @Param courseId path int true "课程ID"
// @Success 200 {object} util.Response{data=service.ProgressView}
// @Router /progress/courses/{courseId} [get]
func (c *ProgressController) GetMyProgress(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	courseID, ok := idParam(ctx, "courseId")
	if !ok {
		return
	}

	view, err := c.ProgressService.Get(ctx.Request.Context(), user.UserID, courseID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// @Summary 重算我的课程进度
// @Tags 学习进度
// @Produce json
// @Security ApiKeyAuth
// @Param courseId path int true "课程ID"
// @Success 200 {object} util.Response{data=service.ProgressView}
// @Failure 409 {object} util.Response
// @Router /progress/courses/{courseId}/refresh [post]
func (c *ProgressController) RefreshMyProgress(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	courseID, ok := idParam(ctx, "courseId")
	if !ok {
		return
	}

	view, err := c.ProgressService.Refresh(ctx.Request.Context(), user.UserID, courseID, util.TriggerLogin)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// @Summary 获取课程进度状态
// @Description 返回状态与按日期线性计算的应达进度
// @Tags 学习进度
// @Produce json
// @Security ApiKeyAuth
// @Param courseId path int true "课程ID"
// @Success 200 {object} util.Response{data=StatusResponse}
// @Router /progress/courses/{courseId}/status [get]
func (c *ProgressController) GetMyStatus(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	courseID, ok := idParam(ctx, "courseId")
	if !ok {
		return
	}

	status, err := c.ProgressService.Status(ctx.Request.Context(), user.UserID, courseID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	expected, err := c.ProgressService.ExpectedPercentage(ctx.Request.Context(), user.UserID, courseID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, StatusResponse{Status: status, ExpectedPercentage: expected})
}

// @Summary 测验提交通知
// @Description 评分流程写入作答记录后调用，刷新包含该测验的所有课程
// @Tags 学习进度
// @Produce json
// @Security ApiKeyAuth
// @Param quizId path int true "测验ID"
// @Success 200 {object} util.Response{data=[]service.ProgressView}
// @Router /progress/quizzes/{quizId}/submitted [post]
func (c *ProgressController) QuizSubmitted(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	quizID, ok := idParam(ctx, "quizId")
	if !ok {
		return
	}

	views, err := c.ProgressService.RefreshForQuiz(ctx.Request.Context(), user.UserID, quizID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, views)
}

// @Summary 查看学生课程进度
// @Tags 进度管理
// @Produce json
// @Security ApiKeyAuth
// @Param studentId path int true "学生ID"
// @Param courseId path int true "课程ID"
// @Success 200 {object} util.Response{data=service.ProgressView}
// @Router /admin/progress/students/{studentId}/courses/{courseId} [get]
func (c *ProgressController) GetStudentProgress(ctx *gin.Context) {
	studentID, ok := idParam(ctx, "studentId")
	if !ok {
		return
	}
	courseID, ok := idParam(ctx, "courseId")
	if !ok {
		return
	}

	view, err := c.ProgressService.Get(ctx.Request.Context(), studentID, courseID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// @Summary 重算学生课程进度
// @Tags 进度管理
// @Produce json
// @Security ApiKeyAuth
// @Param studentId path int true "学生ID"
// @Param courseId path int true "课程ID"
// @Success 200 {object} util.Response{data=service.ProgressView}
// @Router /admin/progress/students/{studentId}/courses/{courseId}/refresh [post]
func (c *ProgressController) RefreshStudentProgress(ctx *gin.Context) {
	studentID, ok := idParam(ctx, "studentId")
	if !ok {
		return
	}
	courseID, ok := idParam(ctx, "courseId")
	if !ok {
		return
	}

	view, err := c.ProgressService.Refresh(ctx.Request.Context(), studentID, courseID, util.TriggerAdmin)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// @Summary 手动标记完成
// @Description 标记课时或主题完成并补写满意的作答记录；autoCorrect 时同时标记之前的所有节点
// @Tags 进度管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param studentId path int true "学生ID"
// @Param courseId path int true "课程ID"
// @Param body body MarkCompleteRequest true "标记目标"
// @Success 200 {object} util.Response{data=service.ProgressView}
// @Failure 404 {object} util.Response
// @Router /admin/progress/students/{studentId}/courses/{courseId}/mark [post]
func (c *ProgressController) MarkComplete(ctx *gin.Context) {
	studentID, ok := idParam(ctx, "studentId")
	if !ok {
		return
	}
	courseID, ok := idParam(ctx, "courseId")
	if !ok {
		return
	}

	var req MarkCompleteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	target := progress.MarkTarget{LessonID: req.LessonID, TopicID: req.TopicID}
	view, err := c.ProgressService.MarkComplete(ctx.Request.Context(), studentID, courseID, target, req.AutoCorrect)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// @Summary 课程目录变更同步
// @Description 刷新该课程所有选课学生的进度
// @Tags 进度管理
// @Produce json
// @Security ApiKeyAuth
// @Param courseId path int true "课程ID"
// @Success 200 {object} util.Response{data=service.SyncResult}
// @Router /admin/progress/courses/{courseId}/sync [post]
func (c *ProgressController) SyncCourse(ctx *gin.Context) {
	courseID, ok := idParam(ctx, "courseId")
	if !ok {
		return
	}

	res, err := c.ProgressService.SyncCourse(ctx.Request.Context(), courseID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, res)
}
