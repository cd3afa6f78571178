package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"course_progress_backend/internal/config"
	"course_progress_backend/internal/model"
	"course_progress_backend/internal/progress"
	"course_progress_backend/internal/repository"
	"course_progress_backend/internal/util"
	"course_progress_backend/pkg/logger"
	"course_progress_backend/pkg/monitoring"
	"course_progress_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// ProgressView 对外返回的进度：树 + 汇总 + 百分比 + 状态
type ProgressView struct {
	StudentID   uint             `json:"studentId"`
	CourseID    uint             `json:"courseId"`
	Tree        *progress.Tree   `json:"tree"`
	Summary     progress.Summary `json:"summary"`
	Percentage  float64          `json:"percentage"`
	Expected    float64          `json:"expectedPercentage"`
	Status      string           `json:"status"`
	Version     uint             `json:"version"`
	RefreshedAt *time.Time       `json:"refreshedAt,omitempty"`
}

func emptyView(studentID, courseID uint) *ProgressView {
	return &ProgressView{
		StudentID: studentID,
		CourseID:  courseID,
		Tree:      &progress.Tree{},
		Status:    progress.StatusNotStarted,
	}
}

// SyncResult 课程目录变更后批量刷新的结果
type SyncResult struct {
	CourseID  uint `json:"courseId"`
	Refreshed int  `json:"refreshed"`
	Skipped   int  `json:"skipped"`
	Failed    int  `json:"failed"`
}

type ProgressService struct {
	catalog     *repository.CatalogRepository
	attempts    *repository.QuizAttemptRepository
	activity    *repository.ActivityRepository
	enrollments *repository.EnrollmentRepository
	progress    *repository.ProgressRepository

	reconciler *progress.Reconciler
	cache      TreeCache
	locker     Locker
	flight     singleflight.Group

	mu       sync.RWMutex
	settings config.ProgressConfig
	now      func() time.Time
}

func NewProgressService(
	catalog *repository.CatalogRepository,
	attempts *repository.QuizAttemptRepository,
	activity *repository.ActivityRepository,
	enrollments *repository.EnrollmentRepository,
	progressRepo *repository.ProgressRepository,
	cache TreeCache,
	locker Locker,
	cfg *config.Config,
) *ProgressService {
	if cache == nil {
		cache = NoopTreeCache{}
	}
	if locker == nil {
		locker = NewLocalLocker()
	}
	s := &ProgressService{
		catalog:     catalog,
		attempts:    attempts,
		activity:    activity,
		enrollments: enrollments,
		progress:    progressRepo,
		cache:       cache,
		locker:      locker,
		settings:    cfg.Progress,
		now:         time.Now,
	}
	s.reconciler = progress.NewReconciler(catalog, attempts, activity).WithClock(s.clock)
	return s
}

// WithClock 测试用
func (s *ProgressService) WithClock(now func() time.Time) *ProgressService {
	s.now = now
	return s
}

func (s *ProgressService) clock() time.Time {
	return s.now()
}

// UpdateSettings 配置热加载回调
func (s *ProgressService) UpdateSettings(cfg *config.Config) {
	s.mu.Lock()
	s.settings = cfg.Progress
	s.mu.Unlock()
	if c, ok := s.cache.(*RedisTreeCache); ok {
		c.SetTTL(cfg.Progress.CacheTTL)
	}
	logger.Log.Info("progress settings updated",
		zap.Uint("diagnosticQuizId", cfg.Progress.DiagnosticQuizID),
		zap.Float64("scheduleGap", cfg.Progress.ScheduleGapThreshold),
		zap.Float64("onboardingWeight", cfg.Progress.OnboardingWeight))
}

func (s *ProgressService) Settings() config.ProgressConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Initialize 返回已存储的进度；不存在时按当前目录生成空树并保存
func (s *ProgressService) Initialize(ctx context.Context, studentID, courseID uint) (*model.StudentProgress, *progress.Tree, error) {
	row, err := s.progress.Find(ctx, studentID, courseID)
	if err == nil {
		return row, s.decode(row), nil
	}
	if !errors.Is(err, util.ErrProgressNotFound) {
		return nil, nil, err
	}

	tree, err := progress.Populate(ctx, s.catalog, courseID)
	if err != nil {
		return nil, nil, err
	}
	raw, err := progress.Encode(tree)
	if err != nil {
		return nil, nil, err
	}
	row = &model.StudentProgress{UserID: studentID, CourseID: courseID, Tree: raw}
	if err := s.progress.Create(ctx, row); err != nil {
		if !errors.Is(err, util.ErrProgressConflict) {
			return nil, nil, err
		}
		// 并发初始化，读取对方写入的记录
		row, err = s.progress.Find(ctx, studentID, courseID)
		if err != nil {
			return nil, nil, err
		}
		return row, s.decode(row), nil
	}
	logger.Log.Info("progress initialized", zap.Uint("studentId", studentID), zap.Uint("courseId", courseID))
	return row, tree, nil
}

// 存储的树损坏时从空树重建，尝试记录不受影响
func (s *ProgressService) decode(row *model.StudentProgress) *progress.Tree {
	tree, err := progress.Decode(row.Tree)
	if err != nil {
		logger.Log.Warn("stored progress tree is corrupt, rebuilding",
			zap.Uint("studentId", row.UserID), zap.Uint("courseId", row.CourseID), zap.Error(err))
		return &progress.Tree{}
	}
	return tree
}

// Get 读路径：命中缓存直接返回，记录不存在或过期时刷新
func (s *ProgressService) Get(ctx context.Context, studentID, courseID uint) (*ProgressView, error) {
	if view, ok := s.cache.Get(ctx, studentID, courseID); ok {
		return view, nil
	}

	enrollment, err := s.enrollments.Find(ctx, studentID, courseID)
	if errors.Is(err, util.ErrEnrollmentNotFound) {
		return emptyView(studentID, courseID), nil
	}
	if err != nil {
		return nil, err
	}

	row, err := s.progress.Find(ctx, studentID, courseID)
	if errors.Is(err, util.ErrProgressNotFound) || (err == nil && s.stale(row)) {
		return s.Refresh(ctx, studentID, courseID, util.TriggerLogin)
	}
	if err != nil {
		return nil, err
	}

	view, err := s.buildView(ctx, studentID, courseID, s.decode(row), enrollment)
	if err != nil {
		return nil, err
	}
	view.Version = row.Version
	view.RefreshedAt = row.RefreshedAt
	s.cache.Set(ctx, view)
	return view, nil
}

func (s *ProgressService) stale(row *model.StudentProgress) bool {
	after := s.Settings().StaleAfter
	if row.RefreshedAt == nil {
		return true
	}
	return after > 0 && s.now().Sub(*row.RefreshedAt) > after
}

// Refresh 重新对账并保存；选课记录不存在时返回空视图
func (s *ProgressService) Refresh(ctx context.Context, studentID, courseID uint, trigger string) (*ProgressView, error) {
	key := fmt.Sprintf("%d:%d", studentID, courseID)
	v, err, _ := s.flight.Do(key, func() (interface{}, error) {
		return s.apply(ctx, studentID, courseID, trigger, false, func(ctx context.Context, tree *progress.Tree) (*progress.Tree, error) {
			return s.reconciler.ReEvaluate(ctx, studentID, courseID, tree)
		})
	})
	if err != nil {
		return nil, err
	}
	return v.(*ProgressView), nil
}

// MarkComplete 管理员手动标记课时或主题完成
func (s *ProgressService) MarkComplete(ctx context.Context, studentID, courseID uint, target progress.MarkTarget, autoCorrect bool) (*ProgressView, error) {
	return s.apply(ctx, studentID, courseID, util.TriggerAdmin, true, func(ctx context.Context, tree *progress.Tree) (*progress.Tree, error) {
		return s.reconciler.MarkComplete(ctx, studentID, courseID, tree, target, autoCorrect)
	})
}

// RefreshForQuiz 测验提交后刷新包含该测验的所有课程
func (s *ProgressService) RefreshForQuiz(ctx context.Context, studentID, quizID uint) ([]*ProgressView, error) {
	courseIDs, err := s.catalog.CourseIDsForQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	views := make([]*ProgressView, 0, len(courseIDs))
	for _, courseID := range courseIDs {
		view, err := s.Refresh(ctx, studentID, courseID, util.TriggerSubmission)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

type mutation func(ctx context.Context, tree *progress.Tree) (*progress.Tree, error)

// apply 在 (学生, 课程) 锁内执行 读取 → 与新骨架合并 → 变更 → 版本化保存；版本冲突时重放一次
func (s *ProgressService) apply(ctx context.Context, studentID, courseID uint, trigger string, strict bool, fn mutation) (view *ProgressView, err error) {
	start := time.Now()
	ctx, span := tracing.Start(ctx, "progress.apply",
		attribute.Int64("student.id", int64(studentID)),
		attribute.Int64("course.id", int64(courseID)),
		attribute.String("trigger", trigger))
	defer func() {
		tracing.End(span, err)
		monitoring.ReconcileDuration.WithLabelValues(trigger).Observe(time.Since(start).Seconds())
		monitoring.ReconcileCounter.WithLabelValues(trigger, outcome(err)).Inc()
	}()

	release, err := s.locker.Acquire(ctx, subjectLockKey(studentID, courseID))
	if err != nil {
		return nil, err
	}
	defer release()

	for attempt := 0; attempt < 2; attempt++ {
		view, err = s.applyOnce(ctx, studentID, courseID, strict, fn)
		if !errors.Is(err, util.ErrProgressConflict) {
			break
		}
		logger.Log.Warn("progress version conflict, replaying",
			zap.Uint("studentId", studentID), zap.Uint("courseId", courseID), zap.Int("attempt", attempt+1))
	}
	if err != nil {
		logger.Log.Error("progress reconciliation failed",
			zap.Uint("studentId", studentID), zap.Uint("courseId", courseID), zap.String("trigger", trigger), zap.Error(err))
		return nil, err
	}
	return view, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, util.ErrProgressConflict):
		return "conflict"
	case errors.Is(err, util.ErrLockNotAcquired):
		return "locked"
	default:
		return "error"
	}
}

func (s *ProgressService) applyOnce(ctx context.Context, studentID, courseID uint, strict bool, fn mutation) (*ProgressView, error) {
	enrollment, err := s.enrollments.Find(ctx, studentID, courseID)
	if errors.Is(err, util.ErrEnrollmentNotFound) && !strict {
		return emptyView(studentID, courseID), nil
	}
	if err != nil {
		return nil, err
	}

	row, stored, err := s.Initialize(ctx, studentID, courseID)
	if err != nil {
		return nil, err
	}
	fresh, err := progress.Populate(ctx, s.catalog, courseID)
	if err != nil {
		return nil, err
	}
	tree, err := fn(ctx, progress.Merge(stored, fresh))
	if err != nil {
		return nil, err
	}

	view, err := s.buildView(ctx, studentID, courseID, tree, enrollment)
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, row, view); err != nil {
		s.cache.Invalidate(ctx, studentID, courseID)
		return nil, err
	}
	s.cache.Set(ctx, view)
	return view, nil
}

func (s *ProgressService) save(ctx context.Context, row *model.StudentProgress, view *ProgressView) error {
	raw, err := progress.Encode(view.Tree)
	if err != nil {
		return err
	}
	now := s.now()
	row.Tree = raw
	row.Percentage = view.Percentage
	row.Status = view.Status
	row.Completed = view.Summary.CourseCompleted
	row.RefreshedAt = &now
	if err := s.progress.SaveVersioned(ctx, row); err != nil {
		return err
	}
	view.Version = row.Version
	view.RefreshedAt = row.RefreshedAt
	return nil
}

func (s *ProgressService) buildView(ctx context.Context, studentID, courseID uint, tree *progress.Tree, enrollment *model.Enrollment) (*ProgressView, error) {
	settings := s.Settings()
	course, err := s.catalog.Course(ctx, courseID)
	if err != nil {
		return nil, err
	}
	detail, err := s.enrollments.FindDetail(ctx, studentID)
	if err != nil {
		return nil, err
	}

	var sub *progress.DiagnosticSubstitution
	if course.IsMainCourse && settings.DiagnosticQuizID != 0 {
		attempts, err := s.attempts.ByQuizzes(ctx, studentID, []uint{settings.DiagnosticQuizID})
		if err != nil {
			return nil, err
		}
		sub = progress.NewDiagnosticSubstitution(course, settings.DiagnosticQuizID, attempts)
	}

	now := s.now()
	summary := progress.CountTotals(tree, sub)
	pct := progress.CalculatePercentage(summary, progress.PercentageInput{
		MainCourse:       course.IsMainCourse,
		Onboarded:        detail != nil && detail.Onboarded,
		OnboardingWeight: settings.OnboardingWeight,
	})
	expected := progress.ExpectedPercentage(enrollment, now)
	status := progress.CourseStatus(progress.StatusInput{
		Enrollment:   enrollment,
		Detail:       detail,
		Summary:      summary,
		Percentage:   pct,
		Expected:     expected,
		GapThreshold: settings.ScheduleGapThreshold,
		Now:          now,
	})

	return &ProgressView{
		StudentID:  studentID,
		CourseID:   courseID,
		Tree:       tree,
		Summary:    summary,
		Percentage: pct,
		Expected:   expected,
		Status:     status,
	}, nil
}

// ExpectedPercentage 按选课起止日期线性计算的应达进度
func (s *ProgressService) ExpectedPercentage(ctx context.Context, studentID, courseID uint) (float64, error) {
	enrollment, err := s.enrollments.Find(ctx, studentID, courseID)
	if errors.Is(err, util.ErrEnrollmentNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return progress.ExpectedPercentage(enrollment, s.now()), nil
}

func (s *ProgressService) Status(ctx context.Context, studentID, courseID uint) (string, error) {
	view, err := s.Get(ctx, studentID, courseID)
	if err != nil {
		return "", err
	}
	return view.Status, nil
}

// SyncCourse 课程目录变更后刷新所有选课学生
func (s *ProgressService) SyncCourse(ctx context.Context, courseID uint) (*SyncResult, error) {
	if _, err := s.catalog.Course(ctx, courseID); err != nil {
		return nil, err
	}
	enrollments, err := s.enrollments.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	subjects := make([]subject, len(enrollments))
	for i, e := range enrollments {
		subjects[i] = subject{studentID: e.UserID, courseID: courseID}
	}
	res := s.refreshAll(ctx, util.TriggerCatalog, subjects, false)
	res.CourseID = courseID
	logger.Log.Info("course progress synced",
		zap.Uint("courseId", courseID), zap.Int("refreshed", res.Refreshed), zap.Int("failed", res.Failed))
	return res, nil
}

// RefreshStale 后台任务：刷新一批过期记录
func (s *ProgressService) RefreshStale(ctx context.Context) (*SyncResult, error) {
	settings := s.Settings()
	rows, err := s.progress.ListStale(ctx, s.now().Add(-settings.StaleAfter), settings.StaleBatchSize)
	if err != nil {
		return nil, err
	}
	subjects := make([]subject, len(rows))
	for i, row := range rows {
		subjects[i] = subject{studentID: row.UserID, courseID: row.CourseID}
	}
	// 选课已删除的记录只更新时间戳，避免每轮都排在最前面
	res := s.refreshAll(ctx, util.TriggerBackground, subjects, true)
	if res.Refreshed > 0 || res.Failed > 0 {
		logger.Log.Info("stale progress refreshed", zap.Int("refreshed", res.Refreshed), zap.Int("failed", res.Failed))
	}
	return res, nil
}

type subject struct {
	studentID uint
	courseID  uint
}

// refreshAll 并发刷新，单个失败只计数不中断
func (s *ProgressService) refreshAll(ctx context.Context, trigger string, subjects []subject, touchSkipped bool) *SyncResult {
	limit := s.Settings().SyncConcurrency
	if limit <= 0 {
		limit = 1
	}
	var (
		mu  sync.Mutex
		res SyncResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, sub := range subjects {
		sub := sub
		g.Go(func() error {
			view, err := s.Refresh(gctx, sub.studentID, sub.courseID, trigger)
			if err == nil && view.Version == 0 && touchSkipped {
				if terr := s.progress.Touch(gctx, sub.studentID, sub.courseID, s.now()); terr != nil {
					logger.Log.Warn("touch skipped progress failed", zap.Uint("studentId", sub.studentID), zap.Error(terr))
				}
			}
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				res.Failed++
			case view.Version == 0:
				res.Skipped++
			default:
				res.Refreshed++
			}
			return nil
		})
	}
	g.Wait()
	return &res
}
