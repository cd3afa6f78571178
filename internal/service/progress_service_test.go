package service

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"

	"course_progress_backend/internal/config"
	"course_progress_backend/internal/model"
	"course_progress_backend/internal/progress"
	"course_progress_backend/internal/repository"
	"course_progress_backend/internal/util"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var fixedNow = time.Date(2026, time.March, 11, 9, 0, 0, 0, time.UTC)

type fixture struct {
	db       *gorm.DB
	svc      *ProgressService
	catalog  *repository.CatalogRepository
	attempts *repository.QuizAttemptRepository
	activity *repository.ActivityRepository
	enroll   *repository.EnrollmentRepository
	progress *repository.ProgressRepository
	course   *model.Course
	quizIDs  []uint
	lessonID uint
	topicIDs []uint
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&model.Course{}, &model.Lesson{}, &model.Topic{}, &model.Quiz{},
		&model.QuizAttempt{}, &model.Activity{},
		&model.Enrollment{}, &model.StudentDetail{}, &model.StudentProgress{},
	))
	return db
}

func testConfig() *config.Config {
	return &config.Config{Progress: config.ProgressConfig{
		ScheduleGapThreshold: 30,
		OnboardingWeight:     5,
		StaleAfter:           time.Hour,
		CacheTTL:             10 * time.Minute,
		LockTTL:              5 * time.Second,
		StaleBatchSize:       50,
		SyncConcurrency:      2,
	}}
}

// newFixture 课程 > 1 个课时 > 2 个主题（各 1 个测验），并为学生选课
func newFixture(t *testing.T, cache TreeCache, students ...uint) *fixture {
	t.Helper()
	db := newTestDB(t)
	f := &fixture{
		db:       db,
		catalog:  repository.NewCatalogRepository(db),
		attempts: repository.NewQuizAttemptRepository(db),
		activity: repository.NewActivityRepository(db),
		enroll:   repository.NewEnrollmentRepository(db),
		progress: repository.NewProgressRepository(db),
	}
	ctx := context.Background()

	f.course = &model.Course{Title: "数据结构"}
	seed := []repository.LessonSeed{{
		Lesson: model.Lesson{Title: "链表"},
		Topics: []repository.TopicSeed{
			{Topic: model.Topic{Title: "单链表", Position: 0}, Quizzes: []model.Quiz{{Title: "单链表测验"}}},
			{Topic: model.Topic{Title: "双链表", Position: 1}, Quizzes: []model.Quiz{{Title: "双链表测验"}}},
		},
	}}
	require.NoError(t, f.catalog.CreateCourse(ctx, f.course, seed))
	f.lessonID = seed[0].Lesson.ID
	for _, tp := range seed[0].Topics {
		f.topicIDs = append(f.topicIDs, tp.Topic.ID)
		f.quizIDs = append(f.quizIDs, tp.Quizzes[0].ID)
	}

	start := fixedNow.AddDate(0, 0, -10)
	end := fixedNow.AddDate(0, 0, 10)
	for _, id := range students {
		require.NoError(t, f.enroll.Create(ctx, &model.Enrollment{
			UserID: id, CourseID: f.course.ID, StartDate: &start, EndDate: &end, Status: model.EnrollmentActive,
		}))
		require.NoError(t, f.enroll.CreateDetail(ctx, &model.StudentDetail{UserID: id, Status: model.StudentStatusActive}))
	}

	f.svc = NewProgressService(f.catalog, f.attempts, f.activity, f.enroll, f.progress, cache, NewLocalLocker(), testConfig()).
		WithClock(func() time.Time { return fixedNow })
	return f
}

func (f *fixture) pass(t *testing.T, studentID, quizID uint) {
	t.Helper()
	at := fixedNow.Add(-time.Hour)
	require.NoError(t, f.attempts.Create(context.Background(), &model.QuizAttempt{
		UserID: studentID, QuizID: quizID, Status: model.AttemptSatisfactory, SubmittedAt: &at,
	}))
}

func TestRefreshInitializesAndReconciles(t *testing.T) {
	f := newFixture(t, nil, 7)
	ctx := context.Background()

	view, err := f.svc.Refresh(ctx, 7, f.course.ID, util.TriggerLogin)
	require.NoError(t, err)
	assert.Zero(t, view.Percentage)
	assert.Equal(t, 50.0, view.Expected)
	assert.Equal(t, progress.StatusBehindSchedule, view.Status)
	assert.Equal(t, 3, view.Summary.Total)
	assert.Equal(t, uint(2), view.Version)

	f.pass(t, 7, f.quizIDs[0])
	f.pass(t, 7, f.quizIDs[1])
	view, err = f.svc.Refresh(ctx, 7, f.course.ID, util.TriggerSubmission)
	require.NoError(t, err)
	assert.Equal(t, 100.0, view.Percentage)
	assert.Equal(t, progress.StatusCompleted, view.Status)
	assert.True(t, view.Tree.Completed)

	row, err := f.progress.Find(ctx, 7, f.course.ID)
	require.NoError(t, err)
	assert.True(t, row.Completed)
	assert.Equal(t, 100.0, row.Percentage)
	assert.Equal(t, view.Version, row.Version)

	events, err := f.activity.ListByUser(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, events, 3)
}

func TestRefreshIsStable(t *testing.T) {
	f := newFixture(t, nil, 7)
	ctx := context.Background()
	f.pass(t, 7, f.quizIDs[0])

	first, err := f.svc.Refresh(ctx, 7, f.course.ID, util.TriggerLogin)
	require.NoError(t, err)
	second, err := f.svc.Refresh(ctx, 7, f.course.ID, util.TriggerLogin)
	require.NoError(t, err)

	opts := []cmp.Option{cmp.Exporter(func(_ reflect.Type) bool { return true }), cmpopts.EquateEmpty()}
	assert.Empty(t, cmp.Diff(first.Tree, second.Tree, opts...))
	assert.Equal(t, first.Summary, second.Summary)
	assert.Equal(t, first.Version+1, second.Version)
}

func TestRefreshWithoutEnrollment(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	view, err := f.svc.Refresh(ctx, 99, f.course.ID, util.TriggerLogin)
	require.NoError(t, err)
	assert.Zero(t, view.Percentage)
	assert.Zero(t, view.Version)
	assert.Equal(t, progress.StatusNotStarted, view.Status)

	_, err = f.progress.Find(ctx, 99, f.course.ID)
	assert.ErrorIs(t, err, util.ErrProgressNotFound)

	got, err := f.svc.Get(ctx, 99, f.course.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Tree.Lessons.Len())
}

func TestRefreshPicksUpCatalogChanges(t *testing.T) {
	f := newFixture(t, nil, 7)
	ctx := context.Background()
	_, err := f.svc.Refresh(ctx, 7, f.course.ID, util.TriggerLogin)
	require.NoError(t, err)

	topic := &model.Topic{LessonID: f.lessonID, Title: "循环链表", Position: 2}
	require.NoError(t, f.db.Create(topic).Error)
	require.NoError(t, f.db.Delete(&model.Topic{}, f.topicIDs[0]).Error)

	view, err := f.svc.Refresh(ctx, 7, f.course.ID, util.TriggerCatalog)
	require.NoError(t, err)
	lesson, ok := view.Tree.Lesson(f.lessonID)
	require.True(t, ok)
	assert.Equal(t, []uint{f.topicIDs[1], topic.ID}, lesson.Topics.IDs())
	assert.Equal(t, 2, lesson.Topics.Count)
}

func TestGetUsesCacheUntilRefresh(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewRedisTreeCache(rdb, 10*time.Minute)
	f := newFixture(t, cache, 7)
	ctx := context.Background()

	view, err := f.svc.Get(ctx, 7, f.course.ID)
	require.NoError(t, err)
	assert.Zero(t, view.Percentage)
	assert.True(t, mr.Exists(progressCacheKey(7, f.course.ID)))

	f.pass(t, 7, f.quizIDs[0])
	cached, err := f.svc.Get(ctx, 7, f.course.ID)
	require.NoError(t, err)
	assert.Zero(t, cached.Percentage)

	fresh, err := f.svc.Refresh(ctx, 7, f.course.ID, util.TriggerSubmission)
	require.NoError(t, err)
	assert.Greater(t, fresh.Percentage, 0.0)

	cached, err = f.svc.Get(ctx, 7, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, fresh.Percentage, cached.Percentage)
	assert.Equal(t, fresh.Version, cached.Version)
}

func TestGetRefreshesStaleRows(t *testing.T) {
	f := newFixture(t, nil, 7)
	ctx := context.Background()
	_, err := f.svc.Refresh(ctx, 7, f.course.ID, util.TriggerLogin)
	require.NoError(t, err)

	f.pass(t, 7, f.quizIDs[0])
	view, err := f.svc.Get(ctx, 7, f.course.ID)
	require.NoError(t, err)
	assert.Zero(t, view.Summary.Passed)

	f.svc.WithClock(func() time.Time { return fixedNow.Add(2 * time.Hour) })
	view, err = f.svc.Get(ctx, 7, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, view.Summary.Passed)
}

func TestMarkCompleteThroughService(t *testing.T) {
	f := newFixture(t, nil, 7)
	ctx := context.Background()

	view, err := f.svc.MarkComplete(ctx, 7, f.course.ID, progress.MarkTarget{LessonID: f.lessonID}, false)
	require.NoError(t, err)
	assert.Equal(t, 100.0, view.Percentage)
	assert.Equal(t, progress.StatusCompleted, view.Status)

	attempts, err := f.attempts.ByQuizzes(ctx, 7, f.quizIDs)
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	for _, a := range attempts {
		assert.True(t, a.Synthesized)
	}

	again, err := f.svc.Refresh(ctx, 7, f.course.ID, util.TriggerLogin)
	require.NoError(t, err)
	assert.Equal(t, 100.0, again.Percentage)
	attempts, err = f.attempts.ByQuizzes(ctx, 7, f.quizIDs)
	require.NoError(t, err)
	assert.Len(t, attempts, 2)

	_, err = f.svc.MarkComplete(ctx, 7, f.course.ID, progress.MarkTarget{LessonID: 4040}, false)
	assert.ErrorIs(t, err, util.ErrNodeNotFound)

	_, err = f.svc.MarkComplete(ctx, 8, f.course.ID, progress.MarkTarget{LessonID: f.lessonID}, false)
	assert.ErrorIs(t, err, util.ErrEnrollmentNotFound)
}

func TestDiagnosticSubstitutionOnMainCourse(t *testing.T) {
	f := newFixture(t, nil, 7)
	ctx := context.Background()
	require.NoError(t, f.db.Model(f.course).Update("is_main_course", true).Error)

	cfg := testConfig()
	cfg.Progress.DiagnosticQuizID = 9000
	f.svc.UpdateSettings(cfg)

	base, err := f.svc.Refresh(ctx, 7, f.course.ID, util.TriggerLogin)
	require.NoError(t, err)
	assert.Equal(t, 4, base.Summary.Total)

	f.pass(t, 7, 9000)
	view, err := f.svc.Refresh(ctx, 7, f.course.ID, util.TriggerLogin)
	require.NoError(t, err)
	assert.Equal(t, 4, view.Summary.Total)
	// 诊断测验 + 第一个主题，共 4 个单元，按 95 分权重缩放
	assert.Equal(t, 47.5, view.Percentage)
}

func TestSyncCourseAndRefreshStale(t *testing.T) {
	f := newFixture(t, nil, 7, 8, 9)
	ctx := context.Background()
	f.pass(t, 8, f.quizIDs[0])

	res, err := f.svc.SyncCourse(ctx, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Refreshed)
	assert.Zero(t, res.Failed)

	rows, err := f.progress.ListByCourse(ctx, f.course.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	stale, err := f.svc.RefreshStale(ctx)
	require.NoError(t, err)
	assert.Zero(t, stale.Refreshed)

	f.svc.WithClock(func() time.Time { return fixedNow.Add(3 * time.Hour) })
	stale, err = f.svc.RefreshStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stale.Refreshed)

	_, err = f.svc.SyncCourse(ctx, 4040)
	assert.ErrorIs(t, err, util.ErrCourseNotFound)
}

func TestRefreshStaleTouchesOrphanedRows(t *testing.T) {
	f := newFixture(t, nil, 7)
	ctx := context.Background()
	_, err := f.svc.Refresh(ctx, 7, f.course.ID, util.TriggerLogin)
	require.NoError(t, err)
	require.NoError(t, f.db.Unscoped().Where("user_id = ?", 7).Delete(&model.Enrollment{}).Error)

	f.svc.WithClock(func() time.Time { return fixedNow.Add(3 * time.Hour) })
	res, err := f.svc.RefreshStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)

	res, err = f.svc.RefreshStale(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Skipped)
}

func TestRefreshForQuiz(t *testing.T) {
	f := newFixture(t, nil, 7)
	ctx := context.Background()
	f.pass(t, 7, f.quizIDs[1])

	views, err := f.svc.RefreshForQuiz(ctx, 7, f.quizIDs[1])
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, 1, views[0].Summary.Passed)
}

func TestConcurrentRefreshesConverge(t *testing.T) {
	f := newFixture(t, nil, 7)
	ctx := context.Background()
	f.pass(t, 7, f.quizIDs[0])

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Refresh(ctx, 7, f.course.ID, util.TriggerLogin)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	row, err := f.progress.Find(ctx, 7, f.course.ID)
	require.NoError(t, err)
	tree, err := progress.Decode(row.Tree)
	require.NoError(t, err)
	assert.Equal(t, 1, progress.CountTotals(tree, nil).Passed)
}
