package seed

import (
	"context"
	"strings"
	"testing"

	"course_progress_backend/internal/model"
	"course_progress_backend/internal/repository"
	"course_progress_backend/pkg/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const sample = `
courses:
  - title: C 语言入门
    category: programming
    main: true
    lessons:
      - title: 变量
        topics:
          - title: 类型
            quizzes: [整数类型, 浮点类型]
          - title: 作用域
      - title: 指针
        topics:
          - title: 地址
            quizzes: [取地址]
    students:
      - id: 7
        start: 2026-03-01
        end: 2026-04-01
        status: Active
        onboarded: true
  - title: 数据结构
    lessons:
      - title: 链表
    students:
      - id: 7
`

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

func TestLoadAndApply(t *testing.T) {
	f, err := Load(strings.NewReader(sample))
	require.NoError(t, err)
	require.Len(t, f.Courses, 2)
	assert.Equal(t, []string{"整数类型", "浮点类型"}, f.Courses[0].Lessons[0].Topics[0].Quizzes)

	db := newTestDB(t)
	catalog := repository.NewCatalogRepository(db)
	enrollments := repository.NewEnrollmentRepository(db)
	ctx := context.Background()

	res, err := Apply(ctx, catalog, enrollments, f)
	require.NoError(t, err)
	require.Len(t, res.CourseIDs, 2)
	assert.Equal(t, 2, res.Enrolled)

	course, err := catalog.Course(ctx, res.CourseIDs[0])
	require.NoError(t, err)
	assert.True(t, course.IsMainCourse)

	lessons, err := catalog.Lessons(ctx, course.ID)
	require.NoError(t, err)
	require.Len(t, lessons, 2)
	assert.Equal(t, "变量", lessons[0].Title)
	topics, err := catalog.Topics(ctx, lessons[0].ID)
	require.NoError(t, err)
	require.Len(t, topics, 2)
	quizzes, err := catalog.Quizzes(ctx, topics[0].ID)
	require.NoError(t, err)
	require.Len(t, quizzes, 2)
	assert.Equal(t, "整数类型", quizzes[0].Title)

	e, err := enrollments.Find(ctx, 7, course.ID)
	require.NoError(t, err)
	require.NotNil(t, e.StartDate)
	assert.Equal(t, 2026, e.StartDate.Year())

	detail, err := enrollments.FindDetail(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, detail)
	assert.Equal(t, model.StudentStatusActive, detail.Status)
	assert.True(t, detail.Onboarded)

	second, err := enrollments.Find(ctx, 7, res.CourseIDs[1])
	require.NoError(t, err)
	assert.Nil(t, second.StartDate)
}

func TestLoadRejectsInvalidFiles(t *testing.T) {
	cases := map[string]string{
		"unknown field":   "courses:\n  - title: x\n    color: red\n",
		"missing title":   "courses:\n  - lessons: []\n",
		"missing student": "courses:\n  - title: x\n    students:\n      - onboarded: true\n",
		"reversed dates":  "courses:\n  - title: x\n    students:\n      - id: 1\n        start: 2026-04-01\n        end: 2026-03-01\n",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(strings.NewReader(raw))
			assert.Error(t, err)
		})
	}
}
