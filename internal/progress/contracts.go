package progress

import (
	"context"
	"time"

	"course_progress_backend/internal/model"
)

// Catalog 读取课程结构，列表按 position 排序
type Catalog interface {
	Course(ctx context.Context, courseID uint) (*model.Course, error)
	Lessons(ctx context.Context, courseID uint) ([]model.Lesson, error)
	Topics(ctx context.Context, lessonID uint) ([]model.Topic, error)
	Quizzes(ctx context.Context, topicID uint) ([]model.Quiz, error)
}

// AttemptStore 读取测验作答记录，并写入手动标记产生的完成记录
type AttemptStore interface {
	ByQuizzes(ctx context.Context, userID uint, quizIDs []uint) ([]model.QuizAttempt, error)
	// UpsertOverride 在 (user, quiz) 没有记录时创建一条满意的作答，返回已存储的记录
	UpsertOverride(ctx context.Context, userID, quizID uint, at time.Time) (*model.QuizAttempt, bool, error)
}

// ActivityLog 记录课时/主题结束与标记事件
type ActivityLog interface {
	Exists(ctx context.Context, event string, subjectID, userID uint) (bool, error)
	Upsert(ctx context.Context, activity *model.Activity) error
	Retract(ctx context.Context, event string, subjectID, userID uint) error
}
