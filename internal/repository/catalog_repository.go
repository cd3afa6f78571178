package repository

import (
	"context"
	"errors"

	"course_progress_backend/internal/model"
	"course_progress_backend/internal/util"

	"gorm.io/gorm"
)

// CatalogRepository 课程目录只读查询，列表按 position、id 排序
type CatalogRepository struct {
	DB *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{DB: db}
}

func (r *CatalogRepository) Course(ctx context.Context, courseID uint) (*model.Course, error) {
	var course model.Course
	err := r.DB.WithContext(ctx).First(&course, courseID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrCourseNotFound
	}
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *CatalogRepository) Lessons(ctx context.Context, courseID uint) ([]model.Lesson, error) {
	var lessons []model.Lesson
	err := r.DB.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("position ASC, id ASC").
		Find(&lessons).Error
	return lessons, err
}

func (r *CatalogRepository) Topics(ctx context.Context, lessonID uint) ([]model.Topic, error) {
	var topics []model.Topic
	err := r.DB.WithContext(ctx).
		Where("lesson_id = ?", lessonID).
		Order("position ASC, id ASC").
		Find(&topics).Error
	return topics, err
}

func (r *CatalogRepository) Quizzes(ctx context.Context, topicID uint) ([]model.Quiz, error) {
	var quizzes []model.Quiz
	err := r.DB.WithContext(ctx).
		Where("topic_id = ?", topicID).
		Order("position ASC, id ASC").
		Find(&quizzes).Error
	return quizzes, err
}

// CourseIDsForQuiz 找出包含该测验的课程，提交测验后据此刷新进度
func (r *CatalogRepository) CourseIDsForQuiz(ctx context.Context, quizID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).
		Table("quizzes").
		Distinct().
		Joins("JOIN topics ON topics.id = quizzes.topic_id AND topics.deleted_at IS NULL").
		Joins("JOIN lessons ON lessons.id = topics.lesson_id AND lessons.deleted_at IS NULL").
		Where("quizzes.id = ? AND quizzes.deleted_at IS NULL", quizID).
		Pluck("lessons.course_id", &ids).Error
	return ids, err
}

// CreateCourse 写入整门课程（seed 命令使用）
func (r *CatalogRepository) CreateCourse(ctx context.Context, course *model.Course, lessons []LessonSeed) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(course).Error; err != nil {
			return err
		}
		for i := range lessons {
			l := &lessons[i]
			l.Lesson.CourseID = course.ID
			if err := tx.Create(&l.Lesson).Error; err != nil {
				return err
			}
			for j := range l.Topics {
				t := &l.Topics[j]
				t.Topic.LessonID = l.Lesson.ID
				if err := tx.Create(&t.Topic).Error; err != nil {
					return err
				}
				for k := range t.Quizzes {
					t.Quizzes[k].TopicID = t.Topic.ID
				}
				if len(t.Quizzes) > 0 {
					if err := tx.Create(&t.Quizzes).Error; err != nil {
						return err
					}
				}
			}
		}
		return nil
	})
}

type LessonSeed struct {
	Lesson model.Lesson
	Topics []TopicSeed
}

type TopicSeed struct {
	Topic   model.Topic
	Quizzes []model.Quiz
}
