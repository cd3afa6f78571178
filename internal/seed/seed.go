// Package seed 从 yaml 文件导入课程目录与选课记录，用于本地环境与演示数据。
package seed

import (
	"context"
	"fmt"
	"io"
	"time"

	"course_progress_backend/internal/model"
	"course_progress_backend/internal/repository"
	"course_progress_backend/pkg/logger"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type File struct {
	Courses []Course `yaml:"courses"`
}

type Course struct {
	Title    string    `yaml:"title"`
	Category string    `yaml:"category"`
	Main     bool      `yaml:"main"`
	Lessons  []Lesson  `yaml:"lessons"`
	Students []Student `yaml:"students"`
}

type Lesson struct {
	Title  string  `yaml:"title"`
	Topics []Topic `yaml:"topics"`
}

type Topic struct {
	Title   string   `yaml:"title"`
	Quizzes []string `yaml:"quizzes"`
}

type Student struct {
	ID        uint      `yaml:"id"`
	Start     time.Time `yaml:"start"`
	End       time.Time `yaml:"end"`
	Status    string    `yaml:"status"`
	Onboarded bool      `yaml:"onboarded"`
}

// Result 导入后各课程的ID
type Result struct {
	CourseIDs []uint
	Enrolled  int
}

func Load(r io.Reader) (*File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	for i, c := range f.Courses {
		if c.Title == "" {
			return nil, fmt.Errorf("course #%d has no title", i+1)
		}
		for _, s := range c.Students {
			if s.ID == 0 {
				return nil, fmt.Errorf("course %q: student id is required", c.Title)
			}
			if !s.Start.IsZero() && !s.End.IsZero() && s.End.Before(s.Start) {
				return nil, fmt.Errorf("course %q: student %d ends before it starts", c.Title, s.ID)
			}
		}
	}
	return &f, nil
}

func Apply(ctx context.Context, catalog *repository.CatalogRepository, enrollments *repository.EnrollmentRepository, f *File) (*Result, error) {
	res := &Result{}
	for _, c := range f.Courses {
		course := &model.Course{Title: c.Title, Category: c.Category, IsMainCourse: c.Main}
		if err := catalog.CreateCourse(ctx, course, lessonSeeds(c.Lessons)); err != nil {
			return nil, fmt.Errorf("create course %q: %w", c.Title, err)
		}
		res.CourseIDs = append(res.CourseIDs, course.ID)

		for _, s := range c.Students {
			if err := enroll(ctx, enrollments, course.ID, s); err != nil {
				return nil, fmt.Errorf("enroll student %d in %q: %w", s.ID, c.Title, err)
			}
			res.Enrolled++
		}
		logger.Log.Info("course seeded",
			zap.Uint("courseId", course.ID), zap.String("title", c.Title), zap.Int("students", len(c.Students)))
	}
	return res, nil
}

func lessonSeeds(lessons []Lesson) []repository.LessonSeed {
	seeds := make([]repository.LessonSeed, len(lessons))
	for i, l := range lessons {
		seeds[i].Lesson = model.Lesson{Title: l.Title, Position: i}
		seeds[i].Topics = make([]repository.TopicSeed, len(l.Topics))
		for j, t := range l.Topics {
			topic := repository.TopicSeed{Topic: model.Topic{Title: t.Title, Position: j}}
			for k, q := range t.Quizzes {
				topic.Quizzes = append(topic.Quizzes, model.Quiz{Title: q, Position: k})
			}
			seeds[i].Topics[j] = topic
		}
	}
	return seeds
}

func enroll(ctx context.Context, enrollments *repository.EnrollmentRepository, courseID uint, s Student) error {
	e := &model.Enrollment{UserID: s.ID, CourseID: courseID, Status: model.EnrollmentActive}
	if !s.Start.IsZero() {
		e.StartDate = &s.Start
	}
	if !s.End.IsZero() {
		e.EndDate = &s.End
	}
	if err := enrollments.Create(ctx, e); err != nil {
		return err
	}

	// 学生档案按用户唯一，多门课程只建一次
	detail, err := enrollments.FindDetail(ctx, s.ID)
	if err != nil || detail != nil {
		return err
	}
	status := s.Status
	if status == "" {
		status = model.StudentStatusEnrolled
	}
	d := &model.StudentDetail{UserID: s.ID, Status: status, Onboarded: s.Onboarded}
	if s.Onboarded && !s.Start.IsZero() {
		d.OnboardedAt = &s.Start
	}
	return enrollments.CreateDetail(ctx, d)
}
