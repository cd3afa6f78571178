package repository

import (
	"context"
	"errors"

	"course_progress_backend/internal/model"
	"course_progress_backend/internal/util"

	"gorm.io/gorm"
)

type EnrollmentRepository struct {
	DB *gorm.DB
}

func NewEnrollmentRepository(db *gorm.DB) *EnrollmentRepository {
	return &EnrollmentRepository{DB: db}
}

func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *model.Enrollment) error {
	return r.DB.WithContext(ctx).Create(enrollment).Error
}

func (r *EnrollmentRepository) Find(ctx context.Context, userID, courseID uint) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&enrollment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrEnrollmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// ListByCourse 课程下所有未退课的选课记录
func (r *EnrollmentRepository) ListByCourse(ctx context.Context, courseID uint) ([]model.Enrollment, error) {
	var enrollments []model.Enrollment
	err := r.DB.WithContext(ctx).
		Where("course_id = ? AND status <> ?", courseID, model.EnrollmentDelist).
		Order("user_id ASC").
		Find(&enrollments).Error
	return enrollments, err
}

func (r *EnrollmentRepository) ListByUser(ctx context.Context, userID uint) ([]model.Enrollment, error) {
	var enrollments []model.Enrollment
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND status <> ?", userID, model.EnrollmentDelist).
		Order("course_id ASC").
		Find(&enrollments).Error
	return enrollments, err
}

func (r *EnrollmentRepository) CreateDetail(ctx context.Context, detail *model.StudentDetail) error {
	return r.DB.WithContext(ctx).Create(detail).Error
}

// FindDetail 没有档案时返回 nil, nil
func (r *EnrollmentRepository) FindDetail(ctx context.Context, userID uint) (*model.StudentDetail, error) {
	var detail model.StudentDetail
	err := r.DB.WithContext(ctx).Where("user_id = ?", userID).First(&detail).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &detail, nil
}
