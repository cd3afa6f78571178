package repository

import (
	"context"
	"errors"
	"time"

	"course_progress_backend/internal/model"
	"course_progress_backend/internal/util"

	"gorm.io/gorm"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

func (r *ProgressRepository) Find(ctx context.Context, userID, courseID uint) (*model.StudentProgress, error) {
	var progress model.StudentProgress
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&progress).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrProgressNotFound
	}
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

// Create 并发初始化时唯一索引冲突返回 ErrProgressConflict
func (r *ProgressRepository) Create(ctx context.Context, progress *model.StudentProgress) error {
	if progress.Version == 0 {
		progress.Version = 1
	}
	err := r.DB.WithContext(ctx).Create(progress).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return util.ErrProgressConflict
	}
	return err
}

// SaveVersioned 乐观锁更新：版本号不一致说明有其他写入，返回 ErrProgressConflict
func (r *ProgressRepository) SaveVersioned(ctx context.Context, progress *model.StudentProgress) error {
	result := r.DB.WithContext(ctx).Model(&model.StudentProgress{}).
		Where("id = ? AND version = ?", progress.ID, progress.Version).
		Updates(map[string]interface{}{
			"tree":         progress.Tree,
			"percentage":   progress.Percentage,
			"status":       progress.Status,
			"completed":    progress.Completed,
			"refreshed_at": progress.RefreshedAt,
			"version":      gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return util.ErrProgressConflict
	}
	progress.Version++
	return nil
}

// ListStale 返回 refreshed_at 早于 before（或从未刷新）的记录，最旧的在前
func (r *ProgressRepository) ListStale(ctx context.Context, before time.Time, limit int) ([]model.StudentProgress, error) {
	var rows []model.StudentProgress
	q := r.DB.WithContext(ctx).
		Select("id", "user_id", "course_id", "refreshed_at", "version").
		Where("refreshed_at IS NULL OR refreshed_at < ?", before).
		Order("refreshed_at ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&rows).Error
	return rows, err
}

func (r *ProgressRepository) ListByCourse(ctx context.Context, courseID uint) ([]model.StudentProgress, error) {
	var rows []model.StudentProgress
	err := r.DB.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("user_id ASC").
		Find(&rows).Error
	return rows, err
}

// Touch 只更新 refreshed_at，不改变版本号
func (r *ProgressRepository) Touch(ctx context.Context, userID, courseID uint, at time.Time) error {
	return r.DB.WithContext(ctx).Model(&model.StudentProgress{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Update("refreshed_at", at).Error
}
