package repository

import (
	"context"

	"course_progress_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ActivityRepository struct {
	DB *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{DB: db}
}

func (r *ActivityRepository) Exists(ctx context.Context, event string, subjectID, userID uint) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Activity{}).
		Where("event = ? AND subject_id = ? AND user_id = ?", event, subjectID, userID).
		Count(&count).Error
	return count > 0, err
}

// Upsert 以 (event, subject_id, user_id) 为键插入或更新
func (r *ActivityRepository) Upsert(ctx context.Context, activity *model.Activity) error {
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event"}, {Name: "subject_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"occurred_at", "updated_at"}),
	}).Create(activity).Error
}

// Retract 物理删除，保证之后可以重新写入同一个键
func (r *ActivityRepository) Retract(ctx context.Context, event string, subjectID, userID uint) error {
	return r.DB.WithContext(ctx).Unscoped().
		Where("event = ? AND subject_id = ? AND user_id = ?", event, subjectID, userID).
		Delete(&model.Activity{}).Error
}

func (r *ActivityRepository) ListByUser(ctx context.Context, userID uint) ([]model.Activity, error) {
	var activities []model.Activity
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("occurred_at ASC, id ASC").
		Find(&activities).Error
	return activities, err
}
