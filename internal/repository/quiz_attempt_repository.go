package repository

import (
	"context"
	"errors"
	"time"

	"course_progress_backend/internal/model"

	"gorm.io/gorm"
)

type QuizAttemptRepository struct {
	DB *gorm.DB
}

func NewQuizAttemptRepository(db *gorm.DB) *QuizAttemptRepository {
	return &QuizAttemptRepository{DB: db}
}

func (r *QuizAttemptRepository) Create(ctx context.Context, attempt *model.QuizAttempt) error {
	return r.DB.WithContext(ctx).Create(attempt).Error
}

func (r *QuizAttemptRepository) ByQuizzes(ctx context.Context, userID uint, quizIDs []uint) ([]model.QuizAttempt, error) {
	var attempts []model.QuizAttempt
	if len(quizIDs) == 0 {
		return attempts, nil
	}
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND quiz_id IN ?", userID, quizIDs).
		Order("created_at ASC, id ASC").
		Find(&attempts).Error
	return attempts, err
}

// UpsertOverride 手动标记完成时补写一条合格记录；已有任何作答记录则原样返回
func (r *QuizAttemptRepository) UpsertOverride(ctx context.Context, userID, quizID uint, at time.Time) (*model.QuizAttempt, bool, error) {
	var attempt model.QuizAttempt
	created := false
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ? AND quiz_id = ?", userID, quizID).
			Order("created_at ASC, id ASC").
			First(&attempt).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		submitted := at
		attempt = model.QuizAttempt{
			BaseModel:    model.BaseModel{CreatedAt: at, UpdatedAt: at},
			UserID:       userID,
			QuizID:       quizID,
			Status:       model.AttemptSatisfactory,
			SystemResult: model.SystemMarked,
			SubmittedAt:  &submitted,
			Synthesized:  true,
		}
		if err := tx.Create(&attempt).Error; err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &attempt, created, nil
}
