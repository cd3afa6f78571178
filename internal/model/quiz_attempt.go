package model

import "time"

type AttemptStatus string

const (
	AttemptAttempting      AttemptStatus = "ATTEMPTING"
	AttemptSubmitted       AttemptStatus = "SUBMITTED"
	AttemptReviewing       AttemptStatus = "REVIEWING"
	AttemptReturned        AttemptStatus = "RETURNED"
	AttemptSatisfactory    AttemptStatus = "SATISFACTORY"
	AttemptFail            AttemptStatus = "FAIL"
	AttemptNotSatisfactory AttemptStatus = "NOT SATISFACTORY"
	AttemptOverdue         AttemptStatus = "OVERDUE"
)

// IsPassed 满意即通过
func (s AttemptStatus) IsPassed() bool {
	return s == AttemptSatisfactory
}

// IsFailed 被退回或判定不合格
func (s AttemptStatus) IsFailed() bool {
	switch s {
	case AttemptReturned, AttemptFail, AttemptNotSatisfactory:
		return true
	}
	return false
}

type SystemResult string

const (
	SystemInProgress SystemResult = "INPROGRESS"
	SystemMarked     SystemResult = "MARKED"
	SystemCompleted  SystemResult = "COMPLETED"
	SystemEvaluated  SystemResult = "EVALUATED"
)

// QuizAttempt 学生作答记录，由评分流程写入；引擎只在手动标记完成时补写
// swagger:model QuizAttempt
type QuizAttempt struct {
	BaseModel
	UserID       uint          `gorm:"index:idx_attempt_user_quiz,priority:1;not null" json:"userId"`
	QuizID       uint          `gorm:"index:idx_attempt_user_quiz,priority:2;not null" json:"quizId"`
	Status       AttemptStatus `gorm:"type:varchar(32);not null;default:'ATTEMPTING'" json:"status"`
	SystemResult SystemResult  `gorm:"type:varchar(32);not null;default:'INPROGRESS'" json:"systemResult"`
	SubmittedAt  *time.Time    `json:"submittedAt,omitempty"`
	Synthesized  bool          `gorm:"default:false" json:"synthesized"`
}

func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}
