package model

import "time"

const (
	EventLessonEnd        = "LESSON END"
	EventTopicEnd         = "TOPIC END"
	EventAssessmentMarked = "ASSESSMENT MARKED"
)

// Activity 学习行为审计记录，(event, subject, user) 唯一
// swagger:model Activity
type Activity struct {
	BaseModel
	Event      string    `gorm:"size:32;not null;uniqueIndex:idx_activity_key,priority:1" json:"event"`
	SubjectID  uint      `gorm:"not null;uniqueIndex:idx_activity_key,priority:2" json:"subjectId"`
	UserID     uint      `gorm:"not null;uniqueIndex:idx_activity_key,priority:3" json:"userId"`
	OccurredAt time.Time `json:"occurredAt"`
}

func (Activity) TableName() string {
	return "activities"
}
