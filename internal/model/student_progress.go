package model

import "time"

// StudentProgress 每个 (学生, 课程) 一条，Tree 为序列化后的进度树
// swagger:model StudentProgress
type StudentProgress struct {
	BaseModel
	UserID      uint       `gorm:"uniqueIndex:idx_progress_user_course,priority:1;not null" json:"userId"`
	CourseID    uint       `gorm:"uniqueIndex:idx_progress_user_course,priority:2;index;not null" json:"courseId"`
	Tree        string     `gorm:"type:text" json:"-"`
	Percentage  float64    `gorm:"default:0" json:"percentage"`
	Status      string     `gorm:"size:32" json:"status"`
	Completed   bool       `gorm:"default:false" json:"completed"`
	Version     uint       `gorm:"not null;default:1" json:"version"`
	RefreshedAt *time.Time `gorm:"index" json:"refreshedAt,omitempty"`
}

func (StudentProgress) TableName() string {
	return "student_progress"
}
