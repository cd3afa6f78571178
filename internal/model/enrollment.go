package model

import "time"

type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentDelist    EnrollmentStatus = "delist"
	EnrollmentCompleted EnrollmentStatus = "completed"
)

// Enrollment 学生选课记录
// swagger:model Enrollment
type Enrollment struct {
	BaseModel
	UserID       uint             `gorm:"uniqueIndex:idx_enrollment_user_course,priority:1;not null" json:"userId"`
	CourseID     uint             `gorm:"uniqueIndex:idx_enrollment_user_course,priority:2;index;not null" json:"courseId"`
	StartDate    *time.Time       `json:"startDate,omitempty"`
	EndDate      *time.Time       `json:"endDate,omitempty"`
	Status       EnrollmentStatus `gorm:"type:varchar(16);not null;default:'active'" json:"status"`
	MainCourseID uint             `gorm:"default:0" json:"mainCourseId"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}

const (
	StudentStatusEnrolled = "Enrolled"
	StudentStatusActive   = "Active"
	StudentStatusInactive = "Inactive"
)

// StudentDetail 学生档案（入学状态、是否完成入学引导）
// swagger:model StudentDetail
type StudentDetail struct {
	BaseModel
	UserID      uint       `gorm:"uniqueIndex;not null" json:"userId"`
	Status      string     `gorm:"size:16;not null;default:'Enrolled'" json:"status"`
	Onboarded   bool       `gorm:"default:false" json:"onboarded"`
	OnboardedAt *time.Time `json:"onboardedAt,omitempty"`
}

func (StudentDetail) TableName() string {
	return "student_details"
}
