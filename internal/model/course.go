package model

// Course 课程目录（由内容管理系统维护，引擎只读）
// swagger:model Course
type Course struct {
	BaseModel
	Title        string `gorm:"size:255;not null" json:"title"`
	Category     string `gorm:"size:64;index" json:"category"`
	IsMainCourse bool   `gorm:"default:false" json:"isMainCourse"`
}

func (Course) TableName() string {
	return "courses"
}

// swagger:model Lesson
type Lesson struct {
	BaseModel
	CourseID     uint   `gorm:"index:idx_lesson_course_position,priority:1;not null" json:"courseId"`
	Title        string `gorm:"size:255;not null" json:"title"`
	Position     int    `gorm:"index:idx_lesson_course_position,priority:2;default:0" json:"position"`
	ReleaseKey   string `gorm:"size:32" json:"releaseKey"`
	ReleaseValue string `gorm:"size:64" json:"releaseValue"`
}

func (Lesson) TableName() string {
	return "lessons"
}

// swagger:model Topic
type Topic struct {
	BaseModel
	LessonID uint   `gorm:"index:idx_topic_lesson_position,priority:1;not null" json:"lessonId"`
	Title    string `gorm:"size:255;not null" json:"title"`
	Position int    `gorm:"index:idx_topic_lesson_position,priority:2;default:0" json:"position"`
}

func (Topic) TableName() string {
	return "topics"
}

// swagger:model Quiz
type Quiz struct {
	BaseModel
	TopicID  uint   `gorm:"index:idx_quiz_topic_position,priority:1;not null" json:"topicId"`
	Title    string `gorm:"size:255;not null" json:"title"`
	Position int    `gorm:"index:idx_quiz_topic_position,priority:2;default:0" json:"position"`
}

func (Quiz) TableName() string {
	return "quizzes"
}
