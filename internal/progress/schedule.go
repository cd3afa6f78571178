package progress

import (
	"time"

	"course_progress_backend/internal/model"
)

const (
	StatusNotStarted     = "NOT STARTED"
	StatusDelist         = "DELIST"
	StatusCompleted      = "COMPLETED"
	StatusOnSchedule     = "ON SCHEDULE"
	StatusBehindSchedule = "BEHIND SCHEDULE"
)

const day = 24 * time.Hour

// ExpectedPercentage 按选课开始到结束日期线性推进时，当前应达到的进度
func ExpectedPercentage(e *model.Enrollment, now time.Time) float64 {
	if e == nil || e.StartDate == nil || e.EndDate == nil {
		return 0
	}
	start := truncateDay(*e.StartDate)
	end := truncateDay(*e.EndDate)
	today := truncateDay(now)

	if today.Before(start) {
		return 0
	}
	if today.After(end) {
		return 100
	}
	totalDays := end.Sub(start).Hours() / 24
	if totalDays <= 0 {
		return 100
	}
	elapsedDays := today.Sub(start).Hours() / 24
	return clampPercent(round2(elapsedDays / totalDays * 100))
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// StatusInput 计算课程状态所需的输入
type StatusInput struct {
	Enrollment *model.Enrollment
	Detail     *model.StudentDetail
	Summary    Summary
	Percentage float64
	Expected   float64
	// 应达进度与实际进度之差不超过该值时仍算按计划
	GapThreshold float64
	Now          time.Time
}

// CourseStatus 计算与百分比一同展示的进度状态
func CourseStatus(in StatusInput) string {
	e := in.Enrollment
	if e != nil && e.Status == model.EnrollmentDelist {
		return StatusDelist
	}

	if notBegun(in) {
		return StatusNotStarted
	}

	if in.Percentage >= 100 || in.Summary.CourseCompleted {
		if in.Summary.QuizzesPending() > 0 || in.Summary.QuizzesFailed > 0 {
			return StatusOnSchedule
		}
		return StatusCompleted
	}

	if e != nil && e.EndDate != nil && truncateDay(in.Now).After(truncateDay(*e.EndDate)) {
		return StatusBehindSchedule
	}

	if in.Expected-in.Percentage <= in.GapThreshold {
		return StatusOnSchedule
	}
	return StatusBehindSchedule
}

func notBegun(in StatusInput) bool {
	if in.Detail == nil || in.Detail.Status != model.StudentStatusEnrolled {
		return false
	}
	if in.Enrollment == nil || in.Enrollment.Status != model.EnrollmentActive {
		return false
	}
	s := in.Summary
	return s.Processed == 0 && s.QuizzesSubmitted == 0 && !s.CourseCompleted
}
