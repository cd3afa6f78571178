package progress

import (
	"course_progress_backend/internal/model"
)

// DiagnosticSubstitution 主课程第一个课时第一个主题的第一个测验由诊断测验结果替代。
// nil 表示不替代
type DiagnosticSubstitution struct {
	QuizID   uint
	attempts []model.QuizAttempt
}

// NewDiagnosticSubstitution 仅主课程且配置了诊断测验时返回非 nil
func NewDiagnosticSubstitution(course *model.Course, quizID uint, attempts []model.QuizAttempt) *DiagnosticSubstitution {
	if course == nil || !course.IsMainCourse || quizID == 0 {
		return nil
	}
	return &DiagnosticSubstitution{QuizID: quizID, attempts: attempts}
}

// Outcome 替代原测验的诊断结果
type Outcome struct {
	Applied   bool
	Passed    bool
	Failed    bool
	Submitted bool
}

// Resolve 决定第一个测验的结果，原测验自身已通过时不再替代
func (d *DiagnosticSubstitution) Resolve(native *QuizNode) Outcome {
	if d == nil || native == nil || native.Passed {
		return Outcome{}
	}
	o := Outcome{Applied: true}
	h := groupAttempts(d.attempts)[d.QuizID]
	if h == nil {
		return o
	}
	for _, a := range d.attempts {
		if a.QuizID == d.QuizID && a.Status.IsPassed() {
			o.Passed = true
			o.Submitted = true
			return o
		}
	}
	if ls := h.latestSubmitted; ls != nil {
		o.Submitted = true
		o.Failed = ls.Status.IsFailed()
	}
	return o
}
