package progress

import (
	"context"
	"fmt"
	"time"

	"course_progress_backend/internal/model"
	"course_progress_backend/pkg/logger"
	"course_progress_backend/pkg/monitoring"

	"go.uber.org/zap"
)

// Reconciler 按课程目录与学生作答记录重算已存储的进度树
type Reconciler struct {
	catalog  Catalog
	attempts AttemptStore
	activity ActivityLog
	now      func() time.Time
}

func NewReconciler(catalog Catalog, attempts AttemptStore, activity ActivityLog) *Reconciler {
	return &Reconciler{
		catalog:  catalog,
		attempts: attempts,
		activity: activity,
		now:      time.Now,
	}
}

// WithClock 替换时间源
func (r *Reconciler) WithClock(now func() time.Time) *Reconciler {
	r.now = now
	return r
}

// ReEvaluate 返回重算后的副本，不修改输入。对结果再次执行不会产生变化
func (r *Reconciler) ReEvaluate(ctx context.Context, studentID, courseID uint, tree *Tree) (*Tree, error) {
	if tree == nil {
		tree = &Tree{}
	}
	out := tree.Clone()

	lessons, err := r.catalog.Lessons(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("load lessons of course %d: %w", courseID, err)
	}
	valid := make(map[uint]bool, len(lessons))
	for _, l := range lessons {
		valid[l.ID] = true
	}

	for _, id := range out.Lessons.IDs() {
		if !valid[id] {
			out.Lessons.Remove(id)
			monitoring.PrunedNodes.WithLabelValues("lesson").Inc()
			logger.Log.Debug("pruned lesson missing from catalog",
				zap.Uint("lessonId", id), zap.Uint("courseId", courseID), zap.Uint("studentId", studentID))
			continue
		}
		lesson, _ := out.Lessons.Get(id)
		if err := r.reconcileLesson(ctx, studentID, lesson); err != nil {
			return nil, err
		}
	}

	rollupLessons(&out.Lessons)
	out.Completed = out.Lessons.Count > 0 && out.Lessons.Submitted == out.Lessons.Count
	relink(out)

	if !Equal(out, tree) {
		out.LastUpdatedAt = At(r.now())
	}
	return out, nil
}

func (r *Reconciler) reconcileLesson(ctx context.Context, studentID uint, lesson *LessonNode) error {
	topics, err := r.catalog.Topics(ctx, lesson.ID)
	if err != nil {
		return fmt.Errorf("load topics of lesson %d: %w", lesson.ID, err)
	}
	valid := make(map[uint]bool, len(topics))
	for _, t := range topics {
		valid[t.ID] = true
	}

	for _, id := range lesson.Topics.IDs() {
		if !valid[id] {
			lesson.Topics.Remove(id)
			monitoring.PrunedNodes.WithLabelValues("topic").Inc()
			logger.Log.Debug("pruned topic missing from catalog",
				zap.Uint("topicId", id), zap.Uint("lessonId", lesson.ID), zap.Uint("studentId", studentID))
			continue
		}
		topic, _ := lesson.Topics.Get(id)
		if err := r.reconcileTopic(ctx, studentID, lesson, topic); err != nil {
			return err
		}
	}

	rollupTopics(&lesson.Topics)
	deriveLesson(lesson)

	if lesson.Ended() {
		end := lessonEndTime(lesson, r.now())
		if lesson.Completed {
			fill(&lesson.CompletedAt, end)
		} else {
			lesson.CompletedAt = NullTime{}
		}
		if lesson.Submitted {
			fill(&lesson.SubmittedAt, end)
		}
		fill(&lesson.AttemptedAt, end)
		fill(&lesson.LessonEndAt, end)
		r.emit(ctx, model.EventLessonEnd, lesson.ID, studentID, lesson.LessonEndAt.Time)
		return nil
	}

	if lesson.Attempted {
		var first NullTime
		for _, tp := range lesson.Topics.All() {
			if tp.AttemptedAt.Valid && (!first.Valid || tp.AttemptedAt.Time.Before(first.Time)) {
				first = tp.AttemptedAt
			}
		}
		fill(&lesson.AttemptedAt, firstValid(first, At(r.now())))
	}
	// 目录新增节点后重新打开，完成时间随结束时间一起清空
	lesson.CompletedAt = NullTime{}
	lesson.SubmittedAt = NullTime{}
	lesson.LessonEndAt = NullTime{}
	r.retract(ctx, model.EventLessonEnd, lesson.ID, studentID)
	return nil
}

func (r *Reconciler) reconcileTopic(ctx context.Context, studentID uint, lesson *LessonNode, topic *TopicNode) error {
	lessonMarked := lesson.MarkedAt.Valid
	forced := lessonMarked || topic.MarkedAt.Valid
	markTime := firstValid(topic.MarkedAt, lesson.MarkedAt)

	quizzes, err := r.catalog.Quizzes(ctx, topic.ID)
	if err != nil {
		return fmt.Errorf("load quizzes of topic %d: %w", topic.ID, err)
	}
	catalogQuiz := make(map[uint]model.Quiz, len(quizzes))
	for _, q := range quizzes {
		catalogQuiz[q.ID] = q
	}
	for _, id := range topic.Quizzes.IDs() {
		if _, ok := catalogQuiz[id]; !ok {
			topic.Quizzes.Remove(id)
			monitoring.PrunedNodes.WithLabelValues("quiz").Inc()
		}
	}

	ids := topic.Quizzes.IDs()
	var attempts []model.QuizAttempt
	if len(ids) > 0 {
		attempts, err = r.attempts.ByQuizzes(ctx, studentID, ids)
		if err != nil {
			return fmt.Errorf("load attempts of topic %d: %w", topic.ID, err)
		}
	}
	histories := groupAttempts(attempts)

	if forced {
		for _, id := range ids {
			if _, ok := histories[id]; ok {
				continue
			}
			if catalogQuiz[id].CreatedAt.After(markTime.Time) {
				continue
			}
			a, err := r.SynthesizeOverrideAttempt(ctx, studentID, id, markTime.Time)
			if err != nil {
				// 下次重算时重试
				logger.Log.Warn("failed to synthesize override attempt",
					zap.Uint("quizId", id), zap.Uint("studentId", studentID), zap.Error(err))
				continue
			}
			histories.add(*a)
		}
	}

	for _, q := range topic.Quizzes.All() {
		applyAttempts(q, histories[q.ID], forced, markTime)
	}
	rollupQuizzes(&topic.Quizzes)
	deriveTopic(topic, lessonMarked)

	if topic.Ended() {
		end := topicEndTime(topic, lesson, r.now())
		if topic.Completed {
			fill(&topic.CompletedAt, end)
		} else {
			topic.CompletedAt = NullTime{}
		}
		if topic.Submitted {
			fill(&topic.SubmittedAt, end)
		}
		fill(&topic.AttemptedAt, end)
		fill(&topic.TopicEndAt, end)
		r.emit(ctx, model.EventTopicEnd, topic.ID, studentID, topic.TopicEndAt.Time)
		return nil
	}

	if topic.Attempted {
		var first NullTime
		for _, q := range topic.Quizzes.All() {
			if q.AttemptedAt.Valid && (!first.Valid || q.AttemptedAt.Time.Before(first.Time)) {
				first = q.AttemptedAt
			}
		}
		fill(&topic.AttemptedAt, firstValid(first, At(r.now())))
	}
	// 目录新增节点后重新打开，完成时间随结束时间一起清空
	topic.CompletedAt = NullTime{}
	topic.SubmittedAt = NullTime{}
	topic.TopicEndAt = NullTime{}
	r.retract(ctx, model.EventTopicEnd, topic.ID, studentID)
	return nil
}

// SynthesizeOverrideAttempt 为被标记课时或主题下的测验写入满意的作答，并记录标记事件
func (r *Reconciler) SynthesizeOverrideAttempt(ctx context.Context, studentID, quizID uint, at time.Time) (*model.QuizAttempt, error) {
	a, created, err := r.attempts.UpsertOverride(ctx, studentID, quizID, at)
	if err != nil {
		return nil, fmt.Errorf("upsert override attempt: %w", err)
	}
	if created {
		monitoring.SynthesizedAttempts.Inc()
		logger.Log.Info("synthesized override attempt",
			zap.Uint("quizId", quizID), zap.Uint("studentId", studentID), zap.Time("markedAt", at))
	}
	r.emit(ctx, model.EventAssessmentMarked, quizID, studentID, at)
	return a, nil
}

func (r *Reconciler) emit(ctx context.Context, event string, subjectID, userID uint, at time.Time) {
	exists, err := r.activity.Exists(ctx, event, subjectID, userID)
	if err != nil {
		logger.Log.Warn("activity lookup failed", zap.String("event", event), zap.Uint("subjectId", subjectID), zap.Error(err))
		return
	}
	if exists {
		return
	}
	err = r.activity.Upsert(ctx, &model.Activity{
		Event:      event,
		SubjectID:  subjectID,
		UserID:     userID,
		OccurredAt: at,
	})
	if err != nil {
		logger.Log.Warn("activity upsert failed", zap.String("event", event), zap.Uint("subjectId", subjectID), zap.Error(err))
		return
	}
	monitoring.ActivityWrites.WithLabelValues(event, "upsert").Inc()
}

func (r *Reconciler) retract(ctx context.Context, event string, subjectID, userID uint) {
	exists, err := r.activity.Exists(ctx, event, subjectID, userID)
	if err != nil || !exists {
		return
	}
	if err := r.activity.Retract(ctx, event, subjectID, userID); err != nil {
		logger.Log.Warn("activity retract failed", zap.String("event", event), zap.Uint("subjectId", subjectID), zap.Error(err))
		return
	}
	monitoring.ActivityWrites.WithLabelValues(event, "retract").Inc()
}

type attemptHistory struct {
	first           model.QuizAttempt
	latestSubmitted *model.QuizAttempt
}

type attemptHistories map[uint]*attemptHistory

func groupAttempts(attempts []model.QuizAttempt) attemptHistories {
	h := make(attemptHistories)
	for _, a := range attempts {
		h.add(a)
	}
	return h
}

func (h attemptHistories) add(a model.QuizAttempt) {
	cur, ok := h[a.QuizID]
	if !ok {
		cur = &attemptHistory{first: a}
		h[a.QuizID] = cur
	} else if a.CreatedAt.Before(cur.first.CreatedAt) {
		cur.first = a
	}
	if a.SubmittedAt == nil {
		return
	}
	ls := cur.latestSubmitted
	if ls == nil || a.SubmittedAt.After(*ls.SubmittedAt) || (a.SubmittedAt.Equal(*ls.SubmittedAt) && a.ID > ls.ID) {
		c := a
		cur.latestSubmitted = &c
	}
}

func applyAttempts(q *QuizNode, h *attemptHistory, forced bool, markTime NullTime) {
	if h == nil {
		return
	}
	q.Attempted = true
	fill(&q.AttemptedAt, At(h.first.CreatedAt))

	if ls := h.latestSubmitted; ls != nil {
		q.Submitted = true
		fill(&q.SubmittedAt, FromPtr(ls.SubmittedAt))
		switch {
		case ls.Status.IsPassed():
			q.Passed = true
			q.Failed = false
			fill(&q.PassedAt, firstValid(At(ls.UpdatedAt), FromPtr(ls.SubmittedAt)))
		case ls.Status.IsFailed():
			if !q.Passed {
				q.Failed = true
				fill(&q.FailedAt, firstValid(At(ls.UpdatedAt), FromPtr(ls.SubmittedAt)))
			}
		default:
			// 重新提交，等待批改
			q.Failed = false
		}
	}

	if forced {
		q.Passed = true
		q.Failed = false
		q.Submitted = true
		fill(&q.MarkedAt, markTime)
		fill(&q.PassedAt, markTime)
		fill(&q.SubmittedAt, markTime)
	}
}

func topicEndTime(topic *TopicNode, lesson *LessonNode, now time.Time) NullTime {
	var end NullTime
	for _, q := range topic.Quizzes.All() {
		end = later(end, firstValid(q.MarkedAt, q.PassedAt, q.SubmittedAt, q.AttemptedAt))
	}
	if !end.Valid {
		end = firstValid(topic.MarkedAt, topic.CompletedAt, topic.SubmittedAt, topic.AttemptedAt, At(now))
	}
	if !end.Trusted() {
		end = firstTrusted(lesson.MarkedAt, lesson.CompletedAt, lesson.SubmittedAt, lesson.AttemptedAt, At(now))
	}
	return end
}

func lessonEndTime(lesson *LessonNode, now time.Time) NullTime {
	var end NullTime
	for _, tp := range lesson.Topics.All() {
		end = later(end, firstValid(tp.TopicEndAt, tp.MarkedAt, tp.CompletedAt, tp.SubmittedAt))
	}
	if !end.Valid {
		end = firstValid(lesson.MarkedAt, lesson.CompletedAt, lesson.SubmittedAt, lesson.AttemptedAt, At(now))
	}
	if !end.Trusted() {
		end = At(now)
	}
	return end
}

func firstTrusted(ts ...NullTime) NullTime {
	for _, t := range ts {
		if t.Trusted() {
			return t
		}
	}
	return NullTime{}
}
