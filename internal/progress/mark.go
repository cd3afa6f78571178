package progress

import (
	"context"
	"fmt"

	"course_progress_backend/internal/util"
)

// MarkTarget 标记目标：课时，设置 TopicID 时为其中的主题
type MarkTarget struct {
	LessonID uint `json:"lessonId" binding:"required"`
	TopicID  uint `json:"topicId"`
}

// MarkComplete 强制目标节点完成，为其下的测验补写满意的作答后重算整棵树。
// autoCorrect 时已提交的主题也一并标记
func (r *Reconciler) MarkComplete(ctx context.Context, studentID, courseID uint, tree *Tree, target MarkTarget, autoCorrect bool) (*Tree, error) {
	if tree == nil {
		tree = &Tree{}
	}
	out := tree.Clone()
	now := At(r.now())

	lesson, ok := out.Lessons.Get(target.LessonID)
	if !ok {
		return nil, fmt.Errorf("lesson %d: %w", target.LessonID, util.ErrNodeNotFound)
	}

	var scope []*TopicNode
	if target.TopicID == 0 {
		fill(&lesson.MarkedAt, now)
		lesson.Completed = true
		fill(&lesson.CompletedAt, now)
		scope = lesson.Topics.All()
	} else {
		topic, ok := lesson.Topics.Get(target.TopicID)
		if !ok {
			return nil, fmt.Errorf("topic %d in lesson %d: %w", target.TopicID, target.LessonID, util.ErrNodeNotFound)
		}
		fill(&topic.MarkedAt, now)
		topic.Completed = true
		fill(&topic.CompletedAt, now)
		scope = []*TopicNode{topic}
	}

	for _, tp := range scope {
		if err := r.markQuizzes(ctx, studentID, tp, firstValid(tp.MarkedAt, lesson.MarkedAt)); err != nil {
			return nil, err
		}
	}

	if autoCorrect {
		for _, l := range out.Lessons.All() {
			for _, tp := range l.Topics.All() {
				if tp.Submitted && !tp.Completed {
					fill(&tp.MarkedAt, now)
				}
			}
		}
	}

	Rollup(out)
	return r.ReEvaluate(ctx, studentID, courseID, out)
}

func (r *Reconciler) markQuizzes(ctx context.Context, studentID uint, topic *TopicNode, markTime NullTime) error {
	ids := topic.Quizzes.IDs()
	if len(ids) == 0 {
		return nil
	}
	attempts, err := r.attempts.ByQuizzes(ctx, studentID, ids)
	if err != nil {
		return fmt.Errorf("load attempts of topic %d: %w", topic.ID, err)
	}
	histories := groupAttempts(attempts)
	for _, id := range ids {
		if _, ok := histories[id]; ok {
			continue
		}
		a, err := r.SynthesizeOverrideAttempt(ctx, studentID, id, markTime.Time)
		if err != nil {
			return err
		}
		histories.add(*a)
	}
	for _, q := range topic.Quizzes.All() {
		applyAttempts(q, histories[q.ID], true, markTime)
	}
	return nil
}
