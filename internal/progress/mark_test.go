package progress

import (
	"context"
	"testing"
	"time"

	"course_progress_backend/internal/model"
	"course_progress_backend/internal/util"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// threeTopicCourse 课程 1 > 课时 10 > 主题 100, 101, 102，各 1 个测验
func threeTopicCourse() *fakeCatalog {
	return newCatalog().
		addCourse(1, false).
		addLesson(1, 10).
		addTopic(10, 100).addQuiz(100, 1000).
		addTopic(10, 101).addQuiz(101, 1001).
		addTopic(10, 102).addQuiz(102, 1002)
}

func TestMarkLessonCompleteWithAutoCorrect(t *testing.T) {
	h := newHarness(threeTopicCourse())
	at := time.Date(2026, time.March, 2, 8, 0, 0, 0, time.UTC)
	h.attempts.add(student, 1000, model.AttemptSubmitted, ptr(at), at)

	tree := h.reEvaluate(t, student, 1, h.populate(t, 1))
	_, topic, _ := tree.Topic(100)
	require.True(t, topic.Submitted)
	require.False(t, topic.Completed)

	marked, err := h.rec.MarkComplete(context.Background(), student, 1, tree, MarkTarget{LessonID: 10}, true)
	require.NoError(t, err)

	lesson, _ := marked.Lesson(10)
	assert.True(t, lesson.Completed)
	assert.Equal(t, testNow, lesson.MarkedAt.Time)
	for _, tp := range lesson.Topics.All() {
		assert.True(t, tp.Completed, "topic %d", tp.ID)
		for _, q := range tp.Quizzes.All() {
			assert.True(t, q.Passed, "quiz %d", q.ID)
		}
	}
	assert.True(t, marked.Completed)
	assert.Equal(t, 2, h.attempts.synthesis)
	assertRollups(t, marked)

	assert.Equal(t, []string{
		"ASSESSMENT MARKED/1001/7",
		"ASSESSMENT MARKED/1002/7",
		"LESSON END/10/7",
		"TOPIC END/100/7",
		"TOPIC END/101/7",
		"TOPIC END/102/7",
	}, h.activity.events())

	upserts := h.activity.upserts
	again := h.reEvaluate(t, student, 1, marked)
	assert.Empty(t, cmp.Diff(marked, again, treeOpts...))
	assert.Equal(t, 2, h.attempts.synthesis)
	assert.Equal(t, upserts, h.activity.upserts)

	s := CountTotals(again, nil)
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 4, s.Processed)
	assert.True(t, s.CourseCompleted)
}

func TestMarkTopicComplete(t *testing.T) {
	h := newHarness(threeTopicCourse())
	at := time.Date(2026, time.March, 2, 8, 0, 0, 0, time.UTC)
	h.attempts.add(student, 1000, model.AttemptSubmitted, ptr(at), at)
	tree := h.reEvaluate(t, student, 1, h.populate(t, 1))

	marked, err := h.rec.MarkComplete(context.Background(), student, 1, tree, MarkTarget{LessonID: 10, TopicID: 101}, false)
	require.NoError(t, err)

	lesson, _ := marked.Lesson(10)
	t100, _ := lesson.Topics.Get(100)
	t101, _ := lesson.Topics.Get(101)
	t102, _ := lesson.Topics.Get(102)
	assert.False(t, t100.Completed)
	assert.True(t, t101.Completed)
	assert.False(t, t102.Completed)
	assert.False(t, lesson.Completed)
	assert.False(t, lesson.MarkedAt.Valid)
	assert.Equal(t, 1, h.attempts.synthesis)
	assert.Equal(t, 1, lesson.Topics.Passed)
}

func TestMarkTopicAutoCorrectsSubmittedTopics(t *testing.T) {
	h := newHarness(threeTopicCourse())
	at := time.Date(2026, time.March, 2, 8, 0, 0, 0, time.UTC)
	h.attempts.add(student, 1000, model.AttemptSubmitted, ptr(at), at)
	tree := h.reEvaluate(t, student, 1, h.populate(t, 1))

	marked, err := h.rec.MarkComplete(context.Background(), student, 1, tree, MarkTarget{LessonID: 10, TopicID: 101}, true)
	require.NoError(t, err)

	_, t100, _ := marked.Topic(100)
	assert.True(t, t100.Completed)
	assert.True(t, t100.MarkedAt.Valid)
	q, _ := t100.Quizzes.Get(1000)
	assert.True(t, q.Passed)
	_, t102, _ := marked.Topic(102)
	assert.False(t, t102.Completed)
	assert.Equal(t, 1, h.attempts.synthesis)
}

func TestMarkCompleteUnknownNode(t *testing.T) {
	h := newHarness(threeTopicCourse())
	tree := h.reEvaluate(t, student, 1, h.populate(t, 1))

	_, err := h.rec.MarkComplete(context.Background(), student, 1, tree, MarkTarget{LessonID: 99}, false)
	assert.ErrorIs(t, err, util.ErrNodeNotFound)

	_, err = h.rec.MarkComplete(context.Background(), student, 1, tree, MarkTarget{LessonID: 10, TopicID: 999}, false)
	assert.ErrorIs(t, err, util.ErrNodeNotFound)
	assert.Zero(t, h.attempts.synthesis)
}
