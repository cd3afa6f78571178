package progress

import (
	"context"
	"fmt"
)

// Populate 按当前课程目录生成空的进度树骨架
func Populate(ctx context.Context, catalog Catalog, courseID uint) (*Tree, error) {
	lessons, err := catalog.Lessons(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("load lessons of course %d: %w", courseID, err)
	}

	tree := &Tree{}
	var prevLesson uint
	for _, l := range lessons {
		lesson := &LessonNode{ID: l.ID, Previous: prevLesson}
		prevLesson = l.ID

		topics, err := catalog.Topics(ctx, l.ID)
		if err != nil {
			return nil, fmt.Errorf("load topics of lesson %d: %w", l.ID, err)
		}
		var prevTopic uint
		for _, t := range topics {
			topic := &TopicNode{ID: t.ID, Previous: prevTopic}
			prevTopic = t.ID

			quizzes, err := catalog.Quizzes(ctx, t.ID)
			if err != nil {
				return nil, fmt.Errorf("load quizzes of topic %d: %w", t.ID, err)
			}
			var prevQuiz uint
			for _, q := range quizzes {
				topic.Quizzes.Put(&QuizNode{ID: q.ID, Previous: prevQuiz})
				prevQuiz = q.ID
			}
			topic.Quizzes.Count = topic.Quizzes.Len()
			lesson.Topics.Put(topic)
		}
		lesson.Topics.Count = lesson.Topics.Len()
		tree.Lessons.Put(lesson)
	}
	tree.Lessons.Count = tree.Lessons.Len()
	return tree, nil
}
