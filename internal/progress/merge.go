package progress

// Merge 目录变更后合并已存储的进度树与新生成的骨架。
// 节点顺序以骨架为准，只存在于旧树的节点放在末尾，由重算时清理。
// 旧节点保留自身的状态与时间，计数取两边较大值
func Merge(existing, fresh *Tree) *Tree {
	if existing == nil {
		return fresh.Clone()
	}
	if fresh == nil {
		return existing.Clone()
	}
	out := &Tree{
		Completed:     existing.Completed,
		LastUpdatedAt: existing.LastUpdatedAt,
	}
	out.Lessons = mergeGroup(&existing.Lessons, &fresh.Lessons, cloneLesson, mergeLesson)
	return out
}

func mergeGroup[T Node](existing, fresh *NodeGroup[T], clone func(T) T, merge func(old, new T) T) NodeGroup[T] {
	out := NodeGroup[T]{
		Count:     max(existing.Count, fresh.Count),
		Passed:    max(existing.Passed, fresh.Passed),
		Submitted: max(existing.Submitted, fresh.Submitted),
		Attempted: max(existing.Attempted, fresh.Attempted),
		Failed:    max(existing.Failed, fresh.Failed),
	}
	for _, n := range fresh.All() {
		if old, ok := existing.Get(n.NodeID()); ok {
			out.Put(merge(old, n))
			continue
		}
		out.Put(clone(n))
	}
	for _, old := range existing.All() {
		if !out.Has(old.NodeID()) {
			out.Put(clone(old))
		}
	}
	return out
}

func mergeLesson(old, fresh *LessonNode) *LessonNode {
	n := *old
	n.Previous = fresh.Previous
	n.Topics = mergeGroup(&old.Topics, &fresh.Topics, cloneTopic, mergeTopic)
	return &n
}

func mergeTopic(old, fresh *TopicNode) *TopicNode {
	n := *old
	n.Previous = fresh.Previous
	n.Quizzes = mergeGroup(&old.Quizzes, &fresh.Quizzes, cloneQuiz, mergeQuiz)
	return &n
}

func mergeQuiz(old, fresh *QuizNode) *QuizNode {
	n := *old
	n.Previous = fresh.Previous
	return &n
}
