package progress

// 汇总始终由子节点重新计算，不做增量累加

func rollupQuizzes(g *NodeGroup[*QuizNode]) {
	g.Count = g.Len()
	g.Passed, g.Submitted, g.Attempted, g.Failed = 0, 0, 0, 0
	for _, q := range g.All() {
		if q.Passed {
			g.Passed++
		}
		if q.Submitted {
			g.Submitted++
		}
		if q.Attempted {
			g.Attempted++
		}
		if q.Failed && !q.Passed {
			g.Failed++
		}
	}
	g.Clamp()
}

func rollupTopics(g *NodeGroup[*TopicNode]) {
	g.Count = g.Len()
	g.Passed, g.Submitted, g.Attempted, g.Failed = 0, 0, 0, 0
	for _, t := range g.All() {
		if t.Completed {
			g.Passed++
		}
		if t.Submitted {
			g.Submitted++
		}
		if t.Attempted {
			g.Attempted++
		}
	}
	g.Clamp()
}

func rollupLessons(g *NodeGroup[*LessonNode]) {
	g.Count = g.Len()
	g.Passed, g.Submitted, g.Attempted, g.Failed = 0, 0, 0, 0
	for _, l := range g.All() {
		if l.Completed {
			g.Passed++
		}
		if l.Submitted {
			g.Submitted++
		}
		if l.Attempted {
			g.Attempted++
		}
	}
	g.Clamp()
}

// relink 按当前顺序重写 previous 字段
func relink(t *Tree) {
	var prevLesson uint
	for _, l := range t.Lessons.All() {
		l.Previous = prevLesson
		prevLesson = l.ID
		var prevTopic uint
		for _, tp := range l.Topics.All() {
			tp.Previous = prevTopic
			prevTopic = tp.ID
			var prevQuiz uint
			for _, q := range tp.Quizzes.All() {
				q.Previous = prevQuiz
				prevQuiz = q.ID
			}
		}
	}
}

// Rollup 自底向上重算所有计数与派生状态，不读取目录和作答记录
func Rollup(t *Tree) {
	for _, l := range t.Lessons.All() {
		lessonMarked := l.MarkedAt.Valid
		for _, tp := range l.Topics.All() {
			rollupQuizzes(&tp.Quizzes)
			deriveTopic(tp, lessonMarked)
		}
		rollupTopics(&l.Topics)
		deriveLesson(l)
	}
	rollupLessons(&t.Lessons)
	t.Completed = t.Lessons.Count > 0 && t.Lessons.Submitted == t.Lessons.Count
}

func deriveTopic(tp *TopicNode, lessonMarked bool) {
	g := &tp.Quizzes
	completed := lessonMarked || tp.MarkedAt.Valid || (g.Count > 0 && g.Passed == g.Count)
	submitted := completed || (g.Count > 0 && g.Submitted == g.Count)
	tp.Completed = completed
	tp.Submitted = submitted
	tp.Attempted = tp.Attempted || completed || submitted || g.Attempted > 0
}

func deriveLesson(l *LessonNode) {
	g := &l.Topics
	completed := l.MarkedAt.Valid || (g.Count > 0 && g.Passed == g.Count)
	submitted := completed || (g.Count > 0 && g.Submitted == g.Count)
	l.Completed = completed
	l.Submitted = submitted
	l.Attempted = l.Attempted || completed || submitted || g.Attempted > 0
}
