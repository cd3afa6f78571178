package progress

// Summary 进度树的汇总结果，供展示与报表使用
type Summary struct {
	Processed        int  `json:"processed"`
	Passed           int  `json:"passed"`
	Failed           int  `json:"failed"`
	Submitted        int  `json:"submitted"`
	Total            int  `json:"total"`
	QuizzesTotal     int  `json:"quizzesTotal"`
	QuizzesPassed    int  `json:"quizzesPassed"`
	QuizzesFailed    int  `json:"quizzesFailed"`
	QuizzesSubmitted int  `json:"quizzesSubmitted"`
	EmptyTopics      int  `json:"empty"`
	CourseCompleted  bool `json:"courseCompleted"`
}

// QuizzesPending 已提交但尚未判定通过或未通过的测验数
func (s Summary) QuizzesPending() int {
	n := s.QuizzesSubmitted - s.QuizzesPassed - s.QuizzesFailed
	if n < 0 {
		return 0
	}
	return n
}

type quizTotals struct {
	total, passed, failed, submitted int
}

func (q *quizTotals) addNode(n *QuizNode) {
	q.total++
	if n.Passed {
		q.passed++
	} else if n.Failed {
		q.failed++
	}
	if n.Submitted || n.Passed {
		q.submitted++
	}
}

func (q *quizTotals) addOutcome(o Outcome) {
	q.total++
	if o.Passed {
		q.passed++
	} else if o.Failed {
		q.failed++
	}
	if o.Submitted {
		q.submitted++
	}
}

// CountTotals 遍历一次进度树。每个课时和主题计为一个单元；
// 完成或被标记的单元计入 processed 与 passed，已提交或已作答的只计入 processed
func CountTotals(t *Tree, sub *DiagnosticSubstitution) Summary {
	var s Summary
	if t == nil {
		return s
	}

	lessonsDone := 0
	for li, lesson := range t.Lessons.All() {
		lessonMarked := lesson.MarkedAt.Valid
		forceLesson := false

		for ti, topic := range lesson.Topics.All() {
			done := topic.Completed || topic.MarkedAt.Valid || lessonMarked
			var qt quizTotals
			if topic.Quizzes.Len() == 0 {
				s.EmptyTopics++
			}

			for qi, quiz := range topic.Quizzes.All() {
				if li == 0 && ti == 0 && qi == 0 {
					if o := sub.Resolve(quiz); o.Applied {
						qt.addOutcome(o)
						s.Total++
						switch {
						case o.Passed:
							s.Processed++
							s.Passed++
							done = true
							if lesson.Topics.Len() == 1 {
								forceLesson = true
							}
						case o.Submitted:
							s.Processed++
						}
						continue
					}
				}
				qt.addNode(quiz)
			}

			s.QuizzesTotal += qt.total
			s.QuizzesPassed += qt.passed
			s.QuizzesFailed += qt.failed
			s.QuizzesSubmitted += qt.submitted

			s.Total++
			switch {
			case done:
				s.Processed++
				s.Passed++
			case topic.Submitted || topic.Attempted:
				s.Processed++
			}
			if done || topic.Submitted {
				s.Submitted++
			}
			if !done && qt.failed > 0 {
				s.Failed++
			}
		}

		done := lesson.Completed || lessonMarked || forceLesson
		s.Total++
		switch {
		case done:
			s.Processed++
			s.Passed++
		case lesson.Submitted || lesson.Attempted:
			s.Processed++
		}
		if done || lesson.Submitted {
			s.Submitted++
			lessonsDone++
		}
	}

	n := t.Lessons.Len()
	s.CourseCompleted = t.Completed || (n > 0 && lessonsDone == n)
	return s
}
