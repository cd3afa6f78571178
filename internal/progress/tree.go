// Package progress 学生课程进度树及其生成、重算、合并与汇总
package progress

import (
	"encoding/json"
	"fmt"
)

// Tree 一个学生在一门课程中的进度
type Tree struct {
	Completed     bool                   `json:"completed"`
	LastUpdatedAt NullTime               `json:"lastUpdatedAt"`
	Lessons       NodeGroup[*LessonNode] `json:"lessons"`
}

type LessonNode struct {
	ID          uint                  `json:"id"`
	Previous    uint                  `json:"previous"`
	Completed   bool                  `json:"completed"`
	Submitted   bool                  `json:"submitted"`
	Attempted   bool                  `json:"attempted"`
	CompletedAt NullTime              `json:"completedAt"`
	SubmittedAt NullTime              `json:"submittedAt"`
	AttemptedAt NullTime              `json:"attemptedAt"`
	MarkedAt    NullTime              `json:"markedAt"`
	LessonEndAt NullTime              `json:"lessonEndAt"`
	Topics      NodeGroup[*TopicNode] `json:"topics"`
}

type TopicNode struct {
	ID          uint                 `json:"id"`
	Previous    uint                 `json:"previous"`
	Completed   bool                 `json:"completed"`
	Submitted   bool                 `json:"submitted"`
	Attempted   bool                 `json:"attempted"`
	CompletedAt NullTime             `json:"completedAt"`
	SubmittedAt NullTime             `json:"submittedAt"`
	AttemptedAt NullTime             `json:"attemptedAt"`
	MarkedAt    NullTime             `json:"markedAt"`
	TopicEndAt  NullTime             `json:"topicEndAt"`
	Quizzes     NodeGroup[*QuizNode] `json:"quizzes"`
}

type QuizNode struct {
	ID          uint     `json:"id"`
	Previous    uint     `json:"previous"`
	Passed      bool     `json:"passed"`
	Failed      bool     `json:"failed"`
	Submitted   bool     `json:"submitted"`
	Attempted   bool     `json:"attempted"`
	PassedAt    NullTime `json:"passedAt"`
	FailedAt    NullTime `json:"failedAt"`
	SubmittedAt NullTime `json:"submittedAt"`
	AttemptedAt NullTime `json:"attemptedAt"`
	MarkedAt    NullTime `json:"markedAt"`
}

func (n *LessonNode) NodeID() uint {
	if n == nil {
		return 0
	}
	return n.ID
}

func (n *TopicNode) NodeID() uint {
	if n == nil {
		return 0
	}
	return n.ID
}

func (n *QuizNode) NodeID() uint {
	if n == nil {
		return 0
	}
	return n.ID
}

// Ended 课时已完成或已提交
func (n *LessonNode) Ended() bool {
	return n.Completed || n.Submitted
}

func (n *TopicNode) Ended() bool {
	return n.Completed || n.Submitted
}

// Clone 深拷贝
func (t *Tree) Clone() *Tree {
	if t == nil {
		return nil
	}
	return &Tree{
		Completed:     t.Completed,
		LastUpdatedAt: t.LastUpdatedAt,
		Lessons:       t.Lessons.clone(cloneLesson),
	}
}

func cloneLesson(l *LessonNode) *LessonNode {
	c := *l
	c.Topics = l.Topics.clone(cloneTopic)
	return &c
}

func cloneTopic(tp *TopicNode) *TopicNode {
	c := *tp
	c.Quizzes = tp.Quizzes.clone(cloneQuiz)
	return &c
}

func cloneQuiz(q *QuizNode) *QuizNode {
	c := *q
	return &c
}

// Lesson 按 id 查找课时
func (t *Tree) Lesson(id uint) (*LessonNode, bool) {
	return t.Lessons.Get(id)
}

// Topic 在整棵树中查找主题及其所属课时
func (t *Tree) Topic(id uint) (*LessonNode, *TopicNode, bool) {
	for _, l := range t.Lessons.All() {
		if tp, ok := l.Topics.Get(id); ok {
			return l, tp, true
		}
	}
	return nil, nil, false
}

// QuizIDs 按树中顺序列出所有测验 id
func (t *Tree) QuizIDs() []uint {
	var ids []uint
	for _, l := range t.Lessons.All() {
		for _, tp := range l.Topics.All() {
			ids = append(ids, tp.Quizzes.IDs()...)
		}
	}
	return ids
}

// Encode 序列化进度树用于存储
func Encode(t *Tree) (string, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("encode progress tree: %w", err)
	}
	return string(b), nil
}

// Decode 解析已存储的进度树，空字符串返回空树
func Decode(raw string) (*Tree, error) {
	t := &Tree{}
	if raw == "" {
		return t, nil
	}
	if err := json.Unmarshal([]byte(raw), t); err != nil {
		return nil, fmt.Errorf("decode progress tree: %w", err)
	}
	return t, nil
}

// Equal 按存储形式比较两棵树
func Equal(a, b *Tree) bool {
	ea, errA := Encode(a)
	eb, errB := Encode(b)
	return errA == nil && errB == nil && ea == eb
}
