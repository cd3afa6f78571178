package progress

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"testing"
	"time"

	"course_progress_backend/internal/model"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, time.March, 11, 9, 30, 0, 0, time.UTC)

func clock() time.Time { return testNow }

var treeOpts = []cmp.Option{
	cmp.Exporter(func(reflect.Type) bool { return true }),
	cmpopts.EquateEmpty(),
}

type fakeCatalog struct {
	courses map[uint]*model.Course
	lessons map[uint][]model.Lesson
	topics  map[uint][]model.Topic
	quizzes map[uint][]model.Quiz
	fail    error
}

func newCatalog() *fakeCatalog {
	return &fakeCatalog{
		courses: map[uint]*model.Course{},
		lessons: map[uint][]model.Lesson{},
		topics:  map[uint][]model.Topic{},
		quizzes: map[uint][]model.Quiz{},
	}
}

func (c *fakeCatalog) addCourse(id uint, main bool) *fakeCatalog {
	c.courses[id] = &model.Course{BaseModel: model.BaseModel{ID: id}, IsMainCourse: main}
	return c
}

func (c *fakeCatalog) addLesson(courseID, id uint) *fakeCatalog {
	c.lessons[courseID] = append(c.lessons[courseID], model.Lesson{BaseModel: model.BaseModel{ID: id}, CourseID: courseID, Position: len(c.lessons[courseID])})
	return c
}

func (c *fakeCatalog) addTopic(lessonID, id uint) *fakeCatalog {
	c.topics[lessonID] = append(c.topics[lessonID], model.Topic{BaseModel: model.BaseModel{ID: id}, LessonID: lessonID, Position: len(c.topics[lessonID])})
	return c
}

func (c *fakeCatalog) addQuiz(topicID, id uint) *fakeCatalog {
	return c.addQuizAt(topicID, id, time.Time{})
}

func (c *fakeCatalog) addQuizAt(topicID, id uint, created time.Time) *fakeCatalog {
	c.quizzes[topicID] = append(c.quizzes[topicID], model.Quiz{BaseModel: model.BaseModel{ID: id, CreatedAt: created}, TopicID: topicID, Position: len(c.quizzes[topicID])})
	return c
}

func (c *fakeCatalog) removeTopic(lessonID, id uint) {
	kept := c.topics[lessonID][:0]
	for _, t := range c.topics[lessonID] {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	c.topics[lessonID] = kept
}

func (c *fakeCatalog) removeQuiz(topicID, id uint) {
	kept := c.quizzes[topicID][:0]
	for _, q := range c.quizzes[topicID] {
		if q.ID != id {
			kept = append(kept, q)
		}
	}
	c.quizzes[topicID] = kept
}

func (c *fakeCatalog) Course(_ context.Context, id uint) (*model.Course, error) {
	if course, ok := c.courses[id]; ok {
		return course, nil
	}
	return nil, errors.New("course not found")
}

func (c *fakeCatalog) Lessons(_ context.Context, courseID uint) ([]model.Lesson, error) {
	if c.fail != nil {
		return nil, c.fail
	}
	return c.lessons[courseID], nil
}

func (c *fakeCatalog) Topics(_ context.Context, lessonID uint) ([]model.Topic, error) {
	return c.topics[lessonID], nil
}

func (c *fakeCatalog) Quizzes(_ context.Context, topicID uint) ([]model.Quiz, error) {
	return c.quizzes[topicID], nil
}

type fakeAttempts struct {
	rows      []model.QuizAttempt
	nextID    uint
	synthesis int
}

func (f *fakeAttempts) add(userID, quizID uint, status model.AttemptStatus, submitted *time.Time, at time.Time) {
	f.nextID++
	f.rows = append(f.rows, model.QuizAttempt{
		BaseModel:   model.BaseModel{ID: f.nextID, CreatedAt: at, UpdatedAt: at},
		UserID:      userID,
		QuizID:      quizID,
		Status:      status,
		SubmittedAt: submitted,
	})
}

func (f *fakeAttempts) ByQuizzes(_ context.Context, userID uint, quizIDs []uint) ([]model.QuizAttempt, error) {
	want := map[uint]bool{}
	for _, id := range quizIDs {
		want[id] = true
	}
	var out []model.QuizAttempt
	for _, a := range f.rows {
		if a.UserID == userID && want[a.QuizID] {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAttempts) UpsertOverride(_ context.Context, userID, quizID uint, at time.Time) (*model.QuizAttempt, bool, error) {
	for _, a := range f.rows {
		if a.UserID == userID && a.QuizID == quizID {
			c := a
			return &c, false, nil
		}
	}
	f.synthesis++
	f.nextID++
	a := model.QuizAttempt{
		BaseModel:    model.BaseModel{ID: f.nextID, CreatedAt: at, UpdatedAt: at},
		UserID:       userID,
		QuizID:       quizID,
		Status:       model.AttemptSatisfactory,
		SystemResult: model.SystemMarked,
		SubmittedAt:  &at,
		Synthesized:  true,
	}
	f.rows = append(f.rows, a)
	return &a, true, nil
}

type fakeActivity struct {
	rows     map[string]model.Activity
	upserts  int
	retracts int
}

func newActivity() *fakeActivity {
	return &fakeActivity{rows: map[string]model.Activity{}}
}

func activityKey(event string, subjectID, userID uint) string {
	return fmt.Sprintf("%s/%d/%d", event, subjectID, userID)
}

func (f *fakeActivity) Exists(_ context.Context, event string, subjectID, userID uint) (bool, error) {
	_, ok := f.rows[activityKey(event, subjectID, userID)]
	return ok, nil
}

func (f *fakeActivity) Upsert(_ context.Context, a *model.Activity) error {
	f.upserts++
	f.rows[activityKey(a.Event, a.SubjectID, a.UserID)] = *a
	return nil
}

func (f *fakeActivity) Retract(_ context.Context, event string, subjectID, userID uint) error {
	f.retracts++
	delete(f.rows, activityKey(event, subjectID, userID))
	return nil
}

func (f *fakeActivity) events() []string {
	var keys []string
	for k := range f.rows {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type harness struct {
	catalog  *fakeCatalog
	attempts *fakeAttempts
	activity *fakeActivity
	rec      *Reconciler
}

func newHarness(catalog *fakeCatalog) *harness {
	h := &harness{catalog: catalog, attempts: &fakeAttempts{}, activity: newActivity()}
	h.rec = NewReconciler(catalog, h.attempts, h.activity).WithClock(clock)
	return h
}

func (h *harness) populate(t *testing.T, courseID uint) *Tree {
	t.Helper()
	tree, err := Populate(context.Background(), h.catalog, courseID)
	require.NoError(t, err)
	return tree
}

func (h *harness) reEvaluate(t *testing.T, studentID, courseID uint, tree *Tree) *Tree {
	t.Helper()
	out, err := h.rec.ReEvaluate(context.Background(), studentID, courseID, tree)
	require.NoError(t, err)
	return out
}

func ptr(t time.Time) *time.Time { return &t }

// oneTopicCourse 课程 1 > 课时 10 > 主题 100 > 测验 1000, 1001
func oneTopicCourse(main bool) *fakeCatalog {
	return newCatalog().
		addCourse(1, main).
		addLesson(1, 10).
		addTopic(10, 100).
		addQuiz(100, 1000).
		addQuiz(100, 1001)
}

// assertRollups 检查每个分组的计数与子节点一致
func assertRollups(t *testing.T, tree *Tree) {
	t.Helper()
	checkBounds := func(name string, count, passed, submitted, attempted int) {
		require.GreaterOrEqual(t, passed, 0, name)
		require.LessOrEqual(t, passed, count, name)
		require.GreaterOrEqual(t, submitted, 0, name)
		require.LessOrEqual(t, submitted, count, name)
		require.GreaterOrEqual(t, attempted, 0, name)
		require.LessOrEqual(t, attempted, count, name)
	}
	lessonsPassed := 0
	for _, l := range tree.Lessons.All() {
		if l.Completed {
			lessonsPassed++
		}
		topicsPassed := 0
		for _, tp := range l.Topics.All() {
			if tp.Completed {
				topicsPassed++
			}
			quizzesPassed := 0
			for _, q := range tp.Quizzes.All() {
				if q.Passed {
					quizzesPassed++
				}
			}
			g := tp.Quizzes
			require.Equal(t, g.Len(), g.Count, "topic %d quiz count", tp.ID)
			require.Equal(t, quizzesPassed, g.Passed, "topic %d quizzes passed", tp.ID)
			checkBounds(fmt.Sprintf("topic %d", tp.ID), g.Count, g.Passed, g.Submitted, g.Attempted)
		}
		g := l.Topics
		require.Equal(t, g.Len(), g.Count, "lesson %d topic count", l.ID)
		require.Equal(t, topicsPassed, g.Passed, "lesson %d topics passed", l.ID)
		checkBounds(fmt.Sprintf("lesson %d", l.ID), g.Count, g.Passed, g.Submitted, g.Attempted)
	}
	g := tree.Lessons
	require.Equal(t, g.Len(), g.Count)
	require.Equal(t, lessonsPassed, g.Passed)
	checkBounds("tree", g.Count, g.Passed, g.Submitted, g.Attempted)
}
