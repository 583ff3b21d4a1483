package app_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"math-physical/internal/domain"
)

type fakeGateway struct {
	mu sync.Mutex

	catalog      domain.CourseTopicMap
	catalogErr   error
	descriptions map[string]string
	describeErr  error
	questions    map[string][]domain.Question
	questionErr  error
	submitOK     bool
	submitErr    error
	rankings     map[string][]domain.RankingEntry
	rankingErr   error

	// block, when set, holds QuestionSet until closed; entered is signalled
	// once the call is in flight.
	block   chan struct{}
	entered chan struct{}

	calls          map[string]int
	requestedCount int
	submissions    []domain.ScoreSubmission
}

func newFakeGateway() *fakeGateway {
	catalog := domain.NewCourseTopicMap()
	catalog.Add("Algebra", "Linear equations", "Quadratics")
	catalog.Add("Physics", "Kinematics")
	return &fakeGateway{
		catalog: catalog,
		descriptions: map[string]string{
			"<Algebra>Linear equations": "<p>Solve $ax+b=0$.</p>",
		},
		questions: map[string][]domain.Question{
			"<Algebra>Linear equations": threeQuestions(),
		},
		submitOK: true,
		rankings: map[string][]domain.RankingEntry{},
		calls:    map[string]int{},
	}
}

func (g *fakeGateway) count(action string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[action]
}

func (g *fakeGateway) ListCoursesAndTopics(context.Context) (domain.CourseTopicMap, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls["catalog"]++
	return g.catalog, g.catalogErr
}

func (g *fakeGateway) LessonDescription(_ context.Context, sheetID string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls["description"]++
	if g.describeErr != nil {
		return "", g.describeErr
	}
	return g.descriptions[sheetID], nil
}

func (g *fakeGateway) QuestionSet(ctx context.Context, sheetID string, count int) ([]domain.Question, error) {
	g.mu.Lock()
	g.calls["questions"]++
	g.requestedCount = count
	block, entered := g.block, g.entered
	questions, err := g.questions[sheetID], g.questionErr
	g.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, domain.ErrEmptyResult
	}
	if len(questions) > count {
		questions = questions[:count]
	}
	return questions, nil
}

func (g *fakeGateway) SubmitScore(_ context.Context, s domain.ScoreSubmission) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls["submit"]++
	if g.submitErr != nil {
		return false, g.submitErr
	}
	g.submissions = append(g.submissions, s)
	return g.submitOK, nil
}

func (g *fakeGateway) Rankings(_ context.Context, sheetID string) ([]domain.RankingEntry, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls["ranking"]++
	if g.rankingErr != nil {
		return nil, g.rankingErr
	}
	return g.rankings[sheetID], nil
}

// threeQuestions has correct answers "2", "x=3" and "4".
func threeQuestions() []domain.Question {
	return []domain.Question{
		{Text: "1 + 1 = ?", Choices: []domain.Choice{{Text: "1"}, {Text: "2", Correct: true}}},
		{Text: "Solve $x-3=0$", Choices: []domain.Choice{{Text: "x=3"}, {Text: "x=-3"}}, Answer: "x=3"},
		{Text: "2 * 2 = ?", Choices: []domain.Choice{{Text: "4", Correct: true}, {Text: "5"}}},
	}
}

func manyQuestions(n int) []domain.Question {
	out := make([]domain.Question, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.Question{
			Text:    fmt.Sprintf("Question %d", i+1),
			Choices: []domain.Choice{{Text: "yes", Correct: true}, {Text: "no"}},
		})
	}
	return out
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
