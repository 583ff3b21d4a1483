package app

import (
	"fmt"
	"time"

	"math-physical/internal/domain"
)

// SessionState is the lifecycle of a quiz session.
type SessionState int

const (
	StateIdle SessionState = iota
	StateLoading
	StateActive
	StateFinished
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateActive:
		return "active"
	case StateFinished:
		return "finished"
	default:
		return fmt.Sprintf("SessionState(%d)", int(s))
	}
}

// QuestionView is what a front end needs to render the current question.
type QuestionView struct {
	Position int      `json:"position"` // 1-based
	Total    int      `json:"total"`
	Progress float64  `json:"progress"` // completed / total, in [0,1]
	Text     string   `json:"text"`
	Choices  []string `json:"choices"`
}

// AnswerOutcome reports the effect of one submitted answer.
type AnswerOutcome struct {
	Correct  bool
	Score    int
	Answered int
	Finished bool
}

// QuizSession holds one run through a question set. It is not safe for
// concurrent use; App serializes access.
type QuizSession struct {
	state     SessionState
	questions []domain.Question
	current   int
	score     int
	startedAt time.Time
	endedAt   time.Time
	now       func() time.Time
	stopwatch *Stopwatch
}

// NewQuizSession creates an idle session.
func NewQuizSession(now func() time.Time, tick time.Duration) *QuizSession {
	if now == nil {
		now = time.Now
	}
	return &QuizSession{
		state:     StateIdle,
		now:       now,
		stopwatch: NewStopwatch(now, tick),
	}
}

func (s *QuizSession) State() SessionState {
	return s.state
}

// BeginLoading moves an idle session to loading.
func (s *QuizSession) BeginLoading() error {
	if s.state != StateIdle {
		return fmt.Errorf("%w: cannot load from %s", domain.ErrSessionNotActive, s.state)
	}
	s.state = StateLoading
	return nil
}

// Activate installs the fetched questions and starts the stopwatch.
// An empty set sends the session back to idle.
func (s *QuizSession) Activate(questions []domain.Question, onTick func(time.Duration)) error {
	if s.state != StateLoading {
		return fmt.Errorf("%w: cannot activate from %s", domain.ErrSessionNotActive, s.state)
	}
	if len(questions) == 0 {
		s.Abort()
		return domain.ErrEmptyResult
	}
	s.questions = append([]domain.Question(nil), questions...)
	s.current = 0
	s.score = 0
	s.startedAt = s.now()
	s.endedAt = time.Time{}
	s.stopwatch.Start(onTick)
	s.state = StateActive
	return nil
}

// Abort discards a loading session.
func (s *QuizSession) Abort() {
	s.stopwatch.Stop()
	s.questions = nil
	s.current = 0
	s.score = 0
	s.state = StateIdle
}

// Submit grades the choice at position index of the current question and advances.
func (s *QuizSession) Submit(index int) (AnswerOutcome, error) {
	if s.state != StateActive {
		return AnswerOutcome{}, fmt.Errorf("%w: %s", domain.ErrSessionNotActive, s.state)
	}
	correct, err := s.questions[s.current].Grade(index)
	if err != nil {
		return AnswerOutcome{}, err
	}
	if correct {
		s.score++
	}
	s.current++
	if s.current == len(s.questions) {
		s.finish()
	}
	return AnswerOutcome{
		Correct:  correct,
		Score:    s.score,
		Answered: s.current,
		Finished: s.state == StateFinished,
	}, nil
}

func (s *QuizSession) finish() {
	s.stopwatch.Stop()
	s.endedAt = s.now()
	s.state = StateFinished
}

// Current renders the question about to be answered.
func (s *QuizSession) Current() (QuestionView, error) {
	if s.state != StateActive {
		return QuestionView{}, fmt.Errorf("%w: %s", domain.ErrSessionNotActive, s.state)
	}
	q := s.questions[s.current]
	total := len(s.questions)
	return QuestionView{
		Position: s.current + 1,
		Total:    total,
		Progress: float64(s.current) / float64(total),
		Text:     q.Text,
		Choices:  q.ChoiceTexts(),
	}, nil
}

// Result summarizes a finished session.
func (s *QuizSession) Result() (domain.QuizResult, error) {
	if s.state != StateFinished {
		return domain.QuizResult{}, fmt.Errorf("%w: %s", domain.ErrSessionNotActive, s.state)
	}
	return domain.QuizResult{
		Score:   s.score,
		Total:   len(s.questions),
		Elapsed: clampElapsed(s.endedAt.Sub(s.startedAt)),
	}, nil
}

// Elapsed is the running time of an active session, or the final time once finished.
func (s *QuizSession) Elapsed() time.Duration {
	switch s.state {
	case StateActive:
		return clampElapsed(s.now().Sub(s.startedAt))
	case StateFinished:
		return clampElapsed(s.endedAt.Sub(s.startedAt))
	default:
		return 0
	}
}

// Score and Index expose the counters for tests and renderers.
func (s *QuizSession) Score() int { return s.score }
func (s *QuizSession) Index() int { return s.current }
func (s *QuizSession) Total() int { return len(s.questions) }

// Close stops any running stopwatch; the session must not be reused.
func (s *QuizSession) Close() {
	s.stopwatch.Stop()
}

// TimerRunning reports whether the session's stopwatch is still ticking.
func (s *QuizSession) TimerRunning() bool {
	return s.stopwatch.Running()
}
