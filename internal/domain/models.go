package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Screen identifies one full-screen view of the client.
type Screen string

const (
	ScreenMenu    Screen = "menu"
	ScreenArticle Screen = "article"
	ScreenGame    Screen = "game"
	ScreenResult  Screen = "result"
	ScreenRanking Screen = "ranking"
	ScreenInfo    Screen = "info"
)

// Screens lists every screen the client can show.
var Screens = []Screen{ScreenMenu, ScreenArticle, ScreenGame, ScreenResult, ScreenRanking, ScreenInfo}

// Valid reports whether s is one of the known screens.
func (s Screen) Valid() bool {
	for _, known := range Screens {
		if s == known {
			return true
		}
	}
	return false
}

// CourseTopicMap maps course names to their topics, keeping the order in
// which the remote side listed them.
type CourseTopicMap struct {
	courses []string
	topics  map[string][]string
}

func NewCourseTopicMap() CourseTopicMap {
	return CourseTopicMap{topics: make(map[string][]string)}
}

// Add sets the topics of a course. A course added twice keeps its first position.
func (m *CourseTopicMap) Add(course string, topics ...string) {
	if m.topics == nil {
		m.topics = make(map[string][]string)
	}
	if _, ok := m.topics[course]; !ok {
		m.courses = append(m.courses, course)
	}
	m.topics[course] = append([]string(nil), topics...)
}

// Courses returns course names in display order.
func (m CourseTopicMap) Courses() []string {
	return append([]string(nil), m.courses...)
}

// Topics returns the topics of a course in display order.
func (m CourseTopicMap) Topics(course string) ([]string, bool) {
	topics, ok := m.topics[course]
	if !ok {
		return nil, false
	}
	return append([]string(nil), topics...), true
}

// HasTopic reports whether topic is listed under course.
func (m CourseTopicMap) HasTopic(course, topic string) bool {
	for _, t := range m.topics[course] {
		if t == topic {
			return true
		}
	}
	return false
}

func (m CourseTopicMap) Len() int {
	return len(m.courses)
}

// MarshalJSON writes the map as a JSON object in display order.
func (m CourseTopicMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, course := range m.courses {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(course)
		if err != nil {
			return nil, err
		}
		topics := m.topics[course]
		if topics == nil {
			topics = []string{}
		}
		value, err := json.Marshal(topics)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object of course -> topic array, preserving key order.
func (m *CourseTopicMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("course topic map: expected object, got %v", tok)
	}
	out := NewCourseTopicMap()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		course, ok := tok.(string)
		if !ok {
			return fmt.Errorf("course topic map: expected course name, got %v", tok)
		}
		var topics []string
		if err := dec.Decode(&topics); err != nil {
			return fmt.Errorf("course topic map: topics of %q: %w", course, err)
		}
		out.Add(course, topics...)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*m = out
	return nil
}

// CacheEntry is a stored copy of the course catalog with its fetch time.
type CacheEntry struct {
	Data      CourseTopicMap
	FetchedAt time.Time
}

// Fresh reports whether the entry is younger than window at now.
func (e CacheEntry) Fresh(now time.Time, window time.Duration) bool {
	return now.Sub(e.FetchedAt) < window
}

// Choice is one selectable answer.
type Choice struct {
	Text    string `json:"text"`
	Correct bool   `json:"isCorrect"`
}

// Question models a multiple-choice question. When Answer is set it decides
// correctness by text; otherwise the choices' Correct flags do.
type Question struct {
	Text    string   `json:"text"`
	Choices []Choice `json:"choices"`
	Answer  string   `json:"answer,omitempty"`
}

// CanonicalText is the form used when comparing choice and answer texts.
func CanonicalText(s string) string {
	return strings.TrimSpace(s)
}

// Grade reports whether the choice at position i is correct. Choices are
// addressed by position so that repeated texts stay distinguishable.
func (q Question) Grade(i int) (bool, error) {
	if i < 0 || i >= len(q.Choices) {
		return false, ErrChoiceNotFound
	}
	if answer := CanonicalText(q.Answer); answer != "" {
		return CanonicalText(q.Choices[i].Text) == answer, nil
	}
	return q.Choices[i].Correct, nil
}

// HasCorrectChoice reports whether any choice can be graded correct.
func (q Question) HasCorrectChoice() bool {
	for i := range q.Choices {
		if ok, _ := q.Grade(i); ok {
			return true
		}
	}
	return false
}

// ChoiceTexts returns the display texts of the choices in order.
func (q Question) ChoiceTexts() []string {
	out := make([]string, 0, len(q.Choices))
	for _, c := range q.Choices {
		out = append(out, c.Text)
	}
	return out
}

// SheetIdentifier builds the composite key addressing a topic's resources remotely.
func SheetIdentifier(course, topic string) string {
	return "<" + course + ">" + topic
}

// SelectionContext is what the user confirmed on the menu.
type SelectionContext struct {
	StudentName   string
	Course        string
	Topic         string
	SheetID       string
	QuestionCount int
}

// Title is the "course - topic" heading used on article and result screens.
func (s SelectionContext) Title() string {
	return s.Course + " - " + s.Topic
}

// RankingEntry is one leaderboard row as ranked by the remote side.
type RankingEntry struct {
	Name          string  `json:"name"`
	Score         int     `json:"score"`
	QuestionCount int     `json:"questionCount"`
	TimeSeconds   float64 `json:"timeSeconds"`
}

// ScoreSubmission is the payload appended to the remote ranking sheet.
type ScoreSubmission struct {
	Name           string
	SheetID        string
	TotalQuestions int
	Score          int
	TimeSeconds    float64
}

// QuizResult summarizes a finished session.
type QuizResult struct {
	Score   int           `json:"score"`
	Total   int           `json:"total"`
	Elapsed time.Duration `json:"-"`
}

// Seconds renders the elapsed time with two decimals.
func (r QuizResult) Seconds() string {
	return fmt.Sprintf("%.2f", r.Elapsed.Seconds())
}
