package remote

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"math-physical/internal/domain"
)

// envelope is the {ok, data|error} wrapper of every remote response.
type envelope struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

func (e envelope) hasData() bool {
	trimmed := bytes.TrimSpace(e.Data)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// flexString accepts strings, numbers and booleans; spreadsheet cells arrive as any of them.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	switch {
	case bytes.Equal(trimmed, []byte("null")):
		*s = ""
	case len(trimmed) > 0 && trimmed[0] == '"':
		var v string
		if err := json.Unmarshal(trimmed, &v); err != nil {
			return err
		}
		*s = flexString(v)
	default:
		*s = flexString(trimmed)
	}
	return nil
}

// flexNumber accepts JSON numbers and numeric strings.
type flexNumber float64

func (n *flexNumber) UnmarshalJSON(b []byte) error {
	var raw flexString
	if err := raw.UnmarshalJSON(b); err != nil {
		return err
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		*n = 0
		return nil
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return err
	}
	*n = flexNumber(v)
	return nil
}

// wireChoice is either a bare value or an object carrying its own correctness flag.
type wireChoice struct {
	Text    string
	Correct bool
}

func (c *wireChoice) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var obj struct {
			Text      flexString `json:"text"`
			Choice    flexString `json:"choice"`
			IsCorrect bool       `json:"isCorrect"`
			Correct   bool       `json:"correct"`
		}
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return err
		}
		c.Text = string(obj.Text)
		if c.Text == "" {
			c.Text = string(obj.Choice)
		}
		c.Correct = obj.IsCorrect || obj.Correct
		return nil
	}
	var s flexString
	if err := s.UnmarshalJSON(trimmed); err != nil {
		return err
	}
	c.Text = string(s)
	c.Correct = false
	return nil
}

type wireQuestion struct {
	Text     flexString   `json:"text"`
	Question flexString   `json:"question"`
	Q        flexString   `json:"q"`
	Choices  []wireChoice `json:"choices"`
	Answer   flexString   `json:"answer"`
}

// normalize maps any observed question shape onto domain.Question.
// It reports false for questions that cannot be played.
func (w wireQuestion) normalize() (domain.Question, bool) {
	text := string(w.Text)
	if text == "" {
		text = string(w.Question)
	}
	if text == "" {
		text = string(w.Q)
	}
	q := domain.Question{
		Text:   text,
		Answer: string(w.Answer),
	}
	for _, c := range w.Choices {
		q.Choices = append(q.Choices, domain.Choice{Text: c.Text, Correct: c.Correct})
	}
	return q, len(q.Choices) > 0
}

type wireRanking struct {
	Name          flexString `json:"name"`
	Score         flexNumber `json:"score"`
	QCount        flexNumber `json:"qCount"`
	QuestionCount flexNumber `json:"questionCount"`
	TotalQ        flexNumber `json:"totalQ"`
	Time          flexNumber `json:"time"`
	TimeSec       flexNumber `json:"timeSec"`
}

func (w wireRanking) entry() domain.RankingEntry {
	count := firstNonZero(w.QCount, w.QuestionCount, w.TotalQ)
	seconds := firstNonZero(w.Time, w.TimeSec)
	return domain.RankingEntry{
		Name:          string(w.Name),
		Score:         int(w.Score),
		QuestionCount: int(count),
		TimeSeconds:   float64(seconds),
	}
}

func firstNonZero(values ...flexNumber) flexNumber {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}
