package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"math-physical/internal/domain"
	"math-physical/internal/metrics"
)

// Actions understood by the remote spreadsheet API.
const (
	ActionCoursesAndTopics = "getCoursesAndTopics"
	ActionDescription      = "getDescription"
	ActionGameData         = "getGameData"
	ActionSaveScore        = "saveScore"
	ActionRankings         = "getRankings"
)

// Config configures the remote API client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	RateLimit  float64 // requests per second; zero disables throttling
	Burst      int
	HTTPClient *http.Client
	Metrics    *metrics.Gateway
	Logger     *zap.Logger
}

// Client talks to the spreadsheet-backed API over plain GET requests.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	metrics *metrics.Gateway
	logger  *zap.Logger
}

func New(cfg Config) *Client {
	// a private copy so the timeout never leaks into a caller's shared client
	h := &http.Client{}
	if cfg.HTTPClient != nil {
		copied := *cfg.HTTPClient
		h = &copied
	}
	if cfg.Timeout > 0 {
		h.Timeout = cfg.Timeout
	}
	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: cfg.BaseURL,
		http:    h,
		limiter: limiter,
		metrics: cfg.Metrics,
		logger:  logger.Named("remote"),
	}
}

// ListCoursesAndTopics fetches the whole course catalog.
func (c *Client) ListCoursesAndTopics(ctx context.Context) (domain.CourseTopicMap, error) {
	env, err := c.call(ctx, ActionCoursesAndTopics, nil)
	if err != nil {
		return domain.CourseTopicMap{}, err
	}
	if !env.OK {
		return domain.CourseTopicMap{}, envelopeError(ActionCoursesAndTopics, env)
	}
	if !env.hasData() {
		return domain.CourseTopicMap{}, fmt.Errorf("%w: %s: missing data", domain.ErrProtocol, ActionCoursesAndTopics)
	}
	var m domain.CourseTopicMap
	if err := json.Unmarshal(env.Data, &m); err != nil {
		return domain.CourseTopicMap{}, fmt.Errorf("%w: %s: %v", domain.ErrProtocol, ActionCoursesAndTopics, err)
	}
	return m, nil
}

// LessonDescription fetches the lesson HTML of a sheet. An empty string means
// the topic has no description yet.
func (c *Client) LessonDescription(ctx context.Context, sheetID string) (string, error) {
	env, err := c.call(ctx, ActionDescription, url.Values{"topic": {sheetID}})
	if err != nil {
		return "", err
	}
	if !env.OK || !env.hasData() {
		c.logger.Debug("no lesson description", zap.String("sheet", sheetID), zap.String("remote_error", env.Error))
		return "", nil
	}
	var html string
	if err := json.Unmarshal(env.Data, &html); err != nil {
		return "", fmt.Errorf("%w: %s: %v", domain.ErrProtocol, ActionDescription, err)
	}
	return html, nil
}

// QuestionSet fetches up to count questions for a sheet.
func (c *Client) QuestionSet(ctx context.Context, sheetID string, count int) ([]domain.Question, error) {
	params := url.Values{
		"sheetName": {sheetID},
		"topic":     {sheetID},
		"count":     {strconv.Itoa(count)},
	}
	env, err := c.call(ctx, ActionGameData, params)
	if err != nil {
		return nil, err
	}
	if !env.OK {
		return nil, envelopeError(ActionGameData, env)
	}
	if !env.hasData() {
		return nil, domain.ErrEmptyResult
	}
	var raw []wireQuestion
	if err := json.Unmarshal(env.Data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrProtocol, ActionGameData, err)
	}

	questions := make([]domain.Question, 0, len(raw))
	for i, w := range raw {
		q, ok := w.normalize()
		if !ok {
			c.logger.Warn("dropping question without choices", zap.String("sheet", sheetID), zap.Int("index", i))
			continue
		}
		if !q.HasCorrectChoice() {
			c.logger.Warn("question has no correct choice", zap.String("sheet", sheetID), zap.Int("index", i))
		}
		questions = append(questions, q)
	}
	if count > 0 && len(questions) > count {
		questions = questions[:count]
	}
	if len(questions) == 0 {
		return nil, domain.ErrEmptyResult
	}
	return questions, nil
}

// SubmitScore appends a ranking row. Repeated submissions create repeated rows.
func (c *Client) SubmitScore(ctx context.Context, s domain.ScoreSubmission) (bool, error) {
	params := url.Values{
		"name":    {s.Name},
		"topic":   {s.SheetID},
		"totalQ":  {strconv.Itoa(s.TotalQuestions)},
		"score":   {strconv.Itoa(s.Score)},
		"timeSec": {strconv.FormatFloat(s.TimeSeconds, 'f', 2, 64)},
	}
	env, err := c.call(ctx, ActionSaveScore, params)
	if err != nil {
		return false, err
	}
	if !env.OK {
		return false, envelopeError(ActionSaveScore, env)
	}
	return true, nil
}

// Rankings fetches the leaderboard of a sheet in the order the remote side ranked it.
func (c *Client) Rankings(ctx context.Context, sheetID string) ([]domain.RankingEntry, error) {
	env, err := c.call(ctx, ActionRankings, url.Values{"topic": {sheetID}})
	if err != nil {
		return nil, err
	}
	if !env.OK {
		return nil, envelopeError(ActionRankings, env)
	}
	if !env.hasData() {
		return []domain.RankingEntry{}, nil
	}
	var rows []json.RawMessage
	if err := json.Unmarshal(env.Data, &rows); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrProtocol, ActionRankings, err)
	}
	out := make([]domain.RankingEntry, 0, len(rows))
	for i, row := range rows {
		var w wireRanking
		if err := json.Unmarshal(row, &w); err != nil {
			c.logger.Warn("skipping malformed ranking row", zap.String("sheet", sheetID), zap.Int("index", i), zap.Error(err))
			continue
		}
		out = append(out, w.entry())
	}
	return out, nil
}

func (c *Client) call(ctx context.Context, action string, params url.Values) (envelope, error) {
	start := time.Now()
	env, err := c.do(ctx, action, params)
	outcome := "ok"
	switch {
	case errors.Is(err, domain.ErrNetwork):
		outcome = "network_error"
	case err != nil:
		outcome = "protocol_error"
	case !env.OK:
		outcome = "rejected"
	}
	c.metrics.Observe(action, outcome, time.Since(start))
	if err != nil {
		c.logger.Warn("remote call failed", zap.String("action", action), zap.Error(err))
	} else {
		c.logger.Debug("remote call", zap.String("action", action), zap.Bool("ok", env.OK), zap.Duration("took", time.Since(start)))
	}
	return env, err
}

func (c *Client) do(ctx context.Context, action string, params url.Values) (envelope, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return envelope{}, fmt.Errorf("%w: %s: %v", domain.ErrNetwork, action, err)
		}
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return envelope{}, fmt.Errorf("%w: parse base url: %v", domain.ErrNetwork, err)
	}
	q := u.Query()
	q.Set("action", action)
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return envelope{}, fmt.Errorf("%w: %s: %v", domain.ErrNetwork, action, err)
	}
	req.Header.Set("Accept", "application/json")
	res, err := c.http.Do(req)
	if err != nil {
		return envelope{}, fmt.Errorf("%w: %s: %v", domain.ErrNetwork, action, err)
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		return envelope{}, fmt.Errorf("%w: %s: %s", domain.ErrNetwork, action, res.Status)
	}

	var env envelope
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		return envelope{}, fmt.Errorf("%w: %s: decode envelope: %v", domain.ErrProtocol, action, err)
	}
	return env, nil
}

func envelopeError(action string, env envelope) error {
	if env.Error != "" {
		return fmt.Errorf("%w: %s: %s", domain.ErrProtocol, action, env.Error)
	}
	return fmt.Errorf("%w: %s: ok=false", domain.ErrProtocol, action)
}
