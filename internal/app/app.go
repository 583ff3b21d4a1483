package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"math-physical/internal/content"
	"math-physical/internal/domain"
)

// DefaultCountOptions are the question counts offered on the menu.
var DefaultCountOptions = []int{5, 10, 20}

const DefaultQuestionCount = 10

// errStale is returned when a reset happened while a request was in flight.
var errStale = fmt.Errorf("%w: discarded after reset", domain.ErrSessionNotActive)

// Options tune an App. Zero values select the defaults.
type Options struct {
	Freshness    time.Duration
	CountOptions []int
	DefaultCount int
	Tick         time.Duration
	Clock        func() time.Time
	// OnTick receives the MM:SS stopwatch display while a quiz is active.
	// It runs on the stopwatch goroutine and must not call back into the App.
	OnTick func(clock string)
	Panels content.Panels
	Logger *zap.Logger
}

// SelectionInput is the raw menu input.
type SelectionInput struct {
	Name   string `json:"name"`
	Course string `json:"course"`
	Topic  string `json:"topic"`
	Count  int    `json:"count"`
}

// MenuView lists what the menu screen offers.
type MenuView struct {
	Courses      []string `json:"courses"`
	CountOptions []int    `json:"countOptions"`
	DefaultCount int      `json:"defaultCount"`
	Panels       []string `json:"panels"`
}

// ArticleStatus tells whether lesson text could be shown.
type ArticleStatus string

const (
	ArticleReady   ArticleStatus = "ready"
	ArticleMissing ArticleStatus = "missing"
	ArticleFailed  ArticleStatus = "failed"
)

// ArticleView is the lesson screen shown before a quiz.
type ArticleView struct {
	Title  string        `json:"title"`
	Status ArticleStatus `json:"status"`
	HTML   string        `json:"html,omitempty"`
}

// ResultView is the finished-quiz screen.
type ResultView struct {
	Meta    string `json:"meta"`
	Score   int    `json:"score"`
	Total   int    `json:"total"`
	Seconds string `json:"seconds"`
}

// AnswerView is the outcome of one answer plus whatever screen comes next.
type AnswerView struct {
	Correct  bool          `json:"correct"`
	Score    int           `json:"score"`
	Finished bool          `json:"finished"`
	Next     *QuestionView `json:"next,omitempty"`
	Result   *ResultView   `json:"result,omitempty"`
}

// App is the state of one client: the visible screen, the confirmed
// selection, the loaded catalog and the current quiz session. Reset returns
// it to the menu as a page reload would.
type App struct {
	gateway  Gateway
	catalog  *CatalogCache
	reporter *Reporter
	screens  *ScreenController
	opts     Options
	logger   *zap.Logger

	mu        sync.Mutex
	gen       uint64
	courses   domain.CourseTopicMap
	selection *domain.SelectionContext
	session   *QuizSession
	loading   bool
	result    *domain.QuizResult
}

func New(gateway Gateway, catalog *CatalogCache, opts Options) *App {
	if opts.Freshness <= 0 {
		opts.Freshness = DefaultFreshness
	}
	if len(opts.CountOptions) == 0 {
		opts.CountOptions = DefaultCountOptions
	}
	if opts.DefaultCount <= 0 {
		opts.DefaultCount = DefaultQuestionCount
	}
	if opts.Tick <= 0 {
		opts.Tick = time.Second
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Panels.Panels == nil {
		opts.Panels = content.Default()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &App{
		gateway:  gateway,
		catalog:  catalog,
		reporter: NewReporter(gateway, opts.Logger),
		screens:  NewScreenController(),
		opts:     opts,
		logger:   opts.Logger.Named("app"),
		courses:  domain.NewCourseTopicMap(),
	}
}

// Screen is the currently visible screen.
func (a *App) Screen() domain.Screen {
	return a.screens.Active()
}

// LoadCatalog fills the menu from the cached catalog.
func (a *App) LoadCatalog(ctx context.Context) (MenuView, error) {
	m, err := a.catalog.CourseTopicMap(ctx, a.opts.Freshness)

	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		a.logger.Error("catalog unavailable", zap.Error(err))
		return MenuView{}, err
	}
	a.courses = m
	return a.menuViewLocked(), nil
}

// Topics lists the topics of a course from the loaded catalog.
func (a *App) Topics(course string) ([]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	topics, ok := a.courses.Topics(course)
	if !ok {
		return nil, fmt.Errorf("%w: unknown course %q", domain.ErrValidation, course)
	}
	return topics, nil
}

// Start confirms the menu selection, switches to the article screen and
// loads the lesson text. Invalid input leaves the menu in place.
func (a *App) Start(ctx context.Context, in SelectionInput) (ArticleView, error) {
	a.mu.Lock()
	sel, err := a.validateLocked(in)
	if err != nil {
		a.mu.Unlock()
		return ArticleView{}, err
	}
	// a new selection supersedes any quiz still loading for the old one
	a.closeSessionLocked()
	a.loading = false
	a.gen++
	a.result = nil
	a.selection = &sel
	a.screens.mustSwitch(domain.ScreenArticle)
	gen := a.gen
	a.mu.Unlock()

	view := ArticleView{Title: sel.Title()}
	html, err := a.gateway.LessonDescription(ctx, sel.SheetID)
	switch {
	case err != nil:
		a.logger.Warn("lesson load failed", zap.String("sheet", sel.SheetID), zap.Error(err))
		view.Status = ArticleFailed
	case strings.TrimSpace(html) == "":
		view.Status = ArticleMissing
	default:
		view.Status = ArticleReady
		view.HTML = html
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if gen != a.gen {
		return ArticleView{}, errStale
	}
	return view, nil
}

// BeginQuiz fetches the question set of the current selection and starts the
// session. Only one fetch may be in flight; on failure the menu is shown.
func (a *App) BeginQuiz(ctx context.Context) (QuestionView, error) {
	a.mu.Lock()
	if a.selection == nil {
		a.mu.Unlock()
		return QuestionView{}, domain.ErrNoSelection
	}
	if a.loading {
		a.mu.Unlock()
		return QuestionView{}, domain.ErrBusy
	}
	a.closeSessionLocked()
	session := NewQuizSession(a.opts.Clock, a.opts.Tick)
	if err := session.BeginLoading(); err != nil {
		a.mu.Unlock()
		return QuestionView{}, err
	}
	a.session = session
	a.loading = true
	a.result = nil
	a.screens.mustSwitch(domain.ScreenGame)
	sel := *a.selection
	gen := a.gen
	a.mu.Unlock()

	questions, err := a.gateway.QuestionSet(ctx, sel.SheetID, sel.QuestionCount)

	a.mu.Lock()
	defer a.mu.Unlock()
	if gen != a.gen || a.session != session {
		session.Close()
		return QuestionView{}, errStale
	}
	a.loading = false
	if err == nil {
		err = session.Activate(questions, a.tick)
	}
	if err != nil {
		session.Abort()
		a.session = nil
		a.screens.mustSwitch(domain.ScreenMenu)
		a.logger.Warn("quiz start failed", zap.String("sheet", sel.SheetID), zap.Error(err))
		return QuestionView{}, err
	}
	a.logger.Info("quiz started",
		zap.String("sheet", sel.SheetID),
		zap.Int("requested", sel.QuestionCount),
		zap.Int("total", session.Total()))
	return session.Current()
}

// Answer submits the choice at position index of the current question.
func (a *App) Answer(index int) (AnswerView, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil {
		return AnswerView{}, domain.ErrSessionNotActive
	}
	out, err := a.session.Submit(index)
	if err != nil {
		return AnswerView{}, err
	}
	view := AnswerView{Correct: out.Correct, Score: out.Score, Finished: out.Finished}
	if !out.Finished {
		next, err := a.session.Current()
		if err != nil {
			return AnswerView{}, err
		}
		view.Next = &next
		return view, nil
	}

	res, err := a.session.Result()
	if err != nil {
		return AnswerView{}, err
	}
	a.result = &res
	a.screens.mustSwitch(domain.ScreenResult)
	rv := a.resultViewLocked()
	view.Result = &rv
	a.logger.Info("quiz finished", zap.Int("score", res.Score), zap.Int("total", res.Total), zap.Duration("elapsed", res.Elapsed))
	return view, nil
}

// CurrentQuestion re-renders the question being answered.
func (a *App) CurrentQuestion() (QuestionView, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil {
		return QuestionView{}, domain.ErrSessionNotActive
	}
	return a.session.Current()
}

// Clock is the MM:SS stopwatch display of the current session.
func (a *App) Clock() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil {
		return FormatClock(0)
	}
	return FormatClock(a.session.Elapsed())
}

// SessionState reports the lifecycle state of the current session.
func (a *App) SessionState() SessionState {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil {
		return StateIdle
	}
	return a.session.State()
}

// TimerRunning reports whether a session stopwatch is ticking.
func (a *App) TimerRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session != nil && a.session.TimerRunning()
}

// Selection returns the confirmed menu selection, if any.
func (a *App) Selection() (domain.SelectionContext, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.selection == nil {
		return domain.SelectionContext{}, false
	}
	return *a.selection, true
}

// Result re-renders the finished session.
func (a *App) Result() (ResultView, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.result == nil {
		return ResultView{}, domain.ErrSessionNotActive
	}
	return a.resultViewLocked(), nil
}

// SaveScore submits the finished session under name. The result screen stays
// visible whatever the outcome.
func (a *App) SaveScore(ctx context.Context, name string) error {
	a.mu.Lock()
	if a.result == nil || a.selection == nil {
		a.mu.Unlock()
		return domain.ErrSessionNotActive
	}
	sel, res := *a.selection, *a.result
	a.mu.Unlock()

	return a.reporter.Submit(ctx, name, sel, res)
}

// ShowRanking switches to the ranking screen and loads the topic leaderboard.
func (a *App) ShowRanking(ctx context.Context) (RankingView, error) {
	a.mu.Lock()
	if a.selection == nil {
		a.mu.Unlock()
		return RankingView{}, domain.ErrNoSelection
	}
	sel := *a.selection
	a.screens.mustSwitch(domain.ScreenRanking)
	a.mu.Unlock()

	return a.reporter.Rankings(ctx, sel), nil
}

// BackToResult returns from the ranking screen to the finished session.
func (a *App) BackToResult() (ResultView, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.result == nil {
		return ResultView{}, domain.ErrSessionNotActive
	}
	a.screens.mustSwitch(domain.ScreenResult)
	return a.resultViewLocked(), nil
}

// ShowInfo switches to the info screen with the given panel.
func (a *App) ShowInfo(id string) (content.Panel, error) {
	panel, err := a.opts.Panels.Get(id)
	if err != nil {
		return content.Panel{}, err
	}
	a.screens.mustSwitch(domain.ScreenInfo)
	return panel, nil
}

// Home resets the client and shows the menu again.
func (a *App) Home(ctx context.Context) (MenuView, error) {
	a.Reset()
	return a.LoadCatalog(ctx)
}

// Reset discards the selection and any session, stops the stopwatch and
// shows the menu. Requests still in flight are ignored when they return.
func (a *App) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closeSessionLocked()
	a.selection = nil
	a.result = nil
	a.loading = false
	a.gen++
	a.screens.mustSwitch(domain.ScreenMenu)
}

func (a *App) validateLocked(in SelectionInput) (domain.SelectionContext, error) {
	name := strings.TrimSpace(in.Name)
	course := strings.TrimSpace(in.Course)
	topic := strings.TrimSpace(in.Topic)
	if name == "" {
		return domain.SelectionContext{}, fmt.Errorf("%w: student name is required", domain.ErrValidation)
	}
	if course == "" || topic == "" {
		return domain.SelectionContext{}, fmt.Errorf("%w: course and topic are required", domain.ErrValidation)
	}
	if a.courses.Len() == 0 {
		return domain.SelectionContext{}, fmt.Errorf("%w: course list not loaded", domain.ErrDataUnavailable)
	}
	if !a.courses.HasTopic(course, topic) {
		return domain.SelectionContext{}, fmt.Errorf("%w: unknown topic %q in course %q", domain.ErrValidation, topic, course)
	}

	count := in.Count
	if count == 0 {
		count = a.opts.DefaultCount
	}
	if !containsInt(a.opts.CountOptions, count) {
		return domain.SelectionContext{}, fmt.Errorf("%w: question count %d not offered", domain.ErrValidation, count)
	}

	return domain.SelectionContext{
		StudentName:   name,
		Course:        course,
		Topic:         topic,
		SheetID:       domain.SheetIdentifier(course, topic),
		QuestionCount: count,
	}, nil
}

func (a *App) closeSessionLocked() {
	if a.session != nil {
		a.session.Close()
		a.session = nil
	}
}

func (a *App) menuViewLocked() MenuView {
	return MenuView{
		Courses:      a.courses.Courses(),
		CountOptions: append([]int(nil), a.opts.CountOptions...),
		DefaultCount: a.opts.DefaultCount,
		Panels:       a.opts.Panels.IDs(),
	}
}

func (a *App) resultViewLocked() ResultView {
	meta := ""
	if a.selection != nil {
		meta = a.selection.Title()
	}
	return ResultView{
		Meta:    meta,
		Score:   a.result.Score,
		Total:   a.result.Total,
		Seconds: a.result.Seconds(),
	}
}

func (a *App) tick(elapsed time.Duration) {
	if a.opts.OnTick != nil {
		a.opts.OnTick(FormatClock(elapsed))
	}
}

func containsInt(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
