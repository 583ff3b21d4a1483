package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"math-physical/internal/app"
	"math-physical/internal/domain"
	"math-physical/internal/infra/memory"
)

func newTestApp(gw *fakeGateway, clock *fakeClock, onTick func(string)) *app.App {
	cache := app.NewCatalogCacheWithClock(memory.NewCatalogStore(), gw, nil, clock.Now)
	return app.New(gw, cache, app.Options{Clock: clock.Now, OnTick: onTick})
}

// newReadyApp returns an app whose course list has been loaded.
func newReadyApp(t *testing.T, gw *fakeGateway, clock *fakeClock, onTick func(string)) *app.App {
	t.Helper()
	a := newTestApp(gw, clock, onTick)
	if _, err := a.LoadCatalog(context.Background()); err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return a
}

func TestQuizFlowEndToEnd(t *testing.T) {
	ctx := context.Background()
	gw := newFakeGateway()
	clock := newFakeClock()
	a := newTestApp(gw, clock, nil)

	menu, err := a.LoadCatalog(ctx)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	if len(menu.Courses) != 2 || menu.Courses[0] != "Algebra" || menu.DefaultCount != 10 {
		t.Fatalf("unexpected menu %+v", menu)
	}

	article, err := a.Start(ctx, app.SelectionInput{Name: "Mina", Course: "Algebra", Topic: "Linear equations", Count: 5})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if article.Title != "Algebra - Linear equations" || article.Status != app.ArticleReady {
		t.Fatalf("unexpected article %+v", article)
	}
	if a.Screen() != domain.ScreenArticle {
		t.Fatalf("expected article screen, got %s", a.Screen())
	}

	q, err := a.BeginQuiz(ctx)
	if err != nil {
		t.Fatalf("begin quiz: %v", err)
	}
	if q.Position != 1 || q.Total != 3 || q.Progress != 0 {
		t.Fatalf("unexpected first question %+v", q)
	}
	if gw.requestedCount != 5 {
		t.Fatalf("expected count 5 requested, got %d", gw.requestedCount)
	}
	if !a.TimerRunning() || a.SessionState() != app.StateActive {
		t.Fatalf("expected running active session")
	}

	answers := []struct {
		choice  int
		correct bool
	}{
		{1, true},
		{1, false},
		{0, true},
	}
	var last app.AnswerView
	for i, ans := range answers {
		clock.Advance(time.Second + 200*time.Millisecond)
		last, err = a.Answer(ans.choice)
		if err != nil {
			t.Fatalf("answer %d: %v", i, err)
		}
		if last.Correct != ans.correct {
			t.Fatalf("answer %d: expected correct=%v", i, ans.correct)
		}
		if i == 0 && (last.Next == nil || last.Next.Position != 2 || last.Next.Progress != 1.0/3) {
			t.Fatalf("unexpected next question %+v", last.Next)
		}
	}

	if !last.Finished || last.Result == nil {
		t.Fatalf("expected finished result, got %+v", last)
	}
	if last.Result.Score != 2 || last.Result.Total != 3 || last.Result.Seconds != "3.60" || last.Result.Meta != "Algebra - Linear equations" {
		t.Fatalf("unexpected result %+v", last.Result)
	}
	if a.Screen() != domain.ScreenResult || a.TimerRunning() || a.SessionState() != app.StateFinished {
		t.Fatalf("expected finished session on result screen")
	}

	if err := a.SaveScore(ctx, "Mina"); err != nil {
		t.Fatalf("save score: %v", err)
	}
	sub := gw.submissions[0]
	if sub.SheetID != "<Algebra>Linear equations" || sub.Score != 2 || sub.TotalQuestions != 3 || sub.TimeSeconds != 3.6 {
		t.Fatalf("unexpected submission %+v", sub)
	}

	gw.rankings["<Algebra>Linear equations"] = []domain.RankingEntry{{Name: "Mina", Score: 2, QuestionCount: 3, TimeSeconds: 3.6}}
	ranking, err := a.ShowRanking(ctx)
	if err != nil {
		t.Fatalf("ranking: %v", err)
	}
	if ranking.Status != app.RankingReady || ranking.Entries[0].Rank != 1 || a.Screen() != domain.ScreenRanking {
		t.Fatalf("unexpected ranking %+v", ranking)
	}

	back, err := a.BackToResult()
	if err != nil || back.Score != 2 || a.Screen() != domain.ScreenResult {
		t.Fatalf("back to result: %+v %v", back, err)
	}
}

func TestStartRequiresName(t *testing.T) {
	gw := newFakeGateway()
	a := newTestApp(gw, newFakeClock(), nil)

	_, err := a.Start(context.Background(), app.SelectionInput{Name: "  ", Course: "Algebra", Topic: "Quadratics"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if a.Screen() != domain.ScreenMenu || gw.count("description") != 0 {
		t.Fatalf("expected menu unchanged and no request")
	}
	if _, ok := a.Selection(); ok {
		t.Fatalf("expected no selection")
	}
}

func TestStartValidatesAgainstCatalog(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(newFakeGateway(), newFakeClock(), nil)
	if _, err := a.LoadCatalog(ctx); err != nil {
		t.Fatalf("load catalog: %v", err)
	}

	if _, err := a.Start(ctx, app.SelectionInput{Name: "Mina", Course: "Algebra", Topic: "Kinematics"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected unknown topic rejected, got %v", err)
	}
	if _, err := a.Start(ctx, app.SelectionInput{Name: "Mina", Course: "Algebra", Topic: "Quadratics", Count: 7}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected unsupported count rejected, got %v", err)
	}

	if _, err := a.Start(ctx, app.SelectionInput{Name: "Mina", Course: "Algebra", Topic: "Quadratics"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	sel, ok := a.Selection()
	if !ok || sel.QuestionCount != 10 || sel.SheetID != "<Algebra>Quadratics" {
		t.Fatalf("unexpected selection %+v", sel)
	}
}

func TestTopicsForCourse(t *testing.T) {
	a := newTestApp(newFakeGateway(), newFakeClock(), nil)
	if _, err := a.LoadCatalog(context.Background()); err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	topics, err := a.Topics("Algebra")
	if err != nil || len(topics) != 2 || topics[0] != "Linear equations" {
		t.Fatalf("unexpected topics %v (%v)", topics, err)
	}
	if _, err := a.Topics("Chemistry"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected unknown course, got %v", err)
	}
}

func TestArticleStatuses(t *testing.T) {
	ctx := context.Background()
	gw := newFakeGateway()
	a := newReadyApp(t, gw, newFakeClock(), nil)

	article, err := a.Start(ctx, app.SelectionInput{Name: "Mina", Course: "Algebra", Topic: "Quadratics"})
	if err != nil || article.Status != app.ArticleMissing {
		t.Fatalf("expected missing article, got %+v %v", article, err)
	}

	gw.describeErr = domain.ErrNetwork
	article, err = a.Start(ctx, app.SelectionInput{Name: "Mina", Course: "Algebra", Topic: "Linear equations"})
	if err != nil || article.Status != app.ArticleFailed {
		t.Fatalf("expected failed article, got %+v %v", article, err)
	}
	if a.Screen() != domain.ScreenArticle {
		t.Fatalf("expected article screen after failed load, got %s", a.Screen())
	}
}

func TestRequestedCountAboveAvailable(t *testing.T) {
	ctx := context.Background()
	gw := newFakeGateway()
	gw.questions["<Physics>Kinematics"] = manyQuestions(12)
	a := newReadyApp(t, gw, newFakeClock(), nil)

	if _, err := a.Start(ctx, app.SelectionInput{Name: "Mina", Course: "Physics", Topic: "Kinematics", Count: 20}); err != nil {
		t.Fatalf("start: %v", err)
	}
	q, err := a.BeginQuiz(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if q.Total != 12 || gw.requestedCount != 20 {
		t.Fatalf("expected 12 of 20 requested, got total=%d requested=%d", q.Total, gw.requestedCount)
	}
	defer a.Reset()
}

func TestEmptyTopicReturnsToMenu(t *testing.T) {
	ctx := context.Background()
	gw := newFakeGateway()
	a := newReadyApp(t, gw, newFakeClock(), nil)

	if _, err := a.Start(ctx, app.SelectionInput{Name: "Mina", Course: "Algebra", Topic: "Quadratics"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := a.BeginQuiz(ctx); !errors.Is(err, domain.ErrEmptyResult) {
		t.Fatalf("expected empty result, got %v", err)
	}
	if a.Screen() != domain.ScreenMenu || a.SessionState() != app.StateIdle || a.TimerRunning() {
		t.Fatalf("expected idle menu, got screen=%s state=%s", a.Screen(), a.SessionState())
	}
	if _, err := a.Answer(0); !errors.Is(err, domain.ErrSessionNotActive) {
		t.Fatalf("expected no session, got %v", err)
	}
}

func TestBeginQuizRequiresSelection(t *testing.T) {
	a := newTestApp(newFakeGateway(), newFakeClock(), nil)
	if _, err := a.BeginQuiz(context.Background()); !errors.Is(err, domain.ErrNoSelection) {
		t.Fatalf("expected no selection, got %v", err)
	}
}

func TestBeginQuizBusyWhileLoading(t *testing.T) {
	ctx := context.Background()
	gw := newFakeGateway()
	gw.block = make(chan struct{})
	gw.entered = make(chan struct{}, 1)
	a := newReadyApp(t, gw, newFakeClock(), nil)

	if _, err := a.Start(ctx, app.SelectionInput{Name: "Mina", Course: "Algebra", Topic: "Linear equations"}); err != nil {
		t.Fatalf("start: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := a.BeginQuiz(ctx)
		done <- err
	}()
	<-gw.entered

	if a.SessionState() != app.StateLoading {
		t.Fatalf("expected loading, got %s", a.SessionState())
	}
	if _, err := a.BeginQuiz(ctx); !errors.Is(err, domain.ErrBusy) {
		t.Fatalf("expected busy, got %v", err)
	}

	close(gw.block)
	if err := <-done; err != nil {
		t.Fatalf("first begin: %v", err)
	}
	if gw.count("questions") != 1 {
		t.Fatalf("expected one question fetch, got %d", gw.count("questions"))
	}
	a.Reset()
}

func TestResetDiscardsInFlightLoad(t *testing.T) {
	ctx := context.Background()
	gw := newFakeGateway()
	gw.block = make(chan struct{})
	gw.entered = make(chan struct{}, 1)
	a := newReadyApp(t, gw, newFakeClock(), nil)

	if _, err := a.Start(ctx, app.SelectionInput{Name: "Mina", Course: "Algebra", Topic: "Linear equations"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	done := make(chan error, 1)
	go func() {
		_, err := a.BeginQuiz(ctx)
		done <- err
	}()
	<-gw.entered

	a.Reset()
	close(gw.block)

	if err := <-done; !errors.Is(err, domain.ErrSessionNotActive) {
		t.Fatalf("expected stale load discarded, got %v", err)
	}
	if a.Screen() != domain.ScreenMenu || a.TimerRunning() || a.SessionState() != app.StateIdle {
		t.Fatalf("expected clean menu after reset")
	}
}

func TestResetStopsTimer(t *testing.T) {
	ctx := context.Background()
	a := newReadyApp(t, newFakeGateway(), newFakeClock(), nil)

	if _, err := a.Start(ctx, app.SelectionInput{Name: "Mina", Course: "Algebra", Topic: "Linear equations"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := a.BeginQuiz(ctx); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if !a.TimerRunning() {
		t.Fatalf("expected timer running")
	}

	a.Reset()
	if a.TimerRunning() || a.Screen() != domain.ScreenMenu {
		t.Fatalf("expected timer stopped on menu")
	}
	if _, ok := a.Selection(); ok {
		t.Fatalf("expected selection cleared")
	}
	if a.Clock() != "00:00" {
		t.Fatalf("expected clock reset, got %s", a.Clock())
	}
}

func TestTickerReportsClock(t *testing.T) {
	ctx := context.Background()
	gw := newFakeGateway()
	ticks := make(chan string, 16)
	cache := app.NewCatalogCache(memory.NewCatalogStore(), gw, nil)
	a := app.New(gw, cache, app.Options{
		Tick: 10 * time.Millisecond,
		OnTick: func(clock string) {
			select {
			case ticks <- clock:
			default:
			}
		},
	})
	defer a.Reset()

	if _, err := a.LoadCatalog(ctx); err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	if _, err := a.Start(ctx, app.SelectionInput{Name: "Mina", Course: "Algebra", Topic: "Linear equations"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := a.BeginQuiz(ctx); err != nil {
		t.Fatalf("begin: %v", err)
	}

	select {
	case clock := <-ticks:
		if clock != "00:00" {
			t.Fatalf("expected 00:00, got %s", clock)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no tick received")
	}
}

func TestSaveScoreGuards(t *testing.T) {
	ctx := context.Background()
	gw := newFakeGateway()
	a := newReadyApp(t, gw, newFakeClock(), nil)

	if err := a.SaveScore(ctx, "Mina"); !errors.Is(err, domain.ErrSessionNotActive) {
		t.Fatalf("expected save before finish rejected, got %v", err)
	}

	if _, err := a.Start(ctx, app.SelectionInput{Name: "Mina", Course: "Algebra", Topic: "Linear equations"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := a.BeginQuiz(ctx); err != nil {
		t.Fatalf("begin: %v", err)
	}
	for _, c := range []int{1, 0, 0} {
		if _, err := a.Answer(c); err != nil {
			t.Fatalf("answer %d: %v", c, err)
		}
	}

	if err := a.SaveScore(ctx, ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if gw.count("submit") != 0 {
		t.Fatalf("expected no submission for empty name")
	}

	gw.submitErr = domain.ErrNetwork
	if err := a.SaveScore(ctx, "Mina"); !errors.Is(err, domain.ErrNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
	if a.Screen() != domain.ScreenResult {
		t.Fatalf("expected result screen kept, got %s", a.Screen())
	}
}

func TestUnknownChoiceKeepsPosition(t *testing.T) {
	ctx := context.Background()
	a := newReadyApp(t, newFakeGateway(), newFakeClock(), nil)
	defer a.Reset()

	if _, err := a.Start(ctx, app.SelectionInput{Name: "Mina", Course: "Algebra", Topic: "Linear equations"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := a.BeginQuiz(ctx); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := a.Answer(2); !errors.Is(err, domain.ErrChoiceNotFound) {
		t.Fatalf("expected choice not found, got %v", err)
	}
	q, err := a.CurrentQuestion()
	if err != nil || q.Position != 1 {
		t.Fatalf("expected still on first question, got %+v %v", q, err)
	}
}

func TestCatalogUnavailable(t *testing.T) {
	gw := newFakeGateway()
	gw.catalogErr = domain.ErrNetwork
	a := newTestApp(gw, newFakeClock(), nil)

	if _, err := a.LoadCatalog(context.Background()); !errors.Is(err, domain.ErrDataUnavailable) || !errors.Is(err, domain.ErrNetwork) {
		t.Fatalf("expected data unavailable wrapping network, got %v", err)
	}
}

func TestStartBlockedWithoutCatalog(t *testing.T) {
	ctx := context.Background()
	gw := newFakeGateway()
	gw.catalogErr = domain.ErrNetwork
	a := newTestApp(gw, newFakeClock(), nil)

	if _, err := a.LoadCatalog(ctx); err == nil {
		t.Fatalf("expected catalog load to fail")
	}
	_, err := a.Start(ctx, app.SelectionInput{Name: "Mina", Course: "Anything", Topic: "Whatever"})
	if !errors.Is(err, domain.ErrDataUnavailable) {
		t.Fatalf("expected data unavailable, got %v", err)
	}
	if a.Screen() != domain.ScreenMenu || gw.count("description") != 0 {
		t.Fatalf("expected menu unchanged and no request, got %s", a.Screen())
	}
	if _, err := a.BeginQuiz(ctx); !errors.Is(err, domain.ErrNoSelection) {
		t.Fatalf("expected no selection, got %v", err)
	}
	if gw.count("questions") != 0 {
		t.Fatalf("expected no question fetch")
	}
}

func TestShowInfo(t *testing.T) {
	a := newTestApp(newFakeGateway(), newFakeClock(), nil)

	panel, err := a.ShowInfo("privacy")
	if err != nil || panel.ID != "privacy" || a.Screen() != domain.ScreenInfo {
		t.Fatalf("unexpected panel %+v %v", panel, err)
	}
	if _, err := a.ShowInfo("faq"); !errors.Is(err, domain.ErrPanelNotFound) {
		t.Fatalf("expected panel not found, got %v", err)
	}
	if a.Screen() != domain.ScreenInfo {
		t.Fatalf("expected screen unchanged after unknown panel")
	}

	if _, err := a.Home(context.Background()); err != nil || a.Screen() != domain.ScreenMenu {
		t.Fatalf("expected menu after home, got %s %v", a.Screen(), err)
	}
}
