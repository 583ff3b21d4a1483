package app

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"
	"math-physical/internal/domain"
)

// RankingStatus distinguishes an empty leaderboard from a failed load.
type RankingStatus string

const (
	RankingReady  RankingStatus = "ready"
	RankingEmpty  RankingStatus = "empty"
	RankingFailed RankingStatus = "failed"
)

// RankedEntry is a leaderboard row with its 1-based display rank.
type RankedEntry struct {
	Rank int `json:"rank"`
	domain.RankingEntry
}

// RankingView is the rendered leaderboard of one topic.
type RankingView struct {
	Title   string        `json:"title"`
	Status  RankingStatus `json:"status"`
	Entries []RankedEntry `json:"entries"`
	Error   string        `json:"error,omitempty"`
}

// Reporter submits finished sessions and reads leaderboards.
type Reporter struct {
	gateway Gateway
	logger  *zap.Logger
}

func NewReporter(gateway Gateway, logger *zap.Logger) *Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reporter{gateway: gateway, logger: logger.Named("reporter")}
}

// Submit appends the result to the remote ranking. An empty name is rejected
// before any request is made.
func (r *Reporter) Submit(ctx context.Context, name string, sel domain.SelectionContext, res domain.QuizResult) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: student name is required", domain.ErrValidation)
	}
	ok, err := r.gateway.SubmitScore(ctx, domain.ScoreSubmission{
		Name:           name,
		SheetID:        sel.SheetID,
		TotalQuestions: res.Total,
		Score:          res.Score,
		TimeSeconds:    math.Round(res.Elapsed.Seconds()*100) / 100,
	})
	if err != nil {
		r.logger.Warn("score submission failed", zap.String("sheet", sel.SheetID), zap.Error(err))
		return err
	}
	if !ok {
		return fmt.Errorf("%w: score not accepted", domain.ErrProtocol)
	}
	r.logger.Info("score submitted", zap.String("sheet", sel.SheetID), zap.Int("score", res.Score), zap.Int("total", res.Total))
	return nil
}

// Rankings loads the leaderboard of the selected topic. Failures are reported
// in the view rather than as an error.
func (r *Reporter) Rankings(ctx context.Context, sel domain.SelectionContext) RankingView {
	view := RankingView{Title: sel.Title()}
	entries, err := r.gateway.Rankings(ctx, sel.SheetID)
	if err != nil {
		r.logger.Warn("ranking load failed", zap.String("sheet", sel.SheetID), zap.Error(err))
		view.Status = RankingFailed
		view.Error = err.Error()
		return view
	}
	if len(entries) == 0 {
		view.Status = RankingEmpty
		return view
	}
	view.Status = RankingReady
	view.Entries = make([]RankedEntry, 0, len(entries))
	for i, e := range entries {
		view.Entries = append(view.Entries, RankedEntry{Rank: i + 1, RankingEntry: e})
	}
	return view
}
