package app

import (
	"context"

	"math-physical/internal/domain"
)

// CatalogSource fetches the course catalog from the remote API.
type CatalogSource interface {
	ListCoursesAndTopics(ctx context.Context) (domain.CourseTopicMap, error)
}

// Gateway abstracts the remote spreadsheet API.
type Gateway interface {
	CatalogSource
	LessonDescription(ctx context.Context, sheetID string) (string, error)
	QuestionSet(ctx context.Context, sheetID string, count int) ([]domain.Question, error)
	SubmitScore(ctx context.Context, submission domain.ScoreSubmission) (bool, error)
	Rankings(ctx context.Context, sheetID string) ([]domain.RankingEntry, error)
}

// CatalogStore persists the cached catalog (in-memory, file, Redis, Postgres).
// Load reports false when nothing has been stored yet.
type CatalogStore interface {
	Load(ctx context.Context) (domain.CacheEntry, bool, error)
	Save(ctx context.Context, entry domain.CacheEntry) error
}
