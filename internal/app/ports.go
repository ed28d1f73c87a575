package app

import (
	"context"

	"sysdesign-quiz-service/internal/domain"
)

// TopicRepository loads the topic catalog (from cache/backing store).
type TopicRepository interface {
	// GetAllTopics returns the catalog ordered by creation day, then ID.
	GetAllTopics(ctx context.Context) ([]domain.Topic, error)
	GetTopic(ctx context.Context, topicID string) (domain.Topic, error)
}

// UserState is everything a streak update reads and writes for one user.
type UserState struct {
	User      domain.User
	Completed domain.TopicSet
	// LastDaily is the daily ledger entry; nil when the daily quiz was never completed.
	LastDaily *domain.Day
	// Record is appended to the progress history when set by the update function.
	Record *domain.ProgressRecord
}

// UserStore abstracts per-user persistence (in-memory, Redis, Postgres).
type UserStore interface {
	CreateUser(ctx context.Context, user domain.User) error
	LoadUser(ctx context.Context, userID string) (domain.User, error)
	LoadCompletionSet(ctx context.Context, userID string) (domain.TopicSet, error)
	LoadDailyLedgerEntry(ctx context.Context, userID string) (*domain.Day, error)
	ListProgress(ctx context.Context, userID string) ([]domain.ProgressRecord, error)
	// Update runs fn against the current state of userID and persists the result
	// atomically. The guard checks inside fn and the write are one unit: concurrent
	// updates for the same user never interleave. When fn returns an error nothing is
	// written and the error is returned unchanged.
	Update(ctx context.Context, userID string, fn func(state *UserState) error) error
}

// SessionRepository abstracts how live quiz sessions are stored (in-memory, Redis, etc).
type SessionRepository interface {
	Put(entry *SessionEntry)
	Get(sessionID string) (*SessionEntry, bool)
	Delete(sessionID string)
}

// Metrics receives domain events; see internal/metrics.
type Metrics interface {
	DailySubmitted(increased bool)
	PracticeSubmitted()
	QuizFinished(celebrate bool)
}

type noopMetrics struct{}

func (noopMetrics) DailySubmitted(bool) {}
func (noopMetrics) PracticeSubmitted()  {}
func (noopMetrics) QuizFinished(bool)   {}
