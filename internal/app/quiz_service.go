package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sysdesign-quiz-service/internal/domain"
)

// SessionEntry is a live quiz attempt owned by one user.
type SessionEntry struct {
	ID        string
	UserID    string
	TopicID   string
	Daily     bool
	StartedAt time.Time
	Session   *QuizSession

	mu      sync.Mutex
	outcome *domain.Outcome

	// finishMu serializes Next so a finished session is credited at most once.
	finishMu sync.Mutex
}

func (e *SessionEntry) recordOutcome(o domain.Outcome) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.outcome = &o
}

// pendingOutcome reports a finished session whose outcome is not credited yet.
func (e *SessionEntry) pendingOutcome() (domain.Outcome, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.outcome == nil {
		return domain.Outcome{}, false
	}
	return *e.outcome, true
}

func (e *SessionEntry) clearOutcome() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.outcome = nil
}

// SessionView is returned when a session starts or moves.
type SessionView struct {
	SessionID string `json:"sessionId"`
	TopicID   string `json:"topicId"`
	Daily     bool   `json:"daily"`
	SessionSnapshot
}

// Completion is returned by the Next call that finishes a session.
type Completion struct {
	domain.Outcome
	Percentage      int          `json:"percentage"`
	Celebrate       bool         `json:"celebrate"`
	NewStreak       int          `json:"newStreak"`
	StreakIncreased bool         `json:"streakIncreased"`
	User            *domain.User `json:"user,omitempty"`
}

// StepResult is the outcome of Next: either the next question or the completion.
type StepResult struct {
	View       SessionView
	Completion *Completion
}

// QuizService drives live quiz sessions and feeds finished ones into the streak engine.
type QuizService struct {
	sessions SessionRepository
	catalog  *Catalog
	streaks  *StreakService
	logger   *zap.Logger
	metrics  Metrics
	now      func() time.Time
}

func NewQuizService(store SessionRepository, catalog *Catalog, streaks *StreakService, logger *zap.Logger, metrics Metrics) *QuizService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &QuizService{
		sessions: store,
		catalog:  catalog,
		streaks:  streaks,
		logger:   logger,
		metrics:  metrics,
		now:      time.Now,
	}
}

// Start opens a session for the daily topic (daily=true) or for topicID. A daily
// session for a user who already completed today's quiz starts disabled.
func (s *QuizService) Start(ctx context.Context, userID, topicID string, daily bool, today domain.Day) (SessionView, error) {
	if userID == "" {
		return SessionView{}, domain.ErrUnauthenticated
	}

	var (
		topic     domain.Topic
		completed bool
		err       error
	)
	if daily {
		topic, completed, err = s.streaks.DailyTopicFor(ctx, userID, today)
	} else {
		if _, err = s.streaks.users.LoadUser(ctx, userID); err == nil {
			topic, err = s.catalog.Topic(ctx, topicID)
		}
	}
	if err != nil {
		return SessionView{}, err
	}

	entry := &SessionEntry{
		ID:        uuid.NewString(),
		UserID:    userID,
		TopicID:   topic.ID,
		Daily:     daily,
		StartedAt: s.now(),
	}
	session, err := NewQuizSession(topic.Questions, entry.recordOutcome)
	if err != nil {
		return SessionView{}, err
	}
	session.SetDisabled(completed)
	entry.Session = session
	s.sessions.Put(entry)

	s.logger.Debug("quiz session started",
		zap.String("session_id", entry.ID),
		zap.String("user_id", userID),
		zap.String("topic_id", topic.ID),
		zap.Bool("daily", daily),
	)
	return viewOf(entry), nil
}

// Select records an option for the current question.
func (s *QuizService) Select(_ context.Context, userID, sessionID string, option int) (SessionView, error) {
	entry, err := s.entry(userID, sessionID)
	if err != nil {
		return SessionView{}, err
	}
	if err := entry.Session.Select(option); err != nil {
		return SessionView{}, err
	}
	return viewOf(entry), nil
}

// Submit reveals the current answer.
func (s *QuizService) Submit(_ context.Context, userID, sessionID string) (domain.Reveal, error) {
	entry, err := s.entry(userID, sessionID)
	if err != nil {
		return domain.Reveal{}, err
	}
	return entry.Session.Submit()
}

// Next advances the session. On the last question the outcome is submitted to the
// daily or practice track and the session is dropped. When that submission fails the
// session stays finished with its outcome kept; calling Next again retries it.
func (s *QuizService) Next(ctx context.Context, userID, sessionID string, today domain.Day) (StepResult, error) {
	entry, err := s.entry(userID, sessionID)
	if err != nil {
		return StepResult{}, err
	}
	entry.finishMu.Lock()
	defer entry.finishMu.Unlock()

	outcome, pending := entry.pendingOutcome()
	if !pending {
		finished, err := entry.Session.Next()
		if err != nil {
			return StepResult{}, err
		}
		if !finished {
			return StepResult{View: viewOf(entry)}, nil
		}
		if outcome, pending = entry.pendingOutcome(); !pending {
			return StepResult{}, errors.New("quiz session finished without outcome")
		}
		s.metrics.QuizFinished(outcome.Celebrate())
	}

	completion, err := s.credit(ctx, entry, outcome, today)
	if err != nil {
		s.logger.Warn("quiz outcome not credited",
			zap.String("session_id", entry.ID),
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return StepResult{}, err
	}
	entry.clearOutcome()
	s.sessions.Delete(entry.ID)

	s.logger.Info("quiz session finished",
		zap.String("session_id", entry.ID),
		zap.String("user_id", userID),
		zap.Int("correct", outcome.FinalCorrect),
		zap.Int("total", outcome.TotalQuestions),
	)
	return StepResult{View: viewOf(entry), Completion: completion}, nil
}

func (s *QuizService) credit(ctx context.Context, entry *SessionEntry, outcome domain.Outcome, today domain.Day) (*Completion, error) {
	completion := &Completion{
		Outcome:    outcome,
		Percentage: outcome.Percentage(),
		Celebrate:  outcome.Celebrate(),
	}
	if entry.Daily {
		res, err := s.streaks.SubmitDaily(ctx, entry.UserID, outcome.FinalCorrect, outcome.TotalQuestions, today)
		if err != nil {
			return nil, err
		}
		completion.NewStreak = res.NewStreak
		completion.StreakIncreased = res.StreakIncreased
		completion.User = &res.User
		return completion, nil
	}
	res, err := s.streaks.SubmitPractice(ctx, entry.UserID, entry.TopicID, outcome.FinalCorrect, outcome.TotalQuestions, today)
	if err != nil {
		return nil, err
	}
	completion.NewStreak = res.NewStreak
	completion.StreakIncreased = true
	completion.User = &res.User
	return completion, nil
}

// Abandon drops a session without scoring it.
func (s *QuizService) Abandon(_ context.Context, userID, sessionID string) {
	if _, err := s.entry(userID, sessionID); err == nil {
		s.sessions.Delete(sessionID)
	}
}

// View returns the current state of a session.
func (s *QuizService) View(_ context.Context, userID, sessionID string) (SessionView, error) {
	entry, err := s.entry(userID, sessionID)
	if err != nil {
		return SessionView{}, err
	}
	return viewOf(entry), nil
}

func (s *QuizService) entry(userID, sessionID string) (*SessionEntry, error) {
	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}
	entry, ok := s.sessions.Get(sessionID)
	if !ok || entry.UserID != userID {
		return nil, domain.ErrSessionNotFound
	}
	return entry, nil
}

func viewOf(entry *SessionEntry) SessionView {
	return SessionView{
		SessionID:       entry.ID,
		TopicID:         entry.TopicID,
		Daily:           entry.Daily,
		SessionSnapshot: entry.Session.Snapshot(),
	}
}
