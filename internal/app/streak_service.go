package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sysdesign-quiz-service/internal/domain"
)

const (
	// DefaultQuestionsPerQuiz bounds a single submission and is the accuracy denominator.
	DefaultQuestionsPerQuiz = 5

	// ActivityWindow is the number of days shown in the activity calendar (53 weeks).
	ActivityWindow = 371

	maxActivityLevel = 4
)

// errAlreadyCompleted aborts a daily update without writing.
var errAlreadyCompleted = errors.New("daily quiz already completed today")

// StreakConfig carries the optional collaborators of a StreakService.
type StreakConfig struct {
	QuestionsPerQuiz int
	Logger           *zap.Logger
	Metrics          Metrics
	// Now stamps progress records; defaults to time.Now.
	Now func() time.Time
}

// StreakService owns the daily/practice streak bookkeeping and the completion tracker.
type StreakService struct {
	users            UserStore
	catalog          *Catalog
	questionsPerQuiz int
	logger           *zap.Logger
	metrics          Metrics
	now              func() time.Time
}

func NewStreakService(users UserStore, catalog *Catalog, cfg StreakConfig) *StreakService {
	s := &StreakService{
		users:            users,
		catalog:          catalog,
		questionsPerQuiz: cfg.QuestionsPerQuiz,
		logger:           cfg.Logger,
		metrics:          cfg.Metrics,
		now:              cfg.Now,
	}
	if s.questionsPerQuiz <= 0 {
		s.questionsPerQuiz = DefaultQuestionsPerQuiz
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.metrics == nil {
		s.metrics = noopMetrics{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// QuestionsPerQuiz is the upper bound on totalQuestions for one submission.
func (s *StreakService) QuestionsPerQuiz() int {
	return s.questionsPerQuiz
}

// Register creates a user with zeroed counters.
func (s *StreakService) Register(ctx context.Context, email, username string, role domain.Role) (domain.User, error) {
	email = strings.TrimSpace(email)
	username = strings.TrimSpace(username)
	if _, err := mail.ParseAddress(email); err != nil {
		return domain.User{}, fmt.Errorf("%w: email %q", domain.ErrInvalidInput, email)
	}
	if username == "" {
		return domain.User{}, fmt.Errorf("%w: username is required", domain.ErrInvalidInput)
	}
	if role == "" {
		role = domain.RoleUser
	}
	if !role.Valid() {
		return domain.User{}, fmt.Errorf("%w: role %q", domain.ErrInvalidInput, role)
	}

	user := domain.User{
		ID:        uuid.NewString(),
		Email:     strings.ToLower(email),
		Username:  username,
		Role:      role,
		CreatedAt: s.now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return domain.User{}, err
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("role", string(role)))
	return user, nil
}

// SubmitDaily credits today's daily quiz. A second submission on the same day is a
// no-op that reports StreakIncreased=false. A gap of one or more days restarts the
// streak at 1.
func (s *StreakService) SubmitDaily(ctx context.Context, userID string, correctCount, totalQuestions int, today domain.Day) (domain.DailyResult, error) {
	if userID == "" {
		return domain.DailyResult{}, domain.ErrUnauthenticated
	}
	topic, err := s.catalog.DailyTopic(ctx, today)
	if err != nil {
		return domain.DailyResult{}, err
	}

	var result domain.DailyResult
	err = s.users.Update(ctx, userID, func(state *UserState) error {
		if state.LastDaily != nil && *state.LastDaily == today {
			result = domain.DailyResult{NewStreak: state.User.DailyStreak, User: state.User}
			return errAlreadyCompleted
		}
		if err := s.validateScore(correctCount, totalQuestions); err != nil {
			return err
		}

		newStreak := 1
		if state.LastDaily != nil && *state.LastDaily == today.Prev() {
			newStreak = state.User.DailyStreak + 1
		}

		completed := ensureSet(state)
		completed.Add(topic.ID)
		state.LastDaily = domain.DayPtr(today)

		user := &state.User
		user.DailyStreak = newStreak
		user.BestDailyStreak = max(user.BestDailyStreak, newStreak)
		user.TopicsCompleted = len(completed)
		user.TotalQuizzes++
		user.CorrectAnswers += correctCount
		user.LastDailyCompletion = domain.DayPtr(today)

		state.Record = s.newRecord(userID, topic.ID, true, correctCount, totalQuestions, today)
		result = domain.DailyResult{NewStreak: newStreak, StreakIncreased: true, User: *user}
		return nil
	})
	if errors.Is(err, errAlreadyCompleted) {
		s.metrics.DailySubmitted(false)
		s.logger.Debug("daily quiz already completed", zap.String("user_id", userID), zap.Stringer("day", today))
		return result, nil
	}
	if err != nil {
		return domain.DailyResult{}, err
	}

	s.metrics.DailySubmitted(true)
	s.logger.Info("daily quiz submitted",
		zap.String("user_id", userID),
		zap.String("topic_id", topic.ID),
		zap.Int("correct", correctCount),
		zap.Int("total", totalQuestions),
		zap.Int("streak", result.NewStreak),
	)
	return result, nil
}

// SubmitPractice credits a practice quiz. Every call counts: there is no date gate.
func (s *StreakService) SubmitPractice(ctx context.Context, userID, topicID string, correctCount, totalQuestions int, today domain.Day) (domain.PracticeResult, error) {
	if userID == "" {
		return domain.PracticeResult{}, domain.ErrUnauthenticated
	}
	if topicID == "" {
		return domain.PracticeResult{}, fmt.Errorf("%w: topic id is required", domain.ErrInvalidInput)
	}
	if _, err := s.catalog.Topic(ctx, topicID); err != nil {
		return domain.PracticeResult{}, err
	}
	if err := s.validateScore(correctCount, totalQuestions); err != nil {
		return domain.PracticeResult{}, err
	}

	var result domain.PracticeResult
	err := s.users.Update(ctx, userID, func(state *UserState) error {
		completed := ensureSet(state)
		completed.Add(topicID)

		user := &state.User
		newStreak := user.PracticeStreak + 1
		user.PracticeStreak = newStreak
		user.BestPracticeStreak = max(user.BestPracticeStreak, newStreak)
		user.TopicsCompleted = len(completed)
		user.TotalQuizzes++
		user.CorrectAnswers += correctCount
		user.LastPracticeCompletion = domain.DayPtr(today)

		state.Record = s.newRecord(userID, topicID, false, correctCount, totalQuestions, today)
		result = domain.PracticeResult{NewStreak: newStreak, User: *user}
		return nil
	})
	if err != nil {
		return domain.PracticeResult{}, err
	}

	s.metrics.PracticeSubmitted()
	s.logger.Info("practice quiz submitted",
		zap.String("user_id", userID),
		zap.String("topic_id", topicID),
		zap.Int("correct", correctCount),
		zap.Int("total", totalQuestions),
		zap.Int("streak", result.NewStreak),
	)
	return result, nil
}

// HasCompleted reports whether the user completed topicID on either track.
func (s *StreakService) HasCompleted(ctx context.Context, userID, topicID string) (bool, error) {
	set, err := s.completionSet(ctx, userID)
	if err != nil {
		return false, err
	}
	return set.Has(topicID), nil
}

// MarkCompleted inserts topicID into the user's completed set. Idempotent.
func (s *StreakService) MarkCompleted(ctx context.Context, userID, topicID string) error {
	if userID == "" {
		return domain.ErrUnauthenticated
	}
	return s.users.Update(ctx, userID, func(state *UserState) error {
		completed := ensureSet(state)
		completed.Add(topicID)
		state.User.TopicsCompleted = len(completed)
		return nil
	})
}

// CountCompleted returns the size of the completed set.
func (s *StreakService) CountCompleted(ctx context.Context, userID string) (int, error) {
	set, err := s.completionSet(ctx, userID)
	if err != nil {
		return 0, err
	}
	return len(set), nil
}

// Profile returns the user with accuracy over QuestionsPerQuiz questions per quiz.
func (s *StreakService) Profile(ctx context.Context, userID string) (domain.Profile, error) {
	if userID == "" {
		return domain.Profile{}, domain.ErrUnauthenticated
	}
	user, err := s.users.LoadUser(ctx, userID)
	if err != nil {
		return domain.Profile{}, err
	}
	accuracy := 0
	if answered := user.TotalQuizzes * s.questionsPerQuiz; answered > 0 {
		accuracy = int(math.Round(float64(user.CorrectAnswers) / float64(answered) * 100))
	}
	return domain.Profile{User: user, Accuracy: accuracy}, nil
}

// Progress returns the user's submission history, oldest first.
func (s *StreakService) Progress(ctx context.Context, userID string) ([]domain.ProgressRecord, error) {
	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}
	if _, err := s.users.LoadUser(ctx, userID); err != nil {
		return nil, err
	}
	records, err := s.users.ListProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CompletedAt.Before(records[j].CompletedAt)
	})
	return records, nil
}

// Activity returns ActivityWindow consecutive days ending today with the number of
// quizzes completed on each day and a 0..4 intensity level.
func (s *StreakService) Activity(ctx context.Context, userID string, today domain.Day) ([]domain.ActivityDay, error) {
	records, err := s.Progress(ctx, userID)
	if err != nil {
		return nil, err
	}
	first := today.AddDays(-(ActivityWindow - 1))
	counts := make(map[domain.Day]int)
	for _, r := range records {
		if r.Day >= first && r.Day <= today {
			counts[r.Day]++
		}
	}
	days := make([]domain.ActivityDay, 0, ActivityWindow)
	for d := first; d <= today; d++ {
		n := counts[d]
		days = append(days, domain.ActivityDay{Day: d, Count: n, Level: min(n, maxActivityLevel)})
	}
	return days, nil
}

// TopicStatus is a catalog entry annotated for one user.
type TopicStatus struct {
	domain.Topic
	IsCompleted bool `json:"isCompleted"`
}

// TopicsFor lists the catalog with the user's completion flags.
func (s *StreakService) TopicsFor(ctx context.Context, userID string) ([]TopicStatus, error) {
	set, err := s.completionSet(ctx, userID)
	if err != nil {
		return nil, err
	}
	topics, err := s.catalog.Topics(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]TopicStatus, 0, len(topics))
	for _, t := range topics {
		out = append(out, TopicStatus{Topic: t, IsCompleted: set.Has(t.ID)})
	}
	return out, nil
}

// DailyTopicFor returns today's topic and whether the user already completed the daily quiz.
func (s *StreakService) DailyTopicFor(ctx context.Context, userID string, today domain.Day) (domain.Topic, bool, error) {
	if userID == "" {
		return domain.Topic{}, false, domain.ErrUnauthenticated
	}
	topic, err := s.catalog.DailyTopic(ctx, today)
	if err != nil {
		return domain.Topic{}, false, err
	}
	last, err := s.users.LoadDailyLedgerEntry(ctx, userID)
	if err != nil {
		return domain.Topic{}, false, err
	}
	return topic, last != nil && *last == today, nil
}

func (s *StreakService) completionSet(ctx context.Context, userID string) (domain.TopicSet, error) {
	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}
	return s.users.LoadCompletionSet(ctx, userID)
}

func (s *StreakService) validateScore(correctCount, totalQuestions int) error {
	if totalQuestions < 1 || totalQuestions > s.questionsPerQuiz {
		return fmt.Errorf("%w: totalQuestions %d not in [1, %d]", domain.ErrInvalidInput, totalQuestions, s.questionsPerQuiz)
	}
	if correctCount < 0 || correctCount > totalQuestions {
		return fmt.Errorf("%w: correctCount %d not in [0, %d]", domain.ErrInvalidInput, correctCount, totalQuestions)
	}
	return nil
}

func (s *StreakService) newRecord(userID, topicID string, daily bool, correct, total int, day domain.Day) *domain.ProgressRecord {
	return &domain.ProgressRecord{
		ID:             uuid.NewString(),
		UserID:         userID,
		TopicID:        topicID,
		Daily:          daily,
		CorrectCount:   correct,
		TotalQuestions: total,
		Day:            day,
		CompletedAt:    s.now().UTC(),
	}
}

func ensureSet(state *UserState) domain.TopicSet {
	if state.Completed == nil {
		state.Completed = domain.TopicSet{}
	}
	return state.Completed
}
