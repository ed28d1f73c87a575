package memory

import (
	"context"
	"strings"
	"sync"

	"sysdesign-quiz-service/internal/app"
	"sysdesign-quiz-service/internal/domain"
)

type userRecord struct {
	user      domain.User
	completed domain.TopicSet
	lastDaily *domain.Day
	progress  []domain.ProgressRecord
}

// UserStore is an in-memory implementation of app.UserStore. One mutex guards every
// user, which makes each Update trivially atomic.
type UserStore struct {
	mu      sync.RWMutex
	users   map[string]*userRecord
	byEmail map[string]string
}

func NewUserStore() *UserStore {
	return &UserStore{
		users:   make(map[string]*userRecord),
		byEmail: make(map[string]string),
	}
}

func (s *UserStore) CreateUser(_ context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(user.Email)
	if _, ok := s.users[user.ID]; ok {
		return domain.ErrUserExists
	}
	if _, ok := s.byEmail[email]; ok && email != "" {
		return domain.ErrUserExists
	}
	s.users[user.ID] = &userRecord{user: user, completed: domain.TopicSet{}}
	if email != "" {
		s.byEmail[email] = user.ID
	}
	return nil
}

func (s *UserStore) LoadUser(_ context.Context, userID string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.users[userID]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return copyUser(rec.user), nil
}

func (s *UserStore) LoadCompletionSet(_ context.Context, userID string) (domain.TopicSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.users[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return rec.completed.Clone(), nil
}

func (s *UserStore) LoadDailyLedgerEntry(_ context.Context, userID string) (*domain.Day, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.users[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if rec.lastDaily == nil {
		return nil, nil
	}
	return domain.DayPtr(*rec.lastDaily), nil
}

func (s *UserStore) ListProgress(_ context.Context, userID string) ([]domain.ProgressRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.users[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	out := make([]domain.ProgressRecord, len(rec.progress))
	copy(out, rec.progress)
	return out, nil
}

func (s *UserStore) Update(_ context.Context, userID string, fn func(state *app.UserState) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}

	// fn works on copies so a failed update leaves the record untouched
	state := &app.UserState{
		User:      copyUser(rec.user),
		Completed: rec.completed.Clone(),
	}
	if rec.lastDaily != nil {
		state.LastDaily = domain.DayPtr(*rec.lastDaily)
	}
	if err := fn(state); err != nil {
		return err
	}

	rec.user = copyUser(state.User)
	for id := range state.Completed {
		rec.completed.Add(id)
	}
	if state.LastDaily != nil {
		rec.lastDaily = domain.DayPtr(*state.LastDaily)
	}
	if state.Record != nil {
		rec.progress = append(rec.progress, *state.Record)
	}
	return nil
}

func copyUser(u domain.User) domain.User {
	if u.LastDailyCompletion != nil {
		u.LastDailyCompletion = domain.DayPtr(*u.LastDailyCompletion)
	}
	if u.LastPracticeCompletion != nil {
		u.LastPracticeCompletion = domain.DayPtr(*u.LastPracticeCompletion)
	}
	return u
}
