package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"sysdesign-quiz-service/internal/app"
	"sysdesign-quiz-service/internal/domain"
)

const maxUpdateRetries = 100

// ErrContention is returned when an update keeps losing optimistic-lock races.
var ErrContention = errors.New("redis: too many concurrent updates")

// UserStore keeps per-user state in Redis:
//
//	user:{id}            JSON-encoded domain.User
//	user:{id}:completed  SET of topic ids
//	user:{id}:daily      last daily completion day (YYYY-MM-DD)
//	user:{id}:progress   LIST of JSON-encoded progress records
//	email:{email}        user id
//
// User ids may not contain ':', which would alias another user's keys.
//
// Update uses WATCH/MULTI so the guard checks and the write are one optimistic
// transaction; a lost race is retried.
type UserStore struct {
	client *redis.Client
}

func NewUserStore(client *redis.Client) *UserStore {
	return &UserStore{client: client}
}

func (s *UserStore) CreateUser(ctx context.Context, user domain.User) error {
	if !validID(user.ID) {
		return fmt.Errorf("%w: user id %q", domain.ErrInvalidInput, user.ID)
	}
	payload, err := json.Marshal(user)
	if err != nil {
		return err
	}
	keys := []string{userKey(user.ID)}
	if user.Email != "" {
		keys = append(keys, emailKey(user.Email))
	}

	return s.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, keys...).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return domain.ErrUserExists
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, keys[0], payload, 0)
			if len(keys) > 1 {
				pipe.Set(ctx, keys[1], user.ID, 0)
			}
			return nil
		})
		if errors.Is(err, redis.TxFailedErr) {
			// someone created the same id or email concurrently
			return domain.ErrUserExists
		}
		return err
	}, keys...)
}

func (s *UserStore) LoadUser(ctx context.Context, userID string) (domain.User, error) {
	return loadUser(ctx, s.client, userID)
}

func (s *UserStore) LoadCompletionSet(ctx context.Context, userID string) (domain.TopicSet, error) {
	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}
	return loadCompleted(ctx, s.client, userID)
}

func (s *UserStore) LoadDailyLedgerEntry(ctx context.Context, userID string) (*domain.Day, error) {
	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}
	return loadDaily(ctx, s.client, userID)
}

func (s *UserStore) ListProgress(ctx context.Context, userID string) ([]domain.ProgressRecord, error) {
	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}
	raw, err := s.client.LRange(ctx, progressKey(userID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	records := make([]domain.ProgressRecord, 0, len(raw))
	for _, item := range raw {
		var rec domain.ProgressRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("decode progress record: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *UserStore) Update(ctx context.Context, userID string, fn func(state *app.UserState) error) error {
	keys := []string{userKey(userID), completedKey(userID), dailyKey(userID)}
	txf := func(tx *redis.Tx) error {
		state, err := loadState(ctx, tx, userID)
		if err != nil {
			return err
		}
		before := state.Completed.Clone()
		if err := fn(state); err != nil {
			return err
		}

		payload, err := json.Marshal(state.User)
		if err != nil {
			return err
		}
		var record []byte
		if state.Record != nil {
			if record, err = json.Marshal(state.Record); err != nil {
				return err
			}
		}
		var added []interface{}
		for id := range state.Completed {
			if !before.Has(id) {
				added = append(added, id)
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, userKey(userID), payload, 0)
			if len(added) > 0 {
				pipe.SAdd(ctx, completedKey(userID), added...)
			}
			if state.LastDaily != nil {
				pipe.Set(ctx, dailyKey(userID), state.LastDaily.String(), 0)
			}
			if record != nil {
				pipe.RPush(ctx, progressKey(userID), record)
			}
			return nil
		})
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := s.client.Watch(ctx, txf, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrContention
}

func (s *UserStore) ensureUser(ctx context.Context, userID string) error {
	if !validID(userID) {
		return domain.ErrUserNotFound
	}
	n, err := s.client.Exists(ctx, userKey(userID)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func loadState(ctx context.Context, c redis.Cmdable, userID string) (*app.UserState, error) {
	user, err := loadUser(ctx, c, userID)
	if err != nil {
		return nil, err
	}
	completed, err := loadCompleted(ctx, c, userID)
	if err != nil {
		return nil, err
	}
	last, err := loadDaily(ctx, c, userID)
	if err != nil {
		return nil, err
	}
	return &app.UserState{User: user, Completed: completed, LastDaily: last}, nil
}

func loadUser(ctx context.Context, c redis.Cmdable, userID string) (domain.User, error) {
	if !validID(userID) {
		return domain.User{}, domain.ErrUserNotFound
	}
	raw, err := c.Get(ctx, userKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, err
	}
	var user domain.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return domain.User{}, fmt.Errorf("decode user %s: %w", userID, err)
	}
	return user, nil
}

func loadCompleted(ctx context.Context, c redis.Cmdable, userID string) (domain.TopicSet, error) {
	members, err := c.SMembers(ctx, completedKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	return domain.NewTopicSet(members...), nil
}

func loadDaily(ctx context.Context, c redis.Cmdable, userID string) (*domain.Day, error) {
	raw, err := c.Get(ctx, dailyKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	day, err := domain.ParseDay(raw)
	if err != nil {
		return nil, fmt.Errorf("decode daily ledger for %s: %w", userID, err)
	}
	return &day, nil
}

func userKey(userID string) string      { return "user:" + userID }
func completedKey(userID string) string { return "user:" + userID + ":completed" }
func dailyKey(userID string) string     { return "user:" + userID + ":daily" }
func progressKey(userID string) string  { return "user:" + userID + ":progress" }
func emailKey(email string) string      { return "email:" + strings.ToLower(email) }

func validID(userID string) bool { return userID != "" && !strings.Contains(userID, ":") }
