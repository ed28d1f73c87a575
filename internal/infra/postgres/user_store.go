package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"sysdesign-quiz-service/internal/app"
	"sysdesign-quiz-service/internal/domain"
)

const uniqueViolation = "23505"

const userColumns = `id, email, username, role, daily_streak, practice_streak, best_daily_streak,
	best_practice_streak, topics_completed, total_quizzes, correct_answers,
	last_daily_completion, last_practice_completion, created_at`

// UserStore persists users, completions, the daily ledger and progress history.
// Update locks the user row (SELECT ... FOR UPDATE) for the whole read-modify-write.
type UserStore struct {
	pool *pgxpool.Pool
}

func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

func (s *UserStore) CreateUser(ctx context.Context, user domain.User) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		userArgs(user)...)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.ErrUserExists
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *UserStore) LoadUser(ctx context.Context, userID string) (domain.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID))
}

func (s *UserStore) LoadCompletionSet(ctx context.Context, userID string) (domain.TopicSet, error) {
	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}
	return loadCompleted(ctx, s.pool, userID)
}

func (s *UserStore) LoadDailyLedgerEntry(ctx context.Context, userID string) (*domain.Day, error) {
	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}
	return loadDaily(ctx, s.pool, userID)
}

func (s *UserStore) ListProgress(ctx context.Context, userID string) ([]domain.ProgressRecord, error) {
	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, topic_id, is_daily, correct_count, total_questions, day, completed_at
		FROM progress WHERE user_id = $1 ORDER BY completed_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	defer rows.Close()

	var records []domain.ProgressRecord
	for rows.Next() {
		var (
			rec domain.ProgressRecord
			day time.Time
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.TopicID, &rec.Daily, &rec.CorrectCount, &rec.TotalQuestions, &day, &rec.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		rec.Day = domain.DayOf(day)
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *UserStore) Update(ctx context.Context, userID string, fn func(state *app.UserState) error) error {
	return s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		user, err := scanUser(tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, userID))
		if err != nil {
			return err
		}
		completed, err := loadCompleted(ctx, tx, userID)
		if err != nil {
			return err
		}
		last, err := loadDaily(ctx, tx, userID)
		if err != nil {
			return err
		}

		state := &app.UserState{User: user, Completed: completed, LastDaily: last}
		before := completed.Clone()
		if err := fn(state); err != nil {
			return err
		}

		args := userArgs(state.User)
		if _, err := tx.Exec(ctx, `
			UPDATE users SET email = $2, username = $3, role = $4, daily_streak = $5,
				practice_streak = $6, best_daily_streak = $7, best_practice_streak = $8,
				topics_completed = $9, total_quizzes = $10, correct_answers = $11,
				last_daily_completion = $12, last_practice_completion = $13, created_at = $14
			WHERE id = $1`, args...); err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		for id := range state.Completed {
			if before.Has(id) {
				continue
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO user_completions (user_id, topic_id) VALUES ($1, $2)
				ON CONFLICT DO NOTHING`, userID, id); err != nil {
				return fmt.Errorf("insert completion: %w", err)
			}
		}
		if state.LastDaily != nil {
			if _, err := tx.Exec(ctx, `
				INSERT INTO daily_ledger (user_id, day) VALUES ($1, $2)
				ON CONFLICT (user_id) DO UPDATE SET day = EXCLUDED.day`,
				userID, state.LastDaily.Time()); err != nil {
				return fmt.Errorf("write daily ledger: %w", err)
			}
		}
		if r := state.Record; r != nil {
			if _, err := tx.Exec(ctx, `
				INSERT INTO progress (id, user_id, topic_id, is_daily, correct_count, total_questions, day, completed_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				r.ID, userID, r.TopicID, r.Daily, r.CorrectCount, r.TotalQuestions, r.Day.Time(), r.CompletedAt); err != nil {
				return fmt.Errorf("insert progress: %w", err)
			}
		}
		return nil
	})
}

func (s *UserStore) ensureUser(ctx context.Context, userID string) error {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}
	if !exists {
		return domain.ErrUserNotFound
	}
	return nil
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func loadCompleted(ctx context.Context, q querier, userID string) (domain.TopicSet, error) {
	rows, err := q.Query(ctx, `SELECT topic_id FROM user_completions WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("load completions: %w", err)
	}
	defer rows.Close()

	set := domain.TopicSet{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		set.Add(id)
	}
	return set, rows.Err()
}

func loadDaily(ctx context.Context, q querier, userID string) (*domain.Day, error) {
	var day time.Time
	err := q.QueryRow(ctx, `SELECT day FROM daily_ledger WHERE user_id = $1`, userID).Scan(&day)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load daily ledger: %w", err)
	}
	return domain.DayPtr(domain.DayOf(day)), nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var (
		user         domain.User
		role         string
		lastDaily    *time.Time
		lastPractice *time.Time
	)
	err := row.Scan(&user.ID, &user.Email, &user.Username, &role,
		&user.DailyStreak, &user.PracticeStreak, &user.BestDailyStreak, &user.BestPracticeStreak,
		&user.TopicsCompleted, &user.TotalQuizzes, &user.CorrectAnswers,
		&lastDaily, &lastPractice, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("scan user: %w", err)
	}
	user.Role = domain.Role(role)
	user.LastDailyCompletion = dayFromTime(lastDaily)
	user.LastPracticeCompletion = dayFromTime(lastPractice)
	return user, nil
}

func userArgs(u domain.User) []interface{} {
	return []interface{}{
		u.ID, strings.ToLower(u.Email), u.Username, string(u.Role),
		u.DailyStreak, u.PracticeStreak, u.BestDailyStreak, u.BestPracticeStreak,
		u.TopicsCompleted, u.TotalQuizzes, u.CorrectAnswers,
		timeFromDay(u.LastDailyCompletion), timeFromDay(u.LastPracticeCompletion), u.CreatedAt,
	}
}

func dayFromTime(t *time.Time) *domain.Day {
	if t == nil {
		return nil
	}
	return domain.DayPtr(domain.DayOf(*t))
}

func timeFromDay(d *domain.Day) *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time()
	return &t
}
