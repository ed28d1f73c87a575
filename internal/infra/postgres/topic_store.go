package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"sysdesign-quiz-service/internal/domain"
)

// TopicStore loads and saves topic JSONB documents in Postgres.
type TopicStore struct {
	pool *pgxpool.Pool
}

func NewTopicStore(pool *pgxpool.Pool) *TopicStore {
	return &TopicStore{pool: pool}
}

// LoadTopics returns the whole catalog ordered by creation day, then id.
func (s *TopicStore) LoadTopics(ctx context.Context) ([]domain.Topic, error) {
	rows, err := s.pool.Query(ctx, `SELECT data FROM topics ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("load topics: %w", err)
	}
	defer rows.Close()

	var topics []domain.Topic
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan topic: %w", err)
		}
		var topic domain.Topic
		if err := json.Unmarshal(raw, &topic); err != nil {
			return nil, fmt.Errorf("unmarshal topic: %w", err)
		}
		topics = append(topics, topic)
	}
	return topics, rows.Err()
}

// SaveTopics upserts topics in one transaction.
func (s *TopicStore) SaveTopics(ctx context.Context, topics []domain.Topic) error {
	return s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		for _, t := range topics {
			data, err := json.Marshal(t)
			if err != nil {
				return fmt.Errorf("marshal topic %s: %w", t.ID, err)
			}
			_, err = tx.Exec(ctx, `
				INSERT INTO topics (id, created_at, data) VALUES ($1, $2, $3)
				ON CONFLICT (id) DO UPDATE SET created_at = EXCLUDED.created_at, data = EXCLUDED.data`,
				t.ID, t.CreatedAt.Time(), data)
			if err != nil {
				return fmt.Errorf("save topic %s: %w", t.ID, err)
			}
		}
		return nil
	})
}
