package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"sysdesign-quiz-service/internal/domain"
	"sysdesign-quiz-service/internal/infra/memory"
)

const catalogKey = "topics:catalog"

// TopicLoader fetches the topic catalog from a backing store (e.g., Postgres).
type TopicLoader interface {
	LoadTopics(ctx context.Context) ([]domain.Topic, error)
}

// TopicRepository caches the catalog in Redis and falls back to a loader on cache miss.
// The catalog is stored as one JSON document: SET topics:catalog [...] EX ttl
type TopicRepository struct {
	client *redis.Client
	loader TopicLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewTopicRepository(client *redis.Client, loader TopicLoader, ttl time.Duration) *TopicRepository {
	return &TopicRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *TopicRepository) GetAllTopics(ctx context.Context) ([]domain.Topic, error) {
	if topics, ok := r.cached(ctx); ok {
		return topics, nil
	}

	result, err, _ := r.sf.Do(catalogKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if topics, ok := r.cached(ctx); ok {
			return topics, nil
		}

		topics, err := r.loader.LoadTopics(ctx)
		if err != nil {
			return nil, err
		}
		memory.SortTopics(topics)

		if payload, err := json.Marshal(topics); err == nil {
			_ = r.client.Set(ctx, catalogKey, payload, r.ttlWithJitter()).Err()
		}
		return topics, nil
	})
	if err != nil {
		return nil, err
	}
	cached := result.([]domain.Topic)
	out := make([]domain.Topic, len(cached))
	copy(out, cached)
	return out, nil
}

func (r *TopicRepository) GetTopic(ctx context.Context, topicID string) (domain.Topic, error) {
	topics, err := r.GetAllTopics(ctx)
	if err != nil {
		return domain.Topic{}, err
	}
	for _, t := range topics {
		if t.ID == topicID {
			return t, nil
		}
	}
	return domain.Topic{}, domain.ErrTopicNotFound
}

// Invalidate drops the cached catalog, e.g. after a seed.
func (r *TopicRepository) Invalidate(ctx context.Context) error {
	return r.client.Del(ctx, catalogKey).Err()
}

func (r *TopicRepository) cached(ctx context.Context) ([]domain.Topic, bool) {
	raw, err := r.client.Get(ctx, catalogKey).Bytes()
	if err != nil {
		// redis.Nil is a plain miss; anything else falls through to the loader too
		return nil, false
	}
	var topics []domain.Topic
	if err := json.Unmarshal(raw, &topics); err != nil {
		return nil, false
	}
	return topics, true
}

func (r *TopicRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
