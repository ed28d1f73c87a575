package memory

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"sysdesign-quiz-service/internal/domain"
)

const catalogKey = "catalog"

// TopicLoader fetches the whole topic catalog from a backing store.
type TopicLoader interface {
	LoadTopics(ctx context.Context) ([]domain.Topic, error)
}

// TopicRepository caches the catalog with TTL to avoid repeated DB hits.
type TopicRepository struct {
	loader TopicLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu        sync.RWMutex
	topics    []domain.Topic
	byID      map[string]int
	expiresAt time.Time
	loaded    bool
}

func NewTopicRepository(loader TopicLoader, ttl time.Duration) *TopicRepository {
	return &TopicRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *TopicRepository) GetAllTopics(ctx context.Context) ([]domain.Topic, error) {
	topics, _, err := r.catalog(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Topic, len(topics))
	copy(out, topics)
	return out, nil
}

func (r *TopicRepository) GetTopic(ctx context.Context, topicID string) (domain.Topic, error) {
	topics, byID, err := r.catalog(ctx)
	if err != nil {
		return domain.Topic{}, err
	}
	i, ok := byID[topicID]
	if !ok {
		return domain.Topic{}, domain.ErrTopicNotFound
	}
	return topics[i], nil
}

func (r *TopicRepository) catalog(ctx context.Context) ([]domain.Topic, map[string]int, error) {
	if topics, byID, ok := r.cached(); ok {
		return topics, byID, nil
	}

	_, err, _ := r.sf.Do(catalogKey, func() (interface{}, error) {
		// another caller may have filled the cache while we waited
		if _, _, ok := r.cached(); ok {
			return nil, nil
		}
		topics, err := r.loader.LoadTopics(ctx)
		if err != nil {
			return nil, err
		}
		SortTopics(topics)
		byID := make(map[string]int, len(topics))
		for i, t := range topics {
			byID[t.ID] = i
		}

		r.mu.Lock()
		r.topics = topics
		r.byID = byID
		r.expiresAt = r.clock().Add(r.ttlWithJitter())
		r.loaded = true
		r.mu.Unlock()
		return nil, nil
	})
	if err != nil {
		return nil, nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.topics, r.byID, nil
}

func (r *TopicRepository) cached() ([]domain.Topic, map[string]int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.loaded {
		return nil, nil, false
	}
	// a non-positive ttl caches forever
	if r.ttl > 0 && !r.expiresAt.After(r.clock()) {
		return nil, nil, false
	}
	return r.topics, r.byID, true
}

// SortTopics orders a catalog by creation day, then ID.
func SortTopics(topics []domain.Topic) {
	sort.SliceStable(topics, func(i, j int) bool {
		if topics[i].CreatedAt != topics[j].CreatedAt {
			return topics[i].CreatedAt < topics[j].CreatedAt
		}
		return topics[i].ID < topics[j].ID
	})
}

// StaticTopicLoader is a simple loader backed by an in-memory slice (useful for tests/demos).
type StaticTopicLoader struct {
	topics []domain.Topic
}

func NewStaticTopicLoader(topics []domain.Topic) *StaticTopicLoader {
	return &StaticTopicLoader{topics: topics}
}

func (l *StaticTopicLoader) LoadTopics(_ context.Context) ([]domain.Topic, error) {
	out := make([]domain.Topic, len(l.topics))
	copy(out, l.topics)
	return out, nil
}

func (r *TopicRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
