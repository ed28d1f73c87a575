package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"sysdesign-quiz-service/internal/domain"
)

func TestTopicRepositoryCaches(t *testing.T) {
	loader := &countingLoader{TopicLoader: NewStaticTopicLoader(sampleTopics())}
	repo := NewTopicRepository(loader, time.Minute)

	if _, err := repo.GetAllTopics(context.Background()); err != nil {
		t.Fatalf("get topics: %v", err)
	}
	if loader.count() != 1 {
		t.Fatalf("expected loader once, got %d", loader.count())
	}

	if _, err := repo.GetTopic(context.Background(), "2"); err != nil {
		t.Fatalf("get topic: %v", err)
	}
	if loader.count() != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.count())
	}
}

func TestTopicRepositoryOrdersByCreationDay(t *testing.T) {
	repo := NewTopicRepository(NewStaticTopicLoader(sampleTopics()), time.Minute)

	topics, err := repo.GetAllTopics(context.Background())
	if err != nil {
		t.Fatalf("get topics: %v", err)
	}
	got := []string{topics[0].ID, topics[1].ID, topics[2].ID}
	want := []string{"1", "2", "3"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}
}

func TestTopicRepositoryExpires(t *testing.T) {
	loader := &countingLoader{TopicLoader: NewStaticTopicLoader(sampleTopics())}
	repo := NewTopicRepository(loader, time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	repo.clock = func() time.Time { return now }

	_, _ = repo.GetAllTopics(context.Background())
	now = now.Add(2 * time.Minute) // beyond ttl + 10% jitter
	_, _ = repo.GetAllTopics(context.Background())

	if loader.count() != 2 {
		t.Fatalf("expected reload after expiry, loader calls %d", loader.count())
	}
}

func TestTopicRepositoryUnknownTopic(t *testing.T) {
	repo := NewTopicRepository(NewStaticTopicLoader(sampleTopics()), time.Minute)
	if _, err := repo.GetTopic(context.Background(), "missing"); !errors.Is(err, domain.ErrTopicNotFound) {
		t.Fatalf("expected topic not found, got %v", err)
	}
}

func TestTopicRepositoryReturnsCopies(t *testing.T) {
	repo := NewTopicRepository(NewStaticTopicLoader(sampleTopics()), time.Minute)
	topics, _ := repo.GetAllTopics(context.Background())
	topics[0] = domain.Topic{ID: "mutated"}

	again, _ := repo.GetAllTopics(context.Background())
	if again[0].ID != "1" {
		t.Fatalf("cache was mutated through returned slice: %q", again[0].ID)
	}
}

type countingLoader struct {
	TopicLoader
	mu    sync.Mutex
	calls int
}

func (l *countingLoader) LoadTopics(ctx context.Context) ([]domain.Topic, error) {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	return l.TopicLoader.LoadTopics(ctx)
}

func (l *countingLoader) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func sampleTopics() []domain.Topic {
	day := func(s string) domain.Day {
		d, _ := domain.ParseDay(s)
		return d
	}
	// deliberately out of order
	return []domain.Topic{
		{ID: "3", Title: "Message Queues", CreatedAt: day("2024-01-03")},
		{ID: "1", Title: "Load Balancing", CreatedAt: day("2024-01-01")},
		{
			ID:        "2",
			Title:     "Caching",
			CreatedAt: day("2024-01-02"),
			Questions: []domain.Question{
				{ID: "q2-1", TopicID: "2", Prompt: "What does TTL stand for?", Options: []string{"Time To Live", "Total Transfer Load"}, CorrectIndex: 0},
			},
		},
	}
}
