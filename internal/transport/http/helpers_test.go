package http

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"sysdesign-quiz-service/internal/app"
	"sysdesign-quiz-service/internal/domain"
	"sysdesign-quiz-service/internal/infra/memory"
)

type testServer struct {
	*httptest.Server
	users    *memory.UserStore
	sessions *memory.SessionStore
	today    domain.Day
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	today, _ := domain.ParseDay("2024-03-10")
	clock := func() domain.Day { return today }

	users := memory.NewUserStore()
	sessions := memory.NewSessionStore()
	catalog := app.NewCatalog(memory.NewTopicRepository(memory.NewStaticTopicLoader(sampleTopics()), time.Minute))
	streaks := app.NewStreakService(users, catalog, app.StreakConfig{})
	quizzes := app.NewQuizService(sessions, catalog, streaks, nil, nil)

	router := NewRouter(
		NewAPIHandler(streaks, catalog, clock, nil),
		NewWSHandler(quizzes, clock, nil),
		nil,
		nil,
	)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	if err := users.CreateUser(context.Background(), domain.User{ID: "u1", Email: "u1@example.com", Username: "u1"}); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return &testServer{Server: srv, users: users, sessions: sessions, today: today}
}

// sampleTopics has two topics; on 2024-03-10 (day 70) the daily topic is "cache".
func sampleTopics() []domain.Topic {
	mk := func(id, title, created string) domain.Topic {
		day, _ := domain.ParseDay(created)
		topic := domain.Topic{ID: id, Title: title, Difficulty: domain.Beginner, CreatedAt: day}
		for i := 1; i <= 2; i++ {
			topic.Questions = append(topic.Questions, domain.Question{
				ID:           fmt.Sprintf("%s-%d", id, i),
				TopicID:      id,
				Prompt:       fmt.Sprintf("%s question %d", title, i),
				Options:      []string{"right", "wrong"},
				CorrectIndex: 0,
				Explanation:  "the first option is right",
			})
		}
		return topic
	}
	return []domain.Topic{
		mk("lb", "Load Balancing", "2024-01-01"),
		mk("cache", "Caching", "2024-01-02"),
	}
}
