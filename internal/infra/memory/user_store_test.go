package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"sysdesign-quiz-service/internal/app"
	"sysdesign-quiz-service/internal/domain"
)

func TestUserStoreCreateAndLoad(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore()

	if err := store.CreateUser(ctx, domain.User{ID: "u1", Email: "Alice@example.com", Username: "alice"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.CreateUser(ctx, domain.User{ID: "u2", Email: "alice@example.com"}); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected duplicate email rejected, got %v", err)
	}

	user, err := store.LoadUser(ctx, "u1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if user.Username != "alice" {
		t.Fatalf("unexpected user %+v", user)
	}
	if _, err := store.LoadUser(ctx, "nobody"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	last, err := store.LoadDailyLedgerEntry(ctx, "u1")
	if err != nil || last != nil {
		t.Fatalf("expected empty ledger, got %v %v", last, err)
	}
}

func TestUserStoreUpdateIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore()
	_ = store.CreateUser(ctx, domain.User{ID: "u1"})

	boom := errors.New("boom")
	err := store.Update(ctx, "u1", func(state *app.UserState) error {
		state.User.TotalQuizzes = 99
		state.Completed.Add("t1")
		state.LastDaily = domain.DayPtr(10)
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}

	user, _ := store.LoadUser(ctx, "u1")
	set, _ := store.LoadCompletionSet(ctx, "u1")
	last, _ := store.LoadDailyLedgerEntry(ctx, "u1")
	if user.TotalQuizzes != 0 || len(set) != 0 || last != nil {
		t.Fatalf("failed update leaked state: user=%+v set=%v last=%v", user, set, last)
	}
}

func TestUserStoreUpdatePersists(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore()
	_ = store.CreateUser(ctx, domain.User{ID: "u1"})

	err := store.Update(ctx, "u1", func(state *app.UserState) error {
		state.User.TotalQuizzes++
		state.Completed.Add("t1")
		state.LastDaily = domain.DayPtr(42)
		state.Record = &domain.ProgressRecord{ID: "p1", UserID: "u1", TopicID: "t1", Day: 42}
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	user, _ := store.LoadUser(ctx, "u1")
	set, _ := store.LoadCompletionSet(ctx, "u1")
	last, _ := store.LoadDailyLedgerEntry(ctx, "u1")
	progress, _ := store.ListProgress(ctx, "u1")
	if user.TotalQuizzes != 1 || !set.Has("t1") || last == nil || *last != 42 || len(progress) != 1 {
		t.Fatalf("unexpected state: user=%+v set=%v last=%v progress=%v", user, set, last, progress)
	}
}

func TestUserStoreConcurrentUpdates(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore()
	_ = store.CreateUser(ctx, domain.User{ID: "u1"})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Update(ctx, "u1", func(state *app.UserState) error {
				state.User.TotalQuizzes++
				return nil
			})
		}()
	}
	wg.Wait()

	user, _ := store.LoadUser(ctx, "u1")
	if user.TotalQuizzes != 50 {
		t.Fatalf("expected 50 serialized increments, got %d", user.TotalQuizzes)
	}
}
