package memory

import (
	"testing"

	"sysdesign-quiz-service/internal/app"
)

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore()

	store.Put(&app.SessionEntry{ID: "s1", UserID: "u1"})
	entry, ok := store.Get("s1")
	if !ok {
		t.Fatalf("expected session present")
	}
	if entry.UserID != "u1" {
		t.Fatalf("expected owner u1, got %q", entry.UserID)
	}
	if store.Len() != 1 {
		t.Fatalf("expected 1 session, got %d", store.Len())
	}

	store.Delete("s1")
	if _, ok := store.Get("s1"); ok {
		t.Fatalf("expected session removed")
	}
	store.Delete("s1") // deleting twice is harmless
}
