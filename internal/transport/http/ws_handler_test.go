package http

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestWebSocketQuizFlow(t *testing.T) {
	srv := newTestServer(t)
	conn := dial(t, srv, "/ws/quiz?daily=true&userId=u1")

	_, payload := readNext(t, conn, "started")
	if payload["topicId"] != "cache" || payload["total"].(float64) != 2 || payload["disabled"] != false {
		t.Fatalf("unexpected started payload %v", payload)
	}

	// first question right, second wrong
	for i, option := range []int{0, 1} {
		send(t, conn, "select", map[string]any{"option": option})
		_, state := readNext(t, conn, "state")
		if state["selected"].(float64) != float64(option) {
			t.Fatalf("question %d: unexpected state %v", i, state)
		}

		send(t, conn, "submit", nil)
		_, reveal := readNext(t, conn, "revealed")
		if reveal["correct"] != (option == 0) || reveal["correctIndex"].(float64) != 0 {
			t.Fatalf("question %d: unexpected reveal %v", i, reveal)
		}

		send(t, conn, "next", nil)
		if i == 0 {
			readNext(t, conn, "state")
		}
	}

	_, done := readNext(t, conn, "complete")
	if done["finalCorrect"].(float64) != 1 || done["totalQuestions"].(float64) != 2 || done["percentage"].(float64) != 50 {
		t.Fatalf("unexpected completion %v", done)
	}
	if done["celebrate"] != false || done["newStreak"].(float64) != 1 || done["streakIncreased"] != true {
		t.Fatalf("unexpected streak fields %v", done)
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Fatalf("expected normal close after completion, got %v", err)
	}

	last, _ := srv.users.LoadDailyLedgerEntry(context.Background(), "u1")
	if last == nil || *last != srv.today {
		t.Fatalf("expected daily ledger written, got %v", last)
	}
	if srv.sessions.Len() != 0 {
		t.Fatalf("expected session dropped, %d left", srv.sessions.Len())
	}
}

func TestWebSocketRejectsIllegalTransitions(t *testing.T) {
	srv := newTestServer(t)
	conn := dial(t, srv, "/ws/quiz?topicId=lb&userId=u1")
	readNext(t, conn, "started")

	send(t, conn, "submit", nil)
	_, msg := readNext(t, conn, "error")
	if !strings.Contains(msg["message"].(string), "no option selected") {
		t.Fatalf("unexpected error %v", msg)
	}

	send(t, conn, "select", map[string]any{"option": 9})
	readNext(t, conn, "error")

	send(t, conn, "dance", nil)
	readNext(t, conn, "error")

	// leaving mid-quiz drops the session
	conn.Close()
	deadline := time.Now().Add(5 * time.Second)
	for srv.sessions.Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if srv.sessions.Len() != 0 {
		t.Fatalf("expected abandoned session removed")
	}
}

func TestWebSocketRequiresUser(t *testing.T) {
	srv := newTestServer(t)
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/quiz?daily=true"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", resp)
	}
}

func dial(t *testing.T, srv *testServer, path string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": typ, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

func readNext(t *testing.T, conn *websocket.Conn, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s (%v)", expect, msg.Type, msg.Payload)
	}
	return msg.Type, msg.Payload
}
