package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"sysdesign-quiz-service/internal/app"
	"sysdesign-quiz-service/internal/domain"
)

// WSHandler runs one live quiz session per websocket connection.
type WSHandler struct {
	service  *app.QuizService
	today    func() domain.Day
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, today func() domain.Day, logger *zap.Logger) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSHandler{
		service: service,
		today:   today,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type selectPayload struct {
	Option *int `json:"option"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and drives a quiz session:
// select/submit/next in, started/state/revealed/complete/error out.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		uid = r.URL.Query().Get("userId")
	}
	topicID := r.URL.Query().Get("topicId")
	daily, _ := strconv.ParseBool(r.URL.Query().Get("daily"))
	if uid == "" {
		writeError(w, h.logger, domain.ErrUnauthenticated)
		return
	}
	if topicID == "" && !daily {
		http.Error(w, "missing topicId or daily=true", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx := r.Context()
	view, err := h.service.Start(ctx, uid, topicID, daily, h.today())
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	sessionID := view.SessionID
	completed := false
	defer func() {
		if !completed {
			h.service.Abandon(ctx, uid, sessionID)
		}
	}()

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})

	// single writer: gorilla connections do not support concurrent writes
	go func() {
		defer close(writerDone)
		failed := false
		for msg := range send {
			if failed {
				continue // drain so the reader never blocks
			}
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Debug("ws write error", zap.Error(err))
				failed = true
			}
		}
	}()

	sendErr := func(err error) {
		send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
	}

	send <- outboundMessage[any]{Type: "started", Payload: view}

	for !completed {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "select":
			var payload selectPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.Option == nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid select payload"}}
				continue
			}
			state, err := h.service.Select(ctx, uid, sessionID, *payload.Option)
			if err != nil {
				sendErr(err)
				continue
			}
			send <- outboundMessage[any]{Type: "state", Payload: state}
		case "submit":
			reveal, err := h.service.Submit(ctx, uid, sessionID)
			if err != nil {
				sendErr(err)
				continue
			}
			send <- outboundMessage[any]{Type: "revealed", Payload: reveal}
		case "next":
			step, err := h.service.Next(ctx, uid, sessionID, h.today())
			if err != nil {
				sendErr(err)
				continue
			}
			if step.Completion != nil {
				completed = true
				send <- outboundMessage[any]{Type: "complete", Payload: step.Completion}
				continue
			}
			send <- outboundMessage[any]{Type: "state", Payload: step.View}
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(send)
	<-writerDone
	if completed {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "quiz complete")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	}
}
