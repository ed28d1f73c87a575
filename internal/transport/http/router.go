package http

import (
	"net/http"
)

// Middleware wraps a handler registered under route (e.g. metrics instrumentation).
type Middleware func(route string, h http.Handler) http.Handler

// NewRouter mounts the REST API, the websocket endpoint and the ops endpoints.
// metricsHandler may be nil.
func NewRouter(api *APIHandler, ws *WSHandler, metricsHandler http.Handler, mw Middleware) *http.ServeMux {
	if mw == nil {
		mw = func(_ string, h http.Handler) http.Handler { return h }
	}
	mux := http.NewServeMux()
	handle := func(method, route string, fn http.HandlerFunc) {
		mux.Handle(method+" "+route, mw(route, fn))
	}

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	if metricsHandler != nil {
		mux.Handle("GET /metrics", metricsHandler)
	}

	handle(http.MethodPost, "/api/users", api.Signup)
	handle(http.MethodGet, "/api/users/profile", api.Profile)
	handle(http.MethodGet, "/api/users/progress", api.Progress)
	handle(http.MethodGet, "/api/users/activity", api.Activity)

	handle(http.MethodGet, "/api/topics", api.Topics)
	handle(http.MethodGet, "/api/topics/daily", api.DailyTopic)
	handle(http.MethodGet, "/api/topics/{id}", api.Topic)
	handle(http.MethodGet, "/api/topics/{id}/completed", api.TopicCompleted)

	handle(http.MethodPost, "/api/quizzes/daily/submit", api.SubmitDaily)
	handle(http.MethodPost, "/api/quizzes/practice/submit", api.SubmitPractice)

	handle(http.MethodGet, "/ws/quiz", ws.ServeWS)
	return mux
}
