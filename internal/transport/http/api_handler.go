package http

import (
	"net/http"

	"go.uber.org/zap"

	"sysdesign-quiz-service/internal/app"
	"sysdesign-quiz-service/internal/domain"
)

// APIHandler serves the JSON endpoints for users, topics and quiz submissions.
type APIHandler struct {
	streaks *app.StreakService
	catalog *app.Catalog
	today   func() domain.Day
	logger  *zap.Logger
}

// NewAPIHandler builds the REST handler. today resolves the calendar day of a request.
func NewAPIHandler(streaks *app.StreakService, catalog *app.Catalog, today func() domain.Day, logger *zap.Logger) *APIHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIHandler{streaks: streaks, catalog: catalog, today: today, logger: logger}
}

type signupRequest struct {
	Email    string      `json:"email"`
	Username string      `json:"username"`
	Role     domain.Role `json:"role"`
}

type dailySubmitRequest struct {
	CorrectCount   int `json:"correctCount"`
	TotalQuestions int `json:"totalQuestions"`
}

type practiceSubmitRequest struct {
	TopicID        string `json:"topicId"`
	CorrectCount   int    `json:"correctCount"`
	TotalQuestions int    `json:"totalQuestions"`
}

type dailyTopic struct {
	domain.Topic
	HasCompleted bool `json:"hasCompleted"`
}

func (h *APIHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	user, err := h.streaks.Register(r.Context(), req.Email, req.Username, req.Role)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"user": user})
}

func (h *APIHandler) Profile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.streaks.Profile(r.Context(), userID(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": profile})
}

func (h *APIHandler) Progress(w http.ResponseWriter, r *http.Request) {
	records, err := h.streaks.Progress(r.Context(), userID(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if records == nil {
		records = []domain.ProgressRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"progress": records})
}

func (h *APIHandler) Activity(w http.ResponseWriter, r *http.Request) {
	days, err := h.streaks.Activity(r.Context(), userID(r), h.today())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"days": days})
}

func (h *APIHandler) Topics(w http.ResponseWriter, r *http.Request) {
	topics, err := h.streaks.TopicsFor(r.Context(), userID(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	// the listing is a summary; questions are fetched per topic
	for i := range topics {
		topics[i].Questions = nil
	}
	writeJSON(w, http.StatusOK, map[string]any{"topics": topics})
}

func (h *APIHandler) DailyTopic(w http.ResponseWriter, r *http.Request) {
	topic, done, err := h.streaks.DailyTopicFor(r.Context(), userID(r), h.today())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"topic": dailyTopic{Topic: topic, HasCompleted: done}})
}

func (h *APIHandler) Topic(w http.ResponseWriter, r *http.Request) {
	if userID(r) == "" {
		writeError(w, h.logger, domain.ErrUnauthenticated)
		return
	}
	topic, err := h.catalog.Topic(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"topic": topic})
}

func (h *APIHandler) TopicCompleted(w http.ResponseWriter, r *http.Request) {
	done, err := h.streaks.HasCompleted(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"completed": done})
}

func (h *APIHandler) SubmitDaily(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		writeError(w, h.logger, domain.ErrUnauthenticated)
		return
	}
	var req dailySubmitRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	res, err := h.streaks.SubmitDaily(r.Context(), uid, req.CorrectCount, req.TotalQuestions, h.today())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"newStreak":       res.NewStreak,
		"streakIncreased": res.StreakIncreased,
		"user":            res.User,
	})
}

func (h *APIHandler) SubmitPractice(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		writeError(w, h.logger, domain.ErrUnauthenticated)
		return
	}
	var req practiceSubmitRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	res, err := h.streaks.SubmitPractice(r.Context(), uid, req.TopicID, req.CorrectCount, req.TotalQuestions, h.today())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"newStreak": res.NewStreak,
		"user":      res.User,
	})
}
