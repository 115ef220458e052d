// Package handler exposes the application over a JSON HTTP API: teacher
// configuration and results review, and the student test flow.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/schoolgenius/schoolgenius/internal/i18n"
	"github.com/schoolgenius/schoolgenius/internal/model"
	"github.com/schoolgenius/schoolgenius/internal/result"
	"github.com/schoolgenius/schoolgenius/internal/session"
	"github.com/schoolgenius/schoolgenius/internal/store"
)

// Generator produces question banks; satisfied by *generator.Client.
type Generator interface {
	Generate(ctx context.Context, subject, grade string, total int, onProgress func(int)) ([]model.Question, error)
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store    *store.Store
	gen      Generator
	recorder *result.Recorder
	validate *validator.Validate

	mu       sync.Mutex
	sessions map[string]*session.Session
}

// New creates a new Handler.
func New(s *store.Store, gen Generator) *Handler {
	return &Handler{
		store:    s,
		gen:      gen,
		recorder: result.New(s),
		validate: model.NewValidator(),
		sessions: make(map[string]*session.Session),
	}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/api/settings", h.handleGetSettings)
	r.Put("/api/settings", h.handleSaveSettings)
	r.Post("/api/settings/generate", h.handleGenerate)
	r.Get("/api/results", h.handleListResults)
	r.Delete("/api/results", h.handleClearResults)
	r.Post("/api/sessions", h.handleCreateSession)
	r.Get("/api/sessions/{sessionID}", h.handleGetSession)
	r.Post("/api/sessions/{sessionID}/answer", h.handleAnswer)
	r.Post("/api/sessions/{sessionID}/next", h.handleNext)
	r.Post("/api/sessions/{sessionID}/previous", h.handlePrevious)
	r.Post("/api/sessions/{sessionID}/submit", h.handleSubmit)
	r.Delete("/api/sessions/{sessionID}", h.handleDeleteSession)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// questionView is a question as shown to a student mid-test: the correct
// option index is never exposed while the session is in progress.
type questionView struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

type resultView struct {
	model.StudentResult
	Percent int    `json:"percent"`
	Message string `json:"message"`
}

type sessionView struct {
	ID               string        `json:"id"`
	State            string        `json:"state"`
	StudentName      string        `json:"studentName"`
	QuestionIndex    int           `json:"questionIndex"`
	QuestionCount    int           `json:"questionCount"`
	RemainingSeconds int           `json:"remainingSeconds"`
	Question         *questionView `json:"question,omitempty"`
	Answers          []int         `json:"answers"`
	Result           *resultView   `json:"result,omitempty"`
}

func (h *Handler) viewOf(ctx context.Context, id string, s *session.Session) sessionView {
	view := sessionView{
		ID:               id,
		State:            string(s.State()),
		StudentName:      s.StudentName(),
		QuestionIndex:    s.CurrentIndex(),
		QuestionCount:    s.QuestionCount(),
		RemainingSeconds: s.Remaining(),
		Answers:          s.Answers(),
	}
	switch s.State() {
	case session.StateInProgress:
		q := s.CurrentQuestion()
		view.Question = &questionView{ID: q.ID, Text: q.Text, Options: q.Options}
	case session.StateSubmitted:
		if res, ok := s.Result(); ok {
			view.Result = &resultView{
				StudentResult: res,
				Percent:       model.Percent(res.Score, res.TotalQuestions),
				Message:       i18n.Td(ctx, "test_submitted", map[string]any{"Name": res.StudentName}),
			}
		}
	}
	return view
}

func (h *Handler) session(id string) (*session.Session, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[id]
	return s, ok
}

func (h *Handler) lookupSession(w http.ResponseWriter, r *http.Request) (string, *session.Session, bool) {
	id := chi.URLParam(r, "sessionID")
	s, ok := h.session(id)
	if !ok {
		writeError(w, http.StatusNotFound, i18n.T(r.Context(), "session_not_found"))
		return "", nil, false
	}
	return id, s, true
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StudentName string `json:"studentName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	settings, err := h.store.Settings()
	if err != nil {
		slog.Error("load settings", "error", err)
		writeError(w, http.StatusInternalServerError, i18n.T(r.Context(), "storage_failure"))
		return
	}

	s := session.New(settings, h.recorder)
	if err := s.Start(req.StudentName); err != nil {
		switch {
		case errors.Is(err, session.ErrNoQuestions):
			writeError(w, http.StatusConflict, i18n.T(r.Context(), "no_test_available"))
		case errors.Is(err, session.ErrNameRequired):
			writeError(w, http.StatusUnprocessableEntity, i18n.T(r.Context(), "name_required"))
		default:
			slog.Error("start session", "error", err)
			writeError(w, http.StatusInternalServerError, i18n.T(r.Context(), "storage_failure"))
		}
		return
	}

	id := uuid.NewString()
	h.mu.Lock()
	h.sessions[id] = s
	h.mu.Unlock()

	s.StartCountdown()
	slog.Info("session started", "session_id", id, "student", s.StudentName(), "questions", s.QuestionCount())

	writeJSON(w, http.StatusCreated, h.viewOf(r.Context(), id, s))
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, s, ok := h.lookupSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.viewOf(r.Context(), id, s))
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	id, s, ok := h.lookupSession(w, r)
	if !ok {
		return
	}

	var req struct {
		Option int `json:"option"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.SelectOption(req.Option); err != nil {
		switch {
		case errors.Is(err, session.ErrInvalidOption):
			writeError(w, http.StatusUnprocessableEntity, i18n.T(r.Context(), "invalid_option"))
		default:
			writeError(w, http.StatusConflict, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, h.viewOf(r.Context(), id, s))
}

func (h *Handler) handleNext(w http.ResponseWriter, r *http.Request) {
	id, s, ok := h.lookupSession(w, r)
	if !ok {
		return
	}
	s.Next()
	writeJSON(w, http.StatusOK, h.viewOf(r.Context(), id, s))
}

func (h *Handler) handlePrevious(w http.ResponseWriter, r *http.Request) {
	id, s, ok := h.lookupSession(w, r)
	if !ok {
		return
	}
	s.Previous()
	writeJSON(w, http.StatusOK, h.viewOf(r.Context(), id, s))
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	id, s, ok := h.lookupSession(w, r)
	if !ok {
		return
	}

	if _, err := s.Submit(); err != nil {
		if errors.Is(err, session.ErrNotInProgress) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		slog.Error("submit session", "session_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, i18n.T(r.Context(), "storage_failure"))
		return
	}
	writeJSON(w, http.StatusOK, h.viewOf(r.Context(), id, s))
}

func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")

	h.mu.Lock()
	s, ok := h.sessions[id]
	delete(h.sessions, id)
	h.mu.Unlock()

	if ok {
		// Voluntary exit: stop the countdown, record nothing.
		s.Stop()
		slog.Info("session discarded", "session_id", id)
	}
	w.WriteHeader(http.StatusNoContent)
}
