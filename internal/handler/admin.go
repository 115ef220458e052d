package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/schoolgenius/schoolgenius/internal/i18n"
	"github.com/schoolgenius/schoolgenius/internal/model"
)

// defaultGenerateCount matches the teacher dashboard's "Generate New Test"
// action, which requests a bank of 20 questions.
const defaultGenerateCount = 20

func (h *Handler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.store.Settings()
	if err != nil {
		slog.Error("load settings", "error", err)
		writeError(w, http.StatusInternalServerError, i18n.T(r.Context(), "storage_failure"))
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (h *Handler) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var settings model.TestSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.validateSettings(settings); err != nil {
		// Refuse the update wholesale; the stored document is untouched.
		slog.Warn("rejected settings update", "error", err)
		writeError(w, http.StatusUnprocessableEntity, i18n.T(r.Context(), "invalid_settings"))
		return
	}

	if err := h.store.SaveSettings(settings); err != nil {
		slog.Error("save settings", "error", err)
		writeError(w, http.StatusInternalServerError, i18n.T(r.Context(), "storage_failure"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": i18n.T(r.Context(), "settings_saved"),
	})
}

func (h *Handler) validateSettings(settings model.TestSettings) error {
	if err := h.validate.Struct(settings); err != nil {
		return err
	}
	for _, q := range settings.Questions {
		if err := h.validate.Var(q.Options, "len=4,dive,required"); err != nil {
			return err
		}
		if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
			return fmt.Errorf("question %q: correct answer index %d out of range", q.ID, q.CorrectAnswer)
		}
	}
	return nil
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Count <= 0 {
		req.Count = defaultGenerateCount
	}

	settings, err := h.store.Settings()
	if err != nil {
		slog.Error("load settings", "error", err)
		writeError(w, http.StatusInternalServerError, i18n.T(r.Context(), "storage_failure"))
		return
	}

	questions, err := h.gen.Generate(r.Context(), string(settings.Subject), settings.Grade, req.Count, func(n int) {
		slog.Info("generation progress", "generated", n, "requested", req.Count)
	})
	if err != nil {
		// Nothing is committed on failure; the stored bank is unchanged.
		slog.Error("generation failed", "subject", settings.Subject, "grade", settings.Grade, "error", err)
		writeError(w, http.StatusBadGateway, i18n.T(r.Context(), "generation_failed"))
		return
	}

	settings.Questions = questions
	if err := h.store.SaveSettings(settings); err != nil {
		slog.Error("save generated questions", "error", err)
		writeError(w, http.StatusInternalServerError, i18n.T(r.Context(), "storage_failure"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": i18n.Td(r.Context(), "generated_questions", map[string]any{
			"Count":   len(questions),
			"Subject": string(settings.Subject),
		}),
		"questions": questions,
	})
}

func (h *Handler) handleListResults(w http.ResponseWriter, r *http.Request) {
	results, err := h.store.Results()
	if err != nil {
		slog.Error("load results", "error", err)
		writeError(w, http.StatusInternalServerError, i18n.T(r.Context(), "storage_failure"))
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *Handler) handleClearResults(w http.ResponseWriter, r *http.Request) {
	if err := h.store.ClearResults(); err != nil {
		slog.Error("clear results", "error", err)
		writeError(w, http.StatusInternalServerError, i18n.T(r.Context(), "storage_failure"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": i18n.T(r.Context(), "results_cleared"),
	})
}
