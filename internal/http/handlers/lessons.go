package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"polylingo/internal/catalog"
	"polylingo/internal/domain"
)

type generateLessonRequest struct {
	Topic       string             `json:"topic"`
	Proficiency domain.Proficiency `json:"proficiency"`
	Language    string             `json:"language"`
}

// GenerateLesson is the lesson panel action: entitlement gate, input guard,
// pending guard, then generate and append. The gate and guards fail before
// any generator or storage call is made.
func (a *App) GenerateLesson(w http.ResponseWriter, r *http.Request) {
	user, ok := a.currentUser(r)
	if !ok {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req generateLessonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.Language == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "language required")
		return
	}
	if req.Proficiency == "" {
		req.Proficiency = domain.ProficiencyBeginner
	}
	if !req.Proficiency.Valid() {
		a.error(w, http.StatusBadRequest, "bad_request", "unknown proficiency level")
		return
	}

	if !catalog.Permitted(*user, req.Language) {
		a.error(w, http.StatusForbidden, "entitlement_denied", domain.ErrEntitlementDenied.Error())
		return
	}
	if strings.TrimSpace(req.Topic) == "" {
		a.fieldErrors(w, map[string]string{"topic": "Please enter a topic."})
		return
	}

	pendingKey := user.ID + ":lesson"
	if !a.pending.tryAcquire(pendingKey) {
		a.error(w, http.StatusConflict, "pending", "a lesson is already being generated")
		return
	}
	defer a.pending.release(pendingKey)

	genCtx, cancel := context.WithTimeout(r.Context(), a.Config.GenerateTimeout)
	defer cancel()
	plan, err := a.Generator.GenerateLesson(genCtx, req.Topic, req.Proficiency, req.Language)
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", user.ID).Msg("lesson generation failed")
		a.error(w, http.StatusBadGateway, "generation_failed", "Failed to generate lesson")
		return
	}

	rec := &domain.LessonRecord{
		LessonPlan:  *plan,
		Topic:       req.Topic,
		Proficiency: req.Proficiency,
		Language:    req.Language,
		UserID:      user.ID,
	}
	if err := a.Lessons.Append(r.Context(), rec); err != nil {
		a.Logger.Error().Err(err).Str("user_id", user.ID).Msg("lesson append failed")
		a.error(w, http.StatusInternalServerError, "persistence", "failed to save lesson")
		return
	}

	a.json(w, http.StatusCreated, rec)
}

// ListLessons returns the user's lesson history for a language, newest first.
func (a *App) ListLessons(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	language := r.URL.Query().Get("language")
	if language == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "language required")
		return
	}
	records, err := a.Lessons.ListByPartition(r.Context(), userID, language)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		a.error(w, http.StatusInternalServerError, "internal", "failed to load lessons")
		return
	}
	if records == nil {
		records = []domain.LessonRecord{}
	}
	a.json(w, http.StatusOK, map[string]any{"items": records})
}
