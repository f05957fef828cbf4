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

const baseLanguage = "English"

type translateRequest struct {
	Text      string `json:"text"`
	Language  string `json:"language"`
	Direction string `json:"direction"` // en-to-lang | lang-to-en
}

type translateResponse struct {
	TranslatedText string                    `json:"translated_text"`
	Record         *domain.TranslationRecord `json:"record"`
}

// Translate is the translator panel action. On success the translated text
// is returned directly for immediate display; the live feed catches up on
// its own once the insert notification lands.
func (a *App) Translate(w http.ResponseWriter, r *http.Request) {
	user, ok := a.currentUser(r)
	if !ok {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req translateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.Language == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "language required")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		a.fieldErrors(w, map[string]string{"text": "Please enter text to translate."})
		return
	}

	if !catalog.Permitted(*user, req.Language) {
		a.error(w, http.StatusForbidden, "entitlement_denied", domain.ErrEntitlementDenied.Error())
		return
	}

	sourceLang, targetLang := baseLanguage, req.Language
	if req.Direction == "lang-to-en" {
		sourceLang, targetLang = req.Language, baseLanguage
	}

	pendingKey := user.ID + ":translation"
	if !a.pending.tryAcquire(pendingKey) {
		a.error(w, http.StatusConflict, "pending", "a translation is already in progress")
		return
	}
	defer a.pending.release(pendingKey)

	genCtx, cancel := context.WithTimeout(r.Context(), a.Config.GenerateTimeout)
	defer cancel()
	translated, err := a.Generator.Translate(genCtx, req.Text, sourceLang, targetLang)
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", user.ID).Msg("translation failed")
		a.error(w, http.StatusBadGateway, "generation_failed", "Translation failed")
		return
	}

	rec := &domain.TranslationRecord{
		OriginalText:     req.Text,
		TranslatedText:   translated,
		SourceLangName:   sourceLang,
		TargetLangName:   targetLang,
		SelectedLanguage: req.Language,
		UserID:           user.ID,
	}
	if err := a.Translations.Append(r.Context(), rec); err != nil {
		a.Logger.Error().Err(err).Str("user_id", user.ID).Msg("translation append failed")
		a.error(w, http.StatusInternalServerError, "persistence", "failed to save translation")
		return
	}

	a.json(w, http.StatusOK, translateResponse{TranslatedText: translated, Record: rec})
}

// ListTranslations returns the user's translation history for a language,
// newest first.
func (a *App) ListTranslations(w http.ResponseWriter, r *http.Request) {
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
	records, err := a.Translations.ListByPartition(r.Context(), userID, language)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		a.error(w, http.StatusInternalServerError, "internal", "failed to load translations")
		return
	}
	if records == nil {
		records = []domain.TranslationRecord{}
	}
	a.json(w, http.StatusOK, map[string]any{"items": records})
}
