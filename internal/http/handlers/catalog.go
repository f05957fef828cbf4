package handlers

import (
	"net/http"

	"polylingo/internal/catalog"
	"polylingo/internal/middleware"
)

type languagesResponse struct {
	Languages []catalog.Language `json:"languages"`
	Suggested string             `json:"suggested,omitempty"`
	Locale    string             `json:"locale"`
}

// ListLanguages returns the language catalog plus a suggested target based
// on the visitor's resolved country, when one of our languages is spoken
// there.
func (a *App) ListLanguages(w http.ResponseWriter, r *http.Request) {
	resp := languagesResponse{
		Languages: catalog.Languages,
		Locale:    middleware.LocaleFromContext(r.Context()),
	}
	if country := middleware.CountryFromContext(r.Context()); country != "" {
		if lang, ok := catalog.SuggestForRegion(country); ok {
			resp.Suggested = lang.Name
		}
	}
	a.json(w, http.StatusOK, resp)
}

// ListProficiencies returns the selectable proficiency levels in order.
func (a *App) ListProficiencies(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{"levels": catalog.ProficiencyLevels})
}
