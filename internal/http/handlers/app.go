package handlers

import (
	"encoding/json"
	"net/http"
	"sync"

	"polylingo/internal/domain"
	"polylingo/internal/feed"
	"polylingo/internal/infra"
	"polylingo/internal/middleware"
)

// App bundles the dependencies shared by all HTTP handlers.
type App struct {
	Config       *infra.Config
	Logger       infra.Logger
	Users        domain.UserRepository
	Lessons      domain.LessonRepository
	Translations domain.TranslationRepository
	Generator    domain.Generator
	Billing      domain.SubscriptionChecker
	Feed         *feed.Hub
	OIDC         *OIDCAuthenticator

	pending inflight
}

type errorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]errorBody{"error": {Code: errCode, Message: message}})
}

// fieldErrors reports validation problems keyed by the offending field.
func (a *App) fieldErrors(w http.ResponseWriter, fields map[string]string) {
	a.json(w, http.StatusBadRequest, map[string]errorBody{"error": {
		Code:    "validation",
		Message: "invalid input",
		Fields:  fields,
	}})
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}

// currentUser loads the signed-in user with their profile entitlement.
// The pro flag always comes from the profile row, never from the session.
func (a *App) currentUser(r *http.Request) (*domain.User, bool) {
	userID := a.currentUserID(r)
	if userID == "" {
		return nil, false
	}
	user, err := a.Users.GetByID(r.Context(), userID)
	if err != nil {
		return nil, false
	}
	return user, true
}

// inflight is the per-(user, panel) mutual-exclusion signal: each panel
// allows one generation request at a time, mirroring the pending flag the
// client renders. It is a guard, not a lock; callers bail out instead of
// waiting.
type inflight struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func (p *inflight) tryAcquire(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.keys == nil {
		p.keys = make(map[string]struct{})
	}
	if _, busy := p.keys[key]; busy {
		return false
	}
	p.keys[key] = struct{}{}
	return true
}

func (p *inflight) release(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.keys, key)
}
