package handlers

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"polylingo/internal/domain"
	"polylingo/internal/infra"
)

const stateCookie = "polylingo_oauth_state"

// OIDCAuthenticator drives the Google sign-in flow. When no client ID is
// configured the routes respond 404 and the rest of the app runs unaffected.
type OIDCAuthenticator struct {
	provider *oidc.Provider
	verifier *oidc.IDTokenVerifier
	oauth    oauth2.Config
}

// NewOIDCAuthenticator discovers the issuer and builds the verifier. Returns
// (nil, nil) when social sign-in is not configured.
func NewOIDCAuthenticator(ctx context.Context, cfg *infra.Config) (*OIDCAuthenticator, error) {
	if cfg.OIDCClientID == "" {
		return nil, nil
	}
	provider, err := oidc.NewProvider(ctx, cfg.OIDCIssuer)
	if err != nil {
		return nil, err
	}
	return &OIDCAuthenticator{
		provider: provider,
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.OIDCClientID}),
		oauth: oauth2.Config{
			ClientID:     cfg.OIDCClientID,
			ClientSecret: cfg.OIDCClientSecret,
			RedirectURL:  cfg.OIDCRedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
	}, nil
}

func randomState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GoogleLogin redirects the browser to the provider's consent page.
func (a *App) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	if a.OIDC == nil {
		http.NotFound(w, r)
		return
	}
	state, err := randomState()
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to start sign-in")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})
	http.Redirect(w, r, a.OIDC.oauth.AuthCodeURL(state), http.StatusFound)
}

// GoogleCallback completes the flow: state check, code exchange, ID token
// verification, then upsert-by-email and session issue. Repeat sign-ins with
// the same email land on the same account.
func (a *App) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	if a.OIDC == nil {
		http.NotFound(w, r)
		return
	}
	stateC, err := r.Cookie(stateCookie)
	if err != nil || stateC.Value == "" || r.URL.Query().Get("state") != stateC.Value {
		a.error(w, http.StatusBadRequest, "auth/invalid-state", "state mismatch")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/", MaxAge: -1})

	token, err := a.OIDC.oauth.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		a.Logger.Warn().Err(err).Msg("oauth code exchange failed")
		a.error(w, http.StatusUnauthorized, "auth/invalid-credential", "code exchange failed")
		return
	}
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		a.error(w, http.StatusUnauthorized, "auth/invalid-credential", "missing id token")
		return
	}
	idToken, err := a.OIDC.verifier.Verify(r.Context(), rawIDToken)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("id token verification failed")
		a.error(w, http.StatusUnauthorized, "auth/invalid-credential", "invalid id token")
		return
	}

	var claims struct {
		Email    string `json:"email"`
		Verified bool   `json:"email_verified"`
		Name     string `json:"name"`
		Picture  string `json:"picture"`
	}
	if err := idToken.Claims(&claims); err != nil || claims.Email == "" {
		a.error(w, http.StatusUnauthorized, "auth/invalid-credential", "unusable id token claims")
		return
	}

	user, err := a.Users.UpsertByEmail(r.Context(), &domain.User{
		Email:    claims.Email,
		Name:     claims.Name,
		Picture:  claims.Picture,
		Provider: domain.AuthProviderGoogle,
	})
	if err != nil {
		a.Logger.Error().Err(err).Msg("social sign-in persistence failed")
		a.error(w, http.StatusInternalServerError, "persistence", "Failed to save user to database.")
		return
	}

	a.establishSession(w, r, user, http.StatusOK)
}
