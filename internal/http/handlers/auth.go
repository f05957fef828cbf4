package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"polylingo/internal/domain"
	"polylingo/internal/middleware"
)

const (
	tokenIssuer   = "polylingo"
	tokenAudience = "polylingo-web"
	tokenTTL      = 24 * time.Hour

	minPasswordLen = 8
)

// SignUpRequest and SignInRequest are distinct on purpose: the confirm
// field only exists in sign-up mode and each variant has its own rule set.
type SignUpRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token string  `json:"token"`
	User  userDTO `json:"user"`
}

type userDTO struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Image string `json:"image"`
	IsPro bool   `json:"isPro"`
}

func toUserDTO(u *domain.User) userDTO {
	return userDTO{ID: u.ID, Email: u.Email, Name: u.Name, Image: u.Picture, IsPro: u.IsPro}
}

func validateSignUp(req SignUpRequest) map[string]string {
	fields := map[string]string{}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		fields["email"] = "Email must be entered"
	}
	if len(req.Password) < minPasswordLen {
		fields["password"] = "Password must be at least 8 characters."
	}
	if len(req.ConfirmPassword) < minPasswordLen {
		fields["confirmPassword"] = "Password must be at least 8 characters."
	} else if req.Password != req.ConfirmPassword {
		fields["confirmPassword"] = "Passwords don't match"
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func validateSignIn(req SignInRequest) map[string]string {
	fields := map[string]string{}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		fields["email"] = "Email must be entered"
	}
	if len(req.Password) < minPasswordLen {
		fields["password"] = "Password must be at least 8 characters."
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// SignUp creates an account and its profile, then establishes the session.
// When the profile append fails, no session is issued: the user must not be
// observable as half-registered anywhere.
func (a *App) SignUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if fields := validateSignUp(req); fields != nil {
		a.fieldErrors(w, fields)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to process password")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	user := &domain.User{
		Email:    email,
		Name:     strings.SplitN(email, "@", 2)[0],
		Provider: domain.AuthProviderPassword,
	}
	created, err := a.Users.Create(r.Context(), user, string(hash))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmailTaken):
			a.error(w, http.StatusConflict, "auth/email-already-in-use", "email already registered")
		default:
			a.Logger.Error().Err(err).Msg("sign-up persistence failed")
			a.error(w, http.StatusInternalServerError, "persistence", "Failed to save user to database.")
		}
		return
	}

	a.establishSession(w, r, created, http.StatusCreated)
}

// SignIn exchanges credentials for a session.
func (a *App) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if fields := validateSignIn(req); fields != nil {
		a.fieldErrors(w, fields)
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	userID, hash, err := a.Users.CredentialsByEmail(r.Context(), email)
	if err != nil {
		a.error(w, http.StatusUnauthorized, "auth/invalid-credential", "invalid email or password")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)); err != nil {
		a.error(w, http.StatusUnauthorized, "auth/invalid-credential", "invalid email or password")
		return
	}

	user, err := a.Users.GetByID(r.Context(), userID)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to load user")
		return
	}
	a.establishSession(w, r, user, http.StatusOK)
}

// Logout clears the session cookie. This is the session teardown hook; the
// token itself simply expires.
func (a *App) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the session identity merged with the stored profile. Each call
// also kicks off a best-effort subscription refresh; its outcome is only
// visible on a later load.
func (a *App) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := a.currentUser(r)
	if !ok {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}

	if err := a.Users.TouchLastSeen(r.Context(), user.ID); err != nil {
		a.Logger.Warn().Err(err).Str("user_id", user.ID).Msg("touch last seen failed")
	}
	a.refreshSubscription(user.ID)

	a.json(w, http.StatusOK, toUserDTO(user))
}

// refreshSubscription runs the billing check detached from the request so a
// slow billing backend never delays a page load.
func (a *App) refreshSubscription(userID string) {
	if a.Billing == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := a.Billing.CheckSubscription(ctx, userID); err != nil {
			a.Logger.Warn().Err(err).Str("user_id", userID).Msg("subscription refresh failed")
		}
	}()
}

func (a *App) establishSession(w http.ResponseWriter, r *http.Request, user *domain.User, code int) {
	token, err := middleware.SignJWT(a.Config.JWTSecret, middleware.TokenClaims{
		Sub:      user.ID,
		Email:    user.Email,
		Name:     user.Name,
		Image:    user.Picture,
		Exp:      time.Now().Add(tokenTTL).Unix(),
		Issuer:   tokenIssuer,
		Audience: tokenAudience,
	})
	if err != nil {
		a.Logger.Error().Err(err).Msg("sign jwt failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to sign token")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(tokenTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})
	a.json(w, code, sessionResponse{Token: token, User: toUserDTO(user)})
}
