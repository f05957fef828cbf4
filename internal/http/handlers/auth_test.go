package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"polylingo/internal/domain"
	"polylingo/internal/middleware"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var payload map[string]errorBody
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return payload["error"]
}

func TestSignUpSuccess(t *testing.T) {
	app, users, _, _, _ := newTestApp()

	body := `{"email":"ana@example.com","password":"longenough","confirmPassword":"longenough"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/signup", strings.NewReader(body))
	rec := httptest.NewRecorder()
	app.SignUp(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	var resp sessionResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("expected a session token")
	}
	if resp.User.Email != "ana@example.com" || resp.User.IsPro {
		t.Fatalf("user = %+v", resp.User)
	}
	if resp.User.Name != "ana" {
		t.Fatalf("name = %q, want ana", resp.User.Name)
	}
	if users.createCalls != 1 {
		t.Fatalf("createCalls = %d, want 1", users.createCalls)
	}

	cookies := rec.Result().Cookies()
	found := false
	for _, c := range cookies {
		if c.Name == middleware.SessionCookie && c.Value != "" {
			found = true
		}
	}
	if !found {
		t.Fatal("session cookie not set")
	}

	claims, err := middleware.VerifyJWT(app.Config.JWTSecret, resp.Token)
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if claims.Sub != resp.User.ID {
		t.Fatalf("claims.Sub = %q, want %q", claims.Sub, resp.User.ID)
	}
}

func TestSignUpPasswordMismatch(t *testing.T) {
	app, users, _, _, _ := newTestApp()

	body := `{"email":"ana@example.com","password":"longenough","confirmPassword":"different1"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/signup", strings.NewReader(body))
	rec := httptest.NewRecorder()
	app.SignUp(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	errBody := decodeError(t, rec)
	if errBody.Code != "validation" {
		t.Fatalf("code = %q, want validation", errBody.Code)
	}
	if errBody.Fields["confirmPassword"] != "Passwords don't match" {
		t.Fatalf("fields = %+v", errBody.Fields)
	}
	if users.createCalls != 0 {
		t.Fatalf("createCalls = %d, want 0", users.createCalls)
	}
}

func TestSignUpShortPassword(t *testing.T) {
	app, users, _, _, _ := newTestApp()

	body := `{"email":"ana@example.com","password":"short","confirmPassword":"short"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/signup", strings.NewReader(body))
	rec := httptest.NewRecorder()
	app.SignUp(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	errBody := decodeError(t, rec)
	if errBody.Fields["password"] != "Password must be at least 8 characters." {
		t.Fatalf("fields = %+v", errBody.Fields)
	}
	if users.createCalls != 0 {
		t.Fatalf("createCalls = %d, want 0", users.createCalls)
	}
}

func TestSignUpDuplicateEmail(t *testing.T) {
	app, users, _, _, _ := newTestApp()
	users.add(domain.User{ID: "u1", Email: "ana@example.com"})

	body := `{"email":"ana@example.com","password":"longenough","confirmPassword":"longenough"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/signup", strings.NewReader(body))
	rec := httptest.NewRecorder()
	app.SignUp(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if errBody := decodeError(t, rec); errBody.Code != "auth/email-already-in-use" {
		t.Fatalf("code = %q", errBody.Code)
	}
}

func TestSignUpPersistenceFailureIssuesNoSession(t *testing.T) {
	app, users, _, _, _ := newTestApp()
	users.createErr = domain.ErrPersistenceFailed

	body := `{"email":"ana@example.com","password":"longenough","confirmPassword":"longenough"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/signup", strings.NewReader(body))
	rec := httptest.NewRecorder()
	app.SignUp(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	errBody := decodeError(t, rec)
	if errBody.Code != "persistence" || errBody.Message != "Failed to save user to database." {
		t.Fatalf("error = %+v", errBody)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatal("no session cookie may be set on failure")
	}
}

func TestSignInSuccess(t *testing.T) {
	app, users, _, _, _ := newTestApp()
	hash, err := bcrypt.GenerateFromPassword([]byte("longenough"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	users.add(domain.User{ID: "u1", Email: "ana@example.com", Name: "ana"})
	users.credentials["ana@example.com"] = string(hash)

	body := `{"email":"ana@example.com","password":"longenough"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/signin", strings.NewReader(body))
	rec := httptest.NewRecorder()
	app.SignIn(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var resp sessionResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.User.ID != "u1" {
		t.Fatalf("user = %+v", resp.User)
	}
}

func TestSignInWrongPassword(t *testing.T) {
	app, users, _, _, _ := newTestApp()
	hash, err := bcrypt.GenerateFromPassword([]byte("longenough"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	users.add(domain.User{ID: "u1", Email: "ana@example.com"})
	users.credentials["ana@example.com"] = string(hash)

	body := `{"email":"ana@example.com","password":"wrongwrong"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/signin", strings.NewReader(body))
	rec := httptest.NewRecorder()
	app.SignIn(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if errBody := decodeError(t, rec); errBody.Code != "auth/invalid-credential" {
		t.Fatalf("code = %q", errBody.Code)
	}
}

func TestSignInUnknownEmail(t *testing.T) {
	app, _, _, _, _ := newTestApp()

	body := `{"email":"ghost@example.com","password":"longenough"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/signin", strings.NewReader(body))
	rec := httptest.NewRecorder()
	app.SignIn(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	app, _, _, _, _ := newTestApp()

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/logout", nil)
	rec := httptest.NewRecorder()
	app.Logout(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != middleware.SessionCookie || cookies[0].MaxAge != -1 {
		t.Fatalf("cookies = %+v", cookies)
	}
}

func TestMeReturnsProfileEntitlement(t *testing.T) {
	app, users, _, _, _ := newTestApp()
	users.add(domain.User{ID: "u1", Email: "ana@example.com", Name: "ana", IsPro: true})

	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req = req.WithContext(middleware.ContextWithUserID(req.Context(), "u1"))
	rec := httptest.NewRecorder()
	app.Me(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var dto userDTO
	if err := json.NewDecoder(rec.Body).Decode(&dto); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !dto.IsPro {
		t.Fatal("pro flag must come from the stored profile")
	}
}

func TestMeUnauthenticated(t *testing.T) {
	app, _, _, _, _ := newTestApp()

	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	rec := httptest.NewRecorder()
	app.Me(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
