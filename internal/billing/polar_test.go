package billing

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"polylingo/internal/domain"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func stubResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

// proRecorder records SetPro calls; the rest of the repository is unused by
// the billing client.
type proRecorder struct {
	mu     sync.Mutex
	pro    map[string]bool
	setErr error
}

func newProRecorder() *proRecorder {
	return &proRecorder{pro: make(map[string]bool)}
}

func (p *proRecorder) SetPro(ctx context.Context, userID string, isPro bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.setErr != nil {
		return p.setErr
	}
	p.pro[userID] = isPro
	return nil
}

func (p *proRecorder) Create(ctx context.Context, user *domain.User, passwordHash string) (*domain.User, error) {
	return nil, fmt.Errorf("not implemented")
}
func (p *proRecorder) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return nil, domain.ErrNotFound
}
func (p *proRecorder) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return nil, domain.ErrNotFound
}
func (p *proRecorder) CredentialsByEmail(ctx context.Context, email string) (string, string, error) {
	return "", "", domain.ErrNotFound
}
func (p *proRecorder) UpsertByEmail(ctx context.Context, user *domain.User) (*domain.User, error) {
	return nil, fmt.Errorf("not implemented")
}
func (p *proRecorder) TouchLastSeen(ctx context.Context, userID string) error { return nil }
func (p *proRecorder) ListRecentlyActive(ctx context.Context, since time.Time, limit int) ([]domain.User, error) {
	return nil, nil
}

func TestCheckSubscriptionActiveGrantsPro(t *testing.T) {
	users := newProRecorder()
	var gotPath, gotAuth string
	client := NewClient(Options{
		AccessToken: "polar-token",
		BaseURL:     "https://billing.test",
		Users:       users,
		Logger:      zerolog.Nop(),
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			gotPath = r.URL.Path
			gotAuth = r.Header.Get("Authorization")
			return stubResponse(http.StatusOK, `{"active_subscriptions":[{"status":"active"}]}`), nil
		})},
	})

	if err := client.CheckSubscription(context.Background(), "u1"); err != nil {
		t.Fatalf("CheckSubscription() error: %v", err)
	}
	if !users.pro["u1"] {
		t.Fatal("expected pro to be granted")
	}
	if gotPath != "/v1/customers/external/u1/state" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotAuth != "Bearer polar-token" {
		t.Fatalf("authorization = %q", gotAuth)
	}
}

func TestCheckSubscriptionNoActiveRevokesPro(t *testing.T) {
	users := newProRecorder()
	client := NewClient(Options{
		AccessToken: "t",
		Users:       users,
		Logger:      zerolog.Nop(),
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return stubResponse(http.StatusOK, `{"active_subscriptions":[{"status":"canceled"}]}`), nil
		})},
	})

	if err := client.CheckSubscription(context.Background(), "u1"); err != nil {
		t.Fatalf("CheckSubscription() error: %v", err)
	}
	if pro, ok := users.pro["u1"]; !ok || pro {
		t.Fatalf("pro = %v (set=%v), want explicit false", pro, ok)
	}
}

func TestCheckSubscriptionUnknownCustomer(t *testing.T) {
	users := newProRecorder()
	client := NewClient(Options{
		AccessToken: "t",
		Users:       users,
		Logger:      zerolog.Nop(),
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return stubResponse(http.StatusNotFound, `{"detail":"not found"}`), nil
		})},
	})

	if err := client.CheckSubscription(context.Background(), "u1"); err != nil {
		t.Fatalf("CheckSubscription() error: %v", err)
	}
	if pro := users.pro["u1"]; pro {
		t.Fatal("unknown customer must not be pro")
	}
}

func TestCheckSubscriptionBackendError(t *testing.T) {
	users := newProRecorder()
	client := NewClient(Options{
		AccessToken: "t",
		Users:       users,
		Logger:      zerolog.Nop(),
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return stubResponse(http.StatusBadGateway, `{}`), nil
		})},
	})

	if err := client.CheckSubscription(context.Background(), "u1"); err == nil {
		t.Fatal("expected an error from a failing backend")
	}
	if _, set := users.pro["u1"]; set {
		t.Fatal("entitlement must not change on backend failure")
	}
}

func TestCheckSubscriptionDisabledClient(t *testing.T) {
	users := newProRecorder()
	client := NewClient(Options{
		Users:  users,
		Logger: zerolog.Nop(),
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			t.Fatal("disabled client must not call the backend")
			return nil, nil
		})},
	})

	if client.Enabled() {
		t.Fatal("client without token must be disabled")
	}
	if err := client.CheckSubscription(context.Background(), "u1"); err != nil {
		t.Fatalf("CheckSubscription() error: %v", err)
	}
}

func TestCheckSubscriptionMissingProfileIsBenign(t *testing.T) {
	users := newProRecorder()
	users.setErr = domain.ErrNotFound
	client := NewClient(Options{
		AccessToken: "t",
		Users:       users,
		Logger:      zerolog.Nop(),
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return stubResponse(http.StatusOK, `{"active_subscriptions":[{"status":"active"}]}`), nil
		})},
	})

	if err := client.CheckSubscription(context.Background(), "u1"); err != nil {
		t.Fatalf("CheckSubscription() should swallow a missing profile: %v", err)
	}
}
