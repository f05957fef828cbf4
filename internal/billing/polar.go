// Package billing syncs the pro entitlement from the Polar subscription
// backend. All calls are best-effort: failures are logged and the stored
// flag simply lags until the next refresh.
package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"polylingo/internal/domain"
)

// Options configures the Polar client.
type Options struct {
	AccessToken string
	BaseURL     string
	HTTPClient  *http.Client
	Users       domain.UserRepository
	Logger      zerolog.Logger
}

// Client checks a user's subscription state with Polar, keyed by our user
// id as the external customer id, and stores the result on the profile.
type Client struct {
	token   string
	baseURL string
	client  *http.Client
	users   domain.UserRepository
	logger  zerolog.Logger
}

type customerState struct {
	ActiveSubscriptions []struct {
		Status string `json:"status"`
	} `json:"active_subscriptions"`
}

// NewClient constructs a Polar client. An empty access token yields a
// disabled client whose checks are no-ops.
func NewClient(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.polar.sh"
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		token:   opts.AccessToken,
		baseURL: baseURL,
		client:  client,
		users:   opts.Users,
		logger:  opts.Logger,
	}
}

// Enabled reports whether the client is configured to talk to Polar.
func (c *Client) Enabled() bool {
	return c.token != ""
}

// CheckSubscription fetches the customer state for the user and updates the
// stored pro flag to match.
func (c *Client) CheckSubscription(ctx context.Context, userID string) error {
	if !c.Enabled() {
		c.logger.Debug().Str("user_id", userID).Msg("billing: disabled, skipping check")
		return nil
	}

	endpoint := fmt.Sprintf("%s/v1/customers/external/%s/state", c.baseURL, url.PathEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("billing: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("billing: fetch customer state: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		// No billing customer yet: not pro.
		return c.setPro(ctx, userID, false)
	case resp.StatusCode >= 300:
		return fmt.Errorf("billing: polar returned status %d", resp.StatusCode)
	}

	var state customerState
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return fmt.Errorf("billing: decode customer state: %w", err)
	}

	isPro := false
	for _, sub := range state.ActiveSubscriptions {
		if sub.Status == "active" || sub.Status == "trialing" {
			isPro = true
			break
		}
	}
	return c.setPro(ctx, userID, isPro)
}

func (c *Client) setPro(ctx context.Context, userID string, isPro bool) error {
	err := c.users.SetPro(ctx, userID, isPro)
	if errors.Is(err, domain.ErrNotFound) {
		// Profile row not created yet; the next page load will retry.
		return nil
	}
	return err
}

var _ domain.SubscriptionChecker = (*Client)(nil)
