package github

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := New(
		WithClientID("test-client"),
		WithDeviceURL(baseURL),
		WithAPIURL(baseURL),
		WithScopes([]string{"repo", "user"}),
	)
	require.NoError(t, err)
	return c
}

// pollServer replays scripted bodies for successive token polls.
func pollServer(t *testing.T, bodies []string) (*httptest.Server, *int) {
	t.Helper()
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/login/oauth/access_token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "test-client", r.FormValue("client_id"))
		assert.Equal(t, "urn:ietf:params:oauth:grant-type:device_code", r.FormValue("grant_type"))

		body := bodies[len(bodies)-1]
		if calls < len(bodies) {
			body = bodies[calls]
		}
		calls++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestStartDeviceFlow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/login/device/code", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "test-client", r.FormValue("client_id"))
		assert.Equal(t, "repo,user", r.FormValue("scope"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"device_code": "dc-1",
			"user_code": "ABCD-1234",
			"verification_uri": "https://github.com/login/device",
			"expires_in": 900,
			"interval": 5
		}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	session, err := c.StartDeviceFlow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "dc-1", session.DeviceCode)
	assert.Equal(t, "ABCD-1234", session.UserCode)
	assert.Equal(t, "https://github.com/login/device", session.VerificationURI)
	assert.Equal(t, 5*time.Second, session.Interval)
	assert.Equal(t, StateAwaiting, session.State())
	assert.False(t, session.ExpiresAt.IsZero())
}

func TestStartDeviceFlowDefaultsInterval(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"device_code": "dc-1", "user_code": "ABCD-1234"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	session, err := c.StartDeviceFlow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, defaultPollInterval, session.Interval)
	assert.True(t, session.ExpiresAt.IsZero())
}

func TestStartDeviceFlowIncompleteResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.StartDeviceFlow(context.Background())
	assert.Error(t, err)
}

func TestPollForTokenPendingThenSuccess(t *testing.T) {
	srv, calls := pollServer(t, []string{
		`{"error": "authorization_pending"}`,
		`{"error": "authorization_pending"}`,
		`{"access_token": "gho_abc", "token_type": "bearer", "scope": "repo,user"}`,
	})

	c := newTestClient(t, srv.URL)
	session := &DeviceSession{DeviceCode: "dc-1", Interval: time.Millisecond}
	token, err := c.PollForToken(context.Background(), session)
	require.NoError(t, err)
	assert.Equal(t, "gho_abc", token.Token.AccessToken)
	assert.Equal(t, "bearer", token.Token.TokenType)
	assert.Equal(t, "repo,user", token.Scope)
	assert.Equal(t, StateSucceeded, session.State())
	assert.Equal(t, 2, session.Attempts())
	assert.Equal(t, 3, *calls)
}

func TestPollForTokenDeniedImmediately(t *testing.T) {
	srv, calls := pollServer(t, []string{`{"error": "access_denied"}`})

	c := newTestClient(t, srv.URL)
	session := &DeviceSession{DeviceCode: "dc-1", Interval: time.Millisecond}
	_, err := c.PollForToken(context.Background(), session)
	assert.ErrorIs(t, err, ErrDenied)
	assert.Equal(t, StateDenied, session.State())
	assert.Equal(t, 1, *calls)
}

func TestPollForTokenExpiredCode(t *testing.T) {
	srv, _ := pollServer(t, []string{`{"error": "expired_token"}`})

	c := newTestClient(t, srv.URL)
	session := &DeviceSession{DeviceCode: "dc-1", Interval: time.Millisecond}
	_, err := c.PollForToken(context.Background(), session)
	assert.ErrorIs(t, err, ErrExpired)
	assert.Equal(t, StateExpired, session.State())
}

func TestPollForTokenTimesOutAtAttemptCap(t *testing.T) {
	srv, calls := pollServer(t, []string{`{"error": "authorization_pending"}`})

	c := newTestClient(t, srv.URL)
	session := &DeviceSession{DeviceCode: "dc-1", Interval: time.Millisecond}
	_, err := c.PollForToken(context.Background(), session)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, StateFailed, session.State())
	assert.Equal(t, defaultMaxAttempts, *calls)
}

func TestPollForTokenCapsAttemptsByExpiry(t *testing.T) {
	srv, calls := pollServer(t, []string{`{"error": "authorization_pending"}`})

	c := newTestClient(t, srv.URL)
	session := &DeviceSession{
		DeviceCode: "dc-1",
		Interval:   time.Millisecond,
		ExpiresAt:  time.Now().Add(5 * time.Millisecond),
	}
	_, err := c.PollForToken(context.Background(), session)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, *calls, defaultMaxAttempts)
}

func TestPollForTokenContextCancel(t *testing.T) {
	srv, _ := pollServer(t, []string{`{"error": "authorization_pending"}`})

	c := newTestClient(t, srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	session := &DeviceSession{DeviceCode: "dc-1", Interval: time.Second}
	_, err := c.PollForToken(ctx, session)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StateFailed, session.State())
}

func TestClassifyPoll(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		outcome pollOutcome
	}{
		{"pending", `{"error": "authorization_pending"}`, pollPending},
		{"slow down", `{"error": "slow_down"}`, pollSlowDown},
		{"denied", `{"error": "access_denied"}`, pollDenied},
		{"expired", `{"error": "expired_token"}`, pollExpired},
		{"empty payload treated as pending", `{}`, pollPending},
		{"success", `{"access_token": "gho_abc", "token_type": "bearer"}`, pollSuccess},
		{"raw fallback", `error=authorization_pending&error_description=pending`, pollPending},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			outcome, token, err := classifyPoll([]byte(tc.body))
			require.NoError(t, err)
			assert.Equal(t, tc.outcome, outcome)
			if tc.outcome == pollSuccess {
				require.NotNil(t, token)
				assert.Equal(t, "gho_abc", token.Token.AccessToken)
			}
		})
	}
}

func TestClassifyPollUnknownError(t *testing.T) {
	_, _, err := classifyPoll([]byte(`{"error": "incorrect_client_credentials", "error_description": "bad client"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "incorrect_client_credentials")
}
