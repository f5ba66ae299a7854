package github

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// FlowState tracks where a device-flow session is in its lifecycle.
type FlowState string

const (
	StateIdle      FlowState = "idle"
	StateAwaiting  FlowState = "awaiting_user_authorization"
	StatePolling   FlowState = "polling"
	StateSucceeded FlowState = "succeeded"
	StateDenied    FlowState = "denied"
	StateExpired   FlowState = "expired"
	StateFailed    FlowState = "failed"
)

// defaultMaxAttempts bounds the poll loop when the provider does not echo an
// authoritative expiry: 60 attempts at the 5-second default interval is five
// minutes.
const (
	defaultMaxAttempts  = 60
	defaultPollInterval = 5 * time.Second
)

// DeviceSession is the in-memory state of one device authorization exchange.
// It does not survive process restart; abandoning it and starting over is the
// only resume semantics.
type DeviceSession struct {
	DeviceCode              string
	UserCode                string
	VerificationURI         string
	VerificationURIComplete string
	Interval                time.Duration
	ExpiresAt               time.Time

	state    FlowState
	attempts int
}

func (s *DeviceSession) State() FlowState { return s.state }
func (s *DeviceSession) Attempts() int    { return s.attempts }

// DeviceToken is the credential minted by a completed device flow.
type DeviceToken struct {
	Token *oauth2.Token
	Scope string
}

type deviceCodeResponse struct {
	DeviceCode              string `json:"device_code"`
	UserCode                string `json:"user_code"`
	VerificationURI         string `json:"verification_uri"`
	VerificationURIComplete string `json:"verification_uri_complete"`
	ExpiresIn               int    `json:"expires_in"`
	Interval                int    `json:"interval"`
}

type devicePollResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope"`
	Error       string `json:"error"`
	ErrorDesc   string `json:"error_description"`
}

// pollOutcome is the tagged classification of one poll response.
type pollOutcome int

const (
	pollPending pollOutcome = iota
	pollDenied
	pollExpired
	pollSlowDown
	pollSuccess
)

// StartDeviceFlow requests a device code from the provider and returns the
// session in the awaiting-user-authorization state. The caller surfaces
// UserCode and the verification URI to the user, then calls PollForToken.
func (c *Client) StartDeviceFlow(ctx context.Context) (*DeviceSession, error) {
	var payload deviceCodeResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", acceptJSON).
		SetFormData(map[string]string{
			"client_id": c.clientID,
			"scope":     strings.Join(c.scopes, ","),
		}).
		SetResult(&payload).
		Post(c.deviceURL + "/login/device/code")
	if err != nil {
		return nil, fmt.Errorf("device code request failed: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("device code request failed: %s: %s", resp.Status(), resp.String())
	}
	if payload.DeviceCode == "" || payload.UserCode == "" {
		return nil, fmt.Errorf("device code response is incomplete: %s", resp.String())
	}

	interval := time.Duration(payload.Interval) * time.Second
	if interval == 0 {
		interval = defaultPollInterval
	}
	session := &DeviceSession{
		DeviceCode:              payload.DeviceCode,
		UserCode:                payload.UserCode,
		VerificationURI:         payload.VerificationURI,
		VerificationURIComplete: payload.VerificationURIComplete,
		Interval:                interval,
		state:                   StateAwaiting,
	}
	if payload.ExpiresIn > 0 {
		session.ExpiresAt = time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second)
	}
	return session, nil
}

// PollForToken polls the token endpoint until the user completes
// authorization out-of-band. It sleeps the provider-supplied interval between
// attempts (the protocol already specifies the minimum spacing; no extra
// backoff is layered on top) and caps total attempts so the cumulative wait
// does not exceed the session expiry. Cancel the context to abandon the flow.
func (c *Client) PollForToken(ctx context.Context, session *DeviceSession) (*DeviceToken, error) {
	session.state = StatePolling
	maxAttempts := defaultMaxAttempts
	if !session.ExpiresAt.IsZero() {
		if budget := int(time.Until(session.ExpiresAt) / session.Interval); budget > 0 && budget < maxAttempts {
			maxAttempts = budget
		}
	}

	for {
		if session.attempts >= maxAttempts {
			session.state = StateFailed
			return nil, ErrTimeout
		}
		outcome, token, err := c.pollOnce(ctx, session.DeviceCode)
		if err != nil {
			session.state = StateFailed
			return nil, err
		}
		switch outcome {
		case pollSuccess:
			session.state = StateSucceeded
			return token, nil
		case pollDenied:
			session.state = StateDenied
			return nil, ErrDenied
		case pollExpired:
			session.state = StateExpired
			return nil, ErrExpired
		case pollSlowDown:
			session.Interval += 5 * time.Second
		}
		session.attempts++
		select {
		case <-ctx.Done():
			session.state = StateFailed
			return nil, ctx.Err()
		case <-time.After(session.Interval):
		}
	}
}

func (c *Client) pollOnce(ctx context.Context, deviceCode string) (pollOutcome, *DeviceToken, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", acceptJSON).
		SetFormData(map[string]string{
			"client_id":   c.clientID,
			"device_code": deviceCode,
			"grant_type":  "urn:ietf:params:oauth:grant-type:device_code",
		}).
		Post(c.deviceURL + "/login/oauth/access_token")
	if err != nil {
		return 0, nil, fmt.Errorf("token poll failed: %w", err)
	}
	if !resp.IsSuccess() {
		return 0, nil, fmt.Errorf("token poll failed: %s: %s", resp.Status(), resp.String())
	}
	return classifyPoll(resp.Body())
}

// classifyPoll decodes a poll response into its tagged outcome. Responses are
// classified structurally; matching on the raw body is kept only as a
// fallback for bodies that do not decode as JSON.
func classifyPoll(body []byte) (pollOutcome, *DeviceToken, error) {
	var payload devicePollResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return classifyPollRaw(string(body))
	}
	switch payload.Error {
	case "":
	case "authorization_pending":
		return pollPending, nil, nil
	case "slow_down":
		return pollSlowDown, nil, nil
	case "access_denied":
		return pollDenied, nil, nil
	case "expired_token":
		return pollExpired, nil, nil
	default:
		return 0, nil, fmt.Errorf("device token error: %s: %s", payload.Error, payload.ErrorDesc)
	}
	if payload.AccessToken == "" {
		// No error and no token: treat as still pending.
		return pollPending, nil, nil
	}
	return pollSuccess, &DeviceToken{
		Token: &oauth2.Token{
			AccessToken: payload.AccessToken,
			TokenType:   payload.TokenType,
		},
		Scope: payload.Scope,
	}, nil
}

func classifyPollRaw(body string) (pollOutcome, *DeviceToken, error) {
	switch {
	case strings.Contains(body, "authorization_pending"):
		return pollPending, nil, nil
	case strings.Contains(body, "slow_down"):
		return pollSlowDown, nil, nil
	case strings.Contains(body, "access_denied"):
		return pollDenied, nil, nil
	case strings.Contains(body, "expired_token"):
		return pollExpired, nil, nil
	}
	return 0, nil, fmt.Errorf("unrecognized token poll response: %s", body)
}
