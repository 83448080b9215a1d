package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// RequiredAuthPath is the mandatory path suffix of the v1 auth endpoint.
const RequiredAuthPath = "/r1/cstore-auth"

var (
	// ErrInvalidEndpoint indicates the auth endpoint violates transport policy.
	ErrInvalidEndpoint = errors.New("auth: invalid endpoint")
	// ErrEmptyCredentials indicates blank username or password.
	ErrEmptyCredentials = errors.New("auth: username and password must be non-empty")
	// ErrInvalidCredentials is a permanent rejection by the auth service.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrServiceUnavailable is a transient auth service failure; login may be retried.
	ErrServiceUnavailable = errors.New("auth: service unavailable")
	// ErrInvalidResponse indicates the auth response violated the contract.
	ErrInvalidResponse = errors.New("auth: invalid response")
)

// Credentials are user-provided login inputs. Kept ephemeral by callers;
// never embedded in errors or logs.
type Credentials struct {
	Username string
	Password string
}

// LoginRequest is the wire request sent to the auth endpoint.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the wire response returned by the auth endpoint.
type LoginResponse struct {
	AccessToken      string `json:"access_token"`
	SessionID        string `json:"session_id"`
	ExpiresInSeconds int64  `json:"expires_in_seconds"`
}

// Transport executes one login exchange against the auth backend.
type Transport interface {
	Authenticate(ctx context.Context, endpoint string, req LoginRequest) (LoginResponse, error)
}

// Client validates endpoint policy at construction and converts login
// responses into sessions with absolute expiry.
type Client struct {
	endpoint  string
	transport Transport
	now       func() time.Time
}

// NewClient creates a validated auth client. The endpoint must be HTTPS and
// end with RequiredAuthPath. A nil clock defaults to time.Now.
func NewClient(endpoint string, transport Transport, clock func() time.Time) (*Client, error) {
	if err := ValidateEndpoint(endpoint); err != nil {
		return nil, err
	}
	if transport == nil {
		return nil, fmt.Errorf("auth: transport is required")
	}
	if clock == nil {
		clock = time.Now
	}
	return &Client{endpoint: endpoint, transport: transport, now: clock}, nil
}

// Endpoint returns the configured auth endpoint.
func (c *Client) Endpoint() string { return c.endpoint }

// Login exchanges credentials for a session.
func (c *Client) Login(ctx context.Context, creds Credentials) (Session, error) {
	if strings.TrimSpace(creds.Username) == "" || strings.TrimSpace(creds.Password) == "" {
		return Session{}, ErrEmptyCredentials
	}

	resp, err := c.transport.Authenticate(ctx, c.endpoint, LoginRequest{
		Username: creds.Username,
		Password: creds.Password,
	})
	if err != nil {
		return Session{}, err
	}

	if strings.TrimSpace(resp.AccessToken) == "" || strings.TrimSpace(resp.SessionID) == "" {
		return Session{}, fmt.Errorf("%w: missing token or session id", ErrInvalidResponse)
	}

	return Session{
		AccessToken: resp.AccessToken,
		SessionID:   resp.SessionID,
		ExpiresAt:   c.now().Add(time.Duration(resp.ExpiresInSeconds) * time.Second),
	}, nil
}

// ValidateEndpoint enforces the v1 auth endpoint policy: HTTPS scheme and the
// required path suffix.
func ValidateEndpoint(endpoint string) error {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEndpoint, err)
	}
	if parsed.Scheme != "https" {
		return fmt.Errorf("%w: auth endpoint must use https", ErrInvalidEndpoint)
	}
	if !strings.HasSuffix(parsed.Path, RequiredAuthPath) {
		return fmt.Errorf("%w: auth endpoint path must end with %s", ErrInvalidEndpoint, RequiredAuthPath)
	}
	return nil
}

// HTTPTransport is the production auth transport.
type HTTPTransport struct {
	Client *http.Client
}

// NewHTTPTransport builds an HTTP transport with the given request timeout.
func NewHTTPTransport(timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{Client: &http.Client{Timeout: timeout}}
}

// Authenticate posts the login request and classifies HTTP failures.
func (t *HTTPTransport) Authenticate(ctx context.Context, endpoint string, req LoginRequest) (LoginResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return LoginResponse{}, fmt.Errorf("auth: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return LoginResponse{}, fmt.Errorf("auth: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := t.Client.Do(httpReq)
	if err != nil {
		return LoginResponse{}, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return LoginResponse{}, ErrInvalidCredentials
	case resp.StatusCode >= 500:
		return LoginResponse{}, fmt.Errorf("%w: status %d", ErrServiceUnavailable, resp.StatusCode)
	default:
		return LoginResponse{}, fmt.Errorf("%w: unexpected status %d", ErrInvalidResponse, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return LoginResponse{}, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}

	var parsed LoginResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return LoginResponse{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return parsed, nil
}
