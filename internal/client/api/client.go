// Package api is a thin HTTP client for the account service, used by the
// interactive CLI.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to one account-service endpoint.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient constructs a Client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// User mirrors the service's account payload.
type User struct {
	ID       int64    `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Avatar   *string  `json:"avatar"`
	Roles    []string `json:"roles"`
}

// Session mirrors the service's session payload.
type Session struct {
	AccessToken        string    `json:"access_token"`
	RefreshToken       string    `json:"refresh_token"`
	AccessTokenExpire  time.Time `json:"access_token_expire"`
	RefreshTokenExpire time.Time `json:"refresh_token_expire"`
	User               User      `json:"user"`
}

// SessionInfo mirrors one entry of the session listing.
type SessionInfo struct {
	LastUsage      *time.Time `json:"lastUsage"`
	IPAddress      *string    `json:"ipAddress"`
	Expired        bool       `json:"expired"`
	Renewable      bool       `json:"renewable"`
	CurrentSession bool       `json:"currentSession"`
}

// Error is a decoded service failure envelope.
type Error struct {
	Code     string `json:"error"`
	Property string `json:"property"`
	Message  string `json:"message"`
	Status   int    `json:"statusCode"`
}

func (e *Error) Error() string {
	if e.Property != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Property)
	}
	return e.Message
}

func (c *Client) Register(ctx context.Context, username, email, password, confirmPassword string) (*Session, error) {
	body := map[string]string{
		"username": username, "email": email,
		"password": password, "confirm_password": confirmPassword,
	}
	var out Session
	if err := c.do(ctx, http.MethodPost, "/account", "", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	var out Session
	if err := c.do(ctx, http.MethodPost, "/account/auth", "", map[string]string{"email": email, "password": password}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Account(ctx context.Context, accessToken string) (*User, error) {
	var out User
	if err := c.do(ctx, http.MethodGet, "/account", accessToken, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Sessions(ctx context.Context, accessToken string) ([]SessionInfo, error) {
	var out []SessionInfo
	if err := c.do(ctx, http.MethodGet, "/account/sessions", accessToken, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Renew(ctx context.Context, refreshToken string) (*Session, error) {
	var out Session
	if err := c.do(ctx, http.MethodPost, "/account/renew", "", map[string]string{"refresh_token": refreshToken}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Logout(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodDelete, "/account/session", accessToken, nil, nil)
}

func (c *Client) LogoutOthers(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodDelete, "/account/sessions", accessToken, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path, accessToken string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		apiErr := &Error{}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Code == "" {
			return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, path)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
