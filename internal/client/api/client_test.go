package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLogin_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/account/auth" {
			t.Errorf("unexpected call: %s %s", r.Method, r.URL.Path)
		}
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req["email"] != "alice@example.com" {
			t.Errorf("email = %q", req["email"])
		}
		_ = json.NewEncoder(w).Encode(Session{
			AccessToken:  "access",
			RefreshToken: "refresh",
			User:         User{ID: 7, Username: "alice"},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL + "/")
	session, err := client.Login(context.Background(), "alice@example.com", "secret")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if session.AccessToken != "access" || session.User.Username != "alice" {
		t.Fatalf("unexpected session: %+v", session)
	}
}

func TestAccount_SendsBearerToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer access" {
			t.Errorf("authorization = %q", got)
		}
		_ = json.NewEncoder(w).Encode(User{ID: 7, Username: "alice"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	user, err := client.Account(context.Background(), "access")
	if err != nil {
		t.Fatalf("Account error: %v", err)
	}
	if user.ID != 7 {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestDo_DecodesErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": "email_exist", "property": "email",
			"message": "Email address is exist", "statusCode": 400,
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.Register(context.Background(), "alice", "alice@example.com", "x", "x")

	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("got %v, want *Error", err)
	}
	if apiErr.Code != "email_exist" || apiErr.Property != "email" {
		t.Fatalf("envelope = %+v", apiErr)
	}
}

func TestDo_OpaqueFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	err := client.Logout(context.Background(), "access")
	if err == nil {
		t.Fatalf("expected error")
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		t.Fatalf("empty body must not decode into *Error")
	}
}
