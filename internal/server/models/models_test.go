package models

import (
	"testing"
	"time"
)

func TestHasAnyRole(t *testing.T) {
	account := &Account{Roles: []string{"user", "moderator"}}

	tests := []struct {
		name     string
		required []string
		want     bool
	}{
		{"no requirement", nil, true},
		{"match", []string{"moderator"}, true},
		{"one of several", []string{"admin", "user"}, true},
		{"no overlap", []string{"admin"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := account.HasAnyRole(tt.required...); got != tt.want {
				t.Errorf("HasAnyRole(%v) = %v, want %v", tt.required, got, tt.want)
			}
		})
	}

	roleless := &Account{}
	if roleless.HasAnyRole("admin") {
		t.Errorf("account without roles must fail any requirement")
	}
	if !roleless.HasAnyRole() {
		t.Errorf("empty requirement must always pass")
	}
}

func TestSessionExpiry(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	session := &Session{
		ExpireAccessToken:  now.Add(time.Hour),
		ExpireRefreshToken: now.Add(2 * time.Hour),
	}

	if session.AccessExpired(now) {
		t.Errorf("not expired before the window ends")
	}
	if !session.AccessExpired(now.Add(time.Hour)) {
		t.Errorf("expired exactly at the boundary")
	}
	if !session.Renewable(now.Add(90 * time.Minute)) {
		t.Errorf("renewable while the refresh window is open")
	}
	if session.Renewable(now.Add(2 * time.Hour)) {
		t.Errorf("not renewable at the refresh boundary")
	}
}
