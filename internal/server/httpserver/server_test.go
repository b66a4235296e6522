package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Ursa1337/account-service/internal/common"
	"github.com/Ursa1337/account-service/internal/logging"
	"github.com/Ursa1337/account-service/internal/server/models"
	"github.com/Ursa1337/account-service/internal/server/services"
)

// --- fakes ---

type fakeAccounts struct {
	registerSession *models.Session
	registerAccount *models.Account
	registerErr     error

	authSession *models.Session
	authAccount *models.Account
	authErr     error

	validateAccount *models.Account
	validateErr     error
	validateToken   string
	validateMeta    *services.RequestMeta

	renewSession *models.Session
	renewAccount *models.Account
	renewErr     error

	revokeErr error

	listOut []*services.SessionSummary
	listErr error

	updatePasswordErr error
	updateUsernameErr error
	updateEmailErr    error
	checkUsernameErr  error
	checkEmailErr     error
}

func (f *fakeAccounts) Register(context.Context, string, string, string, string) (*models.Session, *models.Account, error) {
	return f.registerSession, f.registerAccount, f.registerErr
}

func (f *fakeAccounts) Authenticate(context.Context, string, string) (*models.Session, *models.Account, error) {
	return f.authSession, f.authAccount, f.authErr
}

func (f *fakeAccounts) ValidateAccessToken(_ context.Context, accessToken string, meta *services.RequestMeta) (*models.Account, error) {
	f.validateToken = accessToken
	f.validateMeta = meta
	return f.validateAccount, f.validateErr
}

func (f *fakeAccounts) Renew(context.Context, string) (*models.Session, *models.Account, error) {
	return f.renewSession, f.renewAccount, f.renewErr
}

func (f *fakeAccounts) Revoke(context.Context, string) error       { return f.revokeErr }
func (f *fakeAccounts) RevokeOthers(context.Context, string) error { return f.revokeErr }

func (f *fakeAccounts) ListSessions(context.Context, string) ([]*services.SessionSummary, error) {
	return f.listOut, f.listErr
}

func (f *fakeAccounts) UpdatePassword(context.Context, string, string, string, string) error {
	return f.updatePasswordErr
}
func (f *fakeAccounts) UpdateUsername(context.Context, string, string) error {
	return f.updateUsernameErr
}
func (f *fakeAccounts) UpdateEmail(context.Context, string, string) error { return f.updateEmailErr }
func (f *fakeAccounts) CheckUsernameAvailable(context.Context, string) error {
	return f.checkUsernameErr
}
func (f *fakeAccounts) CheckEmailAvailable(context.Context, string) error { return f.checkEmailErr }

type fakeAvatars struct {
	url       *string
	urlErr    error
	uploaded  *models.Avatar
	uploadErr error
	removeErr error

	lastFilename string
	lastData     []byte
	lastUserID   int64
}

func (f *fakeAvatars) Upload(_ context.Context, userID int64, filename string, data []byte) (*models.Avatar, error) {
	f.lastUserID = userID
	f.lastFilename = filename
	f.lastData = data
	return f.uploaded, f.uploadErr
}

func (f *fakeAvatars) Remove(_ context.Context, userID int64) error {
	f.lastUserID = userID
	return f.removeErr
}

func (f *fakeAvatars) URL(context.Context, int64) (*string, error) { return f.url, f.urlErr }

func testToken(fill byte) string {
	return strings.Repeat(string(fill), 256)
}

func testSession() *models.Session {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return &models.Session{
		ID:                 1,
		UserID:             7,
		AccessToken:        testToken('a'),
		RefreshToken:       testToken('r'),
		CreatedAt:          now,
		ExpireAccessToken:  now.Add(24 * time.Hour),
		ExpireRefreshToken: now.Add(30 * 24 * time.Hour),
	}
}

func testAccount() *models.Account {
	return &models.Account{ID: 7, Username: "alice", Email: "alice@example.com", Roles: []string{"user"}}
}

func newTestServer(accounts *fakeAccounts, avatars *fakeAvatars) *Server {
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	return NewServer(":0", logger, accounts, avatars)
}

func doJSON(t *testing.T, handler http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var out errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return out
}

// --- tests ---

func TestHandleRegister_Success(t *testing.T) {
	accounts := &fakeAccounts{registerSession: testSession(), registerAccount: testAccount()}
	srv := newTestServer(accounts, &fakeAvatars{})

	rec := doJSON(t, srv.Routes(), http.MethodPost, "/account/", "", map[string]string{
		"username":         "alice",
		"email":            "alice@example.com",
		"password":         "secret",
		"confirm_password": "secret",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var out sessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if out.AccessToken != testToken('a') || out.RefreshToken != testToken('r') {
		t.Errorf("token pair not echoed")
	}
	if out.User.ID != 7 || out.User.Username != "alice" {
		t.Errorf("user payload = %+v", out.User)
	}
	if out.User.Avatar != nil {
		t.Errorf("avatar must be null without an upload")
	}
}

func TestHandleRegister_Validation(t *testing.T) {
	srv := newTestServer(&fakeAccounts{}, &fakeAvatars{})

	tests := []struct {
		name     string
		body     map[string]string
		property string
	}{
		{"short username", map[string]string{"username": "ab", "email": "a@b.io", "password": "x", "confirm_password": "x"}, "username"},
		{"bad email", map[string]string{"username": "alice", "email": "not-an-email", "password": "x", "confirm_password": "x"}, "email"},
		{"empty password", map[string]string{"username": "alice", "email": "a@b.io", "password": "", "confirm_password": "x"}, "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, srv.Routes(), http.MethodPost, "/account/", "", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d", rec.Code)
			}
			out := decodeError(t, rec)
			if out.Error != "validation_error" || out.Property != tt.property {
				t.Errorf("envelope = %+v, want validation_error on %s", out, tt.property)
			}
		})
	}
}

func TestHandleRegister_DomainError(t *testing.T) {
	accounts := &fakeAccounts{registerErr: common.ErrEmailExists}
	srv := newTestServer(accounts, &fakeAvatars{})

	rec := doJSON(t, srv.Routes(), http.MethodPost, "/account/", "", map[string]string{
		"username": "alice", "email": "alice@example.com", "password": "x", "confirm_password": "x",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	out := decodeError(t, rec)
	if out.Error != "email_exist" || out.Property != "email" || out.StatusCode != 400 {
		t.Errorf("envelope = %+v", out)
	}
}

func TestHandleAuthenticate_InternalErrorIsOpaque(t *testing.T) {
	accounts := &fakeAccounts{authErr: errors.New("pg down")}
	srv := newTestServer(accounts, &fakeAvatars{})

	rec := doJSON(t, srv.Routes(), http.MethodPost, "/account/auth", "", map[string]string{
		"email": "alice@example.com", "password": "x",
	})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	out := decodeError(t, rec)
	if out.Error != "internal_error" || strings.Contains(out.Message, "pg down") {
		t.Errorf("internal details leaked: %+v", out)
	}
}

func TestRequireAuth(t *testing.T) {
	t.Run("missing header", func(t *testing.T) {
		accounts := &fakeAccounts{validateAccount: testAccount()}
		srv := newTestServer(accounts, &fakeAvatars{})

		rec := doJSON(t, srv.Routes(), http.MethodGet, "/account/", "", nil)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("status = %d", rec.Code)
		}
		if out := decodeError(t, rec); out.Error != "unauthorization" {
			t.Errorf("envelope = %+v", out)
		}
		if accounts.validateToken != "" {
			t.Errorf("store must not be touched without a token")
		}
	})

	t.Run("wrong token length", func(t *testing.T) {
		accounts := &fakeAccounts{validateAccount: testAccount()}
		srv := newTestServer(accounts, &fakeAvatars{})

		rec := doJSON(t, srv.Routes(), http.MethodGet, "/account/", "short", nil)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("status = %d", rec.Code)
		}
		if accounts.validateToken != "" {
			t.Errorf("store must not be touched for a malformed token")
		}
	})

	t.Run("expired", func(t *testing.T) {
		accounts := &fakeAccounts{validateErr: common.ErrExpired}
		srv := newTestServer(accounts, &fakeAvatars{})

		rec := doJSON(t, srv.Routes(), http.MethodGet, "/account/", testToken('a'), nil)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("status = %d", rec.Code)
		}
		if out := decodeError(t, rec); out.Error != "expire" {
			t.Errorf("envelope = %+v", out)
		}
	})

	t.Run("attaches account and meta", func(t *testing.T) {
		accounts := &fakeAccounts{validateAccount: testAccount()}
		srv := newTestServer(accounts, &fakeAvatars{})

		req := httptest.NewRequest(http.MethodGet, "/account/", nil)
		req.Header.Set("Authorization", "Bearer "+testToken('a'))
		req.Header.Set("X-Real-IP", "203.0.113.7")
		req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
		rec := httptest.NewRecorder()
		srv.Routes().ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}
		if accounts.validateToken != testToken('a') {
			t.Errorf("token not forwarded")
		}
		if accounts.validateMeta == nil || accounts.validateMeta.IPAddress != "203.0.113.7" {
			t.Fatalf("meta = %+v", accounts.validateMeta)
		}
		device := accounts.validateMeta.Device
		if device == nil || device.Browser.Name != "Chrome" || device.OS.Name != "Linux" {
			t.Errorf("device = %+v", device)
		}

		var out userResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if out.Username != "alice" || len(out.Roles) != 1 {
			t.Errorf("user payload = %+v", out)
		}
	})
}

func TestHandleRenew(t *testing.T) {
	t.Run("wrong length is unauthorized", func(t *testing.T) {
		srv := newTestServer(&fakeAccounts{}, &fakeAvatars{})
		rec := doJSON(t, srv.Routes(), http.MethodPost, "/account/renew", "", map[string]string{"refresh_token": "short"})
		if rec.Code != http.StatusForbidden {
			t.Fatalf("status = %d", rec.Code)
		}
		if out := decodeError(t, rec); out.Error != "unauthorization" {
			t.Errorf("envelope = %+v", out)
		}
	})

	t.Run("success", func(t *testing.T) {
		accounts := &fakeAccounts{renewSession: testSession(), renewAccount: testAccount()}
		srv := newTestServer(accounts, &fakeAvatars{})

		rec := doJSON(t, srv.Routes(), http.MethodPost, "/account/renew", "", map[string]string{"refresh_token": testToken('r')})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}
		var out sessionResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if out.AccessToken != testToken('a') {
			t.Errorf("session payload = %+v", out)
		}
	})
}

func TestHandleListSessions(t *testing.T) {
	lastUsage := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ip := "203.0.113.7"
	accounts := &fakeAccounts{
		validateAccount: testAccount(),
		listOut: []*services.SessionSummary{
			{LastUsage: &lastUsage, IPAddress: &ip, Renewable: true, CurrentSession: true},
		},
	}
	srv := newTestServer(accounts, &fakeAvatars{})

	rec := doJSON(t, srv.Routes(), http.MethodGet, "/account/sessions", testToken('a'), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var out []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("sessions = %d, want 1", len(out))
	}
	for _, key := range []string{"lastUsage", "ipAddress", "device", "expired", "renewable", "currentSession"} {
		if _, ok := out[0][key]; !ok {
			t.Errorf("summary key %q missing", key)
		}
	}
}

func TestHandleRevoke(t *testing.T) {
	accounts := &fakeAccounts{validateAccount: testAccount()}
	srv := newTestServer(accounts, &fakeAvatars{})

	rec := doJSON(t, srv.Routes(), http.MethodDelete, "/account/session", testToken('a'), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestHandleUploadAvatar(t *testing.T) {
	accounts := &fakeAccounts{validateAccount: testAccount()}
	avatars := &fakeAvatars{uploaded: &models.Avatar{ID: 1, UserID: 7, Name: "k.png", URL: "https://cdn.example.com/avatars/k.png"}}
	srv := newTestServer(accounts, avatars)

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("avatar", "me.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte{1, 2, 3}); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	form.Close()

	req := httptest.NewRequest(http.MethodPut, "/account/avatar", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+testToken('a'))
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if avatars.lastUserID != 7 || avatars.lastFilename != "me.png" || len(avatars.lastData) != 3 {
		t.Errorf("upload call = user %d file %q %d bytes", avatars.lastUserID, avatars.lastFilename, len(avatars.lastData))
	}
	if !strings.Contains(rec.Body.String(), "k.png") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestHandleRemoveAvatar_NotFound(t *testing.T) {
	accounts := &fakeAccounts{validateAccount: testAccount()}
	avatars := &fakeAvatars{removeErr: common.ErrAvatarNotFound}
	srv := newTestServer(accounts, avatars)

	rec := doJSON(t, srv.Routes(), http.MethodDelete, "/account/avatar", testToken('a'), nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if out := decodeError(t, rec); out.Error != "avatar_not_exist" {
		t.Errorf("envelope = %+v", out)
	}
}
