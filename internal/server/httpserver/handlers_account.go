package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/Ursa1337/account-service/internal/server/models"
)

type userResponse struct {
	ID       int64    `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Avatar   *string  `json:"avatar"`
	Roles    []string `json:"roles"`
}

type sessionResponse struct {
	AccessToken        string       `json:"access_token"`
	RefreshToken       string       `json:"refresh_token"`
	AccessTokenExpire  time.Time    `json:"access_token_expire"`
	RefreshTokenExpire time.Time    `json:"refresh_token_expire"`
	User               userResponse `json:"user"`
}

func (s *Server) userPayload(ctx context.Context, account *models.Account) userResponse {
	avatar, err := s.avatars.URL(ctx, account.ID)
	if err != nil {
		s.logger.Warn(ctx, "avatar lookup failed", "user_id", account.ID, "error", err.Error())
		avatar = nil
	}
	roles := account.Roles
	if roles == nil {
		roles = []string{}
	}
	return userResponse{
		ID:       account.ID,
		Username: account.Username,
		Email:    account.Email,
		Avatar:   avatar,
		Roles:    roles,
	}
}

func (s *Server) sessionPayload(ctx context.Context, session *models.Session, account *models.Account) sessionResponse {
	return sessionResponse{
		AccessToken:        session.AccessToken,
		RefreshToken:       session.RefreshToken,
		AccessTokenExpire:  session.ExpireAccessToken,
		RefreshTokenExpire: session.ExpireRefreshToken,
		User:               s.userPayload(ctx, account),
	}
}

type registerRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := validateUsername(req.Username); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := validateEmail(req.Email); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := validatePassword("password", req.Password); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := validatePassword("confirm_password", req.ConfirmPassword); err != nil {
		s.respondError(w, r, err)
		return
	}

	session, account, err := s.accounts.Register(r.Context(), req.Username, req.Email, req.Password, req.ConfirmPassword)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, s.sessionPayload(r.Context(), session, account))
}

type authenticateRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleAuthenticate(w http.ResponseWriter, r *http.Request) {
	var req authenticateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := validateEmail(req.Email); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := validatePassword("password", req.Password); err != nil {
		s.respondError(w, r, err)
		return
	}

	session, account, err := s.accounts.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, s.sessionPayload(r.Context(), session, account))
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	account := accountFrom(r.Context())
	respondJSON(w, http.StatusOK, s.userPayload(r.Context(), account))
}

type updatePasswordRequest struct {
	Password        string `json:"password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (s *Server) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	var req updatePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := validatePassword("password", req.Password); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := validatePassword("new_password", req.NewPassword); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := validatePassword("confirm_password", req.ConfirmPassword); err != nil {
		s.respondError(w, r, err)
		return
	}

	err := s.accounts.UpdatePassword(r.Context(), accessTokenFrom(r.Context()), req.Password, req.NewPassword, req.ConfirmPassword)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, statusOK)
}

type updateUsernameRequest struct {
	Username string `json:"username"`
}

func (s *Server) handleUpdateUsername(w http.ResponseWriter, r *http.Request) {
	var req updateUsernameRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := validateUsername(req.Username); err != nil {
		s.respondError(w, r, err)
		return
	}

	if err := s.accounts.UpdateUsername(r.Context(), accessTokenFrom(r.Context()), req.Username); err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, statusOK)
}

type updateEmailRequest struct {
	Email string `json:"email"`
}

func (s *Server) handleUpdateEmail(w http.ResponseWriter, r *http.Request) {
	var req updateEmailRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := validateEmail(req.Email); err != nil {
		s.respondError(w, r, err)
		return
	}

	if err := s.accounts.UpdateEmail(r.Context(), accessTokenFrom(r.Context()), req.Email); err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, statusOK)
}

func (s *Server) handleUsernameAvailable(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if err := validateUsername(username); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.accounts.CheckUsernameAvailable(r.Context(), username); err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, statusOK)
}

func (s *Server) handleEmailAvailable(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if err := validateEmail(email); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.accounts.CheckEmailAvailable(r.Context(), email); err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, statusOK)
}
