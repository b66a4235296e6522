package httpserver

import (
	"net/http"

	"github.com/Ursa1337/account-service/internal/common"
	"github.com/Ursa1337/account-service/internal/server/token"
)

type renewRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (s *Server) handleRenew(w http.ResponseWriter, r *http.Request) {
	var req renewRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	// Token-shaped input: a wrong-length value can never match a session.
	if len(req.RefreshToken) != token.SessionTokenLength {
		s.respondError(w, r, common.ErrUnauthorized)
		return
	}

	session, account, err := s.accounts.Renew(r.Context(), req.RefreshToken)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, s.sessionPayload(r.Context(), session, account))
}

func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	if err := s.accounts.Revoke(r.Context(), accessTokenFrom(r.Context())); err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, statusOK)
}

func (s *Server) handleRevokeOthers(w http.ResponseWriter, r *http.Request) {
	if err := s.accounts.RevokeOthers(r.Context(), accessTokenFrom(r.Context())); err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, statusOK)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.accounts.ListSessions(r.Context(), accessTokenFrom(r.Context()))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, summaries)
}
