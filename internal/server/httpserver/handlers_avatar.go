package httpserver

import (
	"io"
	"net/http"

	"github.com/Ursa1337/account-service/internal/common"
)

// maxAvatarSize caps multipart avatar uploads at 5 MiB.
const maxAvatarSize = 5 << 20

type avatarResponse struct {
	URL string `json:"url"`
}

func (s *Server) handleUploadAvatar(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarSize)
	if err := r.ParseMultipartForm(maxAvatarSize); err != nil {
		s.respondError(w, r, common.NewValidationError("avatar", "multipart form with an avatar file required"))
		return
	}

	file, header, err := r.FormFile("avatar")
	if err != nil {
		s.respondError(w, r, common.NewValidationError("avatar", "avatar file required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, r, common.NewValidationError("avatar", "avatar file is not readable"))
		return
	}

	account := accountFrom(r.Context())
	avatar, err := s.avatars.Upload(r.Context(), account.ID, header.Filename, data)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, avatarResponse{URL: avatar.URL})
}

func (s *Server) handleRemoveAvatar(w http.ResponseWriter, r *http.Request) {
	account := accountFrom(r.Context())
	if err := s.avatars.Remove(r.Context(), account.ID); err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, statusOK)
}
