package httpserver

import (
	"net/mail"
	"unicode/utf8"

	"github.com/Ursa1337/account-service/internal/common"
)

// Input gating is fail-fast: handlers run these checks in request-field order
// and report only the first failure.

func validateUsername(username string) error {
	if l := utf8.RuneCountInString(username); l < 3 || l > 32 {
		return common.NewValidationError("username", "username must be between 3 and 32 characters")
	}
	return nil
}

func validateEmail(email string) error {
	if l := len(email); l < 3 || l > 64 {
		return common.NewValidationError("email", "email must be between 3 and 64 characters")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return common.NewValidationError("email", "email must be a valid address")
	}
	return nil
}

func validatePassword(field, password string) error {
	if password == "" {
		return common.NewValidationError(field, "must not be empty")
	}
	return nil
}
