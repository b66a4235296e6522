package httpserver

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/mileusna/useragent"

	"github.com/Ursa1337/account-service/internal/common"
	"github.com/Ursa1337/account-service/internal/server/models"
	"github.com/Ursa1337/account-service/internal/server/services"
	"github.com/Ursa1337/account-service/internal/server/token"
)

type ctxKey int

const (
	accountCtxKey ctxKey = iota
	accessTokenCtxKey
)

// requireAuth validates the bearer token, records the request metadata on the
// session, and attaches the account to the request context. When roles are
// given, the account must hold at least one of them.
func (s *Server) requireAuth(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			accessToken, ok := bearerToken(r)
			if !ok {
				s.respondError(w, r, common.ErrUnauthorized)
				return
			}

			account, err := s.accounts.ValidateAccessToken(r.Context(), accessToken, requestMeta(r))
			if err != nil {
				s.respondError(w, r, err)
				return
			}
			if !account.HasAnyRole(roles...) {
				s.respondError(w, r, common.ErrForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), accountCtxKey, account)
			ctx = context.WithValue(ctx, accessTokenCtxKey, accessToken)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the access token from the Authorization header. Tokens
// have a fixed length, so anything else is rejected before touching the store.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	value, found := strings.CutPrefix(header, "Bearer ")
	if !found || len(value) != token.SessionTokenLength {
		return "", false
	}
	return value, true
}

// accountFrom returns the authenticated account attached by requireAuth.
func accountFrom(ctx context.Context) *models.Account {
	account, _ := ctx.Value(accountCtxKey).(*models.Account)
	return account
}

// accessTokenFrom returns the validated access token attached by requireAuth.
func accessTokenFrom(ctx context.Context) string {
	accessToken, _ := ctx.Value(accessTokenCtxKey).(string)
	return accessToken
}

// requestMeta builds session metadata from the request: the client IP as seen
// after the RealIP middleware and the parsed User-Agent fingerprint.
func requestMeta(r *http.Request) *services.RequestMeta {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return &services.RequestMeta{
		IPAddress: ip,
		Device:    parseDevice(r.UserAgent()),
	}
}

func parseDevice(userAgent string) *models.Device {
	if userAgent == "" {
		return nil
	}
	ua := useragent.Parse(userAgent)

	deviceType := ""
	switch {
	case ua.Bot:
		deviceType = "bot"
	case ua.Mobile:
		deviceType = "mobile"
	case ua.Tablet:
		deviceType = "tablet"
	case ua.Desktop:
		deviceType = "desktop"
	}

	return &models.Device{
		UA:      userAgent,
		Browser: models.DeviceBrowser{Name: ua.Name, Version: ua.Version},
		OS:      models.DeviceOS{Name: ua.OS, Version: ua.OSVersion},
		Device:  models.DeviceInfo{Model: ua.Device, Type: deviceType},
	}
}
