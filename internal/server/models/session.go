package models

import "time"

// Session is a single authenticated login instance tied to one account.
// The token pair is replaced wholesale on rotation; the refresh expiry always
// lies strictly after the access expiry.
type Session struct {
	ID                 int64
	UserID             int64
	AccessToken        string
	RefreshToken       string
	IPAddress          *string
	LastUsage          *time.Time
	Device             *Device
	CreatedAt          time.Time
	ExpireAccessToken  time.Time
	ExpireRefreshToken time.Time
}

// AccessExpired reports whether access-token-gated calls must fail at 'now'.
func (s *Session) AccessExpired(now time.Time) bool {
	return !now.Before(s.ExpireAccessToken)
}

// Renewable reports whether the session can still rotate its token pair at 'now'.
func (s *Session) Renewable(now time.Time) bool {
	return now.Before(s.ExpireRefreshToken)
}
