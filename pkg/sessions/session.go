package sessions

import (
	"log/slog"
	"time"
)

// Session is the logged-in state carried by the session cookie.
type Session struct {
	ID         string
	UserID     int64
	ExternalID string
	SiteID     int64
	Backend    string
	AuthHash   string
	IssuedAt   time.Time
	ExpiresAt  time.Time
}

func (s Session) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("sid", s.ID),
		slog.Int64("user_id", s.UserID),
		slog.String("external_id", s.ExternalID),
		slog.Int64("site_id", s.SiteID),
		slog.String("backend", s.Backend),
	)
}

const (
	claimSessionID  = "sid"
	claimSubject    = "sub"
	claimUserID     = "uid"
	claimSiteID     = "site"
	claimBackend    = "bkd"
	claimAuthHash   = "ahash"
	claimIssuedAt   = "iat"
	claimExpiration = "exp"
)
