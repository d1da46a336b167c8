package models

import "time"

// ShareLink is a bearer token redeemable by any authenticated user. At most
// one non-revoked link exists per file; revoked links are kept for audit.
type ShareLink struct {
	Token     string
	FileID    string
	CreatedBy string
	CreatedAt time.Time
	Revoked   bool
	RevokedAt *time.Time
	// ExpiresAt is nil for links that never expire.
	ExpiresAt *time.Time
}

// Active reports whether the link can still be redeemed at now.
func (l *ShareLink) Active(now time.Time) bool {
	if l.Revoked {
		return false
	}
	return l.ExpiresAt == nil || now.Before(*l.ExpiresAt)
}
