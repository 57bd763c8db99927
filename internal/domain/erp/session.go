package erp

import "time"

// Session is a time-limited authenticated credential obtained via login.
// It is owned exclusively by the session manager: created on successful
// login, invalidated on any auth-category failure or natural expiry.
type Session struct {
	// Token is the remote session identifier
	Token string
	// ExpiresAt is when the session stops being usable. It is stored
	// with a safety margin earlier than the remote's stated lifetime.
	ExpiresAt time.Time
	// Zone is the remote region/shard the session is bound to
	Zone string
	// AuthCookies carries the session cookies returned at login
	AuthCookies string
}

// IsValid returns true if the session can still be used
func (s *Session) IsValid() bool {
	return s != nil && s.Token != "" && time.Now().Before(s.ExpiresAt)
}
