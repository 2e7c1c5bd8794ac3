package sessions

import "time"

// TTLs for the two live session states. A session is created inactive with
// the pending TTL; successful MFA verification activates it and re-sets the
// expiry to the active TTL.
const (
	PendingTTL = 15 * time.Minute
	ActiveTTL  = 24 * time.Hour
)

// Session tracks one login from credential check to termination.
//
// Lifecycle:
//  1. PENDING  - created by a successful credential check (Active=false)
//  2. ACTIVE   - reached only through Activate after MFA verification
//  3. TERMINATED - Active=false again (logout, logout-all, user disablement)
//     or the row simply expires; there is no transition back
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Active    bool      `json:"active"`
	IPAddress string    `json:"ip_address,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session row is past its expiry.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
