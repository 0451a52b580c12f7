package domain

import (
	"time"
)

// Admin is a console operator identified by a browser cookie.
type Admin struct {
	AdminID    string    `json:"admin_id"`
	Username   string    `json:"username"`
	Nonce      string    `json:"-"`
	LastSeenAt time.Time `json:"last_seen_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Idle reports whether the admin has been inactive for longer than ttl.
func (a *Admin) Idle(ttl time.Duration, now time.Time) bool {
	return now.Sub(a.LastSeenAt) > ttl
}
