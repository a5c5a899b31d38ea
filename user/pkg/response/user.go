package response

import (
	"time"
)

type Profile struct {
	ID     int    `json:"id"`
	Email  string `json:"email"  validate:"required"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
	Role   string `json:"role"`
}

// Session is the signed-in state. DisplayName is empty when the profile
// could not be fetched at login.
type Session struct {
	Token       string     `json:"-"`
	Email       string     `json:"email"`
	DisplayName string     `json:"displayName"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
}

// Active reports whether the session holds a token that has not expired.
func (s Session) Active(now time.Time) bool {
	if s.Token == "" {
		return false
	}
	return s.ExpiresAt == nil || now.Before(*s.ExpiresAt)
}
