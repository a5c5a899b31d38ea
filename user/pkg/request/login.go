package request

import (
	"encoding/json"

	"github.com/rs/zerolog"
)

// masked replaces passwords wherever a request is serialized for logs.
const masked = "***"

// LoginRequest is the credential pair exchanged for an access token.
type LoginRequest struct {
	Email    string `validate:"required,email" json:"email"`
	Password string `validate:"required"       json:"password"`
}

func (l LoginRequest) MarshalZerologObject(e *zerolog.Event) {
	e.Str("email", l.Email).Str("password", masked)
}

// MarshalJSON masks the password. The catalog client sends credentials as a
// plain map, so this only affects logs and responses.
func (l LoginRequest) MarshalJSON() ([]byte, error) {
	type plain LoginRequest
	l.Password = masked
	return json.Marshal(plain(l))
}
