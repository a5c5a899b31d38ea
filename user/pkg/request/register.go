package request

import (
	"encoding/json"

	"github.com/rs/zerolog"
)

type Register struct {
	Name     string `validate:"required"       json:"name"`
	Email    string `validate:"required,email" json:"email"`
	Password string `validate:"required,min=4" json:"password"`
	Avatar   string `validate:"required,url"   json:"avatar"`
}

func (r Register) MarshalZerologObject(e *zerolog.Event) {
	e.Str("email", r.Email).
		Str("name", r.Name).
		Str("avatar", r.Avatar).
		Str("password", masked)
}

func (r Register) MarshalJSON() ([]byte, error) {
	type plain Register
	r.Password = masked
	return json.Marshal(plain(r))
}
