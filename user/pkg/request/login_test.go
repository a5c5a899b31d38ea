package request

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/Alturino/storefront/internal/validate"
)

func TestLoginRequest(t *testing.T) {
	expectedMap := map[string]string{"email": "email", "password": "***"}
	expected, _ := json.Marshal(expectedMap)
	loginReq := LoginRequest{Email: "email", Password: "password"}

	actual, _ := json.Marshal(loginReq)

	assert.EqualValues(t, expected, actual)
	assert.EqualValues(t, "password", loginReq.Password)
}

func TestRequestsMaskPassword(t *testing.T) {
	tests := []struct {
		name   string
		object zerolog.LogObjectMarshaler
	}{
		{name: "given login request should mask password", object: LoginRequest{Email: "a@b.c", Password: "hunter22"}},
		{
			name:   "given register request should mask password",
			object: Register{Name: "Nico", Email: "a@b.c", Password: "hunter22", Avatar: "https://picsum.photos/800"},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var logged bytes.Buffer
			logger := zerolog.New(&logged)
			logger.Info().Object("request", test.object).Msg("request")
			encoded, err := json.Marshal(test.object)
			assert.NoError(t, err)

			for _, out := range []string{logged.String(), string(encoded)} {
				assert.NotContains(t, out, "hunter22")
				assert.Contains(t, out, `"password":"***"`)
			}
		})
	}
}

func TestRegisterValidation(t *testing.T) {
	v := validate.New()

	valid := Register{
		Name:     "Nico",
		Email:    "nico@gmail.com",
		Password: "1234",
		Avatar:   "https://picsum.photos/800",
	}
	assert.NoError(t, v.Struct(valid))

	invalid := valid
	invalid.Email = "nico"
	assert.Error(t, v.Struct(invalid), "malformed email should fail")

	invalid = valid
	invalid.Avatar = "avatar.png"
	assert.Error(t, v.Struct(invalid), "relative avatar should fail")
}
