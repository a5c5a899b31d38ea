package controller

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cartService "github.com/Alturino/storefront/cart/service"
	"github.com/Alturino/storefront/internal/catalog"
	"github.com/Alturino/storefront/internal/config"
	"github.com/Alturino/storefront/internal/kv"
	"github.com/Alturino/storefront/internal/notify"
	"github.com/Alturino/storefront/internal/session"
	"github.com/Alturino/storefront/user/service"
)

type sessionEnvelope struct {
	Status     string `json:"status"`
	StatusCode int    `json:"statusCode"`
	Data       struct {
		Session struct {
			Email       string `json:"email"`
			DisplayName string `json:"displayName"`
			Token       string `json:"token"`
		} `json:"session"`
	} `json:"data"`
}

func newUserRouter(t *testing.T) *mux.Router {
	t.Helper()
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			body := map[string]string{}
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["password"] != "changeme" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"message":"Unauthorized","statusCode":401}`))
				return
			}
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"access_token":"abc","refresh_token":"def"}`))
		case "/auth/profile":
			_, _ = w.Write([]byte(`{"id":1,"email":"john@mail.com","name":"Jhon","role":"customer"}`))
		case "/users":
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":5,"email":"jane@mail.com","name":"Jane","avatar":"https://x.y/a.png"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(api.Close)

	store := kv.NewMemory()
	recorder := &notify.Recorder{}
	sessions := session.NewStore(store)
	carts := cartService.NewCartStore(store, sessions, recorder, config.Cart{})
	client := catalog.NewClient(config.Catalog{BaseURL: api.URL, Timeout: 5 * time.Second})
	router := mux.NewRouter()
	AttachUserController(router, service.NewSessionManager(client, sessions, carts, recorder))
	return router
}

func do(t *testing.T, router *mux.Router, method, target, body string) (*httptest.ResponseRecorder, sessionEnvelope) {
	t.Helper()
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(method, target, strings.NewReader(body)))
	envelope := sessionEnvelope{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	return recorder, envelope
}

func TestLoginSessionLogout(t *testing.T) {
	router := newUserRouter(t)

	recorder, _ := do(t, router, http.MethodGet, "/auth/session", "")
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	recorder, body := do(t, router, http.MethodPost, "/auth/login", `{"email":"john@mail.com","password":"changeme"}`)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "Jhon", body.Data.Session.DisplayName)
	assert.Empty(t, body.Data.Session.Token, "token should never be written out")

	recorder, body = do(t, router, http.MethodGet, "/auth/session", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "john@mail.com", body.Data.Session.Email)

	recorder, _ = do(t, router, http.MethodPost, "/auth/logout", "")
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder, _ = do(t, router, http.MethodGet, "/auth/session", "")
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestLoginErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{name: "given wrong password should be unauthorized", body: `{"email":"john@mail.com","password":"nope"}`, wantStatus: http.StatusUnauthorized},
		{name: "given invalid email should be bad request", body: `{"email":"john","password":"changeme"}`, wantStatus: http.StatusBadRequest},
		{name: "given malformed body should be bad request", body: `{"email":`, wantStatus: http.StatusBadRequest},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			router := newUserRouter(t)
			recorder, body := do(t, router, http.MethodPost, "/auth/login", test.body)
			assert.Equal(t, test.wantStatus, recorder.Code)
			assert.Equal(t, "failed", body.Status)
		})
	}
}

func TestRegister(t *testing.T) {
	router := newUserRouter(t)

	recorder, _ := do(t, router, http.MethodPost, "/users", `{"name":"Jane","email":"jane@mail.com","password":"secret","avatar":"https://x.y/a.png"}`)
	assert.Equal(t, http.StatusCreated, recorder.Code)

	recorder, _ = do(t, router, http.MethodPost, "/users", `{"name":"Jane","email":"jane@mail.com","password":"pw","avatar":"https://x.y/a.png"}`)
	assert.Equal(t, http.StatusBadRequest, recorder.Code, "short password should fail validation")
}
