package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/storefront/internal/config"
	inErrors "github.com/Alturino/storefront/internal/errors"
	userReq "github.com/Alturino/storefront/user/pkg/request"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(config.Catalog{BaseURL: server.URL + "/", Timeout: 5 * time.Second})
}

func TestClientProducts(t *testing.T) {
	tests := []struct {
		name       string
		title      string
		status     int
		body       string
		wantIDs    []int
		wantErr    error
		wantTitleQ string
	}{
		{
			name:    "given a product list should decode creationAt and string categories",
			status:  http.StatusOK,
			body:    `[{"id":1,"title":"Shoe","price":10,"category":"Shoes","images":["https://x.y/a.png"],"creationAt":"2024-01-01T00:00:00.000Z"},{"id":2,"title":"Hat","price":5.5,"category":{"id":3,"name":"Hats"}}]`,
			wantIDs: []int{1, 2},
		},
		{
			name:       "given a title should pass it as a title search",
			title:      "red shoe",
			status:     http.StatusOK,
			body:       `[]`,
			wantIDs:    []int{},
			wantTitleQ: "red shoe",
		},
		{
			name:    "given server error should wrap fetch failed",
			status:  http.StatusInternalServerError,
			body:    `{"message":"boom"}`,
			wantErr: inErrors.ErrFetchFailed,
		},
		{
			name:    "given a product without title should report missing field",
			status:  http.StatusOK,
			body:    `[{"id":1,"price":10}]`,
			wantErr: inErrors.ErrMissingField,
		},
		{
			name:    "given malformed json should wrap fetch failed",
			status:  http.StatusOK,
			body:    `{"id":`,
			wantErr: inErrors.ErrFetchFailed,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Contains(t, r.URL.Path, "/products")
				assert.Equal(t, test.wantTitleQ, r.URL.Query().Get("title"))
				w.WriteHeader(test.status)
				_, _ = w.Write([]byte(test.body))
			})

			products, err := client.Products(context.Background(), test.title)
			if test.wantErr != nil {
				assert.ErrorIs(t, err, test.wantErr)
				return
			}
			require.NoError(t, err)
			ids := make([]int, len(products))
			for i, p := range products {
				ids[i] = p.ID
			}
			assert.Equal(t, test.wantIDs, ids)
		})
	}
}

func TestClientProductDecodesFields(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products/7", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":7,"title":"Lamp","price":12.5,"category":"Home","creationAt":"2024-02-01T00:00:00.000Z"}`))
	})

	product, err := client.Product(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 7, product.ID)
	assert.Equal(t, "12.5", product.Price.String())
	assert.Equal(t, "Home", product.Category.Name)
	assert.Equal(t, "2024-02-01T00:00:00.000Z", product.CreatedAt)
	assert.NotNil(t, product.Images)
}

func TestClientProductNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":["Could not find any entity"]}`))
	})

	_, err := client.Product(context.Background(), 999)
	assert.ErrorIs(t, err, inErrors.ErrProductNotFound)
	assert.True(t, ClientError(err))

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.Equal(t, "Could not find any entity", statusErr.Message)
}

func TestClientCategories(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/categories":
			_, _ = w.Write([]byte(`[{"id":1,"name":"Clothes","image":"https://x.y/c.png"},{"id":2,"name":"Shoes"}]`))
		case "/categories/2/products":
			_, _ = w.Write([]byte(`[{"id":4,"title":"Boot","price":40,"category":{"id":2,"name":"Shoes"}}]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	categories, err := client.Categories(context.Background())
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, "Shoes", categories[1].Name)

	products, err := client.CategoryProducts(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, 2, products[0].Category.ID)
}

func TestClientLogin(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantToken string
		wantErr   error
	}{
		{
			name:      "given valid credentials should return access token",
			status:    http.StatusCreated,
			body:      `{"access_token":"abc","refresh_token":"def"}`,
			wantToken: "abc",
		},
		{
			name:    "given response without access token should report missing field",
			status:  http.StatusCreated,
			body:    `{"refresh_token":"def"}`,
			wantErr: inErrors.ErrMissingField,
		},
		{
			name:    "given unauthorized should wrap fetch failed",
			status:  http.StatusUnauthorized,
			body:    `{"message":"Unauthorized","statusCode":401}`,
			wantErr: inErrors.ErrFetchFailed,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/auth/login", r.URL.Path)
				body := map[string]string{}
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Equal(t, "john@mail.com", body["email"])
				assert.Equal(t, "changeme", body["password"])
				w.WriteHeader(test.status)
				_, _ = w.Write([]byte(test.body))
			})

			token, err := client.Login(
				context.Background(),
				userReq.LoginRequest{Email: "john@mail.com", Password: "changeme"},
			)
			if test.wantErr != nil {
				assert.ErrorIs(t, err, test.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.wantToken, token)
		})
	}
}

func TestClientProfile(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantEmail string
		wantErr   error
	}{
		{
			name:      "given a profile should decode it",
			body:      `{"id":1,"email":"john@mail.com","name":"Jhon","role":"customer"}`,
			wantEmail: "john@mail.com",
		},
		{
			name:    "given a profile without email should report missing field",
			body:    `{"id":1,"name":"Jhon"}`,
			wantErr: inErrors.ErrMissingField,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/auth/profile", r.URL.Path)
				assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))
				_, _ = w.Write([]byte(test.body))
			})

			profile, err := client.Profile(context.Background(), "abc")
			if test.wantErr != nil {
				assert.ErrorIs(t, err, test.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.wantEmail, profile.Email)
		})
	}
}

func TestClientRegister(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/users", r.URL.Path)
		body := map[string]string{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "secret", body["password"])
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":9,"email":"jane@mail.com","name":"Jane","avatar":"https://x.y/a.png"}`))
	})

	profile, err := client.Register(context.Background(), userReq.Register{
		Name:     "Jane",
		Email:    "jane@mail.com",
		Password: "secret",
		Avatar:   "https://x.y/a.png",
	})
	require.NoError(t, err)
	assert.Equal(t, 9, profile.ID)
}
