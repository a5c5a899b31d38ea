package controller

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/storefront/internal/catalog"
	"github.com/Alturino/storefront/internal/config"
	"github.com/Alturino/storefront/internal/retry"
	"github.com/Alturino/storefront/product/service"
)

const catalogProducts = `[
	{"id":1,"title":"Red Shoe","price":50,"category":{"id":1,"name":"Shoes"},"images":[],"creationAt":"2024-01-01T00:00:00.000Z"},
	{"id":2,"title":"Blue Shoe","price":20,"category":{"id":1,"name":"Shoes"},"images":[],"creationAt":"2024-02-01T00:00:00.000Z"},
	{"id":3,"title":"Desk","price":150,"category":{"id":2,"name":"Furniture"},"images":["https://i.imgur.com/d.png"],"creationAt":"2024-03-01T00:00:00.000Z"}
]`

type envelope struct {
	Status     string `json:"status"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Data       struct {
		Products []struct {
			ID int `json:"id"`
		} `json:"products"`
		Product struct {
			ID    int    `json:"id"`
			Title string `json:"title"`
		} `json:"product"`
	} `json:"data"`
}

func newRouter(t *testing.T) *mux.Router {
	t.Helper()
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/products", "/products/":
			_, _ = w.Write([]byte(catalogProducts))
		case "/products/3":
			_, _ = w.Write([]byte(`{"id":3,"title":"Desk","price":150,"category":"Furniture"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"not found"}`))
		}
	}))
	t.Cleanup(api.Close)

	client := catalog.NewClient(config.Catalog{BaseURL: api.URL, Timeout: 5 * time.Second})
	svc := service.NewProductService(client, retry.Config{MaxAttempts: 1, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond})
	router := mux.NewRouter()
	AttachProductController(router, svc)
	return router
}

func TestGetProducts(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantIDs    []int
	}{
		{
			name:       "given no query should list newest first",
			wantStatus: http.StatusOK,
			wantIDs:    []int{3, 2, 1},
		},
		{
			name:       "given search and price sort should filter and sort",
			query:      "?search=shoe&sortBy=price&sortOrder=asc",
			wantStatus: http.StatusOK,
			wantIDs:    []int{2, 1},
		},
		{
			name:       "given category and max price should filter",
			query:      "?category=1&maxPrice=30",
			wantStatus: http.StatusOK,
			wantIDs:    []int{2},
		},
		{
			name:       "given unknown sort key should be bad request",
			query:      "?sortBy=rating",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "given negative price should be bad request",
			query:      "?minPrice=-1",
			wantStatus: http.StatusBadRequest,
		},
	}

	router := newRouter(t)
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/products"+test.query, nil))

			require.Equal(t, test.wantStatus, recorder.Code)
			if test.wantStatus != http.StatusOK {
				return
			}
			body := envelope{}
			require.NoError(t, json.NewDecoder(recorder.Body).Decode(&body))
			assert.Equal(t, "success", body.Status)
			ids := []int{}
			for _, p := range body.Data.Products {
				ids = append(ids, p.ID)
			}
			assert.Equal(t, test.wantIDs, ids)
		})
	}
}

func TestFindProductById(t *testing.T) {
	router := newRouter(t)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/products/3", nil))
	require.Equal(t, http.StatusOK, recorder.Code)
	body := envelope{}
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&body))
	assert.Equal(t, "Desk", body.Data.Product.Title)

	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/products/99", nil))
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}
