// Package catalog talks to the remote catalog and auth REST API.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	otelapi "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/Alturino/storefront/internal/config"
	"github.com/Alturino/storefront/internal/constants"
	inErrors "github.com/Alturino/storefront/internal/errors"
	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
	inMetric "github.com/Alturino/storefront/internal/otel/metric"
	"github.com/Alturino/storefront/internal/validate"
	productRes "github.com/Alturino/storefront/product/pkg/response"
	userReq "github.com/Alturino/storefront/user/pkg/request"
	userRes "github.com/Alturino/storefront/user/pkg/response"
)

var tracer = otelapi.Tracer(constants.AppCatalog)

// StatusError is a non-2xx answer from the catalog API.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("catalog responded with status=%d", e.StatusCode)
	}
	return fmt.Sprintf("catalog responded with status=%d message=%s", e.StatusCode, e.Message)
}

func (e *StatusError) Unwrap() error {
	return inErrors.ErrFetchFailed
}

// ClientError reports whether err is a 4xx answer, which retrying will not fix.
func ClientError(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) &&
		statusErr.StatusCode >= http.StatusBadRequest &&
		statusErr.StatusCode < http.StatusInternalServerError
}

type Client struct {
	baseURL  string
	http     *http.Client
	validate *validator.Validate
	failures metric.Int64Counter
}

func NewClient(cfg config.Catalog) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		validate: validate.New(),
		failures: inMetric.Int64Counter("storefront.catalog.failures", "Failed catalog requests by method."),
	}
}

func (cl *Client) do(
	c context.Context,
	method string,
	path string,
	body interface{},
	token string,
	out interface{},
) (err error) {
	defer func() {
		if err != nil {
			cl.failures.Add(c, 1, metric.WithAttributes(attribute.String(log.KeyRequestMethod, method)))
		}
	}()

	endpoint := cl.baseURL + path
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "catalog Client do").
		Str(log.KeyRequestMethod, method).
		Str(log.KeyURL, endpoint).
		Logger()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed encoding request body with error=%w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	logger = logger.With().Str(log.KeyProcess, "creating request").Logger()
	req, err := http.NewRequestWithContext(c, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed creating request with error=%w", err)
	}
	req.Header.Set("Accept", inHttp.ValueHeaderApplicationJson)
	if body != nil {
		req.Header.Set(inHttp.KeyHeaderContentType, inHttp.ValueHeaderApplicationJson)
	}
	if token != "" {
		req.Header.Set(inHttp.KeyHeaderAuthorization, inHttp.ValueBearerPrefix+token)
	}
	if requestID := log.RequestIDFromContext(c); requestID != "" {
		req.Header.Set(inHttp.KeyHeaderRequestID, requestID)
	}

	logger = logger.With().Str(log.KeyProcess, "sending request").Logger()
	logger.Trace().Msg("sending request")
	resp, err := cl.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed sending request with error=%w", errors.Join(inErrors.ErrFetchFailed, err))
	}
	defer resp.Body.Close()
	logger = logger.With().Int(log.KeyStatusCode, resp.StatusCode).Logger()
	logger.Trace().Msg("received response")

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed reading response body with error=%w", errors.Join(inErrors.ErrFetchFailed, err))
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &StatusError{StatusCode: resp.StatusCode, Message: errorMessage(payload)}
	}

	logger = logger.With().Str(log.KeyProcess, "decoding response").Logger()
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("failed decoding response body with error=%w", errors.Join(inErrors.ErrFetchFailed, err))
	}
	logger.Trace().Msg("decoded response")

	return nil
}

// errorMessage extracts "message" from an API error body, which may be a
// string or a list of strings.
func errorMessage(payload []byte) string {
	body := struct {
		Message json.RawMessage `json:"message"`
	}{}
	if err := json.Unmarshal(payload, &body); err != nil || len(body.Message) == 0 {
		return ""
	}
	var single string
	if err := json.Unmarshal(body.Message, &single); err == nil {
		return single
	}
	var many []string
	if err := json.Unmarshal(body.Message, &many); err == nil {
		return strings.Join(many, "; ")
	}
	return ""
}

func (cl *Client) validProducts(products []productRes.Product) error {
	for i, product := range products {
		if err := cl.validate.Struct(product); err != nil {
			return fmt.Errorf("product at index=%d is invalid with error=%w", i, errors.Join(inErrors.ErrMissingField, err))
		}
	}
	return nil
}

// Products lists the catalog. A non-empty title is passed to the API as a
// title search.
func (cl *Client) Products(c context.Context, title string) ([]productRes.Product, error) {
	c, span := tracer.Start(c, "Client Products", trace.WithAttributes(attribute.String(log.KeyQuery, title)))
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "Client Products").Str(log.KeyQuery, title).Logger()

	path := "/products"
	if title != "" {
		path = "/products/?title=" + url.QueryEscape(title)
	}

	logger = logger.With().Str(log.KeyProcess, "fetching products").Logger()
	logger.Info().Msg("fetching products")
	products := []productRes.Product{}
	if err := cl.do(logger.WithContext(c), http.MethodGet, path, nil, "", &products); err != nil {
		err = fmt.Errorf("failed fetching products with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	if err := cl.validProducts(products); err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Int(log.KeyProducts, len(products)).Msg("fetched products")

	return products, nil
}

func (cl *Client) Product(c context.Context, id int) (productRes.Product, error) {
	c, span := tracer.Start(c, "Client Product", trace.WithAttributes(attribute.Int(log.KeyProductID, id)))
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "Client Product").Int(log.KeyProductID, id).Logger()

	logger = logger.With().Str(log.KeyProcess, "fetching product").Logger()
	logger.Info().Msg("fetching product")
	product := productRes.Product{}
	err := cl.do(logger.WithContext(c), http.MethodGet, "/products/"+strconv.Itoa(id), nil, "", &product)
	if ClientError(err) {
		err = fmt.Errorf("failed fetching productId=%d with error=%w", id, errors.Join(inErrors.ErrProductNotFound, err))
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return productRes.Product{}, err
	}
	if err != nil {
		err = fmt.Errorf("failed fetching productId=%d with error=%w", id, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return productRes.Product{}, err
	}
	if err := cl.validProducts([]productRes.Product{product}); err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return productRes.Product{}, err
	}
	logger.Info().Msg("fetched product")

	return product, nil
}

func (cl *Client) Categories(c context.Context) ([]productRes.Category, error) {
	c, span := tracer.Start(c, "Client Categories")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "Client Categories").Logger()

	logger = logger.With().Str(log.KeyProcess, "fetching categories").Logger()
	logger.Info().Msg("fetching categories")
	categories := []productRes.Category{}
	if err := cl.do(logger.WithContext(c), http.MethodGet, "/categories", nil, "", &categories); err != nil {
		err = fmt.Errorf("failed fetching categories with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	for i, category := range categories {
		if err := cl.validate.Struct(category); err != nil {
			err = fmt.Errorf("category at index=%d is invalid with error=%w", i, errors.Join(inErrors.ErrMissingField, err))
			otel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return nil, err
		}
	}
	logger.Info().Int(log.KeyCategories, len(categories)).Msg("fetched categories")

	return categories, nil
}

func (cl *Client) CategoryProducts(c context.Context, categoryID int) ([]productRes.Product, error) {
	c, span := tracer.Start(c, "Client CategoryProducts", trace.WithAttributes(attribute.Int(log.KeyCategoryID, categoryID)))
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Client CategoryProducts").
		Int(log.KeyCategoryID, categoryID).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "fetching category products").Logger()
	logger.Info().Msg("fetching category products")
	products := []productRes.Product{}
	path := "/categories/" + strconv.Itoa(categoryID) + "/products"
	if err := cl.do(logger.WithContext(c), http.MethodGet, path, nil, "", &products); err != nil {
		err = fmt.Errorf("failed fetching products of categoryId=%d with error=%w", categoryID, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	if err := cl.validProducts(products); err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Int(log.KeyProducts, len(products)).Msg("fetched category products")

	return products, nil
}

// Login exchanges credentials for an access token.
func (cl *Client) Login(c context.Context, param userReq.LoginRequest) (string, error) {
	c, span := tracer.Start(c, "Client Login")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "Client Login").Str(log.KeyEmail, param.Email).Logger()

	logger = logger.With().Str(log.KeyProcess, "logging in").Logger()
	logger.Info().Msg("logging in")
	body := map[string]string{"email": param.Email, "password": param.Password}
	tokens := struct {
		AccessToken string `json:"access_token"`
	}{}
	if err := cl.do(logger.WithContext(c), http.MethodPost, "/auth/login", body, "", &tokens); err != nil {
		err = fmt.Errorf("failed logging in with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return "", err
	}
	if tokens.AccessToken == "" {
		err := fmt.Errorf("failed logging in with error=%w", fmt.Errorf("%w: access_token", inErrors.ErrMissingField))
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return "", err
	}
	logger.Info().Msg("logged in")

	return tokens.AccessToken, nil
}

func (cl *Client) Profile(c context.Context, token string) (userRes.Profile, error) {
	c, span := tracer.Start(c, "Client Profile")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "Client Profile").Logger()

	logger = logger.With().Str(log.KeyProcess, "fetching profile").Logger()
	logger.Info().Msg("fetching profile")
	profile := userRes.Profile{}
	if err := cl.do(logger.WithContext(c), http.MethodGet, "/auth/profile", nil, token, &profile); err != nil {
		err = fmt.Errorf("failed fetching profile with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return userRes.Profile{}, err
	}
	if err := cl.validate.Struct(profile); err != nil {
		err = fmt.Errorf("failed fetching profile with error=%w", errors.Join(inErrors.ErrMissingField, err))
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return userRes.Profile{}, err
	}
	logger.Info().Str(log.KeyEmail, profile.Email).Msg("fetched profile")

	return profile, nil
}

func (cl *Client) Register(c context.Context, param userReq.Register) (userRes.Profile, error) {
	c, span := tracer.Start(c, "Client Register")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "Client Register").Str(log.KeyEmail, param.Email).Logger()

	logger = logger.With().Str(log.KeyProcess, "registering user").Logger()
	logger.Info().Msg("registering user")
	body := map[string]string{
		"name":     param.Name,
		"email":    param.Email,
		"password": param.Password,
		"avatar":   param.Avatar,
	}
	profile := userRes.Profile{}
	if err := cl.do(logger.WithContext(c), http.MethodPost, "/users", body, "", &profile); err != nil {
		err = fmt.Errorf("failed registering user with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return userRes.Profile{}, err
	}
	if err := cl.validate.Struct(profile); err != nil {
		err = fmt.Errorf("failed registering user with error=%w", errors.Join(inErrors.ErrMissingField, err))
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return userRes.Profile{}, err
	}
	logger.Info().Int("userId", profile.ID).Msg("registered user")

	return profile, nil
}
