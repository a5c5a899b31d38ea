package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Alturino/storefront/internal/catalog"
	"github.com/Alturino/storefront/internal/log"
	inOtel "github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/internal/retry"
	"github.com/Alturino/storefront/product/internal/otel"
	"github.com/Alturino/storefront/product/pkg/request"
	"github.com/Alturino/storefront/product/pkg/response"
)

// Catalog is the read side of the remote catalog API.
type Catalog interface {
	Products(c context.Context, title string) ([]response.Product, error)
	Product(c context.Context, id int) (response.Product, error)
	Categories(c context.Context) ([]response.Category, error)
	CategoryProducts(c context.Context, categoryID int) ([]response.Product, error)
}

type ProductService struct {
	catalog Catalog
	retry   retry.Config
}

func NewProductService(catalog Catalog, retryConfig retry.Config) *ProductService {
	return &ProductService{catalog: catalog, retry: retryConfig}
}

// ListProducts fetches the catalog, using the query as the remote title
// search, and derives the displayed list from it.
func (svc *ProductService) ListProducts(
	c context.Context,
	param request.ListProducts,
) ([]response.Product, error) {
	c, span := otel.Tracer.Start(c, "ProductService ListProducts", trace.WithAttributes(attribute.String(log.KeyQuery, param.Query)))
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ProductService ListProducts").
		Str(log.KeyQuery, param.Query).
		Any(log.KeyFilter, param.Filter).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "fetching products").Logger()
	logger.Trace().Msg("fetching products")
	span.AddEvent("fetching products")
	products, err := svc.catalog.Products(logger.WithContext(c), param.Query)
	if err != nil {
		err = fmt.Errorf("failed fetching products with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	span.AddEvent("fetched products")
	logger.Info().Int(log.KeyProducts, len(products)).Msg("fetched products")

	logger = logger.With().Str(log.KeyProcess, "deriving products").Logger()
	derived := Derive(products, param.Query, param.Filter)
	logger.Info().Int(log.KeyProducts, len(derived)).Msg("derived products")

	return derived, nil
}

func (svc *ProductService) FindProductById(c context.Context, id int) (response.Product, error) {
	c, span := otel.Tracer.Start(c, "ProductService FindProductById", trace.WithAttributes(attribute.Int(log.KeyProductID, id)))
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ProductService FindProductById").
		Int(log.KeyProductID, id).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "fetching product").Logger()
	logger.Trace().Msg("fetching product")
	product, err := svc.catalog.Product(logger.WithContext(c), id)
	if err != nil {
		err = fmt.Errorf("failed fetching product with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Product{}, err
	}
	logger.Info().Msg("fetched product")

	return product, nil
}

// ListCategories retries transient failures with backoff. A 4xx answer is
// not retried.
func (svc *ProductService) ListCategories(c context.Context) ([]response.Category, error) {
	c, span := otel.Tracer.Start(c, "ProductService ListCategories")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "ProductService ListCategories").Logger()

	logger = logger.With().Str(log.KeyProcess, "fetching categories").Logger()
	logger.Trace().Msg("fetching categories")
	span.AddEvent("fetching categories")
	categories, err := retry.Do(
		logger.WithContext(c),
		svc.retry,
		func(c context.Context) ([]response.Category, error) {
			categories, err := svc.catalog.Categories(c)
			if catalog.ClientError(err) {
				return nil, retry.Permanent(err)
			}
			return categories, err
		},
	)
	if err != nil {
		err = fmt.Errorf("failed fetching categories with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	span.AddEvent("fetched categories")
	logger.Info().Int(log.KeyCategories, len(categories)).Msg("fetched categories")

	return categories, nil
}

// ProductsByCategory lists one category's products. The category is already
// applied remotely, so the filter's own category is ignored.
func (svc *ProductService) ProductsByCategory(
	c context.Context,
	categoryID int,
	param request.ListProducts,
) ([]response.Product, error) {
	c, span := otel.Tracer.Start(c, "ProductService ProductsByCategory", trace.WithAttributes(attribute.Int(log.KeyCategoryID, categoryID)))
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ProductService ProductsByCategory").
		Int(log.KeyCategoryID, categoryID).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "fetching category products").Logger()
	logger.Trace().Msg("fetching category products")
	products, err := svc.catalog.CategoryProducts(logger.WithContext(c), categoryID)
	if err != nil {
		err = fmt.Errorf("failed fetching category products with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Int(log.KeyProducts, len(products)).Msg("fetched category products")

	param.Filter.Category = nil
	return Derive(products, param.Query, param.Filter), nil
}
