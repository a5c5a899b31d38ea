package controller

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/log"
	inOtel "github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/internal/validate"
	"github.com/Alturino/storefront/product/internal/otel"
	"github.com/Alturino/storefront/product/pkg/request"
	"github.com/Alturino/storefront/product/service"
)

type ProductController struct {
	service  *service.ProductService
	validate *validator.Validate
}

func AttachProductController(router *mux.Router, svc *service.ProductService) {
	controller := ProductController{service: svc, validate: validate.New()}

	router.HandleFunc("/products", controller.GetProducts).Methods(http.MethodGet)
	router.HandleFunc("/products/{productId:[0-9]+}", controller.FindProductById).Methods(http.MethodGet)
	router.HandleFunc("/categories", controller.GetCategories).Methods(http.MethodGet)
	router.HandleFunc("/categories/{categoryId:[0-9]+}/products", controller.GetCategoryProducts).
		Methods(http.MethodGet)
}

func (ctrl ProductController) parseListing(r *http.Request) (request.ListProducts, error) {
	param, err := request.ListProductsFromQuery(r.URL.Query())
	if err != nil {
		return request.ListProducts{}, err
	}
	if err := ctrl.validate.StructCtx(r.Context(), param.Filter); err != nil {
		return request.ListProducts{}, fmt.Errorf("failed validating filter with error=%w", err)
	}
	return param, nil
}

func (ctrl ProductController) GetProducts(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "ProductController GetProducts")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "ProductController GetProducts").Logger()

	logger = logger.With().Str(log.KeyProcess, "parsing listing query").Logger()
	logger.Trace().Msg("parsing listing query")
	param, err := ctrl.parseListing(r.WithContext(c))
	if err != nil {
		err = fmt.Errorf("failed parsing listing query with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, http.StatusBadRequest, err.Error())
		return
	}
	logger.Trace().Msg("parsed listing query")

	logger = logger.With().Str(log.KeyProcess, "listing products").Logger()
	c = logger.WithContext(c)
	products, err := ctrl.service.ListProducts(c, param)
	if err != nil {
		err = fmt.Errorf("failed listing products with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, inHttp.StatusCode(err), err.Error())
		return
	}
	logger.Info().Int(log.KeyProducts, len(products)).Msg("listed products")

	inHttp.WriteSuccess(c, w, http.StatusOK, "successfully listed products", map[string]interface{}{
		"products": products,
		"filter":   param.Filter,
	})
}

func (ctrl ProductController) FindProductById(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "ProductController FindProductById")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "ProductController FindProductById").Logger()

	logger = logger.With().Str(log.KeyProcess, "parsing productId").Logger()
	productID, err := strconv.Atoi(mux.Vars(r)["productId"])
	if err != nil {
		err = fmt.Errorf("failed parsing productId with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, http.StatusBadRequest, err.Error())
		return
	}
	logger = logger.With().Int(log.KeyProductID, productID).Logger()

	logger = logger.With().Str(log.KeyProcess, "finding product").Logger()
	c = logger.WithContext(c)
	product, err := ctrl.service.FindProductById(c, productID)
	if err != nil {
		err = fmt.Errorf("failed finding product with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, inHttp.StatusCode(err), err.Error())
		return
	}
	logger.Info().Msg("found product")

	inHttp.WriteSuccess(c, w, http.StatusOK, "successfully found product", map[string]interface{}{
		"product": product,
	})
}

func (ctrl ProductController) GetCategories(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "ProductController GetCategories")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "ProductController GetCategories").Logger()

	logger = logger.With().Str(log.KeyProcess, "listing categories").Logger()
	c = logger.WithContext(c)
	categories, err := ctrl.service.ListCategories(c)
	if err != nil {
		err = fmt.Errorf("failed listing categories with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, inHttp.StatusCode(err), err.Error())
		return
	}
	logger.Info().Int(log.KeyCategories, len(categories)).Msg("listed categories")

	inHttp.WriteSuccess(c, w, http.StatusOK, "successfully listed categories", map[string]interface{}{
		"categories": categories,
	})
}

func (ctrl ProductController) GetCategoryProducts(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "ProductController GetCategoryProducts")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "ProductController GetCategoryProducts").Logger()

	logger = logger.With().Str(log.KeyProcess, "parsing categoryId").Logger()
	categoryID, err := strconv.Atoi(mux.Vars(r)["categoryId"])
	if err != nil {
		err = fmt.Errorf("failed parsing categoryId with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, http.StatusBadRequest, err.Error())
		return
	}
	logger = logger.With().Int(log.KeyCategoryID, categoryID).Logger()

	param, err := ctrl.parseListing(r.WithContext(c))
	if err != nil {
		err = fmt.Errorf("failed parsing listing query with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, http.StatusBadRequest, err.Error())
		return
	}

	logger = logger.With().Str(log.KeyProcess, "listing category products").Logger()
	c = logger.WithContext(c)
	products, err := ctrl.service.ProductsByCategory(c, categoryID, param)
	if err != nil {
		err = fmt.Errorf("failed listing category products with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, inHttp.StatusCode(err), err.Error())
		return
	}
	logger.Info().Int(log.KeyProducts, len(products)).Msg("listed category products")

	inHttp.WriteSuccess(c, w, http.StatusOK, "successfully listed category products", map[string]interface{}{
		"products": products,
	})
}
