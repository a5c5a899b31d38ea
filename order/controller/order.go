package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/log"
	inOtel "github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/internal/validate"
	"github.com/Alturino/storefront/order/internal/otel"
	"github.com/Alturino/storefront/order/pkg/request"
	"github.com/Alturino/storefront/order/service"
	productRes "github.com/Alturino/storefront/product/pkg/response"
)

type ProductFinder interface {
	FindProductById(c context.Context, id int) (productRes.Product, error)
}

type OrderController struct {
	checkout *service.CheckoutService
	products ProductFinder
	validate *validator.Validate
}

func AttachOrderController(router *mux.Router, checkout *service.CheckoutService, products ProductFinder) {
	controller := OrderController{checkout: checkout, products: products, validate: validate.New()}

	router.HandleFunc("/checkout", controller.Checkout).Methods(http.MethodPost)
	router.HandleFunc("/checkout/buy-now", controller.BuyNow).Methods(http.MethodPost)
	router.HandleFunc("/receipt", controller.Receipt).Methods(http.MethodGet)
	router.HandleFunc("/orders", controller.FindOrders).Methods(http.MethodGet)
}

func (ctrl OrderController) Checkout(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "OrderController Checkout")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "OrderController Checkout").Logger()

	logger = logger.With().Str(log.KeyProcess, "checking out").Logger()
	c = logger.WithContext(c)
	order, err := ctrl.checkout.Checkout(c)
	if err != nil {
		err = fmt.Errorf("failed checking out with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, inHttp.StatusCode(err), err.Error())
		return
	}
	logger.Info().Str(log.KeyOrderNumber, order.OrderNumber).Msg("checked out")

	inHttp.WriteSuccess(c, w, http.StatusCreated, "successfully checked out", map[string]interface{}{
		"order": order,
	})
}

func (ctrl OrderController) BuyNow(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "OrderController BuyNow")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "OrderController BuyNow").Logger()

	logger = logger.With().Str(log.KeyProcess, "decoding request body").Logger()
	reqBody := request.BuyNow{}
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		err = fmt.Errorf("failed decoding request body with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, http.StatusBadRequest, err.Error())
		return
	}

	logger = logger.With().Str(log.KeyProcess, "validating request body").Logger()
	if err := ctrl.validate.StructCtx(c, reqBody); err != nil {
		err = fmt.Errorf("failed validating request body with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, http.StatusBadRequest, err.Error())
		return
	}
	if reqBody.Quantity == 0 {
		reqBody.Quantity = 1
	}
	logger = logger.With().
		Int(log.KeyProductID, reqBody.ProductID).
		Int(log.KeyQuantity, reqBody.Quantity).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "finding product").Logger()
	c = logger.WithContext(c)
	product, err := ctrl.products.FindProductById(c, reqBody.ProductID)
	if err != nil {
		err = fmt.Errorf("failed finding product with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, inHttp.StatusCode(err), err.Error())
		return
	}

	logger = logger.With().Str(log.KeyProcess, "buying now").Logger()
	c = logger.WithContext(c)
	order, err := ctrl.checkout.BuyNow(c, product, reqBody.Quantity)
	if err != nil {
		err = fmt.Errorf("failed buying now with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, inHttp.StatusCode(err), err.Error())
		return
	}
	logger.Info().Str(log.KeyOrderNumber, order.OrderNumber).Msg("bought now")

	inHttp.WriteSuccess(c, w, http.StatusCreated, "successfully placed order", map[string]interface{}{
		"order": order,
	})
}

func (ctrl OrderController) Receipt(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "OrderController Receipt")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "OrderController Receipt").Logger()

	logger = logger.With().Str(log.KeyProcess, "taking receipt").Logger()
	c = logger.WithContext(c)
	order, err := ctrl.checkout.Receipt(c)
	if err != nil {
		err = fmt.Errorf("failed taking receipt with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Info().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, inHttp.StatusCode(err), err.Error())
		return
	}

	inHttp.WriteSuccess(c, w, http.StatusOK, "successfully took receipt", map[string]interface{}{
		"order": order,
	})
}

func (ctrl OrderController) FindOrders(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "OrderController FindOrders")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "OrderController FindOrders").Logger()

	logger = logger.With().Str(log.KeyProcess, "finding orders").Logger()
	c = logger.WithContext(c)
	orders, err := ctrl.checkout.History(c)
	if err != nil {
		err = fmt.Errorf("failed finding orders with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, inHttp.StatusCode(err), err.Error())
		return
	}
	logger.Info().Int("orders", len(orders)).Msg("found orders")

	inHttp.WriteSuccess(c, w, http.StatusOK, "successfully found orders", map[string]interface{}{
		"orders": orders,
	})
}
