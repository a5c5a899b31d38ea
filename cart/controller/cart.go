package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Alturino/storefront/cart/internal/otel"
	"github.com/Alturino/storefront/cart/pkg/request"
	"github.com/Alturino/storefront/cart/pkg/response"
	"github.com/Alturino/storefront/cart/service"
	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/log"
	inOtel "github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/internal/validate"
	productRes "github.com/Alturino/storefront/product/pkg/response"
)

type ProductFinder interface {
	FindProductById(c context.Context, id int) (productRes.Product, error)
}

type CartController struct {
	cart     *service.CartStore
	products ProductFinder
	validate *validator.Validate
}

func AttachCartController(router *mux.Router, cart *service.CartStore, products ProductFinder) {
	controller := CartController{cart: cart, products: products, validate: validate.New()}

	cartRouter := router.PathPrefix("/cart").Subrouter()
	cartRouter.HandleFunc("", controller.GetCart).Methods(http.MethodGet)
	cartRouter.HandleFunc("", controller.ClearCart).Methods(http.MethodDelete)
	cartRouter.HandleFunc("/items", controller.AddItem).Methods(http.MethodPost)
	cartRouter.HandleFunc("/items/{productId:[0-9]+}", controller.SetQuantity).Methods(http.MethodPut)
	cartRouter.HandleFunc("/items/{productId:[0-9]+}", controller.RemoveItem).Methods(http.MethodDelete)
}

func writeCart(c context.Context, w http.ResponseWriter, message string, items []response.CartItem) {
	inHttp.WriteSuccess(c, w, http.StatusOK, message, map[string]interface{}{
		"cart": response.NewCart(items),
	})
}

func productID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(mux.Vars(r)["productId"])
	if err != nil {
		return 0, fmt.Errorf("failed parsing productId with error=%w", err)
	}
	return id, nil
}

func (ctrl CartController) GetCart(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController GetCart")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "CartController GetCart").Logger()

	logger = logger.With().Str(log.KeyProcess, "reading cart").Logger()
	c = logger.WithContext(c)
	items, err := ctrl.cart.Items(c)
	if err != nil {
		err = fmt.Errorf("failed reading cart with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, inHttp.StatusCode(err), err.Error())
		return
	}
	logger.Info().Int(log.KeyCartItems, len(items)).Msg("read cart")

	writeCart(c, w, "successfully read cart", items)
}

func (ctrl CartController) AddItem(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController AddItem")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "CartController AddItem").Logger()

	logger = logger.With().Str(log.KeyProcess, "decoding request body").Logger()
	logger.Trace().Msg("decoding request body")
	reqBody := request.AddItem{}
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		err = fmt.Errorf("failed decoding request body with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, http.StatusBadRequest, err.Error())
		return
	}
	logger.Trace().Msg("decoded request body")

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
	span.SetAttributes(attribute.Int(log.KeyProductID, reqBody.ProductID))
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

	logger = logger.With().Str(log.KeyProcess, "adding item").Logger()
	c = logger.WithContext(c)
	items, err := ctrl.cart.AddItem(c, product, reqBody.Quantity)
	if err != nil {
		err = fmt.Errorf("failed adding item with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, inHttp.StatusCode(err), err.Error())
		return
	}
	logger.Info().Msg("added item")

	writeCart(c, w, "successfully added item", items)
}

func (ctrl CartController) SetQuantity(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController SetQuantity")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "CartController SetQuantity").Logger()

	id, err := productID(r)
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, http.StatusBadRequest, err.Error())
		return
	}

	logger = logger.With().Str(log.KeyProcess, "decoding request body").Logger()
	reqBody := request.SetQuantity{}
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		err = fmt.Errorf("failed decoding request body with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, http.StatusBadRequest, err.Error())
		return
	}
	span.SetAttributes(attribute.Int(log.KeyProductID, id), attribute.Int(log.KeyQuantity, reqBody.Quantity))
	logger = logger.With().Int(log.KeyProductID, id).Int(log.KeyQuantity, reqBody.Quantity).Logger()

	logger = logger.With().Str(log.KeyProcess, "setting quantity").Logger()
	c = logger.WithContext(c)
	items, err := ctrl.cart.SetQuantity(c, id, reqBody.Quantity)
	if err != nil {
		err = fmt.Errorf("failed setting quantity with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, inHttp.StatusCode(err), err.Error())
		return
	}
	logger.Info().Msg("set quantity")

	writeCart(c, w, "successfully set quantity", items)
}

func (ctrl CartController) RemoveItem(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController RemoveItem")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "CartController RemoveItem").Logger()

	id, err := productID(r)
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, http.StatusBadRequest, err.Error())
		return
	}
	span.SetAttributes(attribute.Int(log.KeyProductID, id))

	logger = logger.With().Int(log.KeyProductID, id).Str(log.KeyProcess, "removing item").Logger()
	c = logger.WithContext(c)
	items, err := ctrl.cart.RemoveItem(c, id)
	if err != nil {
		err = fmt.Errorf("failed removing item with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, inHttp.StatusCode(err), err.Error())
		return
	}
	logger.Info().Msg("removed item")

	writeCart(c, w, "successfully removed item", items)
}

func (ctrl CartController) ClearCart(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController ClearCart")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "CartController ClearCart").Logger()

	logger = logger.With().Str(log.KeyProcess, "clearing cart").Logger()
	c = logger.WithContext(c)
	if err := ctrl.cart.Clear(c); err != nil {
		err = fmt.Errorf("failed clearing cart with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, inHttp.StatusCode(err), err.Error())
		return
	}
	logger.Info().Msg("cleared cart")

	writeCart(c, w, "successfully cleared cart", []response.CartItem{})
}
