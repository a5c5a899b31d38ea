package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	cartRes "github.com/Alturino/storefront/cart/pkg/response"
	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/notify"
	inOtel "github.com/Alturino/storefront/internal/otel"
	inMetric "github.com/Alturino/storefront/internal/otel/metric"
	"github.com/Alturino/storefront/order/internal/otel"
	"github.com/Alturino/storefront/order/pkg/response"
	productRes "github.com/Alturino/storefront/product/pkg/response"
	userRes "github.com/Alturino/storefront/user/pkg/response"
)

const (
	MinQuantity = 1
	MaxQuantity = 99
)

type Cart interface {
	Items(c context.Context) ([]cartRes.CartItem, error)
	Drain(c context.Context) ([]cartRes.CartItem, error)
}

type Sessions interface {
	Current(c context.Context) (userRes.Session, error)
}

// Archive keeps receipts beyond the receipt view.
type Archive interface {
	Save(c context.Context, order response.Order) (response.Order, error)
	FindByEmail(c context.Context, email string) ([]response.Order, error)
}

type CheckoutService struct {
	cart      Cart
	sessions  Sessions
	receipts  *ReceiptBox
	archive   Archive
	notifier  notify.Notifier
	now       func() time.Time
	checkouts metric.Int64Counter
}

// NewCheckoutService builds the checkout process. archive may be nil, in which
// case receipts are transient.
func NewCheckoutService(
	cart Cart,
	sessions Sessions,
	receipts *ReceiptBox,
	archive Archive,
	notifier notify.Notifier,
) *CheckoutService {
	return &CheckoutService{
		cart:      cart,
		sessions:  sessions,
		receipts:  receipts,
		archive:   archive,
		notifier:  notifier,
		now:       time.Now,
		checkouts: inMetric.Int64Counter("storefront.checkouts", "Completed checkouts by kind."),
	}
}

func (svc *CheckoutService) WithClock(now func() time.Time) *CheckoutService {
	svc.now = now
	return svc
}

// NewOrderNumber combines the millisecond timestamp with a random suffix.
func NewOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("ORD-%d-%s", now.UnixMilli(), suffix)
}

func (svc *CheckoutService) newOrder(email string, items []response.LineItem) response.Order {
	now := svc.now()
	return response.Order{
		OrderNumber: NewOrderNumber(now),
		Email:       email,
		CreatedAt:   now,
		LineItems:   items,
		Total:       response.Total(items),
	}
}

func (svc *CheckoutService) authenticate(c context.Context) (userRes.Session, error) {
	session, err := svc.sessions.Current(c)
	if errors.Is(err, inErrors.ErrUnauthenticated) {
		svc.notifier.Notify(c, "Please login to checkout", notify.KindError)
	}
	return session, err
}

// complete hands order to the receipt view and archives it when an archive is
// configured. Archive failures do not undo the checkout.
func (svc *CheckoutService) complete(c context.Context, kind string, order response.Order) response.Order {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CheckoutService complete").
		Str(log.KeyOrderNumber, order.OrderNumber).
		Logger()

	if svc.archive != nil {
		logger = logger.With().Str(log.KeyProcess, "archiving order").Logger()
		logger.Trace().Msg("archiving order")
		archived, err := svc.archive.Save(logger.WithContext(c), order)
		if err != nil {
			err = fmt.Errorf("failed archiving order with error=%w", err)
			logger.Error().Err(err).Msg(err.Error())
		} else {
			order = archived
			logger.Info().Msg("archived order")
		}
	}

	svc.receipts.Put(order)
	svc.checkouts.Add(c, 1, metric.WithAttributes(attribute.String("kind", kind)))
	svc.notifier.Notify(c, fmt.Sprintf("Order %s placed successfully", order.OrderNumber), notify.KindSuccess)
	return order
}

// Checkout turns the whole cart into an order and empties the cart. The order
// is built from the cart as it was at the moment it was emptied.
func (svc *CheckoutService) Checkout(c context.Context) (response.Order, error) {
	c, span := otel.Tracer.Start(c, "CheckoutService Checkout")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "CheckoutService Checkout").Logger()

	logger = logger.With().Str(log.KeyProcess, "checking session").Logger()
	logger.Trace().Msg("checking session")
	session, err := svc.authenticate(c)
	if err != nil {
		err = fmt.Errorf("failed checking out with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Warn().Err(err).Msg(err.Error())
		return response.Order{}, err
	}
	logger = logger.With().Str(log.KeyEmail, session.Email).Logger()

	logger = logger.With().Str(log.KeyProcess, "checking cart").Logger()
	items, err := svc.cart.Items(c)
	if err != nil {
		err = fmt.Errorf("failed reading cart with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Order{}, err
	}
	if len(items) == 0 {
		err = fmt.Errorf("failed checking out with error=%w", inErrors.ErrEmptyCart)
		inOtel.RecordError(err, span)
		logger.Warn().Err(err).Msg(err.Error())
		return response.Order{}, err
	}

	logger = logger.With().Str(log.KeyProcess, "draining cart").Logger()
	logger.Trace().Msg("draining cart")
	span.AddEvent("draining cart")
	drained, err := svc.cart.Drain(logger.WithContext(c))
	if err != nil {
		err = fmt.Errorf("failed draining cart with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Order{}, err
	}
	if len(drained) == 0 {
		err = fmt.Errorf("failed checking out with error=%w", inErrors.ErrEmptyCart)
		inOtel.RecordError(err, span)
		logger.Warn().Err(err).Msg(err.Error())
		return response.Order{}, err
	}
	span.AddEvent("drained cart")

	lines := make([]response.LineItem, len(drained))
	for i, item := range drained {
		lines[i] = response.LineItem{
			ProductID: item.ID,
			Title:     item.Title,
			Price:     item.Price,
			Quantity:  item.Quantity,
		}
	}
	order := svc.newOrder(session.Email, lines)
	logger = logger.With().
		Str(log.KeyOrderNumber, order.OrderNumber).
		Str(log.KeyTotal, order.Total.String()).
		Logger()
	logger.Info().Msg("created order")

	return svc.complete(logger.WithContext(c), "cart", order), nil
}

// BuyNow orders a single product without reading or writing the cart. The
// quantity is clamped to [1,99].
func (svc *CheckoutService) BuyNow(
	c context.Context,
	product productRes.Product,
	quantity int,
) (response.Order, error) {
	c, span := otel.Tracer.Start(c, "CheckoutService BuyNow")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CheckoutService BuyNow").
		Int(log.KeyProductID, product.ID).
		Int(log.KeyQuantity, quantity).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "checking session").Logger()
	session, err := svc.authenticate(c)
	if err != nil {
		err = fmt.Errorf("failed buying now with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Warn().Err(err).Msg(err.Error())
		return response.Order{}, err
	}

	quantity = min(max(quantity, MinQuantity), MaxQuantity)
	order := svc.newOrder(session.Email, []response.LineItem{{
		ProductID: product.ID,
		Title:     product.Title,
		Price:     product.Price,
		Quantity:  quantity,
	}})
	logger = logger.With().
		Str(log.KeyOrderNumber, order.OrderNumber).
		Str(log.KeyTotal, order.Total.String()).
		Logger()
	logger.Info().Msg("created order")

	return svc.complete(logger.WithContext(c), "buy_now", order), nil
}

// Receipt hands out the latest receipt once.
func (svc *CheckoutService) Receipt(c context.Context) (response.Order, error) {
	_, span := otel.Tracer.Start(c, "CheckoutService Receipt")
	defer span.End()

	order, err := svc.receipts.Take()
	if err != nil {
		inOtel.RecordError(err, span)
		return response.Order{}, err
	}
	return order, nil
}

// History lists the signed-in identity's archived orders.
func (svc *CheckoutService) History(c context.Context) ([]response.Order, error) {
	c, span := otel.Tracer.Start(c, "CheckoutService History")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "CheckoutService History").Logger()

	if svc.archive == nil {
		inOtel.RecordError(inErrors.ErrArchiveDisabled, span)
		return nil, inErrors.ErrArchiveDisabled
	}
	session, err := svc.sessions.Current(c)
	if err != nil {
		err = fmt.Errorf("failed listing orders with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Warn().Err(err).Msg(err.Error())
		return nil, err
	}

	logger = logger.With().Str(log.KeyEmail, session.Email).Str(log.KeyProcess, "finding orders").Logger()
	orders, err := svc.archive.FindByEmail(logger.WithContext(c), session.Email)
	if err != nil {
		err = fmt.Errorf("failed finding orders with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Int("orders", len(orders)).Msg("found orders")

	return orders, nil
}
