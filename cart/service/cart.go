package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/Alturino/storefront/cart/internal/otel"
	"github.com/Alturino/storefront/cart/pkg/response"
	"github.com/Alturino/storefront/internal/config"
	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/kv"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/notify"
	inOtel "github.com/Alturino/storefront/internal/otel"
	inMetric "github.com/Alturino/storefront/internal/otel/metric"
	productRes "github.com/Alturino/storefront/product/pkg/response"
	userRes "github.com/Alturino/storefront/user/pkg/response"
)

const (
	MinQuantity = 1
	MaxQuantity = 99

	KeyActiveCart = "cart"
)

// KeyIdentityCart is the slot a signed-in identity's cart is archived in.
func KeyIdentityCart(email string) string {
	return "cart_" + email
}

// Sessions reports the active session, or errors.ErrUnauthenticated.
type Sessions interface {
	Current(c context.Context) (userRes.Session, error)
}

// Listener receives the cart after every change.
type Listener func(items []response.CartItem)

// CartStore is the active cart mirrored to the key-value store. Mutations are
// serialized and persisted before they return.
type CartStore struct {
	mu        sync.Mutex
	store     kv.Store
	sessions  Sessions
	notifier  notify.Notifier
	policy    string
	listeners map[int]Listener
	nextID    int
	mutations metric.Int64Counter
}

func NewCartStore(
	store kv.Store,
	sessions Sessions,
	notifier notify.Notifier,
	cfg config.Cart,
) *CartStore {
	policy := cfg.ArchivePolicy
	if policy != config.ArchiveOnMutation {
		policy = config.ArchiveOnLogout
	}
	return &CartStore{
		store:     store,
		sessions:  sessions,
		notifier:  notifier,
		policy:    policy,
		listeners: map[int]Listener{},
		mutations: inMetric.Int64Counter("storefront.cart.mutations", "Cart mutations by operation."),
	}
}

func clamp(quantity int) int {
	return min(max(quantity, MinQuantity), MaxQuantity)
}

// Subscribe registers fn for change notifications. Listeners run on the
// mutating goroutine after the change is persisted.
func (s *CartStore) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *CartStore) publish(items []response.CartItem) {
	s.mu.Lock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		snapshot := make([]response.CartItem, len(items))
		copy(snapshot, items)
		fn(snapshot)
	}
}

func decode(raw string) ([]response.CartItem, error) {
	items := []response.CartItem{}
	if raw == "" {
		return items, nil
	}
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, err
	}
	return items, nil
}

// load reads a cart slot. A missing or corrupt slot is an empty cart.
func (s *CartStore) load(c context.Context, key string) ([]response.CartItem, error) {
	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "CartStore load").Str(log.KeyStorageKey, key).Logger()

	raw, err := s.store.Get(c, key)
	if errors.Is(err, inErrors.ErrNotFound) {
		return []response.CartItem{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed reading key=%s with error=%w", key, err)
	}
	items, err := decode(raw)
	if err != nil {
		logger.Warn().Err(err).Msg("discarding unreadable cart")
		return []response.CartItem{}, nil
	}
	return items, nil
}

// persist writes the full cart to the active slot and, under the mutation
// archive policy, to the signed-in identity's slot as well.
func (s *CartStore) persist(c context.Context, items []response.CartItem) error {
	encoded, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed encoding cart with error=%w", err)
	}
	if err := s.store.Set(c, KeyActiveCart, string(encoded)); err != nil {
		return fmt.Errorf("failed writing active cart with error=%w", err)
	}
	if s.policy != config.ArchiveOnMutation {
		return nil
	}
	session, err := s.sessions.Current(c)
	if errors.Is(err, inErrors.ErrUnauthenticated) {
		return nil
	}
	if err != nil {
		return err
	}
	if session.Email == "" {
		return nil
	}
	if err := s.store.Set(c, KeyIdentityCart(session.Email), string(encoded)); err != nil {
		return fmt.Errorf("failed writing identity cart with error=%w", err)
	}
	return nil
}

// mutate loads the active cart, applies fn and persists the result. fn
// reports whether it changed anything.
func (s *CartStore) mutate(
	c context.Context,
	operation string,
	fn func(items []response.CartItem) ([]response.CartItem, bool),
) ([]response.CartItem, bool, error) {
	s.mu.Lock()
	items, err := s.load(c, KeyActiveCart)
	if err != nil {
		s.mu.Unlock()
		return nil, false, err
	}
	items, changed := fn(items)
	if !changed {
		s.mu.Unlock()
		return items, false, nil
	}
	if err := s.persist(c, items); err != nil {
		s.mu.Unlock()
		return nil, false, err
	}
	s.mu.Unlock()

	s.mutations.Add(c, 1, metric.WithAttributes(attribute.String("operation", operation)))
	s.publish(items)
	return items, true, nil
}

func (s *CartStore) Items(c context.Context) ([]response.CartItem, error) {
	c, span := otel.Tracer.Start(c, "CartStore Items")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()
	items, err := s.load(c, KeyActiveCart)
	if err != nil {
		inOtel.RecordError(err, span)
		return nil, err
	}
	return items, nil
}

func (s *CartStore) Cart(c context.Context) (response.Cart, error) {
	items, err := s.Items(c)
	if err != nil {
		return response.Cart{}, err
	}
	return response.NewCart(items), nil
}

// AddItem merges product into the cart. The added quantity is clamped to
// [1,99] and a merged quantity is capped at 99. Without an active session it
// returns errors.ErrUnauthenticated and leaves the cart alone.
func (s *CartStore) AddItem(
	c context.Context,
	product productRes.Product,
	quantity int,
) ([]response.CartItem, error) {
	c, span := otel.Tracer.Start(
		c,
		"CartStore AddItem",
		trace.WithAttributes(attribute.Int(log.KeyProductID, product.ID), attribute.Int(log.KeyQuantity, quantity)),
	)
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartStore AddItem").
		Int(log.KeyProductID, product.ID).
		Int(log.KeyQuantity, quantity).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "checking session").Logger()
	logger.Trace().Msg("checking session")
	if _, err := s.sessions.Current(c); err != nil {
		err = fmt.Errorf("failed adding item with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Warn().Err(err).Msg(err.Error())
		if errors.Is(err, inErrors.ErrUnauthenticated) {
			s.notifier.Notify(c, "Please login to add items to cart", notify.KindError)
		}
		return nil, err
	}
	logger.Trace().Msg("checked session")

	quantity = clamp(quantity)
	logger = logger.With().Str(log.KeyProcess, "merging item").Logger()
	logger.Trace().Msg("merging item")
	items, _, err := s.mutate(c, "add", func(items []response.CartItem) ([]response.CartItem, bool) {
		for i := range items {
			if items[i].ID == product.ID {
				items[i].Quantity = min(items[i].Quantity+quantity, MaxQuantity)
				return items, true
			}
		}
		return append(items, response.CartItem{Product: product, Quantity: quantity}), true
	})
	if err != nil {
		err = fmt.Errorf("failed adding item with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Int(log.KeyCartCount, response.Count(items)).Msg("merged item")

	s.notifier.Notify(c, fmt.Sprintf("Added %d item(s) to cart", quantity), notify.KindSuccess)
	return items, nil
}

// SetQuantity replaces the quantity of productID. A quantity outside [1,99]
// or an absent product leaves the cart unchanged.
func (s *CartStore) SetQuantity(
	c context.Context,
	productID int,
	quantity int,
) ([]response.CartItem, error) {
	c, span := otel.Tracer.Start(
		c,
		"CartStore SetQuantity",
		trace.WithAttributes(attribute.Int(log.KeyProductID, productID), attribute.Int(log.KeyQuantity, quantity)),
	)
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartStore SetQuantity").
		Int(log.KeyProductID, productID).
		Int(log.KeyQuantity, quantity).
		Logger()

	items, changed, err := s.mutate(c, "set_quantity", func(items []response.CartItem) ([]response.CartItem, bool) {
		if quantity < MinQuantity || quantity > MaxQuantity {
			return items, false
		}
		for i := range items {
			if items[i].ID == productID {
				items[i].Quantity = quantity
				return items, true
			}
		}
		return items, false
	})
	if err != nil {
		err = fmt.Errorf("failed setting quantity with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	if !changed {
		logger.Debug().Msg("quantity ignored")
		return items, nil
	}
	logger.Info().Msg("set quantity")

	return items, nil
}

// RemoveItem deletes productID from the cart. Removing an absent product is
// not an error.
func (s *CartStore) RemoveItem(c context.Context, productID int) ([]response.CartItem, error) {
	c, span := otel.Tracer.Start(c, "CartStore RemoveItem", trace.WithAttributes(attribute.Int(log.KeyProductID, productID)))
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartStore RemoveItem").
		Int(log.KeyProductID, productID).
		Logger()

	items, _, err := s.mutate(c, "remove", func(items []response.CartItem) ([]response.CartItem, bool) {
		kept := make([]response.CartItem, 0, len(items))
		for _, item := range items {
			if item.ID != productID {
				kept = append(kept, item)
			}
		}
		return kept, true
	})
	if err != nil {
		err = fmt.Errorf("failed removing item with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Msg("removed item")

	return items, nil
}

func (s *CartStore) Clear(c context.Context) error {
	c, span := otel.Tracer.Start(c, "CartStore Clear")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "CartStore Clear").Logger()

	if _, _, err := s.mutate(c, "clear", func([]response.CartItem) ([]response.CartItem, bool) {
		return []response.CartItem{}, true
	}); err != nil {
		err = fmt.Errorf("failed clearing cart with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("cleared cart")

	s.notifier.Notify(c, "Cart cleared successfully", notify.KindSuccess)
	return nil
}

// Drain empties the cart and returns what it held, as one step.
func (s *CartStore) Drain(c context.Context) ([]response.CartItem, error) {
	c, span := otel.Tracer.Start(c, "CartStore Drain")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "CartStore Drain").Logger()

	var drained []response.CartItem
	if _, _, err := s.mutate(c, "drain", func(items []response.CartItem) ([]response.CartItem, bool) {
		drained = items
		return []response.CartItem{}, true
	}); err != nil {
		err = fmt.Errorf("failed draining cart with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Int(log.KeyCartItems, len(drained)).Msg("drained cart")

	return drained, nil
}

// Restore copies email's archived cart into the active slot verbatim. Without
// an archive the active cart is kept. It reports whether a cart was restored.
func (s *CartStore) Restore(c context.Context, email string) (bool, error) {
	c, span := otel.Tracer.Start(c, "CartStore Restore")
	defer span.End()

	key := KeyIdentityCart(email)
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartStore Restore").
		Str(log.KeyStorageKey, key).
		Logger()

	s.mu.Lock()
	logger = logger.With().Str(log.KeyProcess, "reading archived cart").Logger()
	raw, err := s.store.Get(c, key)
	if errors.Is(err, inErrors.ErrNotFound) {
		s.mu.Unlock()
		logger.Info().Msg("no archived cart")
		return false, nil
	}
	if err != nil {
		s.mu.Unlock()
		err = fmt.Errorf("failed reading archived cart with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return false, err
	}

	logger = logger.With().Str(log.KeyProcess, "writing active cart").Logger()
	if err := s.store.Set(c, KeyActiveCart, raw); err != nil {
		s.mu.Unlock()
		err = fmt.Errorf("failed writing active cart with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return false, err
	}
	s.mu.Unlock()

	items, err := decode(raw)
	if err != nil {
		logger.Warn().Err(err).Msg("restored cart is unreadable")
		items = []response.CartItem{}
	}
	logger.Info().Int(log.KeyCartItems, len(items)).Msg("restored cart")

	s.publish(items)
	return true, nil
}

// Archive moves the active cart verbatim into email's slot and empties the
// active slot.
func (s *CartStore) Archive(c context.Context, email string) error {
	c, span := otel.Tracer.Start(c, "CartStore Archive")
	defer span.End()

	key := KeyIdentityCart(email)
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartStore Archive").
		Str(log.KeyStorageKey, key).
		Logger()

	s.mu.Lock()
	logger = logger.With().Str(log.KeyProcess, "reading active cart").Logger()
	raw, err := s.store.Get(c, KeyActiveCart)
	if errors.Is(err, inErrors.ErrNotFound) {
		raw, err = "[]", nil
	}
	if err != nil {
		s.mu.Unlock()
		err = fmt.Errorf("failed reading active cart with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}

	if email != "" {
		logger = logger.With().Str(log.KeyProcess, "writing archived cart").Logger()
		if err := s.store.Set(c, key, raw); err != nil {
			s.mu.Unlock()
			err = fmt.Errorf("failed writing archived cart with error=%w", err)
			inOtel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return err
		}
	}

	logger = logger.With().Str(log.KeyProcess, "clearing active cart").Logger()
	if err := s.store.Delete(c, KeyActiveCart); err != nil {
		s.mu.Unlock()
		err = fmt.Errorf("failed clearing active cart with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	s.mu.Unlock()
	logger.Info().Msg("archived cart")

	s.publish([]response.CartItem{})
	return nil
}
