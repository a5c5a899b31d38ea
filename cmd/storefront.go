package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	cartController "github.com/Alturino/storefront/cart/controller"
	cartRes "github.com/Alturino/storefront/cart/pkg/response"
	cartService "github.com/Alturino/storefront/cart/service"
	"github.com/Alturino/storefront/internal/catalog"
	"github.com/Alturino/storefront/internal/config"
	"github.com/Alturino/storefront/internal/constants"
	"github.com/Alturino/storefront/internal/infra"
	"github.com/Alturino/storefront/internal/kv"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/middleware"
	"github.com/Alturino/storefront/internal/notify"
	"github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/internal/retry"
	"github.com/Alturino/storefront/internal/session"
	orderController "github.com/Alturino/storefront/order/controller"
	orderRepository "github.com/Alturino/storefront/order/repository"
	orderService "github.com/Alturino/storefront/order/service"
	productController "github.com/Alturino/storefront/product/controller"
	productService "github.com/Alturino/storefront/product/service"
	userController "github.com/Alturino/storefront/user/controller"
	userService "github.com/Alturino/storefront/user/service"
)

func retryConfig(cfg config.Catalog) retry.Config {
	return retry.Config{
		MaxAttempts:     cfg.RetryMaxAttempts,
		InitialInterval: cfg.RetryInitialInterval,
		MaxInterval:     cfg.RetryMaxInterval,
	}
}

// newStore picks the key-value backend for sessions and carts. The returned
// close func releases the backend's connection, if any.
func newStore(c context.Context, cfg *config.Config) (kv.Store, func() error, error) {
	var (
		store   kv.Store = kv.NewMemory()
		closeFn          = func() error { return nil }
	)
	switch cfg.Storage.Driver {
	case config.StorageMemory, "":
	case config.StorageRedis:
		client, err := infra.NewCacheClient(c, cfg.Cache)
		if err != nil {
			return nil, nil, err
		}
		store, closeFn = kv.NewRedis(client), client.Close
	default:
		return nil, nil, fmt.Errorf("unknown storage driver=%s", cfg.Storage.Driver)
	}
	if cfg.Storage.KeyPrefix != "" {
		store = kv.NewPrefixed(store, cfg.Storage.KeyPrefix)
	}
	return store, closeFn, nil
}

func RunStorefront(c context.Context) {
	c, cfg := initialize(c)

	c, span := otel.Tracer.Start(c, "RunStorefront")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyAppName, constants.AppStorefront).
		Str(log.KeyTag, "main RunStorefront").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "initializing otel sdk").Logger()
	logger.Info().Msg("initializing otel sdk")
	c = logger.WithContext(c)
	otelShutdowns, err := otel.InitOtelSdk(c, constants.AppStorefront, cfg.Application.Env, cfg.Otel)
	if err != nil {
		err = fmt.Errorf("failed initializing otel sdk with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
	defer func() {
		logger.Info().Msg("shutting down otel")
		if err := otel.ShutdownOtel(context.WithoutCancel(c), otelShutdowns); err != nil {
			err = fmt.Errorf("failed shutting down otel with error=%w", err)
			logger.Error().Err(err).Msg(err.Error())
			return
		}
		logger.Info().Msg("shutdown otel")
	}()
	logger.Info().Msg("initialized otel sdk")

	logger = logger.With().Str(log.KeyProcess, "initializing storage").Logger()
	logger.Info().Str("driver", cfg.Storage.Driver).Msg("initializing storage")
	c = logger.WithContext(c)
	store, closeStore, err := newStore(c, cfg)
	if err != nil {
		err = fmt.Errorf("failed initializing storage with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
	defer func() {
		logger.Info().Msg("shutting down storage")
		if err := closeStore(); err != nil {
			err = fmt.Errorf("failed shutting down storage with error=%w", err)
			logger.Error().Err(err).Msg(err.Error())
			return
		}
		logger.Info().Msg("shutdown storage")
	}()
	logger.Info().Msg("initialized storage")

	var archive orderService.Archive
	if cfg.Database.Enabled {
		logger = logger.With().Str(log.KeyProcess, "initializing database").Logger()
		logger.Info().Msg("initializing database")
		c = logger.WithContext(c)
		db, err := infra.NewDatabaseClient(c, cfg.Database)
		if err != nil {
			err = fmt.Errorf("failed initializing database with error=%w", err)
			otel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return
		}
		defer func() {
			logger.Info().Msg("shutting down database")
			db.Close()
			logger.Info().Msg("shutdown database")
		}()
		archive = orderRepository.NewOrderRepository(db)
		logger.Info().Msg("initialized database")
	}

	logger = logger.With().Str(log.KeyProcess, "initializing services").Logger()
	logger.Info().Msg("initializing services")
	notices := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Name:      "notices_total",
		Help:      "Notices shown to the shopper by kind.",
	}, []string{"kind"})
	notifier := notify.Multi{
		notify.Log{},
		notify.Func(func(_ context.Context, _ string, kind notify.Kind) {
			notices.WithLabelValues(string(kind)).Inc()
		}),
	}
	sessions := session.NewStore(store)
	catalogClient := catalog.NewClient(cfg.Catalog)
	products := productService.NewProductService(catalogClient, retryConfig(cfg.Catalog))
	cart := cartService.NewCartStore(store, sessions, notifier, cfg.Cart)
	sessionManager := userService.NewSessionManager(catalogClient, sessions, cart, notifier)
	checkout := orderService.NewCheckoutService(cart, sessions, &orderService.ReceiptBox{}, archive, notifier)
	logger.Info().Msg("initialized services")

	logger = logger.With().Str(log.KeyProcess, "initializing metrics").Logger()
	logger.Info().Msg("initializing metrics")
	registry := prometheus.NewRegistry()
	cartGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "storefront",
		Name:      "cart_items",
		Help:      "Total quantity held in the active cart.",
	})
	registry.MustRegister(cartGauge, notices, collectors.NewGoCollector())
	if err := middleware.RegisterMetrics(registry); err != nil {
		err = fmt.Errorf("failed registering metrics with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
	unsubscribe := cart.Subscribe(func(items []cartRes.CartItem) {
		cartGauge.Set(float64(cartRes.Count(items)))
	})
	defer unsubscribe()
	logger.Info().Msg("initialized metrics")

	logger = logger.With().Str(log.KeyProcess, "initializing router").Logger()
	logger.Info().Msg("initializing router")
	router := mux.NewRouter()
	router.Use(
		otelmux.Middleware(constants.AppStorefront),
		middleware.Logging,
		middleware.RecoverPanic,
		middleware.Metrics,
	)
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	productController.AttachProductController(router, products)
	cartController.AttachCartController(router, cart, products)
	userController.AttachUserController(router, sessionManager)
	orderController.AttachOrderController(router, checkout, products)
	logger.Info().Msg("initialized router")

	logger = logger.With().Str(log.KeyProcess, "initializing server").Logger()
	logger.Info().Msg("initializing server")
	httpServer := http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Application.Host, cfg.Application.Port),
		BaseContext:  func(net.Listener) context.Context { return c },
		Handler:      router,
		ReadTimeout:  45 * time.Second,
		WriteTimeout: 45 * time.Second,
	}
	logger.Info().Msg("initialized server")

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Msgf("start listening request at %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-c.Done():
		logger.Info().Msg("received interuption signal shutting down")
	case err := <-serverErr:
		err = fmt.Errorf("error=%w occured while server is running", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
	}

	logger = logger.With().Str(log.KeyProcess, "shutting down http server").Logger()
	logger.Info().Msg("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(c), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		err = fmt.Errorf("failed shutting down http server with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
	logger.Info().Msg("shutdown http server")
}
