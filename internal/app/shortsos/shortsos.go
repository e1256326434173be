package shortsos

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/streadway/amqp"

	"github.com/shortsos/shortsos/internal/apperr"
	"github.com/shortsos/shortsos/internal/cache"
	"github.com/shortsos/shortsos/internal/config"
	"github.com/shortsos/shortsos/internal/http/middlewarectx"
	"github.com/shortsos/shortsos/internal/lib/jwt"
	"github.com/shortsos/shortsos/internal/lib/rabbitmq"
	"github.com/shortsos/shortsos/internal/lib/sl"
	"github.com/shortsos/shortsos/internal/metrics"
	"github.com/shortsos/shortsos/internal/migrations"
	"github.com/shortsos/shortsos/internal/models"
	"github.com/shortsos/shortsos/internal/paymentprovider"
	"github.com/shortsos/shortsos/internal/services/billing"
	"github.com/shortsos/shortsos/internal/services/credits"
	"github.com/shortsos/shortsos/internal/services/entitlement"
	"github.com/shortsos/shortsos/internal/services/usage"
	"github.com/shortsos/shortsos/internal/storage/repository"
)

// App HTTP-сервер API со всеми зависимостями.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	cache  *cache.Cache
	conn   *amqp.Connection
	ch     *amqp.Channel
}

// New подключает хранилище, применяет миграции и собирает сервисы.
// Redis, RabbitMQ и провайдеры оплаты необязательны: без настроек
// соответствующая часть отключается.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if err := checkConfig(cfg); err != nil {
		return nil, err
	}
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, err
	}

	app := &App{
		logger: logger,
		db:     db,
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	newID := uuid.NewString

	gatewayOpts := []entitlement.Option{entitlement.WithMetrics(m)}
	billingOpts := []billing.Option{billing.WithMetrics(m)}

	if cfg.RedisAddress != "" {
		app.cache, err = cache.InitServer(ctx, cfg.RedisConnection)
		if err != nil {
			app.close()
			return nil, err
		}
		accounts := cache.NewAccounts(app.cache, cfg.AccountCacheTTL)
		gatewayOpts = append(gatewayOpts, entitlement.WithCache(accounts))
		billingOpts = append(billingOpts, billing.WithCache(accounts))
	} else {
		logger.Warn("redis is not configured, account cache disabled")
	}

	if cfg.RabbitMQURL != "" {
		app.conn, err = rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
		if err != nil {
			app.close()
			return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
		}
		app.ch, err = rabbitmq.SetupChannel(app.conn, rabbitmq.NotificationQueues())
		if err != nil {
			app.close()
			return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
		}
		publisher := rabbitmq.NewPublisher(app.ch)
		gatewayOpts = append(gatewayOpts, entitlement.WithNotifier(publisher))
		billingOpts = append(billingOpts, billing.WithNotifier(publisher))
	} else {
		logger.Warn("rabbitmq is not configured, notifications disabled")
	}

	if stripeEnabled(cfg) {
		stripeClient := paymentprovider.NewStripe(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
		gatewayOpts = append(gatewayOpts, entitlement.WithCanceller(stripeClient))
		billingOpts = append(billingOpts, billing.WithStripe(stripeClient))
	} else if cfg.StripeSecretKey != "" {
		logger.Warn("stripe webhook secret is not configured, stripe disabled")
	}
	if cfg.RazorpayKeyID != "" {
		billingOpts = append(billingOpts,
			billing.WithRazorpay(paymentprovider.NewRazorpay(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, logger)))
	}

	gateway := entitlement.NewGateway(db,
		credits.NewService(db, logger),
		usage.NewService(db, logger),
		newID, logger, gatewayOpts...)
	billingService := billing.NewService(db, billingSettings(cfg), newID, logger, billingOpts...)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, Deps{
		Gateway: gateway,
		Billing: billingService,
		DB:      db.DB,
		// Токены выпускает провайдер идентификации, сервис их только проверяет.
		Verifier:       jwt.NewMaker(cfg.JWTSecretKey, cfg.JWTIssuer, 0),
		Limiter:        middlewarectx.NewLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		AdminTokenHash: cfg.AdminTokenHash,
	})

	app.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return app, nil
}

// ErrJWTSecretMissing без секрета JWT любой токен можно подделать.
var ErrJWTSecretMissing = fmt.Errorf("jwt secret key is not set: %w", apperr.ErrConfiguration)

// checkConfig отклоняет конфигурацию, с которой API нельзя запускать.
func checkConfig(cfg *config.Config) error {
	if cfg.JWTSecretKey == "" {
		return ErrJWTSecretMissing
	}
	return nil
}

// stripeEnabled Stripe включается только вместе с секретом подписи вебхуков.
func stripeEnabled(cfg *config.Config) bool {
	return cfg.StripeSecretKey != "" && cfg.StripeWebhookSecret != ""
}

func billingSettings(cfg *config.Config) billing.Settings {
	return billing.Settings{
		StripePrices: map[models.Tier]string{
			models.TierStarter: cfg.StripePriceStarter,
			models.TierPro:     cfg.StripePricePro,
			models.TierAgency:  cfg.StripePriceAgency,
		},
		StripeSuccessURL: cfg.StripeSuccessURL,
		StripeCancelURL:  cfg.StripeCancelURL,
		RazorpayPrices: map[models.Tier]int64{
			models.TierStarter: cfg.PriceStarter,
			models.TierPro:     cfg.PricePro,
			models.TierAgency:  cfg.PriceAgency,
		},
		RazorpayCurrency:     cfg.RazorpayCurrency,
		RazorpayKeySecret:    cfg.RazorpayKeySecret,
		RazorpayWebhook:      cfg.RazorpayWebhookSecret,
		FirstPaymentDiscount: cfg.FirstPaymentDiscount,
	}
}

// Run запускает HTTP-сервер и останавливает его при отмене ctx.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close()
		return err
	}
}

func (a *App) close() {
	if a.ch != nil {
		if err := a.ch.Close(); err != nil {
			a.logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			a.logger.Error("failed to close connection", sl.Err(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Db.Close(); err != nil {
			a.logger.Error("failed to close redis", sl.Err(err))
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close database", sl.Err(err))
	}
}
