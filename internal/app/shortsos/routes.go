// Package shortsos собирает HTTP API: шлюз доступа, журнал кредитов и оплату.
package shortsos

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/shortsos/shortsos/internal/http/handlers/account/cancel"
	"github.com/shortsos/shortsos/internal/http/handlers/account/ensure"
	"github.com/shortsos/shortsos/internal/http/handlers/account/summary"
	"github.com/shortsos/shortsos/internal/http/handlers/admin/adminsetup"
	"github.com/shortsos/shortsos/internal/http/handlers/billing/paymentlist"
	"github.com/shortsos/shortsos/internal/http/handlers/billing/razorpayorder"
	"github.com/shortsos/shortsos/internal/http/handlers/billing/razorpayverify"
	"github.com/shortsos/shortsos/internal/http/handlers/billing/stripecheckout"
	"github.com/shortsos/shortsos/internal/http/handlers/credits/balance"
	"github.com/shortsos/shortsos/internal/http/handlers/credits/history"
	"github.com/shortsos/shortsos/internal/http/handlers/credits/usecredits"
	"github.com/shortsos/shortsos/internal/http/handlers/entitlement/authorize"
	"github.com/shortsos/shortsos/internal/http/handlers/health"
	"github.com/shortsos/shortsos/internal/http/handlers/usage/checkusage"
	"github.com/shortsos/shortsos/internal/http/handlers/usage/recordusage"
	"github.com/shortsos/shortsos/internal/http/handlers/webhook/razorpaywebhook"
	"github.com/shortsos/shortsos/internal/http/handlers/webhook/stripewebhook"
	"github.com/shortsos/shortsos/internal/http/middlewarectx"
	"github.com/shortsos/shortsos/internal/lib/jwt"
	"github.com/shortsos/shortsos/internal/services/billing"
	"github.com/shortsos/shortsos/internal/services/entitlement"
)

// Deps зависимости маршрутов.
type Deps struct {
	Gateway        *entitlement.Gateway
	Billing        *billing.Service
	DB             health.Pinger
	Verifier       jwt.Verifier
	Limiter        *middlewarectx.Limiter
	AdminTokenHash string
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, d Deps) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", health.New(logger, d.DB).ServeHTTP)

		// Вебхуки провайдеров проверяются подписью, а не токеном
		r.Post("/webhooks/stripe", stripewebhook.New(logger, d.Billing).ServeHTTP)
		r.Post("/webhooks/razorpay", razorpaywebhook.New(logger, d.Billing).ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.AdminTokenMiddleware(d.AdminTokenHash, logger))
			r.Post("/admin/setup", adminsetup.New(logger, d.Gateway).ServeHTTP)
		})

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(d.Verifier, logger))
			r.Use(middlewarectx.RateLimitMiddleware(d.Limiter, logger))

			r.Post("/usage/check", checkusage.New(logger, d.Gateway).ServeHTTP)
			r.Post("/usage/record", recordusage.New(logger, d.Gateway).ServeHTTP)
			r.Post("/credits/use", usecredits.New(logger, d.Gateway).ServeHTTP)
			r.Get("/credits/balance", balance.New(logger, d.Gateway).ServeHTTP)
			r.Get("/credits/history", history.New(logger, d.Gateway).ServeHTTP)
			r.Post("/entitlements/authorize", authorize.New(logger, d.Gateway).ServeHTTP)

			r.Post("/account/ensure", ensure.New(logger, d.Gateway).ServeHTTP)
			r.Get("/account", summary.New(logger, d.Gateway).ServeHTTP)
			r.Post("/account/cancel", cancel.New(logger, d.Gateway).ServeHTTP)

			r.Post("/billing/stripe/checkout", stripecheckout.New(logger, d.Billing).ServeHTTP)
			r.Post("/billing/razorpay/order", razorpayorder.New(logger, d.Billing).ServeHTTP)
			r.Post("/billing/razorpay/verify", razorpayverify.New(logger, d.Billing).ServeHTTP)
			r.Get("/billing/payments", paymentlist.New(logger, d.Billing).ServeHTTP)
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
