package channelpass

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/nzuev/channel-pass/internal/http/handlers/auth/login"
	"github.com/nzuev/channel-pass/internal/http/handlers/health"
	"github.com/nzuev/channel-pass/internal/http/handlers/payment/paymentcancel"
	"github.com/nzuev/channel-pass/internal/http/handlers/payment/paymentclaim"
	"github.com/nzuev/channel-pass/internal/http/handlers/payment/paymentcreate"
	"github.com/nzuev/channel-pass/internal/http/handlers/payment/paymentdecision"
	"github.com/nzuev/channel-pass/internal/http/handlers/stats/summary"
	"github.com/nzuev/channel-pass/internal/http/handlers/tariff/list"
	"github.com/nzuev/channel-pass/internal/http/handlers/user/usergrant"
	"github.com/nzuev/channel-pass/internal/http/handlers/user/userinfo"
	"github.com/nzuev/channel-pass/internal/http/handlers/user/userrevoke"
	"github.com/nzuev/channel-pass/internal/http/middlewarectx"
	"github.com/nzuev/channel-pass/internal/lib/jwt"
	accessservice "github.com/nzuev/channel-pass/internal/services/access"
	authservice "github.com/nzuev/channel-pass/internal/services/auth"
	statsservice "github.com/nzuev/channel-pass/internal/services/stats"
	workflowservice "github.com/nzuev/channel-pass/internal/services/workflow"
	"github.com/nzuev/channel-pass/internal/tariffs"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(
	r chi.Router,
	logger *slog.Logger,
	catalog *tariffs.Catalog,
	workflow *workflowservice.Service,
	access *accessservice.Manager,
	stats *statsservice.Service,
	auth *authservice.Service,
	maker *jwt.Maker,
) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/auth/login", login.New(logger, auth).ServeHTTP)
		r.Get("/tariffs", list.New(logger, catalog).ServeHTTP)
		r.Post("/payments", paymentcreate.New(logger, workflow).ServeHTTP)
		r.Post("/payments/{txID}/claim", paymentclaim.New(logger, workflow).ServeHTTP)
		r.Post("/payments/{txID}/cancel", paymentcancel.New(logger, workflow).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(maker, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))
			r.Post("/payments/{txID}/decision", paymentdecision.New(logger, workflow).ServeHTTP)
			r.Post("/users/{userID}/grant", usergrant.New(logger, workflow).ServeHTTP)
			r.Post("/users/{userID}/revoke", userrevoke.New(logger, workflow).ServeHTTP)
			r.Get("/users/{userID}", userinfo.New(logger, access, catalog).ServeHTTP)
			r.Get("/stats", summary.New(logger, stats).ServeHTTP)
		})
	})

	r.Get("/health", health.ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
