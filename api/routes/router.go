package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/prasetyadi/niaga-backend/api/controllers"
	"github.com/prasetyadi/niaga-backend/api/middleware"
	"github.com/prasetyadi/niaga-backend/internal/orders"
	"github.com/prasetyadi/niaga-backend/internal/payments"
	"github.com/prasetyadi/niaga-backend/pkg/config"
	"github.com/prasetyadi/niaga-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// Deps bundles everything the router mounts.
type Deps struct {
	Config          *config.Config
	Logger          *logger.Logger
	DB              pinger
	Redis           pinger
	IdempotencyRepo middleware.IdempotencyStore
	Registry        *prometheus.Registry
	Orders          orders.Service
	Payments        payments.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		// The gateway calls this route; it carries no bearer token.
		r.Post("/payments/callback", controllers.PaymentsCallback(deps.Payments, logg))

		r.Group(func(r chi.Router) {
			r.Use(
				middleware.Auth(cfg.JWT, logg),
				middleware.Idempotency(deps.IdempotencyRepo, logg),
			)

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", controllers.OrdersCreate(deps.Orders, logg))
				r.Get("/", controllers.OrdersList(deps.Orders, logg))
				r.Route("/{orderId}", func(r chi.Router) {
					r.Get("/", controllers.OrdersDetail(deps.Orders, logg))
					r.Put("/", controllers.OrdersUpdate(deps.Orders, logg))
					r.Post("/cancel", controllers.OrdersCancel(deps.Orders, logg))
					r.Delete("/", controllers.OrdersDelete(deps.Orders, logg))
				})
			})

			r.Route("/payments", func(r chi.Router) {
				r.Post("/", controllers.PaymentsCreate(deps.Payments, logg))
				r.Get("/", controllers.PaymentsList(deps.Payments, logg))
				r.Get("/statistics", controllers.PaymentsStatistics(deps.Payments, logg))
				r.Route("/{paymentId}", func(r chi.Router) {
					r.Get("/", controllers.PaymentsDetail(deps.Payments, logg))
					r.Patch("/status", controllers.PaymentsUpdateStatus(deps.Payments, logg))
					r.Post("/refund", controllers.PaymentsRefund(deps.Payments, logg))
				})
			})
		})
	})

	return r
}
