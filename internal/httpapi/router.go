package httpapi

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter mounts all handlers. The webhook and health endpoints sit
// outside the auth middleware; the gateway authenticates with its signature,
// not a user identity.
func NewRouter(handler *OrderHandler, requestTimeout time.Duration) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", handler.Health)
	r.Post("/webhooks/payment", handler.GatewayWebhook)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(AuthMiddleware)

		r.Post("/checkout", handler.Checkout)

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", handler.ListOrders)
			r.Get("/{orderNumber}", handler.GetOrder)
			r.Post("/{orderNumber}/proof", handler.UploadProof)
			r.Post("/{orderNumber}/vouchers", handler.ApplyVoucher)
			r.Post("/{orderNumber}/confirm", handler.ConfirmOrder)
			r.Post("/{orderNumber}/cancel", handler.CancelOrder)
		})

		r.Route("/admin/orders", func(r chi.Router) {
			r.Use(AdminOnly)
			r.Post("/{orderNumber}/verify", handler.VerifyPayment)
			r.Post("/{orderNumber}/ship", handler.ShipOrder)
			r.Post("/{orderNumber}/cancel", handler.AdminCancelOrder)
		})
	})

	return r
}
