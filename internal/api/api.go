// Package api exposes the discount engine over HTTP. It is a thin
// collaborator: request decoding, validation, and error mapping live here;
// all business rules live in the domain packages.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"promo-engine/internal/domain/discount"
	"promo-engine/internal/domain/order"
)

// Handler holds the domain services the HTTP surface delegates to.
type Handler struct {
	orders   *order.Service
	registry *discount.Registry
	lg       *zap.Logger
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(orders *order.Service, registry *discount.Registry, lg *zap.Logger) *Handler {
	return &Handler{
		orders:   orders,
		registry: registry,
		lg:       lg,
	}
}

// Routes builds the router for the /api surface.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.logRequests)
	r.Use(middleware.Recoverer)

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.createOrder)
		r.Get("/{id}", h.getOrder)
		r.Post("/{id}/apply-voucher", h.applyVoucher)
		r.Post("/{id}/apply-promotion", h.applyPromotion)
	})
	r.Route("/vouchers", func(r chi.Router) {
		r.Post("/", h.createVoucher)
		h.codeRoutes(r, discount.KindVoucher)
	})
	r.Route("/promotions", func(r chi.Router) {
		r.Post("/", h.createPromotion)
		h.codeRoutes(r, discount.KindPromotion)
	})
	return r
}

func (h *Handler) codeRoutes(r chi.Router, kind discount.Kind) {
	r.Get("/", h.listCodes(kind))
	r.Get("/{id}", h.getCode(kind))
	r.Patch("/{id}", h.updateCode(kind))
	r.Delete("/{id}", h.deleteCode(kind))
	r.Post("/{id}/usage", h.adjustUsage(kind))
}

// logRequests injects the request-scoped logger and logs one line per request
// with status and duration.
func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r = r.WithContext(zctx.Base(r.Context(), h.lg))
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.lg.Info("Request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
