/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the dashboard frontend

ROUTE GROUPS:
  /api/organizers/*     Organizer records
  /api/events/*         Events, payment models, settlement, sellers
  /api/sellers/*        Seller-scoped operations
  /api/consignment      Consignment event listing
  /metrics              Prometheus metrics

SECURITY NOTE:
  Identity is taken from the X-Organizer-ID header set by the gateway in
  front of this service. There is no token validation here.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Organizer-ID"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Organizer records
		r.Route("/organizers", func(r chi.Router) {
			r.Post("/", h.CreateOrganizer)
		})

		// Event routes
		r.Route("/events", func(r chi.Router) {
			r.Post("/", h.CreateEvent)
			r.Post("/{id}/tiers", h.CreateTier)

			// Payment model
			r.Post("/{id}/payment-model", h.SelectPaymentModel)
			r.Get("/{id}/payment-model", h.GetPaymentModel)
			r.Delete("/{id}/payment-model", h.DeactivatePaymentModel)
			r.Post("/{id}/payment-model/low-price-discount", h.ApplyLowPriceDiscount)
			r.Get("/{id}/fees", h.CalculateFees)

			// Consignment
			r.Post("/{id}/consignment", h.SetupConsignment)
			r.Get("/{id}/settlement", h.GetSettlement)
			r.Post("/{id}/settlement", h.Settle)

			// Seller tree
			r.Post("/{id}/sellers", h.CreateRootSeller)
			r.Get("/{id}/sellers", h.GetSellerTree)
			r.Get("/{id}/earnings", h.GetEventEarnings)
		})

		// Seller-scoped routes
		r.Route("/sellers", func(r chi.Router) {
			r.Post("/{id}/sub-sellers", h.AssignSubSeller)
			r.Post("/{id}/sales", h.RecordSale)
			r.Post("/{id}/scans", h.RecordScan)
			r.Get("/{id}/earnings", h.GetSellerEarnings)
		})

		// Consignment listing
		r.Get("/consignment", h.ListConsignmentEvents)
	})

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	// Health check
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}
