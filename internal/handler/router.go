package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/pharmabridge/pharma-bridge-bff-go/internal/config"
	"github.com/pharmabridge/pharma-bridge-bff-go/internal/domain"
	"github.com/pharmabridge/pharma-bridge-bff-go/internal/infra/observability"
	"github.com/pharmabridge/pharma-bridge-bff-go/internal/port"
	"github.com/pharmabridge/pharma-bridge-bff-go/internal/service"
)

var tracer = otel.Tracer("handler")

// Services bundles everything the router dispatches to.
type Services struct {
	Auth      *service.AuthService
	Tokens    *service.TokenIssuer
	Sessions  port.SessionStore
	Quotes    *service.QuotesService
	Orders    *service.OrdersService
	Wizard    *service.WizardService
	Dashboard *service.DashboardService

	// UpstreamState reports the circuit breaker position for /healthz.
	UpstreamState func() string
}

// NewRouter creates the HTTP router with all routes and middleware.
// Routes follow the API contract defined for the PharmaBridge frontend.
func NewRouter(cfg *config.Config, svcs Services, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svcs, logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	sessionAuth := SessionAuthMiddleware(svcs.Tokens, logger)

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// =============================================
		// Autenticação (public)
		// =============================================
		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(RateLimitMiddleware(cfg.AuthRateLimit, cfg.AuthRateCapacity, metrics, logger))
				r.Post("/signin", authSignInHandler(svcs.Auth, logger))
				r.Post("/register/customer", authRegisterCustomerHandler(svcs.Auth, logger))
				r.Post("/register/pharmacy", authRegisterPharmacyHandler(svcs.Auth, logger))
				r.Post("/forgot-password", authForgotPasswordHandler(svcs.Auth, logger))
				r.Post("/reset-password", authResetPasswordHandler(svcs.Auth, logger))
			})

			r.Group(func(r chi.Router) {
				r.Use(sessionAuth)
				r.Post("/signout", authSignOutHandler(svcs.Auth, logger))
				r.Post("/change-password", authChangePasswordHandler(svcs.Auth, logger))
			})
		})

		// =============================================
		// Route guard decision (public; reads the token when present)
		// =============================================
		r.Get("/route/decision", routeDecisionHandler(svcs.Tokens, svcs.Sessions, logger))

		// =============================================
		// Session profile
		// =============================================
		r.Group(func(r chi.Router) {
			r.Use(sessionAuth)
			r.Get("/session", sessionHandler(svcs.Auth, logger))
			r.Get("/metrics/ops", opsMetricsHandler(metrics))
			r.Post("/orders/preview-total", previewOrderTotalHandler(svcs.Orders, logger))
		})

		// =============================================
		// Customer routes
		// =============================================
		r.Group(func(r chi.Router) {
			r.Use(sessionAuth)
			r.Use(RequireRole(domain.RoleCustomer, logger))

			r.Get("/home/customer", customerHomeHandler(svcs.Dashboard, logger))

			r.Get("/quotes", listQuotesHandler(svcs.Quotes, logger))
			r.Get("/quotes/{quoteId}", getQuoteHandler(svcs.Quotes, logger))
			r.Get("/quotes/{quoteId}/prescription", getPrescriptionHandler(svcs.Quotes, logger))
			r.Post("/quotes/{quoteId}/cancel", cancelQuoteHandler(svcs.Quotes, logger))

			r.Route("/quotes/draft", func(r chi.Router) {
				r.Post("/", startDraftHandler(svcs.Wizard, logger))
				r.Get("/", getDraftHandler(svcs.Wizard, logger))
				r.Delete("/", cancelDraftHandler(svcs.Wizard, logger))
				r.Put("/attachment", setAttachmentHandler(svcs.Wizard, logger))
				r.Post("/items", addLineItemHandler(svcs.Wizard, logger))
				r.Put("/items/{itemIndex}", updateLineItemHandler(svcs.Wizard, logger))
				r.Delete("/items/{itemIndex}", removeLineItemHandler(svcs.Wizard, logger))
				r.Post("/items/{itemIndex}/components", addComponentHandler(svcs.Wizard, logger))
				r.Put("/items/{itemIndex}/components/{componentIndex}", updateComponentHandler(svcs.Wizard, logger))
				r.Delete("/items/{itemIndex}/components/{componentIndex}", removeComponentHandler(svcs.Wizard, logger))
				r.Put("/address", setAddressHandler(svcs.Wizard, logger))
				r.Post("/advance", advanceDraftHandler(svcs.Wizard, logger))
				r.Post("/submit", submitDraftHandler(svcs.Wizard, logger))
			})

			r.Get("/orders", listOrdersHandler(svcs.Orders, logger))
		})

		// =============================================
		// Pharmacy routes
		// =============================================
		r.Group(func(r chi.Router) {
			r.Use(sessionAuth)
			r.Use(RequireRole(domain.RolePharmacy, logger))

			r.Get("/home/pharmacy", pharmacyHomeHandler(svcs.Dashboard, logger))
			r.Get("/quotes/pending", listPendingQuotesHandler(svcs.Quotes, logger))
			r.Get("/orders/pharmacy", listPharmacyOrdersHandler(svcs.Orders, logger))
			r.Post("/orders", createOrderHandler(svcs.Orders, logger))
		})
	})

	return r
}

// ============================================================
// Operational endpoints
// ============================================================

type componentHealth struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

type healthStatus struct {
	Status     string            `json:"status"`
	Timestamp  string            `json:"timestamp"`
	Components []componentHealth `json:"components"`
}

func healthzHandler(svcs Services, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)

		components := []componentHealth{
			{Name: "gateway", Status: "healthy"},
		}

		overall := "healthy"
		if svcs.UpstreamState != nil {
			state := svcs.UpstreamState()
			status := "healthy"
			if state != "closed" {
				status = "degraded"
				overall = "degraded"
			}
			components = append(components, componentHealth{
				Name: "pharmacy-api", Status: status, Detail: "circuit " + state,
			})
		}

		writeJSON(w, http.StatusOK, healthStatus{
			Status:     overall,
			Timestamp:  now,
			Components: components,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func opsMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetOpsSnapshot())
	}
}
