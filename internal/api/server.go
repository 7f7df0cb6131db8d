package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/mbakke/nudge/internal/api/handler"
	mw "github.com/mbakke/nudge/internal/api/middleware"
	"github.com/mbakke/nudge/internal/config"
	"github.com/mbakke/nudge/internal/core"
	"github.com/mbakke/nudge/internal/crypto"
	"github.com/mbakke/nudge/internal/provider"
)

type Server struct {
	router      chi.Router
	logger      zerolog.Logger
	services    *core.Services
	providers   *provider.Registry
	corePool    *pgxpool.Pool
	cfg         *config.Config
	auditLogger *mw.AuditLogger
}

func NewServer(logger zerolog.Logger, coreDB *pgxpool.Pool, providers *provider.Registry, sealer *crypto.Sealer, cfg *config.Config) *Server {
	services := core.NewServices(coreDB, providers, sealer, cfg, logger)
	auditLogger := mw.NewAuditLogger(coreDB, logger)

	s := &Server{
		router:      chi.NewRouter(),
		logger:      logger,
		services:    services,
		providers:   providers,
		corePool:    coreDB,
		cfg:         cfg,
		auditLogger: auditLogger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(mw.Metrics)
}

func (s *Server) setupRoutes() {
	// Prometheus metrics endpoint
	s.router.Handle("/metrics", promhttp.Handler())

	// Health check endpoints
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/readyz", s.handleReadyz)

	mailbox := handler.NewMailbox(s.services.Mailboxes, s.services.Dispatcher, s.providers)

	// OAuth redirect target. The provider calls this, so it sits
	// outside API-key auth; the sealed state parameter authenticates
	// the flow instead.
	s.router.Get("/oauth/callback", mailbox.Callback)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.Auth(s.corePool))
		r.Use(s.auditLogger.Middleware)

		// Accounts
		account := handler.NewAccount(s.services.Accounts, s.services.Branding)
		r.Get("/accounts", account.List)
		r.Post("/accounts", account.Create)
		r.Get("/accounts/{id}", account.Get)
		r.Put("/accounts/{id}", account.Update)
		r.Put("/accounts/{id}/tier", account.SetTier)

		// Branding footer
		footer := handler.NewFooter(s.services.Branding)
		r.Get("/accounts/{accountID}/footer", footer.Get)
		r.Put("/accounts/{accountID}/footer", footer.Put)

		// Customers
		customer := handler.NewCustomer(s.services.Customers)
		r.Get("/accounts/{accountID}/customers", customer.ListByAccount)
		r.Post("/accounts/{accountID}/customers", customer.Create)
		r.Get("/customers/{id}", customer.Get)
		r.Put("/customers/{id}", customer.Update)
		r.Delete("/customers/{id}", customer.Delete)

		// Invoices
		invoice := handler.NewInvoice(s.services.Invoices, s.services.Scheduler, s.services.Dispatcher, s.services.Entries)
		r.Get("/accounts/{accountID}/invoices", invoice.ListByAccount)
		r.Post("/accounts/{accountID}/invoices", invoice.Create)
		r.Get("/invoices/{id}", invoice.Get)
		r.Put("/invoices/{id}", invoice.Update)
		r.Delete("/invoices/{id}", invoice.Delete)
		r.Post("/invoices/{id}/mark-paid", invoice.MarkPaid)
		r.Post("/invoices/{id}/send-now", invoice.SendNow)
		r.Get("/invoices/{id}/schedule", invoice.Schedule)

		// Reminder policy
		policy := handler.NewPolicy(s.services.Policies, s.services.Scheduler)
		r.Get("/accounts/{accountID}/reminder-policy", policy.Get)
		r.Put("/accounts/{accountID}/reminder-policy", policy.Put)

		// Schedule
		schedule := handler.NewSchedule(s.services.Scheduler)
		r.Get("/accounts/{accountID}/schedule/upcoming", schedule.Upcoming)
		r.Post("/accounts/{accountID}/schedule/reconcile", schedule.Reconcile)

		// Mailbox connections
		r.Get("/providers", mailbox.Providers)
		r.Get("/accounts/{accountID}/mailbox-connections", mailbox.ListByAccount)
		r.Post("/accounts/{accountID}/mailbox-connections", mailbox.Connect)
		r.Delete("/accounts/{accountID}/mailbox-connections/{id}", mailbox.Disconnect)
		r.Post("/accounts/{accountID}/mailbox-connections/test", mailbox.Test)

		// Templates
		template := handler.NewTemplate(s.services.Templates)
		r.Get("/accounts/{accountID}/templates/{kind}", template.Get)
		r.Put("/accounts/{accountID}/templates/{kind}", template.Put)
		r.Delete("/accounts/{accountID}/templates/{kind}", template.Delete)

		// Activity feed
		activity := handler.NewActivity(s.services.Activity)
		r.Get("/accounts/{accountID}/activities", activity.ListByAccount)

		// API keys
		apiKey := handler.NewAPIKey(s.services.APIKeys)
		r.Get("/api-keys", apiKey.List)
		r.Post("/api-keys", apiKey.Create)
		r.Delete("/api-keys/{id}", apiKey.Revoke)
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if err := s.corePool.Ping(ctx); err != nil {
		checks["core_db"] = err.Error()
		healthy = false
	} else {
		checks["core_db"] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	if healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(checks)
}

// Close shuts down the async audit writer.
func (s *Server) Close() {
	s.auditLogger.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
