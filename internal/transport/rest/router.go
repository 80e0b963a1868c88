package rest

import (
	"database/sql"
	"log/slog"

	"github.com/go-chi/chi"

	"github.com/jarvis4everyone/jarvis-backend/internal/auth"
	"github.com/jarvis4everyone/jarvis-backend/internal/contact"
	"github.com/jarvis4everyone/jarvis-backend/internal/download"
	"github.com/jarvis4everyone/jarvis-backend/internal/payment"
	"github.com/jarvis4everyone/jarvis-backend/internal/report"
	"github.com/jarvis4everyone/jarvis-backend/internal/subscription"
	"github.com/jarvis4everyone/jarvis-backend/internal/transport/middleware"
	"github.com/jarvis4everyone/jarvis-backend/internal/transport/swagger"
	"github.com/jarvis4everyone/jarvis-backend/internal/user"
)

// Handlers groups the domain handlers. A nil handler leaves its routes out.
type Handlers struct {
	Auth         *auth.Handler
	User         *user.Handler
	Subscription *subscription.Handler
	Payment      *payment.Handler
	Download     *download.Handler
	Contact      *contact.Handler
	Report       *report.Handler
}

type RouterConfig struct {
	DB      *sql.DB
	Health  HealthInfo
	OpenAPI []byte
	Logger  *slog.Logger
}

func RegisterAllRoutes(router *chi.Mux, cfg RouterConfig, h Handlers) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	healthHandler := NewHealthHandler(cfg.DB, cfg.Health)

	router.Use(middleware.CORS(cfg.Health.CORSOrigins))
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	router.Get("/", healthHandler.root)
	router.Get("/health", healthHandler.health)
	router.Get("/ready", healthHandler.ready)
	router.Get("/cors-info", healthHandler.corsInfo)

	if len(cfg.OpenAPI) > 0 {
		router.Get(swagger.SpecPath, swagger.DocumentHandler(cfg.OpenAPI))
		router.Handle("/swagger/*", swagger.Handler())
	}

	if h.Payment != nil {
		router.Post("/payments/webhook", h.Payment.Webhook)
	}

	if h.Auth == nil {
		return
	}

	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Auth.Register)
		r.Post("/login", h.Auth.Login)
		r.Post("/refresh", h.Auth.Refresh)
		r.Post("/logout", h.Auth.Logout)
	})

	if h.Contact != nil {
		router.With(h.Auth.OptionalAuthMiddleware).Post("/contact", h.Contact.Submit)
	}

	router.Group(func(pr chi.Router) {
		pr.Use(h.Auth.AuthMiddleware)

		if h.User != nil {
			pr.Route("/profile", func(r chi.Router) {
				r.Get("/me", h.User.GetProfile)
				r.Put("/me", h.User.UpdateProfile)
				r.Get("/subscription", h.User.GetSubscription)
				r.Get("/dashboard", h.User.GetDashboard)
			})
		}

		if h.Subscription != nil {
			pr.Route("/subscriptions", func(r chi.Router) {
				r.Get("/me", h.Subscription.GetMine)
				r.Post("/renew", h.Subscription.Renew)
				r.Post("/cancel", h.Subscription.CancelMine)
			})
		}

		if h.Payment != nil {
			pr.Post("/payments/create-order", h.Payment.CreateOrder)
			pr.Post("/payments/verify", h.Payment.Verify)
		}

		if h.Download != nil {
			pr.Get("/download/file", h.Download.File)
		}

		pr.Group(func(ar chi.Router) {
			ar.Use(middleware.RequireAdmin(logger))

			if h.Contact != nil {
				ar.Route("/contact/admin", func(r chi.Router) {
					r.Get("/all", h.Contact.AdminList)
					r.Get("/{id}", h.Contact.AdminGet)
					r.Patch("/{id}/status", h.Contact.AdminUpdateStatus)
					r.Delete("/{id}", h.Contact.AdminDelete)
				})
			}

			ar.Route("/admin", func(r chi.Router) {
				if h.Report != nil {
					r.Get("/stats", h.Report.AdminStats)
				}

				if h.User != nil {
					r.Get("/users", h.User.AdminList)
					r.Post("/users", h.User.AdminCreate)
					r.Get("/users/{id}", h.User.AdminGet)
					r.Put("/users/{id}", h.User.AdminUpdate)
					r.Post("/users/{id}/reset-password", h.User.AdminResetPassword)
					r.Delete("/users/{id}", h.User.AdminDelete)
				}

				if h.Subscription != nil {
					r.Get("/subscriptions", h.Subscription.AdminList)
					r.Post("/subscriptions/activate", h.Subscription.AdminActivate)
					r.Post("/subscriptions/{user_id}/extend", h.Subscription.AdminExtend)
					r.Post("/subscriptions/{user_id}/cancel", h.Subscription.AdminCancel)
				}

				if h.Payment != nil {
					r.Get("/payments", h.Payment.AdminList)
				}
			})
		})
	})
}
