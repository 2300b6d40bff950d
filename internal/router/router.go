package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"estate-api/internal/config"
	"estate-api/internal/handler"
	"estate-api/internal/middleware"
	"estate-api/internal/model"
)

type Handlers struct {
	Auth    *handler.AuthHandler
	Session *handler.SessionHandler
	User    *handler.UserHandler
	Audit   *handler.AuditHandler
	Health  *handler.HealthHandler
	Metrics http.Handler
}

func New(cfg *config.Config, gate *middleware.AuthGate, proxies *middleware.ProxyTrust, h Handlers) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(proxies.Handler)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)

	r.Get("/health", h.Health.Health)
	if h.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.Metrics)
	}

	r.Group(func(api chi.Router) {
		api.Use(rateLimitMiddleware.Handler)
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		api.Post("/signin", h.Auth.SignIn)
		api.Post("/refresh-token", h.Auth.Refresh)
		api.Post("/signup", h.Auth.Signup)
		api.Post("/signup/verify", h.Auth.VerifySignup)

		api.Group(func(authed chi.Router) {
			authed.Use(gate.Authenticate)

			authed.Post("/logout", h.Session.Logout)
			authed.Get("/sessions", h.Session.List)
			authed.Get("/me", h.Auth.Me)

			authed.With(middleware.RequireRoles(model.RoleAdmin)).Patch("/users/{id}/role", h.User.UpdateRole)
			authed.With(middleware.RequireRoles(model.RoleAdmin)).Get("/audit", h.Audit.List)
		})
	})

	return r
}
