package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterDeps defines router construction dependencies.
type RouterDeps struct {
	HealthHandler      http.HandlerFunc
	Auth               AuthHandlers
	Operators          OperatorHandlers
	RequireAuthHandler func(http.Handler) http.Handler
	RateLimitLogin     func(http.Handler) http.Handler
	RateLimitRefresh   func(http.Handler) http.Handler
}

// AuthHandlers groups the HTTP handlers for auth routes.
type AuthHandlers struct {
	Login         http.HandlerFunc
	Refresh       http.HandlerFunc
	Logout        http.HandlerFunc
	LogoutAll     http.HandlerFunc
	ListSessions  http.HandlerFunc
	RevokeSession http.HandlerFunc
	Me            http.HandlerFunc
}

// OperatorHandlers groups the HTTP handlers for operator management.
type OperatorHandlers struct {
	Create         http.HandlerFunc
	List           http.HandlerFunc
	Get            http.HandlerFunc
	Update         http.HandlerFunc
	ChangePassword http.HandlerFunc
	Unlock         http.HandlerFunc
	Deactivate     http.HandlerFunc
}

// NewRouter wires HTTP routes.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if deps.HealthHandler != nil {
		r.Get("/healthz", deps.HealthHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			if deps.RateLimitLogin != nil {
				r.With(deps.RateLimitLogin).Post("/login", deps.Auth.Login)
			} else {
				r.Post("/login", deps.Auth.Login)
			}
			if deps.RateLimitRefresh != nil {
				r.With(deps.RateLimitRefresh).Post("/refresh", deps.Auth.Refresh)
			} else {
				r.Post("/refresh", deps.Auth.Refresh)
			}

			r.Group(func(r chi.Router) {
				if deps.RequireAuthHandler != nil {
					r.Use(deps.RequireAuthHandler)
				}
				r.Post("/logout", deps.Auth.Logout)
				r.Post("/logout-all", deps.Auth.LogoutAll)
				r.Get("/sessions", deps.Auth.ListSessions)
				r.Delete("/sessions/{id}", deps.Auth.RevokeSession)
				r.Get("/me", deps.Auth.Me)
			})
		})

		r.Route("/operators", func(r chi.Router) {
			if deps.RequireAuthHandler != nil {
				r.Use(deps.RequireAuthHandler)
			}
			r.Post("/", deps.Operators.Create)
			r.Get("/", deps.Operators.List)
			r.Get("/{id}", deps.Operators.Get)
			r.Patch("/{id}", deps.Operators.Update)
			r.Post("/{id}/password", deps.Operators.ChangePassword)
			r.Post("/{id}/unlock", deps.Operators.Unlock)
			r.Delete("/{id}", deps.Operators.Deactivate)
		})
	})

	return r
}
