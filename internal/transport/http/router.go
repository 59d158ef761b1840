package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"popreg/internal/auth"
	"popreg/internal/ratelimit"
	"popreg/internal/resident"
	"popreg/internal/user"
)

// Handler is the thin HTTP layer. It delegates to domain services without
// embedding business logic so transport concerns remain isolated.
type Handler struct {
	auth      *auth.Service
	users     *user.Service
	residents *resident.Service
	logger    *slog.Logger
}

func NewHandler(authSvc *auth.Service, users *user.Service, residents *resident.Service, logger *slog.Logger) *Handler {
	return &Handler{auth: authSvc, users: users, residents: residents, logger: logger}
}

// NewRouter wires all endpoints. Every inbound request passes the request
// limiter first; protected routes then require a valid bearer token before
// reaching business logic.
func NewRouter(h *Handler, limiter *ratelimit.Limiter) http.Handler {
	r := chi.NewRouter()
	r.Use(ratelimit.Middleware(limiter))

	r.Get("/healthz", h.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/auth/login", h.handleLogin)
	r.Post("/auth/logout", h.handleLogout)
	r.Post("/auth/register", h.handleRegister)

	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(h.auth, h.logger))

		r.Get("/auth/me", h.handleMe)
		r.Get("/auth/validate", h.handleMe)

		r.Get("/users/{id}", h.handleGetUser)
		r.Put("/users/{id}", h.handleUpdateUser)
		r.Delete("/users/{id}", h.handleDeleteUser)

		r.Post("/residents", h.handleCreateResident)
		r.Get("/residents/{id}", h.handleGetResident)
		r.Put("/residents/{id}", h.handleUpdateResident)
		r.Delete("/residents/{id}", h.handleDeleteResident)
		r.Get("/residents/by-user/{userId}", h.handleGetResidentByUser)
		r.Get("/residents/by-card/{idCard}", h.handleGetResidentByCard)
	})

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
