package httpapi

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/vidtube/internal/logging"
	"github.com/dmitrijs2005/vidtube/internal/server/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// APIPrefix is where the user routes are mounted.
const APIPrefix = "/api/v1/users"

// HealthFunc reports whether the server's dependencies are reachable.
type HealthFunc func(ctx context.Context) error

// NewRouter wires middleware and routes.
func NewRouter(h *Handler, cfg *config.Config, logger logging.Logger, health HealthFunc) http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(accessLog(logger))
	r.Use(recoverer(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondStatus(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondStatus(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if health != nil {
			if err := health(r.Context()); err != nil {
				logger.Warn(r.Context(), "health check failed", "error", err)
				respondStatus(w, http.StatusServiceUnavailable, "unavailable")
				return
			}
		}
		respond(w, http.StatusOK, map[string]string{"status": "ok"}, "ok")
	})

	limiter := newIPRateLimiter(cfg.AuthRateLimit, cfg.AuthRateBurst)
	small := bodyLimit(cfg.JSONBodyLimit)
	upload := bodyLimit(cfg.UploadBodyLimit)

	r.Route(APIPrefix, func(r chi.Router) {
		r.With(upload).Post("/register", h.register)
		r.With(limiter.middleware, small).Post("/login", h.login)
		r.With(limiter.middleware, small).Post("/refreshToken", h.refreshToken)

		// secured routes
		r.Group(func(r chi.Router) {
			r.Use(h.authenticate)

			r.With(small).Post("/logout", h.logout)
			r.With(small).Post("/changePassword", h.changePassword)
			r.Get("/currentUser", h.currentUser)
			r.With(small).Patch("/updateDetails", h.updateDetails)
			r.With(upload).Patch("/updateAvatar", h.updateAvatar)
			r.With(upload).Patch("/updateCoverImage", h.updateCoverImage)
			r.Get("/c/{username}", h.channelProfile)
			r.Get("/watchHistory", h.watchHistory)
		})
	})

	return r
}
