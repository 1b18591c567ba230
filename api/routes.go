package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

// limited applies the per-IP rate limit, if one is configured.
func (rt router) limited(r chi.Router) chi.Router {
	if rt.config.RateLimit <= 0 {
		return r
	}
	return r.With(httprate.LimitByIP(rt.config.RateLimit, time.Minute))
}

func setupPublicRoutes(r chi.Router, handlers *routeHandlers, rt router) {
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		handlers.contentHandler.responder.WriteJSON(w, map[string]any{
			"status":  "ok",
			"loaded":  handlers.contentHandler.content.Loaded(),
			"uptime":  time.Since(rt.startupTime).Round(time.Second).String(),
			"started": rt.startupTime.UTC(),
		})
	})

	r.Get("/content", handlers.contentHandler.getContent())
	r.Get("/projects", handlers.contentHandler.getProjects())
	r.Get("/projects/featured", handlers.contentHandler.getFeaturedProjects())
	r.Get("/projects/{projectID}", handlers.contentHandler.getProject())
	r.Get("/theme.css", handlers.contentHandler.getTheme())

	rt.limited(r).Post("/contact", handlers.contactHandler.submit())
}

func setupAdminRoutes(r chi.Router, handlers *routeHandlers, authMiddleware authMiddleware, rt router) {
	r.Route("/admin", func(r chi.Router) {
		rt.limited(r).Post("/session", handlers.sessionHandler.signIn())
		r.Get("/session", handlers.sessionHandler.getSession())

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.authenticate)

			r.Delete("/session", handlers.sessionHandler.signOut())
			r.Put("/settings", handlers.adminHandler.updateSettings())

			r.Post("/projects", handlers.adminHandler.createProject())
			r.Post("/projects/reorder", handlers.adminHandler.reorderProjects())
			r.Put("/projects/{projectID}", handlers.adminHandler.updateProject())
			r.Delete("/projects/{projectID}", handlers.adminHandler.deleteProject())

			r.Get("/export", handlers.adminHandler.exportContent())
			r.Post("/backups", handlers.adminHandler.createBackup())
			r.Post("/videos", handlers.mediaHandler.uploadVideo())
		})
	})
}
