package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rpupo63/portfolio-site-backend/content"
	"github.com/rpupo63/portfolio-site-backend/errs"
	"github.com/rpupo63/portfolio-site-backend/services"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type contentHandler struct {
	responder  Responder
	logger     zerolog.Logger
	content    *content.Manager
	storageURL services.PublicURLFunc
}

func newContentHandler(manager *content.Manager, storageURL services.PublicURLFunc) contentHandler {
	logger := log.With().Str("handlerName", "contentHandler").Logger()

	return contentHandler{
		responder:  NewResponder(logger),
		logger:     logger,
		content:    manager,
		storageURL: storageURL,
	}
}

// ensureLoaded retries the content load when an earlier one failed. It
// writes 503 and returns false if content is still unavailable.
func ensureLoaded(w http.ResponseWriter, r *http.Request, manager *content.Manager, responder Responder) bool {
	if manager.Loaded() {
		return true
	}
	if _, err := manager.Load(r.Context()); err != nil {
		responder.WriteError(w, errs.NewUnavailableError("site content could not be loaded", err))
		return false
	}
	return true
}

// getContent returns settings, projects and featured projects together
// @Router /content [get]
func (h contentHandler) getContent() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !ensureLoaded(w, r, h.content, h.responder) {
			return
		}

		h.responder.WriteJSON(w, ContentResponse{
			Settings: newSettingsView(h.content.Settings(), h.storageURL),
			Projects: newProjectViews(h.content.Projects(), h.storageURL),
			Featured: newProjectViews(h.content.FeaturedProjects(), h.storageURL),
		})
	}
}

// getProjects lists every project in display order
// @Router /projects [get]
func (h contentHandler) getProjects() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !ensureLoaded(w, r, h.content, h.responder) {
			return
		}
		h.responder.WriteJSON(w, newProjectViews(h.content.Projects(), h.storageURL))
	}
}

// @Router /projects/featured [get]
func (h contentHandler) getFeaturedProjects() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !ensureLoaded(w, r, h.content, h.responder) {
			return
		}
		h.responder.WriteJSON(w, newProjectViews(h.content.FeaturedProjects(), h.storageURL))
	}
}

// getProject retrieves a specific project by ID
// @Router /projects/{projectID} [get]
func (h contentHandler) getProject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !ensureLoaded(w, r, h.content, h.responder) {
			return
		}

		projectID := chi.URLParam(r, "projectID")
		project := h.content.ProjectByID(projectID)
		if project == nil {
			h.responder.WriteError(w, errs.NewNotFoundError("project not found"))
			return
		}

		h.responder.WriteJSON(w, newProjectView(project, h.storageURL))
	}
}

// getTheme serves the accent color custom properties as a stylesheet
// @Router /theme.css [get]
func (h contentHandler) getTheme() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accent := ""
		// the default palette is still useful when content is down
		if _, err := h.content.Load(r.Context()); err == nil {
			if s := h.content.Settings(); s != nil {
				accent = s.AccentColor
			}
		}

		w.Header().Set("Content-Type", "text/css; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		if _, err := w.Write([]byte(services.AccentPalette(accent).CSS())); err != nil {
			h.logger.Error().Err(err).Msg("error writing stylesheet")
		}
	}
}
