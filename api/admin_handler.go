package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rpupo63/portfolio-site-backend/backup"
	"github.com/rpupo63/portfolio-site-backend/content"
	"github.com/rpupo63/portfolio-site-backend/errs"
	"github.com/rpupo63/portfolio-site-backend/models"
	"github.com/rpupo63/portfolio-site-backend/services"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type adminHandler struct {
	responder  Responder
	logger     zerolog.Logger
	content    *content.Manager
	backups    backup.Sink
	storageURL services.PublicURLFunc
}

func newAdminHandler(manager *content.Manager, backups backup.Sink, storageURL services.PublicURLFunc) adminHandler {
	logger := log.With().Str("handlerName", "adminHandler").Logger()

	return adminHandler{
		responder:  NewResponder(logger),
		logger:     logger,
		content:    manager,
		backups:    backups,
		storageURL: storageURL,
	}
}

func (h adminHandler) actor(r *http.Request) string {
	if user := ctxGetUser(r.Context()); user != nil {
		return user.Email
	}
	return ""
}

// updateSettings applies a partial settings update
// @Router /admin/settings [put]
func (h adminHandler) updateSettings() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !ensureLoaded(w, r, h.content, h.responder) {
			return
		}

		var patch models.SettingsPatch
		if err := decodeJSON(r, &patch, "settings"); err != nil {
			h.responder.WriteError(w, err)
			return
		}
		if patch.IsEmpty() {
			h.responder.WriteError(w, errs.NewBadRequestError("no settings to update"))
			return
		}

		settings, err := h.content.UpdateSettings(r.Context(), patch)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.logger.Info().Str("admin", h.actor(r)).Msg("Settings saved")
		h.responder.WriteJSON(w, newSettingsView(settings, h.storageURL))
	}
}

// createProject creates a new project
// @Router /admin/projects [post]
func (h adminHandler) createProject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !ensureLoaded(w, r, h.content, h.responder) {
			return
		}

		req := CreateProjectRequest{Project: models.NewProject("")}
		if err := decodeJSON(r, &req, "project"); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		created, err := h.content.CreateProject(r.Context(), req.Project, req.DisplayOrder)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.logger.Info().Str("admin", h.actor(r)).Str("projectID", created.ID).Msg("Project created")
		h.responder.WriteJSONStatus(w, http.StatusCreated, newProjectView(created, h.storageURL))
	}
}

// updateProject applies a partial update to a project
// @Router /admin/projects/{projectID} [put]
func (h adminHandler) updateProject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !ensureLoaded(w, r, h.content, h.responder) {
			return
		}

		projectID := chi.URLParam(r, "projectID")
		if h.content.ProjectByID(projectID) == nil {
			h.responder.WriteError(w, errs.NewNotFoundError("project not found"))
			return
		}

		var patch models.ProjectPatch
		if err := decodeJSON(r, &patch, "project"); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		updated, err := h.content.UpdateProject(r.Context(), projectID, patch)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		if updated == nil {
			// deleted by someone else between the check and the write
			h.responder.WriteError(w, errs.NewNotFoundError("project not found"))
			return
		}

		h.responder.WriteJSON(w, newProjectView(updated, h.storageURL))
	}
}

// deleteProject removes a project
// @Router /admin/projects/{projectID} [delete]
func (h adminHandler) deleteProject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !ensureLoaded(w, r, h.content, h.responder) {
			return
		}

		projectID := chi.URLParam(r, "projectID")
		removed, err := h.content.DeleteProject(r.Context(), projectID)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		if !removed {
			h.responder.WriteError(w, errs.NewNotFoundError("project not found"))
			return
		}

		h.logger.Info().Str("admin", h.actor(r)).Str("projectID", projectID).Msg("Project deleted")
		w.WriteHeader(http.StatusNoContent)
	}
}

// reorderProjects sets display order from the position of each id
// @Router /admin/projects/reorder [post]
func (h adminHandler) reorderProjects() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !ensureLoaded(w, r, h.content, h.responder) {
			return
		}

		var req ReorderRequest
		if err := decodeJSON(r, &req, "reorder"); err != nil {
			h.responder.WriteError(w, err)
			return
		}
		if len(req.IDs) == 0 {
			h.responder.WriteError(w, errs.NewMissingRequiredFieldError("ids"))
			return
		}

		if err := h.content.ReorderProjects(r.Context(), req.IDs); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteJSON(w, newProjectViews(h.content.Projects(), h.storageURL))
	}
}

// exportContent downloads the cached content as a JSON backup
// @Router /admin/export [get]
func (h adminHandler) exportContent() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !ensureLoaded(w, r, h.content, h.responder) {
			return
		}

		var buf bytes.Buffer
		if err := h.content.ExportJSON(&buf); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", h.content.BackupFilename()))
		if _, err := w.Write(buf.Bytes()); err != nil {
			h.logger.Error().Err(err).Msg("error writing export")
		}
	}
}

// createBackup writes the export to the configured backup sink
// @Router /admin/backups [post]
func (h adminHandler) createBackup() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.backups == nil {
			h.responder.WriteError(w, errs.NewUnavailableError("no backup target is configured", nil))
			return
		}
		if !ensureLoaded(w, r, h.content, h.responder) {
			return
		}

		var buf bytes.Buffer
		if err := h.content.ExportJSON(&buf); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		name := h.content.BackupFilename()
		location, err := h.backups.Save(r.Context(), name, buf.Bytes())
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.logger.Info().Str("admin", h.actor(r)).Str("location", location).Msg("Backup saved")
		h.responder.WriteJSONStatus(w, http.StatusCreated, BackupResponse{
			Name:     name,
			Location: location,
			Bytes:    buf.Len(),
		})
	}
}
