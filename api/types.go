package api

import (
	"github.com/rpupo63/portfolio-site-backend/models"
	"github.com/rpupo63/portfolio-site-backend/services"
	"github.com/rpupo63/portfolio-site-backend/supabase"
)

// routeHandlers contains all the handlers for different route types
type routeHandlers struct {
	contentHandler contentHandler
	adminHandler   adminHandler
	sessionHandler sessionHandler
	mediaHandler   mediaHandler
	contactHandler contactHandler
}

// ErrorResponse represents an error response from the API
type ErrorResponse struct {
	Error   string       `json:"error"`
	Status  string       `json:"status"`
	Field   string       `json:"field,omitempty"`
	Fields  []FieldError `json:"fields,omitempty"`
	Details string       `json:"details,omitempty"`
	Cause   string       `json:"cause,omitempty"`
	// Set when a reorder stopped partway.
	Updated *int `json:"updated,omitempty"`
	Total   *int `json:"total,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ProjectView is a project as the pages render it.
type ProjectView struct {
	*models.Project
	// ThumbnailURL shadows the stored value with a directly loadable URL.
	ThumbnailURL    string `json:"thumbnail_url"`
	EmbedURL        string `json:"embed_url"`
	DescriptionHTML string `json:"description_html"`
}

func newProjectView(p *models.Project, storageURL services.PublicURLFunc) ProjectView {
	return ProjectView{
		Project:         p,
		ThumbnailURL:    services.ConvertGoogleDriveURL(p.ThumbnailURL),
		EmbedURL:        services.VideoEmbedURL(p.VideoType, p.VideoID, false, storageURL),
		DescriptionHTML: services.FormatTextWithLineBreaks(p.Description),
	}
}

func newProjectViews(projects []*models.Project, storageURL services.PublicURLFunc) []ProjectView {
	views := make([]ProjectView, 0, len(projects))
	for _, p := range projects {
		views = append(views, newProjectView(p, storageURL))
	}
	return views
}

type SettingsView struct {
	models.Settings
	HeroEmbedURL       string `json:"hero_embed_url"`
	HeroMobileEmbedURL string `json:"hero_mobile_embed_url,omitempty"`
	AboutBioHTML       string `json:"about_bio_html"`
}

func newSettingsView(s *models.Settings, storageURL services.PublicURLFunc) *SettingsView {
	if s == nil {
		return nil
	}
	settings := s.WithDefaults()
	view := &SettingsView{
		Settings:     settings,
		HeroEmbedURL: services.VideoEmbedURL(settings.HeroVideoType, settings.HeroVideoID, true, storageURL),
		AboutBioHTML: services.FormatTextWithLineBreaks(settings.AboutBio),
	}
	if settings.HeroVideoMobile != "" {
		view.HeroMobileEmbedURL = services.VideoEmbedURL(models.VideoSupabase, settings.HeroVideoMobile, true, storageURL)
	}
	view.AboutPortraitURL = services.ConvertGoogleDriveURL(settings.AboutPortraitURL)
	view.HeroPosterURL = services.ConvertGoogleDriveURL(settings.HeroPosterURL)
	return view
}

// ContentResponse is everything the public pages need in one payload.
type ContentResponse struct {
	Settings *SettingsView `json:"settings"`
	Projects []ProjectView `json:"projects"`
	Featured []ProjectView `json:"featured"`
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SessionResponse struct {
	Authenticated bool           `json:"authenticated"`
	User          *supabase.User `json:"user,omitempty"`
	AccessToken   string         `json:"access_token,omitempty"`
	RefreshToken  string         `json:"refresh_token,omitempty"`
	ExpiresAt     int64          `json:"expires_at,omitempty"`
}

// CreateProjectRequest is a project plus an optional position. Without
// display_order the project goes after the existing ones.
type CreateProjectRequest struct {
	models.Project
	DisplayOrder *int `json:"display_order"`
}

type ReorderRequest struct {
	IDs []string `json:"ids"`
}

type BackupResponse struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	Bytes    int    `json:"bytes"`
}

type VideoUploadResponse struct {
	FileName string               `json:"file_name"`
	Slot     services.VideoSlot   `json:"slot"`
	Size     int64                `json:"size"`
	SizeText string               `json:"size_text"`
	URL      string               `json:"url"`
	Patch    models.SettingsPatch `json:"patch"`
	Settings *models.Settings     `json:"settings,omitempty"`
}
