package api

import (
	"context"
	"net/http"
	"time"

	"github.com/rpupo63/portfolio-site-backend/backup"
	"github.com/rpupo63/portfolio-site-backend/config"
	"github.com/rpupo63/portfolio-site-backend/content"
	"github.com/rpupo63/portfolio-site-backend/services"
	"github.com/rpupo63/portfolio-site-backend/supabase"
)

// SessionService signs admins in and resolves their access tokens. It must
// not keep the credentials it hands out; *supabase.Sessions implements it.
type SessionService interface {
	SignIn(ctx context.Context, email, password string) (*supabase.AuthResponse, error)
	User(ctx context.Context, accessToken string) (*supabase.User, error)
}

// Deps are the collaborators the routes are built from.
type Deps struct {
	Config   config.Config
	Content  *content.Manager
	Sessions SessionService
	Uploader services.Uploader
	// PublicURL resolves a stored object to its public URL.
	PublicURL  func(bucket, name string) string
	Backups    backup.Sink
	HTTPClient *http.Client
	Now        func() time.Time
}

func (d Deps) videoURL() services.PublicURLFunc {
	if d.PublicURL == nil {
		return nil
	}
	bucket := d.Config.Supabase.VideosBucket
	return func(name string) string {
		return d.PublicURL(bucket, name)
	}
}

// initializeHandlers creates and returns all handlers organized in a routeHandlers struct
func initializeHandlers(deps Deps) *routeHandlers {
	return &routeHandlers{
		contentHandler: newContentHandler(deps.Content, deps.videoURL()),
		adminHandler:   newAdminHandler(deps.Content, deps.Backups, deps.videoURL()),
		sessionHandler: newSessionHandler(deps.Sessions, deps.Now),
		mediaHandler:   newMediaHandler(deps.Content, deps.Uploader, deps.videoURL(), deps.Config, deps.Now),
		contactHandler: newContactHandler(deps.Content, deps.HTTPClient),
	}
}
