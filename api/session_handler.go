package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rpupo63/portfolio-site-backend/errs"
	"github.com/rpupo63/portfolio-site-backend/supabase"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type sessionHandler struct {
	responder Responder
	logger    zerolog.Logger
	sessions  SessionService
	now       func() time.Time
}

func newSessionHandler(sessions SessionService, now func() time.Time) sessionHandler {
	logger := log.With().Str("handlerName", "sessionHandler").Logger()
	if now == nil {
		now = time.Now
	}

	return sessionHandler{
		responder: NewResponder(logger),
		logger:    logger,
		sessions:  sessions,
		now:       now,
	}
}

// signIn exchanges admin credentials for a session
// @Router /admin/session [post]
func (h sessionHandler) signIn() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SignInRequest
		if err := decodeJSON(r, &req, "sign-in"); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		var problems []error
		if strings.TrimSpace(req.Email) == "" {
			problems = append(problems, errs.NewMissingRequiredFieldError("email"))
		}
		if req.Password == "" {
			problems = append(problems, errs.NewMissingRequiredFieldError("password"))
		}
		if err := errors.Join(problems...); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		auth, err := h.sessions.SignIn(r.Context(), strings.TrimSpace(req.Email), req.Password)
		if err != nil {
			h.logger.Warn().Err(err).Msg("Admin sign-in failed")
			h.responder.WriteError(w, err)
			return
		}

		tok := auth.Token(h.now())
		var expiresAt int64
		if !tok.Expiry.IsZero() {
			expiresAt = tok.Expiry.Unix()
		}
		h.responder.WriteJSON(w, SessionResponse{
			Authenticated: true,
			User:          auth.User,
			AccessToken:   auth.AccessToken,
			RefreshToken:  auth.RefreshToken,
			ExpiresAt:     expiresAt,
		})
	}
}

// signOut ends the caller's session. Tokens are held by the caller, so
// there is nothing to clear on the server.
// @Router /admin/session [delete]
func (h sessionHandler) signOut() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if user := ctxGetUser(r.Context()); user != nil {
			h.logger.Info().Str("userID", user.ID).Msg("Admin signed out")
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// getSession reports whether the caller's bearer token is still valid
// @Router /admin/session [get]
func (h sessionHandler) getSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			h.responder.WriteJSON(w, SessionResponse{})
			return
		}
		if claims, err := supabase.ParseClaims(token); err != nil || claims.Expired(h.now()) {
			h.responder.WriteJSON(w, SessionResponse{})
			return
		}

		user, err := h.sessions.User(r.Context(), token)
		if err != nil {
			if errors.Is(err, errs.ErrAuthentication) {
				h.responder.WriteJSON(w, SessionResponse{})
				return
			}
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, SessionResponse{Authenticated: true, User: user})
	}
}
