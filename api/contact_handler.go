package api

import (
	"net/http"

	"github.com/rpupo63/portfolio-site-backend/content"
	"github.com/rpupo63/portfolio-site-backend/services"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type contactHandler struct {
	responder  Responder
	logger     zerolog.Logger
	content    *content.Manager
	httpClient *http.Client
}

func newContactHandler(manager *content.Manager, httpClient *http.Client) contactHandler {
	logger := log.With().Str("handlerName", "contactHandler").Logger()

	return contactHandler{
		responder:  NewResponder(logger),
		logger:     logger,
		content:    manager,
		httpClient: httpClient,
	}
}

// submit relays a contact message to the form endpoint from settings
// @Router /contact [post]
func (h contactHandler) submit() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var form services.ContactForm
		if err := decodeJSON(r, &form, "contact"); err != nil {
			h.responder.WriteError(w, err)
			return
		}
		if err := form.Validate(); err != nil {
			h.responder.WriteError(w, err)
			return
		}
		if !ensureLoaded(w, r, h.content, h.responder) {
			return
		}

		endpoint := ""
		if s := h.content.Settings(); s != nil {
			endpoint = s.FormEndpoint
		}
		if err := services.SubmitContact(r.Context(), h.httpClient, endpoint, form); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteJSON(w, map[string]string{"status": "sent"})
	}
}
