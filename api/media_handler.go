package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rpupo63/portfolio-site-backend/config"
	"github.com/rpupo63/portfolio-site-backend/content"
	"github.com/rpupo63/portfolio-site-backend/errs"
	"github.com/rpupo63/portfolio-site-backend/services"
	"github.com/rpupo63/portfolio-site-backend/supabase"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// multipart parts above this size spill to temp files
const multipartMemory = 32 << 20

type mediaHandler struct {
	responder     Responder
	logger        zerolog.Logger
	content       *content.Manager
	uploader      services.Uploader
	storageURL    services.PublicURLFunc
	bucket        string
	maxUploadSize int64
	now           func() time.Time
}

func newMediaHandler(manager *content.Manager, uploader services.Uploader, storageURL services.PublicURLFunc, cfg config.Config, now func() time.Time) mediaHandler {
	logger := log.With().Str("handlerName", "mediaHandler").Logger()
	if now == nil {
		now = time.Now
	}

	return mediaHandler{
		responder:     NewResponder(logger),
		logger:        logger,
		content:       manager,
		uploader:      uploader,
		storageURL:    storageURL,
		bucket:        cfg.Supabase.VideosBucket,
		maxUploadSize: cfg.Server.MaxUploadSize,
		now:           now,
	}
}

// uploadVideo stores a hero video and, with apply=true, points the site
// settings at it
// @Router /admin/videos [post]
func (h mediaHandler) uploadVideo() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.uploader == nil {
			h.responder.WriteError(w, errs.NewUnavailableError("video storage is not configured", nil))
			return
		}
		if h.maxUploadSize > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
		}
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				h.responder.WriteError(w, errs.NewMaxBodySizeExceededError(tooLarge.Limit))
				return
			}
			h.responder.WriteError(w, errs.NewMalformedPayloadError("multipart", err))
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			h.responder.WriteError(w, errs.NewMissingRequiredFieldError("file"))
			return
		}
		defer file.Close()

		apply, _ := strconv.ParseBool(r.FormValue("apply"))
		logger := h.logger.With().Str("file", header.Filename).Logger()
		lastLogged := ""

		uploaded, err := services.UploadHeroVideo(r.Context(), h.uploader, services.VideoUpload{
			Slot:        services.VideoSlot(r.FormValue("slot")),
			Bucket:      h.bucket,
			FileName:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
			Body:        file,
			OnProgress: func(sent, total int64) {
				if p := supabase.FormatProgress(sent, total); p != lastLogged {
					lastLogged = p
					logger.Debug().Str("progress", p).Msg("Upload progress")
				}
			},
		}, h.now())
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		resp := VideoUploadResponse{
			FileName: uploaded.FileName,
			Slot:     uploaded.Slot,
			Size:     uploaded.Size,
			SizeText: services.FormatFileSize(uploaded.Size),
			Patch:    uploaded.Patch,
		}
		if h.storageURL != nil {
			resp.URL = h.storageURL(uploaded.FileName)
		}

		if apply {
			if !ensureLoaded(w, r, h.content, h.responder) {
				return
			}
			settings, err := h.content.UpdateSettings(r.Context(), uploaded.Patch)
			if err != nil {
				h.responder.WriteError(w, err)
				return
			}
			resp.Settings = settings
		}

		h.responder.WriteJSONStatus(w, http.StatusCreated, resp)
	}
}
