package services

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/rpupo63/portfolio-site-backend/errs"
	"github.com/rpupo63/portfolio-site-backend/models"
	"github.com/rpupo63/portfolio-site-backend/supabase"
	"github.com/rs/zerolog/log"
)

// AllowedVideoTypes are the MIME types accepted for hero video uploads.
var AllowedVideoTypes = []string{"video/mp4", "video/webm", "video/quicktime"}

var videoExtensions = map[string]string{
	"video/mp4":       "mp4",
	"video/webm":      "webm",
	"video/quicktime": "mov",
}

// Uploader stores a file in a storage bucket.
type Uploader interface {
	UploadFile(ctx context.Context, bucket, name string, body io.Reader, opts supabase.UploadOptions) (*supabase.UploadResult, error)
}

type VideoSlot string

const (
	SlotDesktop VideoSlot = "desktop"
	SlotMobile  VideoSlot = "mobile"
)

type VideoUpload struct {
	Slot        VideoSlot
	Bucket      string
	FileName    string // name of the file as chosen by the admin
	ContentType string
	Size        int64
	Body        io.Reader
	OnProgress  func(sent, total int64)
}

type UploadedVideo struct {
	FileName string
	Slot     VideoSlot
	Size     int64
	// Patch points the hero video settings at the new file. It is not
	// saved; callers decide whether to apply it.
	Patch models.SettingsPatch
}

// UploadHeroVideo validates and uploads a hero video under a timestamped
// name. The content type is checked before anything is sent.
func UploadHeroVideo(ctx context.Context, up Uploader, v VideoUpload, now time.Time) (*UploadedVideo, error) {
	contentType := normalizeMediaType(v.ContentType)
	ext, ok := videoExtensions[contentType]
	if !ok {
		return nil, errs.NewUnsupportedMediaTypeError(v.ContentType, AllowedVideoTypes)
	}
	if v.Body == nil {
		return nil, errs.NewMissingRequiredFieldError("file")
	}
	if v.Slot == "" {
		v.Slot = SlotDesktop
	}
	if v.Slot != SlotDesktop && v.Slot != SlotMobile {
		return nil, errs.NewInvalidFieldError("slot", "must be desktop or mobile")
	}
	if v.Bucket == "" {
		v.Bucket = "videos"
	}

	if e := strings.TrimPrefix(path.Ext(v.FileName), "."); e != "" {
		ext = strings.ToLower(e)
	}
	prefix := "hero-video"
	if v.Slot == SlotMobile {
		prefix = "hero-mobile"
	}
	name := fmt.Sprintf("%s-%d.%s", prefix, now.UnixMilli(), ext)

	logger := log.With().Str("component", "video-upload").Str("name", name).Logger()
	logger.Info().
		Str("slot", string(v.Slot)).
		Str("size", FormatFileSize(v.Size)).
		Msg("Uploading hero video")

	if _, err := up.UploadFile(ctx, v.Bucket, name, v.Body, supabase.UploadOptions{
		Upsert:        true,
		ContentType:   contentType,
		ContentLength: v.Size,
		OnProgress:    v.OnProgress,
	}); err != nil {
		logger.Error().Err(err).Msg("Hero video upload failed")
		return nil, err
	}

	var patch models.SettingsPatch
	if v.Slot == SlotMobile {
		patch.HeroVideoMobile = &name
	} else {
		videoType := models.VideoSupabase
		patch.HeroVideoType = &videoType
		patch.HeroVideoID = &name
	}

	return &UploadedVideo{FileName: name, Slot: v.Slot, Size: v.Size, Patch: patch}, nil
}

func normalizeMediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}
