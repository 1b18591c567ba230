package services

import (
	"regexp"
	"strings"

	"github.com/rpupo63/portfolio-site-backend/models"
)

const driveImageBase = "https://lh3.googleusercontent.com/d/"

// Drive share URL forms, tried in order.
var driveFileIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/file/d/([a-zA-Z0-9_-]+)`), // /file/d/<id>/view
	regexp.MustCompile(`[?&]id=([a-zA-Z0-9_-]+)`),  // /open?id=<id>
	regexp.MustCompile(`/uc\?.*id=([a-zA-Z0-9_-]+)`),
}

// ConvertGoogleDriveURL turns a Google Drive share link into a direct image
// URL. Other URLs, including already converted ones, are returned as is.
func ConvertGoogleDriveURL(url string) string {
	if url == "" || strings.Contains(url, "lh3.googleusercontent.com") {
		return url
	}
	if !strings.Contains(url, "drive.google.com") {
		return url
	}

	for _, re := range driveFileIDPatterns {
		if m := re.FindStringSubmatch(url); m != nil {
			return driveImageBase + m[1]
		}
	}
	return url
}

// PublicURLFunc returns the public URL of a file in the videos bucket.
type PublicURLFunc func(name string) string

// VideoEmbedURL returns the URL to embed for a stored video reference, or ""
// when the type is unknown or the id is empty. storageURL resolves uploaded
// files and may be nil.
func VideoEmbedURL(videoType, videoID string, autoplay bool, storageURL PublicURLFunc) string {
	if videoID == "" {
		return ""
	}

	switch videoType {
	case models.VideoYouTube:
		u := "https://www.youtube-nocookie.com/embed/" + videoID + "?rel=0&modestbranding=1"
		if autoplay {
			u += "&autoplay=1&mute=1"
		}
		return u
	case models.VideoGoogleDrive:
		return "https://drive.google.com/file/d/" + videoID + "/preview"
	case models.VideoSupabase:
		if storageURL == nil {
			return ""
		}
		return storageURL(videoID)
	default:
		return ""
	}
}
