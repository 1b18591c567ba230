package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"regexp"
	"strings"

	"github.com/rpupo63/portfolio-site-backend/errs"
	"github.com/rs/zerolog/log"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ContactForm is a message from the public contact page.
type ContactForm struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject,omitempty"`
	Message string `json:"message"`
}

// Validate checks every field and returns all failures joined together.
func (f ContactForm) Validate() error {
	var problems []error
	if strings.TrimSpace(f.Name) == "" {
		problems = append(problems, errs.NewMissingRequiredFieldError("name"))
	}
	switch email := strings.TrimSpace(f.Email); {
	case email == "":
		problems = append(problems, errs.NewMissingRequiredFieldError("email"))
	case !emailPattern.MatchString(f.Email):
		problems = append(problems, errs.NewInvalidFieldError("email", "Please enter a valid email"))
	}
	if strings.TrimSpace(f.Message) == "" {
		problems = append(problems, errs.NewMissingRequiredFieldError("message"))
	}
	return errors.Join(problems...)
}

// SubmitContact posts the form as multipart fields to the configured form
// endpoint. The form must already be valid.
func SubmitContact(ctx context.Context, hc *http.Client, endpoint string, form ContactForm) error {
	if endpoint == "" {
		return errs.NewUnavailableError("contact form endpoint is not configured", nil)
	}
	if hc == nil {
		hc = http.DefaultClient
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fields := [][2]string{
		{"name", form.Name},
		{"email", form.Email},
		{"subject", form.Subject},
		{"message", form.Message},
	}
	for _, f := range fields {
		if f[1] == "" {
			continue
		}
		if err := w.WriteField(f[0], f[1]); err != nil {
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return errs.NewInvalidFieldError("form_endpoint", err.Error())
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	logger := log.With().Str("component", "contact").Logger()

	resp, err := hc.Do(req)
	if err != nil {
		logger.Error().Err(err).Msg("Contact form submission failed")
		return errs.NewDeliveryError("form endpoint", 0, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Error().Int("status", resp.StatusCode).Msg("Contact form endpoint rejected submission")
		return errs.NewDeliveryError("form endpoint", resp.StatusCode, nil)
	}

	logger.Info().Msg("Contact form submitted")
	return nil
}
