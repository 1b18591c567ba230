package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rpupo63/portfolio-site-backend/content"
	"github.com/rpupo63/portfolio-site-backend/errs"
	"github.com/rs/zerolog"
)

type Responder struct {
	logger zerolog.Logger
}

func NewResponder(logger zerolog.Logger) Responder {
	return Responder{logger}
}

func (r Responder) WriteJSON(w http.ResponseWriter, data any) {
	r.WriteJSONStatus(w, http.StatusOK, data)
}

func (r Responder) WriteJSONStatus(w http.ResponseWriter, status int, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		r.logger.Error().Err(err).Msg("error marshaling response data")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(jsonData); err != nil {
		r.logger.Error().Err(err).Msg("error writing response")
	}
}

func (r Responder) WriteError(w http.ResponseWriter, err error) {
	response := ErrorResponse{Status: "error"}

	var reorderErr *content.ReorderError
	if errors.As(err, &reorderErr) {
		response.Updated = &reorderErr.Updated
		response.Total = &reorderErr.Total
	}

	// joined validation failures are reported together
	if fields := errs.FieldErrors(err); len(fields) > 1 && errs.IsValidation(err) {
		response.Error = "Validation error"
		for _, f := range fields {
			response.Fields = append(response.Fields, FieldError{Field: f.Field, Message: f.Error()})
		}
		r.WriteJSONStatus(w, http.StatusBadRequest, response)
		return
	}

	var backendErr *errs.BackendErr
	if errors.As(err, &backendErr) {
		status := backendErr.HTTPStatus()
		response.Error = backendErr.Message
		if status >= http.StatusInternalServerError {
			r.logger.Error().Err(err).Int("upstreamStatus", backendErr.StatusCode).Msg("backend request failed")
		}
		r.WriteJSONStatus(w, status, response)
		return
	}

	var apiErr *errs.ApiErr
	// For unexpected errors, log and return generic internal error
	if !errors.As(err, &apiErr) {
		r.logger.Error().Err(err).Msg("unexpected error")
		response.Error = "Internal Server Error"
		response.Details = "An unexpected error occurred"
		r.WriteJSONStatus(w, http.StatusInternalServerError, response)
		return
	}

	response.Error = apiErr.Error()
	response.Field = apiErr.Field
	if apiErr.Cause != nil {
		response.Cause = apiErr.GetFullError()
	}
	if apiErr.StatusCode >= http.StatusInternalServerError {
		r.logger.Error().Err(err).Msg(apiErr.GetFullError())
	}
	r.WriteJSONStatus(w, apiErr.StatusCode, response)
}

func decodeJSON(r *http.Request, dst any, payloadName string) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errs.NewMalformedPayloadError(payloadName, err)
	}
	return nil
}
