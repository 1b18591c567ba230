package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Hosted backend errors. Every failed call to the auth, REST or storage
// surface unwraps to exactly one of these.
var (
	ErrAuthentication = errors.New("authentication failed")
	ErrQuery          = errors.New("query failed")
	ErrInsert         = errors.New("insert failed")
	ErrUpdate         = errors.New("update failed")
	ErrDelete         = errors.New("delete failed")
	ErrUpload         = errors.New("upload failed")
	ErrNetwork        = errors.New("network error")
)

// BackendErr is a failed backend call. Message is the server-supplied text
// when the response carried one, otherwise a fixed fallback.
type BackendErr struct {
	Kind       error
	StatusCode int // 0 for transport failures
	Message    string
	Cause      error
}

func (e *BackendErr) Error() string {
	return e.Message
}

func (e *BackendErr) Unwrap() []error {
	out := []error{e.Kind}
	if e.Cause != nil {
		out = append(out, e.Cause)
	}
	return out
}

// HTTPStatus maps the failure onto the status the site API answers with.
func (e *BackendErr) HTTPStatus() int {
	switch {
	case errors.Is(e.Kind, ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(e.Kind, ErrNetwork):
		return http.StatusServiceUnavailable
	case e.StatusCode == http.StatusConflict:
		return http.StatusConflict
	case e.StatusCode == http.StatusNotFound:
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

func NewBackendError(kind error, statusCode int, message string) *BackendErr {
	return &BackendErr{Kind: kind, StatusCode: statusCode, Message: message}
}

func NewNetworkError(operation string, cause error) *BackendErr {
	return &BackendErr{
		Kind:    ErrNetwork,
		Message: fmt.Sprintf("network error during %s: %v", operation, cause),
		Cause:   cause,
	}
}

func IsAuthenticationError(err error) bool {
	return errors.Is(err, ErrAuthentication)
}

func IsQueryError(err error) bool {
	return errors.Is(err, ErrQuery)
}

func IsInsertError(err error) bool {
	return errors.Is(err, ErrInsert)
}

func IsUpdateError(err error) bool {
	return errors.Is(err, ErrUpdate)
}

func IsDeleteError(err error) bool {
	return errors.Is(err, ErrDelete)
}

func IsUploadError(err error) bool {
	return errors.Is(err, ErrUpload)
}

func IsNetworkError(err error) bool {
	return errors.Is(err, ErrNetwork)
}
