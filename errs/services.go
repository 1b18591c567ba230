package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Third-party service errors
var (
	ErrDeliveryFailed = errors.New("delivery failed")
)

// NewDeliveryError reports a third-party endpoint that did not accept a
// submission. statusCode is 0 when no response arrived.
func NewDeliveryError(service string, statusCode int, cause error) *ApiErr {
	details := fmt.Sprintf("%s did not accept the submission", service)
	if statusCode != 0 {
		details = fmt.Sprintf("%s responded with status %d", service, statusCode)
	}
	return &ApiErr{
		StatusCode: http.StatusBadGateway,
		err:        ErrDeliveryFailed,
		Details:    details,
		Cause:      cause,
	}
}

func IsDeliveryError(err error) bool {
	return errors.Is(err, ErrDeliveryFailed)
}
