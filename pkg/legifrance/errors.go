package legifrance

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrMissingCredentials is returned by New when neither a static token nor a
// complete set of client credentials is configured.
var ErrMissingCredentials = errors.New(
	"legifrance: either a token or client_id, client_secret and token_url must be provided",
)

// APIError carries the information shared by every Legifrance error: a
// human readable message, structured details and the original cause.
type APIError struct {
	Message string
	Details map[string]any
	Err     error
}

func (e *APIError) Error() string { return e.Message }

// Unwrap returns the original cause.
func (e *APIError) Unwrap() error { return e.Err }

func (e *APIError) apiError() *APIError { return e }

// AuthenticationError reports rejected credentials or a rejected bearer token
// (HTTP 401/403), or a token response without a usable access token.
type AuthenticationError struct {
	APIError
}

// DataParsingError reports a response body that should have been JSON but
// did not decode.
type DataParsingError struct {
	APIError
}

// LegifranceError reports every other failure: non-2xx responses,
// connectivity problems and unexpected errors.
type LegifranceError struct {
	APIError
	// StatusCode is the HTTP status, 0 when no response was received.
	StatusCode int
	// Operation names the client operation that failed ("request",
	// "async request", "token").
	Operation string
	// Connectivity is set for transport level failures (DNS, refused
	// connection, timeout).
	Connectivity bool
}

// AsAPIError returns the APIError embedded in any error of the taxonomy.
func AsAPIError(err error) (*APIError, bool) {
	var e interface{ apiError() *APIError }
	if errors.As(err, &e) {
		return e.apiError(), true
	}
	return nil, false
}

// IsAuthentication reports whether err is an AuthenticationError.
func IsAuthentication(err error) bool {
	var e *AuthenticationError
	return errors.As(err, &e)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	apiErr, ok := AsAPIError(err)
	if !ok {
		return 0
	}
	code, _ := apiErr.Details["status_code"].(int)
	return code
}

func newAuthenticationError(msg string, details map[string]any, cause error) *AuthenticationError {
	return &AuthenticationError{APIError{Message: msg, Details: details, Err: cause}}
}

func newDataParsingError(cause error) *DataParsingError {
	return &DataParsingError{APIError{
		Message: "Failed to parse Legifrance response as JSON",
		Details: map[string]any{"error": cause.Error()},
		Err:     cause,
	}}
}

// statusError is the cause attached to errors built from a non-2xx response.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("HTTP %d %s", e.code, http.StatusText(e.code))
}

func statusDetails(code int, body string) map[string]any {
	return map[string]any{
		"status_code": code,
		"response":    body,
	}
}

// classifyStatus maps a non-2xx response of a data request to the taxonomy.
func classifyStatus(op string, code int, body string) error {
	cause := &statusError{code: code, body: body}
	if code == http.StatusUnauthorized || code == http.StatusForbidden {
		return newAuthenticationError("Legifrance authentication failed", statusDetails(code, body), cause)
	}
	return &LegifranceError{
		APIError: APIError{
			Message: fmt.Sprintf("Legifrance API %s failed: HTTP %d", op, code),
			Details: statusDetails(code, body),
			Err:     cause,
		},
		StatusCode: code,
		Operation:  op,
	}
}

func connectivityError(op, msg string, cause error) *LegifranceError {
	return &LegifranceError{
		APIError:     APIError{Message: fmt.Sprintf("%s: %v", msg, cause), Err: cause},
		Operation:    op,
		Connectivity: true,
	}
}

func unexpectedError(op, msg string, cause error) *LegifranceError {
	return &LegifranceError{
		APIError:  APIError{Message: fmt.Sprintf("%s: %v", msg, cause), Err: cause},
		Operation: op,
	}
}

// retryable reports whether another attempt may succeed: connectivity
// failures, 429 and 5xx responses. Authentication, parsing, other 4xx and
// unexpected errors are final.
func retryable(err error) bool {
	var le *LegifranceError
	if !errors.As(err, &le) {
		return false
	}
	if le.Connectivity {
		return true
	}
	return le.StatusCode == http.StatusTooManyRequests || le.StatusCode >= 500
}
