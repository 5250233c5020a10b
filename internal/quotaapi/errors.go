package quotaapi

import (
	"errors"
	"fmt"
)

// Failure kinds a fetch can report. Callers distinguish them with
// errors.Is; all of them are expected operating conditions, not
// crashes.
var (
	// ErrCredentialMissing means the credentials file does not exist
	// or carries no access token.
	ErrCredentialMissing = errors.New("oauth credentials missing")

	// ErrCredentialMalformed means the credentials file exists but
	// could not be parsed.
	ErrCredentialMalformed = errors.New("oauth credentials malformed")

	// ErrNetworkTimeout means the request did not complete in time.
	ErrNetworkTimeout = errors.New("usage request timed out")

	// ErrHTTPStatus means the service answered with a non-200 status.
	ErrHTTPStatus = errors.New("usage request rejected")

	// ErrMalformedResponse means the response body was not the
	// expected JSON shape.
	ErrMalformedResponse = errors.New("usage response malformed")
)

// statusError wraps ErrHTTPStatus with the concrete status code.
func statusError(code int, body string) error {
	return fmt.Errorf("%w: status %d: %s", ErrHTTPStatus, code, body)
}
