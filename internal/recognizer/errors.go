package recognizer

import (
	"errors"
	"fmt"
	"net/http"

	"stitcher/internal/retrypolicy"
)

// BackendError is a well-formed error response from the recognition backend,
// either an HTTP status or an application error code in the envelope.
type BackendError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *BackendError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("recognizer: backend code %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("recognizer: http %d: %s", e.StatusCode, e.Message)
}

// Classify maps errors to the retry policy classes. Server-side 5xx and
// transport failures (timeouts, refused connections) are worth retrying;
// well-formed application errors will recur identically and are not.
func Classify(err error) retrypolicy.Class {
	var backendErr *BackendError
	if errors.As(err, &backendErr) {
		if backendErr.Code == 0 && backendErr.StatusCode >= http.StatusInternalServerError {
			return retrypolicy.Retryable
		}
		return retrypolicy.Fatal
	}
	return retrypolicy.Retryable
}
