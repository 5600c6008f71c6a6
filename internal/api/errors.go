package api

import (
	"errors"
	"fmt"
)

// ErrNetworkUnavailable marks transport-level failures. Callers treat it as
// a signal to take the offline path, not as a user-facing error.
var ErrNetworkUnavailable = errors.New("network unavailable")

// ServerError is a 4xx/5xx rejection from the authoritative server.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server rejected request (status %d)", e.Status)
	}
	return fmt.Sprintf("server rejected request (status %d): %s", e.Status, e.Message)
}

// IsNetworkUnavailable reports whether err is a transport failure rather
// than a server rejection.
func IsNetworkUnavailable(err error) bool {
	return errors.Is(err, ErrNetworkUnavailable)
}
