package restconf

import (
	"errors"
	"fmt"
)

// ConnError means the device could not be reached at all. Timeouts,
// refused connections, and TLS handshake failures all land here.
type ConnError struct {
	Host string
	Err  error
}

func (e *ConnError) Error() string {
	return fmt.Sprintf("restconf: cannot reach %s: %v", e.Host, e.Err)
}

func (e *ConnError) Unwrap() error { return e.Err }

// HTTPError is a non-2xx response from a reachable device.
type HTTPError struct {
	Status  int
	Message string
	Details string
}

func (e *HTTPError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("restconf: HTTP %d %s: %s", e.Status, e.Message, e.Details)
	}
	return fmt.Sprintf("restconf: HTTP %d %s", e.Status, e.Message)
}

// NotFoundError is a 404 for a resource path. It still carries the HTTP
// status so callers matching HTTPError see it too.
type NotFoundError struct {
	HTTPError
}

// IsConnError reports whether err is a device reachability failure.
func IsConnError(err error) bool {
	var ce *ConnError
	return errors.As(err, &ce)
}

// IsHTTPError reports whether err is a non-2xx device response, and returns it.
func IsHTTPError(err error) (*HTTPError, bool) {
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return &nf.HTTPError, true
	}
	var he *HTTPError
	if errors.As(err, &he) {
		return he, true
	}
	return nil, false
}

// IsNotFound reports whether err is a missing-resource response.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
