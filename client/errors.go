package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
)

// HTTPError is returned when the service answers with a status >= 400 after
// the single re-login retry has been used up. Body holds the error payload
// exactly as the server sent it.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Body       json.RawMessage
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s: [STATUS CODE - %d]\t%s", e.Method, e.URL, e.StatusCode, e.Body)
}

// TransportError describes a request that never produced an HTTP response:
// connection failures, timeouts, cancelled contexts. It is never retried.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout returns true if the request failed because it ran out of time.
func (e *TransportError) Timeout() bool {
	var nerr net.Error
	if errors.As(e.Err, &nerr) && nerr.Timeout() {
		return true
	}
	return false
}

// DecodeError is returned when a successful response cannot be decoded into
// the expected resource shape.
type DecodeError struct {
	Method     string
	URL        string
	StatusCode int
	Err        error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s %s: decoding response (status %d): %v", e.Method, e.URL, e.StatusCode, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ErrWaitLimit is returned when a wait used up its configured attempts
// before the resource settled.
var ErrWaitLimit = errors.New("wait attempts exhausted")

// ErrWaitTimeout is returned when a wait ran past its configured deadline.
var ErrWaitTimeout = errors.New("wait deadline exceeded")

// IsHTTPError returns true if err is (or wraps) an HTTPError with the given
// status code. A code of 0 matches any HTTPError.
func IsHTTPError(err error, code int) bool {
	var herr *HTTPError
	if !errors.As(err, &herr) {
		return false
	}
	return code == 0 || herr.StatusCode == code
}
