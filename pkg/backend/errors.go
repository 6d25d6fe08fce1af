package backend

import (
	"errors"
	"fmt"
)

// ErrRequestFailed is the single failure kind of the backend client. It
// covers transport errors, non-2xx responses and undecodable bodies.
var ErrRequestFailed = errors.New("request failed")

// RequestError describes a failed backend request. It matches
// ErrRequestFailed with errors.Is.
type RequestError struct {
	Endpoint   string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s: status %d", e.Endpoint, ErrRequestFailed, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s: %v", e.Endpoint, ErrRequestFailed, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

func (e *RequestError) Is(target error) bool {
	return target == ErrRequestFailed
}
