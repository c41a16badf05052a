package provider

import (
	"errors"
	"fmt"
)

// ErrUnavailable reports that the upstream could not produce a usable response:
// a transport failure, a non-2xx status or an undecodable body.
var ErrUnavailable = errors.New("provider unavailable")

// UpstreamError describes a failed upstream call. It matches ErrUnavailable with errors.Is.
type UpstreamError struct {
	Provider string
	Status   int
	Message  string
	Err      error
}

func (e *UpstreamError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status > 0 {
		return fmt.Sprintf("%s: upstream status %d: %s", e.Provider, e.Status, msg)
	}
	return fmt.Sprintf("%s: %s", e.Provider, msg)
}

func (e *UpstreamError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUnavailable}
	}
	return []error{ErrUnavailable, e.Err}
}

// Unavailable wraps err as an UpstreamError without a status code.
func Unavailable(providerName string, err error) error {
	return &UpstreamError{Provider: providerName, Err: err}
}
