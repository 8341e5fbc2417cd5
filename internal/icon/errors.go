package icon

import (
	"errors"
	"fmt"
)

// Validation failures. A candidate failing validation is dropped from
// discovery, so these mostly show up in debug logs and in direct Fetch calls.
var (
	ErrTransport              = errors.New("transport error")
	ErrBadStatus              = errors.New("bad status code")
	ErrMissingContentType     = errors.New("no content type")
	ErrUnsupportedContentType = errors.New("unsupported content type")
	ErrDecode                 = errors.New("image decode failed")
	ErrMalformedURL           = errors.New("malformed url")
)

// StatusError is returned when an icon URL answers with a non-2xx status.
// It matches ErrBadStatus with errors.Is.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("bad status code %d for %s", e.StatusCode, e.URL)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrBadStatus
}
