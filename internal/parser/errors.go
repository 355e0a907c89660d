package parser

import (
	"errors"
	"fmt"
)

// ErrNoClosingDelimiter is recorded on the last leaf of a multipart entity
// whose closing "--boundary--" line is missing. The parts read so far are
// kept.
var ErrNoClosingDelimiter = errors.New("closing delimiter not found")

// MalformedMessageError is returned when the input cannot be interpreted as
// a MIME message.
type MalformedMessageError struct {
	Err error
}

func (e *MalformedMessageError) Error() string {
	return fmt.Sprintf("malformed message: %v", e.Err)
}

func (e *MalformedMessageError) Unwrap() error {
	return e.Err
}

func malformed(format string, args ...interface{}) error {
	return &MalformedMessageError{Err: fmt.Errorf(format, args...)}
}

// DecodeFallbackError reports a part that declared no charset and was not
// valid UTF-8. It is never fatal: the part is decoded as UTF-8 with invalid
// bytes dropped.
type DecodeFallbackError struct {
	ContentType string
	Filename    string
}

func (e *DecodeFallbackError) Error() string {
	if e.Filename != "" {
		return fmt.Sprintf("part %s (%s) is not valid UTF-8 and declares no charset; invalid bytes dropped", e.Filename, e.ContentType)
	}
	return fmt.Sprintf("part %s is not valid UTF-8 and declares no charset; invalid bytes dropped", e.ContentType)
}
