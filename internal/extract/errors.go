package extract

import (
	"errors"
	"fmt"
)

var ErrMalformedResponse = errors.New("malformed model response")

// MalformedResponseError means the model replied but the reply is not the
// expected {items: [...]} object.
type MalformedResponseError struct {
	Reason string
	Raw    string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrMalformedResponse, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrMalformedResponse, e.Reason)
}

func (e *MalformedResponseError) Is(target error) bool { return target == ErrMalformedResponse }

func (e *MalformedResponseError) Unwrap() error { return e.Err }

func malformed(raw, reason string, err error) *MalformedResponseError {
	return &MalformedResponseError{Reason: reason, Raw: raw, Err: err}
}
