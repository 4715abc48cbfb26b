package model

import (
	"errors"
	"fmt"
)

// RequestError is a client input error: malformed or unknown ids, or an
// attempt to inject standards manually. It is never recovered internally.
type RequestError struct {
	Field   string
	Message string
}

func (e *RequestError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewRequestError builds a RequestError for field.
func NewRequestError(field, format string, args ...any) *RequestError {
	return &RequestError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// AsRequestError unwraps err into a RequestError when it is one.
func AsRequestError(err error) (*RequestError, bool) {
	var re *RequestError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
