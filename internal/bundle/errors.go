package bundle

import (
	"errors"
	"strings"
)

// ValidationError is a fatal bundle integrity error. It identifies the file,
// the field path within it, and the offending id (the rule id when a rule is
// involved). A process that receives one must not serve traffic.
type ValidationError struct {
	File    string
	Field   string
	ID      string
	RuleID  string
	Message string
}

func (e *ValidationError) Error() string {
	parts := []string{"bundle", e.File}
	if e.Field != "" {
		parts = append(parts, e.Field)
	}
	if e.RuleID != "" {
		parts = append(parts, "rule "+e.RuleID)
	} else if e.ID != "" {
		parts = append(parts, "id "+e.ID)
	}
	parts = append(parts, e.Message)
	return strings.Join(parts, ": ")
}

// AsValidationError unwraps err into a ValidationError when it is one.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
