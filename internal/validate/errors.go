package validate

import (
	"errors"
	"fmt"
)

// ErrValidation is wrapped by every ValidationError.
var ErrValidation = errors.New("validation failed")

// ValidationError names the offending tag by its document path, for example
// /zabbix_export/hosts/host(1)/name.
type ValidationError struct {
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid tag %q: %s", e.Path, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func fail(path, format string, args ...any) error {
	return &ValidationError{Path: path, Reason: fmt.Sprintf(format, args...)}
}
