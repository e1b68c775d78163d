package export

import (
	"errors"
	"fmt"
)

var (
	ErrMissingRequiredTag  = errors.New("missing required tag")
	ErrUnexpectedEnumValue = errors.New("unexpected enum value")
)

// MissingRequiredTagError reports a required tag absent from gathered data.
type MissingRequiredTagError struct {
	Path string
}

func (e *MissingRequiredTagError) Error() string {
	return fmt.Sprintf("invalid tag %q: the tag is missing", e.Path)
}

func (e *MissingRequiredTagError) Unwrap() error { return ErrMissingRequiredTag }

// UnexpectedEnumValueError reports an internal value with no portable name.
type UnexpectedEnumValueError struct {
	Path  string
	Value string
}

func (e *UnexpectedEnumValueError) Error() string {
	return fmt.Sprintf("invalid tag %q: unexpected constant value %q", e.Path, e.Value)
}

func (e *UnexpectedEnumValueError) Unwrap() error { return ErrUnexpectedEnumValue }

// ExportError aborts an export whose references cannot be resolved. No
// document is produced.
type ExportError struct {
	Err error
}

func (e *ExportError) Error() string {
	return "configuration export failed: " + e.Err.Error()
}

func (e *ExportError) Unwrap() error { return e.Err }
