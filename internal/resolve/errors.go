package resolve

import (
	"errors"
	"fmt"

	"github.com/AaronLay10/zbxport/internal/model"
)

// ErrReference is wrapped by every ReferenceError.
var ErrReference = errors.New("unresolvable reference")

// ReferenceError reports a reference that did not resolve to exactly one
// visible object.
type ReferenceError struct {
	Kind model.Kind
	Key  string
	// Ambiguous is set when more than one object matched.
	Ambiguous bool
}

func (e *ReferenceError) Error() string {
	if e.Ambiguous {
		return fmt.Sprintf("%s reference %q matches more than one object", e.Kind, e.Key)
	}
	return fmt.Sprintf("no permissions to referred object or it does not exist: %s %q", e.Kind, e.Key)
}

func (e *ReferenceError) Unwrap() error { return ErrReference }

func missing(kind model.Kind, key string) error {
	return &ReferenceError{Kind: kind, Key: key}
}

func asRef(err error, target **ReferenceError) bool {
	return errors.As(err, target)
}
