package schema

import (
	"errors"
	"fmt"
)

// ErrUnsupportedVersion is returned for a version outside Versions().
var ErrUnsupportedVersion = errors.New("unsupported version")

// UnsupportedVersionError names the version that has no schema.
type UnsupportedVersionError struct {
	Version string
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unsupported import file version %q", e.Version)
}

func (e *UnsupportedVersionError) Unwrap() error { return ErrUnsupportedVersion }
