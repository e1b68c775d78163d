// Package format serializes document trees as XML, JSON or YAML. It is purely
// syntactic: shape checks belong to the validator.
package format

import (
	"errors"
	"fmt"
	"strings"

	"github.com/AaronLay10/zbxport/internal/tree"
)

// Format names a serialization.
type Format string

const (
	XML  Format = "xml"
	JSON Format = "json"
	YAML Format = "yaml"
)

// Formats lists the supported formats.
var Formats = []Format{XML, JSON, YAML}

// ErrSyntax is wrapped by every reader error.
var ErrSyntax = errors.New("cannot read document")

// ErrUnrepresentable is wrapped by writer errors for values the format
// cannot carry.
var ErrUnrepresentable = errors.New("cannot write value")

// ErrUnknownFormat is returned for a format outside Formats.
var ErrUnknownFormat = errors.New("unknown format")

// Parse returns the format named s.
func Parse(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// FromFilename guesses the format from a file extension.
func FromFilename(name string) (Format, error) {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return "", fmt.Errorf("%w: no extension in %q", ErrUnknownFormat, name)
	}
	ext := name[i+1:]
	if ext == "yml" {
		ext = "yaml"
	}
	return Parse(ext)
}

// Writer turns a tree into bytes.
type Writer interface {
	Write(root *tree.Node) ([]byte, error)
}

// Reader turns bytes into a tree.
type Reader interface {
	Read(data []byte) (*tree.Node, error)
}

// NewWriter returns the writer of f.
func NewWriter(f Format) (Writer, error) {
	switch f {
	case XML:
		return xmlWriter{}, nil
	case JSON:
		return jsonWriter{}, nil
	case YAML:
		return yamlWriter{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// NewReader returns the reader of f.
func NewReader(f Format) (Reader, error) {
	switch f {
	case XML:
		return xmlReader{}, nil
	case JSON:
		return jsonReader{}, nil
	case YAML:
		return yamlReader{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

func syntaxError(f Format, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrSyntax, f, fmt.Sprintf(format, args...))
}

// irregular plurals, keyed by collection tag.
var irregular = map[string]string{
	"preprocessing": "step",
	"tls_accept":    "option",
}

// Singular returns the element name used for the items of collection tag.
func Singular(tag string) string {
	if s, ok := irregular[tag]; ok {
		return s
	}
	switch {
	case strings.HasSuffix(tag, "ies"):
		return strings.TrimSuffix(tag, "ies") + "y"
	case strings.HasSuffix(tag, "s"):
		return strings.TrimSuffix(tag, "s")
	}
	return tag
}
