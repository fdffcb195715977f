package compose

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidYAML is wrapped by every ParseError.
	ErrInvalidYAML = errors.New("invalid YAML syntax")

	// ErrUnexpectedType is wrapped by every ShapeError.
	ErrUnexpectedType = errors.New("unexpected value type")

	// ErrDuplicateName is wrapped by every CollisionError.
	ErrDuplicateName = errors.New("duplicate namespaced name")
)

// ParseError reports a compose file that is not well-formed YAML.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s: %v", e.Path, e.Err)
}

// Unwrap exposes both the sentinel and the decoder error.
func (e *ParseError) Unwrap() []error {
	return []error{ErrInvalidYAML, e.Err}
}

// IOError reports a compose file that could not be read, or an output
// file that could not be written.
type IOError struct {
	Op   string // "read" or "write"
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// ShapeError reports a compose field whose value has the wrong type,
// e.g. `volumes` given as a list where a mapping is required.
type ShapeError struct {
	Path    string // compose file, filled in by the aggregator
	Field   string // e.g. "volumes.data.driver_opts"
	Message string
}

func (e *ShapeError) Error() string {
	switch {
	case e.Path != "" && e.Field != "":
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Field, e.Message)
	case e.Field != "":
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	default:
		return e.Message
	}
}

func (e *ShapeError) Unwrap() error {
	return ErrUnexpectedType
}

// CollisionError reports two compose files that produced the same
// namespaced name in one section of the combined document.
type CollisionError struct {
	Section  string // "services", "volumes" or "networks"
	Name     string
	Path     string // file that tried to add Name
	Existing string // file that added Name first
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("%s: %s %q already defined by %s", e.Path, e.Section, e.Name, e.Existing)
}

func (e *CollisionError) Unwrap() error {
	return ErrDuplicateName
}

// shapeErrorf builds a ShapeError without a file path.
func shapeErrorf(field, format string, args ...interface{}) *ShapeError {
	return &ShapeError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// withContext attaches the compose file path and a field prefix to a
// ShapeError returned by a transform. Other errors pass through.
func withContext(err error, path, prefix string) error {
	var se *ShapeError
	if !errors.As(err, &se) {
		return err
	}
	if se.Path == "" {
		se.Path = path
	}
	if prefix != "" {
		if se.Field == "" {
			se.Field = prefix
		} else {
			se.Field = prefix + "." + se.Field
		}
	}
	return se
}
