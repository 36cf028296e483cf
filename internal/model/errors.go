package model

import "fmt"

// ValidationError reports malformed input with the field it came from and,
// when there is one, the expected format.
type ValidationError struct {
	Field      string // dotted path, e.g. "services.web.ports[0]"
	Message    string // what's wrong
	Suggestion string // how to fix it
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Prefix qualifies the field path with a parent, e.g. "services.web".
func (e *ValidationError) Prefix(parent string) *ValidationError {
	switch {
	case parent == "":
	case e.Field == "":
		e.Field = parent
	default:
		e.Field = parent + "." + e.Field
	}
	return e
}

// MissingImageError is returned when a service ends up without an image,
// either because it has neither image nor build config or because the
// build was declined.
type MissingImageError struct {
	Service string
	Reason  string
}

func (e *MissingImageError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("service %s has no image", e.Service)
	}
	return fmt.Sprintf("service %s has no image: %s", e.Service, e.Reason)
}

// IOError wraps a filesystem or archive failure with the operation and path.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}
