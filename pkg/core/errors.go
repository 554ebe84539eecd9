package core

import "fmt"

// InputError reports an unreadable or malformed alias mapping.
// It is raised before any field is touched.
type InputError struct {
	Path string
	Line int
	Err  error
}

func (e *InputError) Error() string {
	switch {
	case e.Path != "" && e.Line > 0:
		return fmt.Sprintf("%s:%d: %v", e.Path, e.Line, e.Err)
	case e.Path != "":
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	case e.Line > 0:
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	default:
		return e.Err.Error()
	}
}

func (e *InputError) Unwrap() error { return e.Err }

// UpdateRejectedError reports that the engine refused an alias change.
type UpdateRejectedError struct {
	Field string
	Alias string
	Err   error
}

func (e *UpdateRejectedError) Error() string {
	return fmt.Sprintf("alias update rejected for field %s: %v", e.Field, e.Err)
}

func (e *UpdateRejectedError) Unwrap() error { return e.Err }
