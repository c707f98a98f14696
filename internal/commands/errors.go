package commands

import "fmt"

// ValidationError rejects a whole batch because of one invalid field.
// Index is the position of the offending command, or -1 when the batch
// envelope itself is malformed.
type ValidationError struct {
	Index  int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid batch: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("command %d: invalid %s: %s", e.Index, e.Field, e.Reason)
}

// UnknownCommandTypeError rejects a batch containing an unrecognized tag.
type UnknownCommandTypeError struct {
	Index int
	Type  string
}

func (e *UnknownCommandTypeError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("command %d: missing command type", e.Index)
	}
	return fmt.Sprintf("command %d: unknown command type %q", e.Index, e.Type)
}

type fieldError struct {
	field  string
	reason string
}

func (e *fieldError) Error() string { return e.field + ": " + e.reason }

func invalid(field, format string, args ...any) *fieldError {
	return &fieldError{field: field, reason: fmt.Sprintf(format, args...)}
}

func (e *fieldError) at(index int) *ValidationError {
	return &ValidationError{Index: index, Field: e.field, Reason: e.reason}
}
