package book

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned when a book is not found.
	ErrNotFound = errors.New("book not found")
	// ErrInvalidID is returned by stores when an id cannot name any book.
	ErrInvalidID = errors.New("invalid book id")
	// ErrVersionConflict is returned by Save when the stored version moved.
	ErrVersionConflict = errors.New("book was modified concurrently")
	// ErrInvalidDocument is returned by stores that reject a write on schema grounds.
	ErrInvalidDocument = errors.New("book rejected by store")
	// ErrInvalidFilter is returned by stores whose pattern engine rejects a filter
	// that passed validation.
	ErrInvalidFilter = errors.New("invalid filter pattern")
)

// Kind classifies service errors for callers.
type Kind int

const (
	KindServer Kind = iota
	KindNotFound
	KindClientInput
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindClientInput:
		return "client_input"
	case KindConflict:
		return "conflict"
	default:
		return "server"
	}
}

// Error is returned by Service methods. Err holds the internal detail.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Kind.String()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf reports the kind of err. Errors that are not *Error are server faults.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindServer
}

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every field rejected in a single request.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return "Book validation failed: " + strings.Join(msgs, ", ")
}

func invalidField(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

func notFound(op string) error {
	return &Error{Kind: KindNotFound, Op: op, Err: ErrNotFound}
}

func clientInput(op string, err error) error {
	return &Error{Kind: KindClientInput, Op: op, Err: err}
}

func conflict(op string, err error) error {
	return &Error{Kind: KindConflict, Op: op, Err: err}
}

func serverFault(op string, err error) error {
	return &Error{Kind: KindServer, Op: op, Err: err}
}

// listFault treats a filter the store could not evaluate as client input.
func listFault(op string, err error) error {
	if errors.Is(err, ErrInvalidFilter) {
		return clientInput(op, err)
	}
	return serverFault(op, err)
}
