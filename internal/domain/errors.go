package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorKind is the category of a failed remote operation.
type ErrorKind string

const (
	// KindNetwork covers transport failures and unusable responses.
	KindNetwork ErrorKind = "network"
	// KindAuth means the credential is missing or rejected (401).
	KindAuth ErrorKind = "auth"
	// KindValidation means the server (or local checks) refused the payload (400-class).
	KindValidation ErrorKind = "validation"
	// KindNotFound means the record no longer exists (404/409).
	KindNotFound ErrorKind = "not_found"
)

// Error is a typed failure carried from the repository up to the view.
type Error struct {
	Kind    ErrorKind
	Op      string
	Status  int
	Message string
	Fields  map[string]string
	Cause   error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(string(e.Kind))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// WithField attaches a field-level message (chainable).
func (e *Error) WithField(field, msg string) *Error {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = msg
	return e
}

// FieldNames returns the fields with messages in stable order.
func (e *Error) FieldNames() []string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func NetworkError(op string, cause error) *Error {
	return &Error{Kind: KindNetwork, Op: op, Cause: cause}
}

func AuthError(op, message string) *Error {
	return &Error{Kind: KindAuth, Op: op, Status: 401, Message: message}
}

func ValidationError(op, message string) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: message}
}

func NotFoundError(op, message string) *Error {
	return &Error{Kind: KindNotFound, Op: op, Message: message}
}

// KindOf reports the kind of err, or "" when err is not a *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsAuth(err error) bool       { return KindOf(err) == KindAuth }
func IsNotFound(err error) bool   { return KindOf(err) == KindNotFound }
func IsValidation(err error) bool { return KindOf(err) == KindValidation }
func IsNetwork(err error) bool    { return KindOf(err) == KindNetwork }
