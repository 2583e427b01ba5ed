package errors

import (
	stderrors "errors"
	"fmt"
)

// Category represents the recovery class of an error.
type Category string

const (
	CategoryAuth        Category = "auth"
	CategoryTarget      Category = "target"
	CategoryChannel     Category = "channel"
	CategoryApplication Category = "application"
	CategoryConfig      Category = "config"
)

// ConsoleError is a structured error with a registry code, an optional HTTP
// status and a wrapped cause.
type ConsoleError struct {
	// Code is a unique error identifier (e.g., "E100").
	Code string `json:"code,omitempty"`

	// Category is the recovery class.
	Category Category `json:"category"`

	// Message is a short description of the error.
	Message string `json:"message"`

	// Detail is a longer explanation, usually response text from the backend.
	Detail string `json:"detail,omitempty"`

	// Status is the HTTP status that produced the error, if any.
	Status int `json:"status,omitempty"`

	// Suggestion is a hint on how to recover.
	Suggestion string `json:"suggestion,omitempty"`

	// Wrapped is the underlying error, if any.
	Wrapped error `json:"-"`
}

// Error implements the error interface.
func (e *ConsoleError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *ConsoleError) Unwrap() error {
	return e.Wrapped
}

// WithDetail adds a detailed explanation to the error.
func (e *ConsoleError) WithDetail(d string) *ConsoleError {
	e.Detail = d
	return e
}

// WithStatus records the HTTP status that produced the error.
func (e *ConsoleError) WithStatus(status int) *ConsoleError {
	e.Status = status
	return e
}

// WithSuggestion adds a recovery hint to the error.
func (e *ConsoleError) WithSuggestion(s string) *ConsoleError {
	e.Suggestion = s
	return e
}

// Wrap wraps another error.
func (e *ConsoleError) Wrap(err error) *ConsoleError {
	e.Wrapped = err
	return e
}

// New creates a ConsoleError from a registered error code.
func New(code string) *ConsoleError {
	template, ok := registry[code]
	if !ok {
		return &ConsoleError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &ConsoleError{
		Code:       code,
		Category:   template.Category,
		Message:    template.Message,
		Detail:     template.Detail,
		Suggestion: template.Suggestion,
	}
}

// Newf creates a new ConsoleError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *ConsoleError {
	return &ConsoleError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a ConsoleError.
func FromError(err error, code string) *ConsoleError {
	if err == nil {
		return nil
	}
	var ce *ConsoleError
	if stderrors.As(err, &ce) {
		return ce
	}
	return New(code).Wrap(err)
}

// Is reports whether any error in err's chain is a ConsoleError with the
// given code.
func Is(err error, code string) bool {
	for err != nil {
		if ce, ok := err.(*ConsoleError); ok && ce.Code == code {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

// CategoryOf returns the category of the first ConsoleError in err's chain,
// or CategoryApplication when there is none.
func CategoryOf(err error) Category {
	var ce *ConsoleError
	if stderrors.As(err, &ce) && ce.Category != "" {
		return ce.Category
	}
	return CategoryApplication
}
