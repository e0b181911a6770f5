// Package apperr defines the coded errors returned by the catalog, workflow
// and account services, and the HTTP status each code renders as.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of failure.
type Code string

const (
	CodeValidation        Code = "VALIDATION_ERROR"
	CodeNotFound          Code = "NOT_FOUND"
	CodeInvalidState      Code = "INVALID_STATE"
	CodeInsufficientStock Code = "INSUFFICIENT_STOCK"
	CodeDuplicate         Code = "DUPLICATE"
	CodeSelfDelete        Code = "SELF_DELETE"
	CodeUnauthorized      Code = "UNAUTHORIZED"
	CodeForbidden         Code = "FORBIDDEN"
	CodeInternal          Code = "INTERNAL_ERROR"
)

// Metadata describes how a code is presented to API clients.
type Metadata struct {
	HTTPStatus    int
	PublicMessage string
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:        {http.StatusBadRequest, "validation failed"},
	CodeNotFound:          {http.StatusNotFound, "resource not found"},
	CodeInvalidState:      {http.StatusConflict, "state transition disallowed"},
	CodeInsufficientStock: {http.StatusConflict, "insufficient stock"},
	CodeDuplicate:         {http.StatusConflict, "already exists"},
	CodeSelfDelete:        {http.StatusBadRequest, "cannot delete yourself"},
	CodeUnauthorized:      {http.StatusUnauthorized, "authentication required"},
	CodeForbidden:         {http.StatusForbidden, "insufficient permissions"},
	CodeInternal:          {http.StatusInternalServerError, "internal server error"},
}

// MetadataFor returns the presentation metadata for code. Unknown codes map to internal.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// Error is a coded error carrying optional structured details.
type Error struct {
	code    Code
	message string
	details map[string]any
	cause   error
}

// New returns an error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Wrap returns a coded error that unwraps to err.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() map[string]any {
	if e == nil {
		return nil
	}
	return e.details
}

// With adds a detail key.
func (e *Error) With(key string, value any) *Error {
	if e.details == nil {
		e.details = map[string]any{}
	}
	e.details[key] = value
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the first *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}
	return nil
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	e := As(err)
	return e != nil && e.code == code
}

// CodeOf returns the code of err, or CodeInternal for uncoded errors.
func CodeOf(err error) Code {
	if e := As(err); e != nil {
		return e.code
	}
	return CodeInternal
}

func Validation(message string) *Error {
	return New(CodeValidation, message)
}

func NotFound(entity string, id int64) *Error {
	return New(CodeNotFound, entity+" not found").With("entity", entity).With("id", id)
}

func InvalidState(entity string, id int64, status string) *Error {
	return New(CodeInvalidState, fmt.Sprintf("%s #%d already %s", entity, id, status)).
		With("entity", entity).With("id", id).With("status", status)
}

func InsufficientStock(itemID int64, requested, available int) *Error {
	return New(CodeInsufficientStock, fmt.Sprintf("insufficient stock: requested %d, available %d", requested, available)).
		With("item_id", itemID).With("requested", requested).With("available", available)
}

func Duplicate(field, value string) *Error {
	return New(CodeDuplicate, fmt.Sprintf("%s %q already in use", field, value)).With("field", field)
}

func SelfDelete(id int64) *Error {
	return New(CodeSelfDelete, "cannot delete your own account").With("id", id)
}
