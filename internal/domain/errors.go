package domain

import (
	"errors"
	"fmt"
)

// ValidationError reports input the store refuses to accept.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// ConflictError reports a URL already present in the collection.
type ConflictError struct {
	Msg string
	URL string
}

func (e *ConflictError) Error() string { return e.Msg }

// NotFoundError reports an unknown bookmark id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("bookmark not found: %s", e.ID) }

func NewValidationError(msg string) error { return &ValidationError{Msg: msg} }

func NewConflictError(url string) error { return &ConflictError{Msg: "duplicate url", URL: url} }

func NewNotFoundError(id string) error { return &NotFoundError{ID: id} }

// ErrNoCollection is returned by repositories when nothing has been stored yet.
var ErrNoCollection = errors.New("no stored bookmark collection")
