package domain

import "errors"

// Common domain errors
//
// Every public client operation either completes or rejects with an error
// classifiable by errors.Is against one of these.
var (
	ErrValidation   = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrPermission   = errors.New("permission denied")
	ErrNotFound     = errors.New("resource not found")
	ErrConflict     = errors.New("conflicting update")
	ErrTransport    = errors.New("transport failure")
)
