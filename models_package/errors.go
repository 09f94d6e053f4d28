package models

import "errors"

// Errors shared by the stores, the auth gateway and the transfer handler.
// The HTTP layer maps each of them to a status code.
var (
	// ErrNotFound is returned by stores when a lookup matches no row.
	// Handlers translate it into one of the errors below.
	ErrNotFound = errors.New("record not found")

	ErrDuplicateUser      = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPasswordTooLong    = errors.New("password longer than 72 bytes")
	ErrInvalidToken       = errors.New("invalid token")
	ErrUnauthenticated    = errors.New("not authenticated")
	ErrInvalidRecipient   = errors.New("invalid user send to")
	ErrBankNotFound       = errors.New("bank not found")

	// ErrStorageUnavailable wraps any store failure that is not a
	// not-found or a uniqueness violation.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
