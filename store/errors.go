package store

import "github.com/pkg/errors"

// Sentinel errors surfaced by the store. Handlers map these onto HTTP
// statuses; everything else from this package is a storage failure.
var (
	// ErrNotFound indicates the referenced session does not exist.
	ErrNotFound = errors.New("not found")

	// ErrOwnershipMismatch indicates the session exists but belongs to a
	// different user. Handlers present it identically to ErrNotFound so the
	// surface does not leak session existence across users.
	ErrOwnershipMismatch = errors.New("ownership mismatch")

	// ErrAlreadyExists is returned by drivers on a unique-constraint
	// violation. The facade uses it to resolve concurrent get-or-create
	// races; it never escapes to handlers.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidArgument indicates malformed caller input (empty title,
	// unknown role).
	ErrInvalidArgument = errors.New("invalid argument")
)
