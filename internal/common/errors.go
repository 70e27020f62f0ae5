// Package common holds error values shared by every layer of the client.
package common

import "errors"

var (
	// ErrNotAuthenticated is returned when an operation needs a signed-in
	// principal and there is none.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrInvalidInput marks malformed caller input (bad date, clock, hours).
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound is returned by local repositories when a row is missing.
	ErrNotFound = errors.New("not found")

	// ErrLocalStoreCorruption means the local mirror holds data the client
	// cannot interpret. The store needs a reset.
	ErrLocalStoreCorruption = errors.New("local store corruption")

	ErrInvalidToken = errors.New("invalid token")
)
