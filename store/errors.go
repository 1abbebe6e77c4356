package store

import "errors"

var (
	// ErrNotFound indicates no snapshot has been saved yet.
	ErrNotFound = errors.New("store: snapshot not found")

	// ErrNilParam indicates a required parameter is nil.
	ErrNilParam = errors.New("store: required parameter is nil")

	// ErrInvalidOutpoint indicates a malformed transaction outpoint.
	ErrInvalidOutpoint = errors.New("store: invalid outpoint")
)
