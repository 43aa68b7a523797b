package models

import "errors"

// Domain errors that can be returned by repositories
var (
	// ErrNotFound indicates the requested entity was not found
	ErrNotFound = errors.New("not found")

	// ErrRunFinalized indicates an attempt to finish a sync run that already
	// reached a terminal status
	ErrRunFinalized = errors.New("sync run already finalized")
)
