// Package storage provides the low-level persistence primitives shared by
// the dashboard data layer: safe per-user path resolution and atomic JSON
// document I/O. Callers match the sentinel errors below with errors.Is.
package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidIdentity means an empty or unusable identity key was given.
	ErrInvalidIdentity = errors.New("invalid identity key")

	// ErrUnsafePath means a resolved path would escape the storage root.
	// The offending operation is aborted before any I/O.
	ErrUnsafePath = errors.New("path escapes storage root")

	// ErrStorage covers I/O failures (disk full, permissions, file vanished
	// mid-operation).
	ErrStorage = errors.New("storage failure")

	// ErrCorrupted means a document exists on disk but does not parse.
	// Distinct from "absent" so callers can alert instead of silently
	// recreating state. It matches ErrStorage under errors.Is.
	ErrCorrupted = fmt.Errorf("%w: corrupted document", ErrStorage)
)
