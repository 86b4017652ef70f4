package repository

import "errors"

var (
	// ErrNotFound record not found
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate unique constraint violation
	ErrDuplicate = errors.New("duplicate record")

	// ErrInvalidData data failed a repository-level check
	ErrInvalidData = errors.New("invalid data")
)
