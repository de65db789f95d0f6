package repositories

import "errors"

var (
	// ErrNotFound is returned when the addressed record does not exist
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists is returned when a create hits an existing unique key
	ErrAlreadyExists = errors.New("record already exists")
)
