package repository

import "errors"

var (
	ErrNotFound = errors.New("record not found")
	// ErrConflict means a conditional update matched no row because the
	// record changed underneath the caller.
	ErrConflict = errors.New("record changed concurrently")
)

type rowScanner interface {
	Scan(dest ...any) error
}
