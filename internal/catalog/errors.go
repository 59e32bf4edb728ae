package catalog

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("product not found")
	ErrDuplicateCode = errors.New("product code already in use")
	ErrInvalidField  = errors.New("invalid product field")
	ErrPersistence   = errors.New("catalog persistence failed")

	// ErrNoSnapshot is returned by a Backend whose target holds no snapshot yet.
	ErrNoSnapshot = errors.New("no snapshot")
)

type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s: id=%q", ErrNotFound, e.ID) }

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

type DuplicateCodeError struct {
	Code string
}

func (e *DuplicateCodeError) Error() string {
	return fmt.Sprintf("%s: code=%q", ErrDuplicateCode, e.Code)
}

func (e *DuplicateCodeError) Is(target error) bool { return target == ErrDuplicateCode }

// PersistenceError reports a snapshot write that did not complete. The store
// has already reverted the mutation that triggered it.
type PersistenceError struct {
	Op     string
	Target string
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %s %s: %v", ErrPersistence, e.Op, e.Target, e.Err)
}

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

func (e *PersistenceError) Unwrap() error { return e.Err }

// DecodeError points at the snapshot line that could not be decoded.
type DecodeError struct {
	Line int
	Err  error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("line %d: %v", e.Line, e.Err) }

func (e *DecodeError) Unwrap() error { return e.Err }
