package pos

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is matched by every *NotFoundError.
var ErrNotFound = errors.New("not found")

type ValidationError struct {
	Reason string
	IDs    []string
}

func (e *ValidationError) Error() string {
	if len(e.IDs) == 0 {
		return e.Reason
	}
	return e.Reason + ": " + strings.Join(e.IDs, ", ")
}

func invalid(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func notFound(entity string, key any) *NotFoundError {
	return &NotFoundError{Entity: entity, Key: fmt.Sprint(key)}
}

type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return e.Reason
}

// PartialFailureError reports a multi-write operation that stopped after some writes
// were already persisted. Nothing is rolled back.
type PartialFailureError struct {
	Op   string
	Step string
	Err  error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("%s: partial failure at %s: %v", e.Op, e.Step, e.Err)
}

func (e *PartialFailureError) Unwrap() error {
	return e.Err
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}

func IsPartialFailure(err error) bool {
	var p *PartialFailureError
	return errors.As(err, &p)
}
