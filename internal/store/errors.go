package store

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes store errors for callers that translate them into
// their own status classes.
type ErrorCode string

const (
	// ErrCodeNotFound indicates a referenced row does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeConflict indicates a name uniqueness violation.
	ErrCodeConflict ErrorCode = "CONFLICT"

	// ErrCodeMigrationFailed indicates a migration could not be applied.
	// The original store file is intact and still at its old version.
	ErrCodeMigrationFailed ErrorCode = "MIGRATION_FAILED"

	// ErrCodeInternalConsistency indicates a cascade step failed after the
	// root row was confirmed to exist.
	ErrCodeInternalConsistency ErrorCode = "INTERNAL_CONSISTENCY"

	// ErrCodeInterruptedSwap indicates a previous migration was interrupted
	// after the original file was deleted but before the staging copy was
	// renamed into place.
	ErrCodeInterruptedSwap ErrorCode = "INTERRUPTED_SWAP"
)

// Error is the structured failure returned by store operations.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Entity names the record type involved ("category", "article", ...).
	Entity string

	// ID is the referenced row id, when there is one.
	ID int64

	// Scope describes where a uniqueness rule applies ("world", "category 3").
	Scope string

	// Name is the conflicting name.
	Name string

	// Version is the migration version that failed.
	Version int

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NotFound creates an Error for a missing row.
func NotFound(entity string, id int64) *Error {
	return &Error{
		Code:    ErrCodeNotFound,
		Entity:  entity,
		ID:      id,
		Message: fmt.Sprintf("%s %d does not exist in the current World", entity, id),
	}
}

// Conflict creates an Error for a name already taken within scope.
func Conflict(entity, scope, name string) *Error {
	return &Error{
		Code:    ErrCodeConflict,
		Entity:  entity,
		Scope:   scope,
		Name:    name,
		Message: fmt.Sprintf("%s already has a %s named %q", scope, entity, name),
	}
}

// MigrationFailed creates an Error for a failed migration.
func MigrationFailed(version int, cause error) *Error {
	return &Error{
		Code:    ErrCodeMigrationFailed,
		Version: version,
		Message: fmt.Sprintf("migration %d failed, store left at its previous version", version),
		Err:     cause,
	}
}

// InternalConsistency creates an Error for a cascade step that failed after
// existence of the root row was confirmed.
func InternalConsistency(entity string, id int64, cause error) *Error {
	return &Error{
		Code:    ErrCodeInternalConsistency,
		Entity:  entity,
		ID:      id,
		Message: fmt.Sprintf("failed to delete %s %d", entity, id),
		Err:     cause,
	}
}

// InterruptedSwap creates an Error for a store whose original file is gone
// while its staging copy is still present.
func InterruptedSwap(path, stagingPath string) *Error {
	return &Error{
		Code: ErrCodeInterruptedSwap,
		Message: fmt.Sprintf("%s is missing but %s exists: a previous migration was interrupted, "+
			"rename the staging file to %s to recover", path, stagingPath, path),
	}
}

// CodeOf returns the ErrorCode of err, or "" if err is not an *Error.
func CodeOf(err error) ErrorCode {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsNotFound returns true if the error is a not-found error.
// Uses errors.As to handle wrapped errors.
func IsNotFound(err error) bool {
	return CodeOf(err) == ErrCodeNotFound
}

// IsConflict returns true if the error is a uniqueness conflict.
func IsConflict(err error) bool {
	return CodeOf(err) == ErrCodeConflict
}

// IsMigrationFailure returns true if the error reports a failed migration.
func IsMigrationFailure(err error) bool {
	return CodeOf(err) == ErrCodeMigrationFailed
}

// IsInterruptedSwap returns true if a previous migration left the store
// half swapped.
func IsInterruptedSwap(err error) bool {
	return CodeOf(err) == ErrCodeInterruptedSwap
}

// IsInternalConsistency returns true if a cascade failed midway.
func IsInternalConsistency(err error) bool {
	return CodeOf(err) == ErrCodeInternalConsistency
}

// wrapOp prefixes err with op unless it is already a structured *Error.
func wrapOp(op string, err error) error {
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
