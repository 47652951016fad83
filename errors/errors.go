/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package errors

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	// ErrNotFound is returned when a record is not found
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyExists is returned when attempting to create a record that already exists
	ErrAlreadyExists = errors.New("record already exists")

	// ErrInvalidEntity is returned when entity validation fails
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrConversion is returned when a property value cannot be converted
	// to or from a store's native representation
	ErrConversion = errors.New("value conversion failed")

	// ErrStoreAccess is returned when the underlying store rejects or
	// fails an operation
	ErrStoreAccess = errors.New("store access failed")

	// ErrVersionMismatch is returned when an optimistic version check fails
	ErrVersionMismatch = errors.New("stored version mismatch")

	// ErrStoreAssigned is returned by identifier generation when the store
	// assigns the key itself during the write
	ErrStoreAssigned = errors.New("identifier assigned by store")

	// ErrNoEntityMapping is returned when no entity mapping is registered for a type
	ErrNoEntityMapping = errors.New("no entity mapping registered for type")
)

// NotFoundError represents an error when a record is not found
type NotFoundError struct {
	Family string
	Key    any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s record with key %v not found", e.Family, e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// AlreadyExistsError represents an error when a record already exists
type AlreadyExistsError struct {
	Family string
	Key    any
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s record with key %v already exists", e.Family, e.Key)
}

func (e *AlreadyExistsError) Is(target error) bool {
	return target == ErrAlreadyExists
}

// ValidationError represents an entity validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %q: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidEntity
}

// ConversionError represents a failed conversion between an entity property
// and a store's native representation
type ConversionError struct {
	Property string
	Value    any
	Target   string
	Reason   string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("cannot convert property %q value %v to %s: %s", e.Property, e.Value, e.Target, e.Reason)
}

func (e *ConversionError) Is(target error) bool {
	return target == ErrConversion
}

// StoreAccessError represents a failed operation against the underlying store
type StoreAccessError struct {
	Op     string
	Family string
	Err    error
}

func (e *StoreAccessError) Error() string {
	return fmt.Sprintf("store access failed: %s %s: %v", e.Op, e.Family, e.Err)
}

func (e *StoreAccessError) Unwrap() error {
	return e.Err
}

func (e *StoreAccessError) Is(target error) bool {
	return target == ErrStoreAccess
}

// OptimisticLockError represents a failed optimistic version check
type OptimisticLockError struct {
	Family   string
	Key      any
	Expected int64
	Found    int64
}

func (e *OptimisticLockError) Error() string {
	return fmt.Sprintf("%s record with key %v has version %d, expected %d", e.Family, e.Key, e.Found, e.Expected)
}

func (e *OptimisticLockError) Is(target error) bool {
	return target == ErrVersionMismatch
}

// BatchError represents a batch write in which some records were not
// processed by the store
type BatchError struct {
	Family      string
	Unprocessed []string
	Err         error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch write to %s left %d records unprocessed: %v", e.Family, len(e.Unprocessed), e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

func (e *BatchError) Is(target error) bool {
	return target == ErrStoreAccess
}

// Helper functions for creating errors

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(family string, key any) error {
	return &NotFoundError{Family: family, Key: key}
}

// NewAlreadyExistsError creates a new AlreadyExistsError
func NewAlreadyExistsError(family string, key any) error {
	return &AlreadyExistsError{Family: family, Key: key}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewConversionError creates a new ConversionError
func NewConversionError(property string, value any, target, reason string) error {
	return &ConversionError{Property: property, Value: value, Target: target, Reason: reason}
}

// NewStoreAccessError creates a new StoreAccessError wrapping a store error
func NewStoreAccessError(op, family string, err error) error {
	return &StoreAccessError{Op: op, Family: family, Err: err}
}

// NewOptimisticLockError creates a new OptimisticLockError
func NewOptimisticLockError(family string, key any, expected, found int64) error {
	return &OptimisticLockError{Family: family, Key: key, Expected: expected, Found: found}
}

// NewBatchError creates a new BatchError
func NewBatchError(family string, unprocessed []string, err error) error {
	return &BatchError{Family: family, Unprocessed: unprocessed, Err: err}
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidEntity)
}

// IsConversion checks if an error is a conversion error
func IsConversion(err error) bool {
	return errors.Is(err, ErrConversion)
}

// IsStoreAccess checks if an error is a store access error
func IsStoreAccess(err error) bool {
	return errors.Is(err, ErrStoreAccess)
}

// IsVersionMismatch checks if an error is an optimistic lock error
func IsVersionMismatch(err error) bool {
	return errors.Is(err, ErrVersionMismatch)
}
