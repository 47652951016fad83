/*
Package errors provides semantic error types for the StoreKit library.

The package defines common error scenarios with specific types that can be
checked using the standard errors.Is() function or the provided helper functions.

Common Errors:

	var (
	    ErrNotFound        = errors.New("record not found")
	    ErrAlreadyExists   = errors.New("record already exists")
	    ErrInvalidEntity   = errors.New("invalid entity")
	    ErrConversion      = errors.New("value conversion failed")
	    ErrStoreAccess     = errors.New("store access failed")
	    ErrVersionMismatch = errors.New("stored version mismatch")
	    ErrStoreAssigned   = errors.New("identifier assigned by store")
	    ErrNoEntityMapping = errors.New("no entity mapping registered for type")
	)

Usage:

	// Check error type
	err := store.Update(ctx, user)
	if err != nil {
	    if errors.IsVersionMismatch(err) {
	        // Reload and retry at the caller's discretion
	        return fmt.Errorf("user %s was modified concurrently", user.ID)
	    }
	    return err
	}

	// Create typed errors
	err := errors.NewNotFoundError("users", "123")
	err := errors.NewConversionError("CreatedAt", raw, "time.Time", "not an RFC3339 string")
	err := errors.NewOptimisticLockError("users", "123", 2, 3)

The error types implement the error interface and support wrapping,
making them compatible with Go's standard error handling patterns.

Absent records on the read path are not errors: lookups report absence
through a separate boolean (or a nil entity at the typed store level).
ErrNotFound is reserved for operations that require the record to exist,
such as updates and version checks.
*/
package errors
