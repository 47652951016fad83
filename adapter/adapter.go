/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package adapter

import (
	"context"

	"github.com/suparena/storekit/entity"
)

// EntryAdapter is the contract every backend implements. T is the store's
// native record representation and K its key type. Adapters convert
// between semantic property values and T, move records keyed by
// (family, key), and otherwise stay free of entity lifecycle logic.
type EntryAdapter[T any, K comparable] interface {
	// CreateNewEntry returns an empty native record for the family.
	CreateNewEntry(meta *entity.PersistentEntity) T

	// GetEntryValue reads one property from a native record in semantic
	// form. Failed conversions return a ConversionError.
	GetEntryValue(entry T, p *entity.Property) (any, error)

	// SetEntryValue writes one property into a native record, converting
	// from semantic form. Failed conversions return a ConversionError.
	SetEntryValue(entry T, p *entity.Property, value any) error

	// RetrieveEntry loads the record stored under key. Absence is not an
	// error: it is reported through the boolean.
	RetrieveEntry(ctx context.Context, meta *entity.PersistentEntity, key K) (T, bool, error)

	// StoreEntry persists a new record and returns the key it is stored
	// under, which differs from the argument only for store-assigned
	// identifiers. An existing record under the same key is an
	// AlreadyExistsError.
	StoreEntry(ctx context.Context, meta *entity.PersistentEntity, key K, entry T) (K, error)

	// UpdateEntry replaces the record stored under key. A missing record
	// is a NotFoundError. When the entity is versioned, prior carries the
	// version the caller checked against; adapters with native
	// compare-and-set enforce it and return an OptimisticLockError on
	// mismatch.
	UpdateEntry(ctx context.Context, meta *entity.PersistentEntity, key K, entry T, prior int64) error

	// DeleteEntry removes the record stored under key. Deleting an absent
	// record is not an error.
	DeleteEntry(ctx context.Context, meta *entity.PersistentEntity, key K) error

	// DeleteEntries removes multiple records. Absent keys are skipped.
	DeleteEntries(ctx context.Context, meta *entity.PersistentEntity, keys []K) error

	// GenerateIdentifier produces a new key for an entity about to be
	// stored. Stores that assign keys during the write return
	// ErrStoreAssigned and a zero key.
	GenerateIdentifier(ctx context.Context, meta *entity.PersistentEntity) (K, error)
}

// PendingWrite is one staged record awaiting a batch flush.
type PendingWrite[T any, K comparable] struct {
	Meta  *entity.PersistentEntity
	Key   K
	Entry T
}

// BatchWriter is implemented by adapters whose store accepts grouped
// writes. WriteBatch applies all staged records for one family in a
// single store call; partial acceptance must be surfaced through a
// BatchError naming the unprocessed keys.
type BatchWriter[T any, K comparable] interface {
	WriteBatch(ctx context.Context, family string, writes []PendingWrite[T, K], wc WriteConcern) error
}

// Pinger is implemented by adapters that can verify store connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}
