/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storekit

import (
	"context"
	"fmt"
	"reflect"

	"github.com/suparena/storekit/entity"
	storeerrors "github.com/suparena/storekit/errors"
	"github.com/suparena/storekit/persister"
)

// Store is the typed surface over one entity type. It delegates to a
// persister and hides the backend's native record type; callers work
// with *E and keys only.
type Store[E any, K comparable] struct {
	core persister.Core[K]
	meta *entity.PersistentEntity
}

// NewStore wraps a persister in the typed facade. The persister must
// map exactly the struct type E.
func NewStore[E any, K comparable](core persister.Core[K]) (*Store[E, K], error) {
	if core == nil {
		return nil, storeerrors.NewValidationError("", "nil persister")
	}
	var zero E
	want := reflect.TypeOf(&zero).Elem()
	if want.Kind() != reflect.Struct {
		return nil, storeerrors.NewValidationError("", fmt.Sprintf("store type %s is not a struct", want))
	}
	meta := core.Meta()
	if meta.Type != want {
		return nil, storeerrors.NewValidationError("",
			fmt.Sprintf("persister maps %s, not %s", meta.Type, want))
	}
	return &Store[E, K]{core: core, meta: meta}, nil
}

// Meta returns the entity mapping the store serves.
func (s *Store[E, K]) Meta() *entity.PersistentEntity {
	return s.meta
}

// Put stores a new record for e, assigning an identifier when the
// entity carries none. The final key is returned and written back to e.
func (s *Store[E, K]) Put(ctx context.Context, e *E) (K, error) {
	return s.core.Create(ctx, e)
}

// GetOne loads the record stored under key. A missing record is a
// result, not an error: GetOne returns (nil, nil).
func (s *Store[E, K]) GetOne(ctx context.Context, key K) (*E, error) {
	v, found, err := s.core.Read(ctx, key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return v.(*E), nil
}

// Update replaces the stored record with e's current state, subject to
// the optimistic version check when E is versioned.
func (s *Store[E, K]) Update(ctx context.Context, e *E) error {
	return s.core.Update(ctx, e)
}

// Delete removes the record stored under key. Deleting an absent
// record is a no-op.
func (s *Store[E, K]) Delete(ctx context.Context, key K) error {
	return s.core.DeleteKey(ctx, key)
}

// DeleteMany removes several records in one backend call where the
// backend supports it.
func (s *Store[E, K]) DeleteMany(ctx context.Context, keys []K) error {
	return s.core.DeleteKeys(ctx, keys)
}

// FindByIndex returns the keys of records whose indexed property holds
// value.
func (s *Store[E, K]) FindByIndex(ctx context.Context, property string, value any) ([]K, error) {
	return s.core.FindByIndex(ctx, property, value)
}

// Related returns the keys recorded under the named association for the
// record stored under key.
func (s *Store[E, K]) Related(ctx context.Context, key K, association string) ([]K, error) {
	return s.core.RelatedKeys(ctx, key, association)
}

// Flush writes any records staged on the persister's session.
func (s *Store[E, K]) Flush(ctx context.Context) error {
	return s.core.Flush(ctx)
}

// Discard drops staged records without writing them.
func (s *Store[E, K]) Discard() {
	s.core.Discard()
}

// Staged returns the number of records awaiting flush.
func (s *Store[E, K]) Staged() int {
	return s.core.Staged()
}
