/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storekit

import (
	"errors"
	"fmt"
	"sync"

	"github.com/suparena/storekit/adapter"
	"github.com/suparena/storekit/entity"
	storeerrors "github.com/suparena/storekit/errors"
	"github.com/suparena/storekit/persister"
)

// Stores is a thread-safe named registry of stores. Its methods are not
// generic; use RegisterStore and GetStore for typed access.
type Stores struct {
	mu sync.RWMutex
	m  map[string]any
}

// NewStores creates an empty store registry.
func NewStores() *Stores {
	return &Stores{m: make(map[string]any)}
}

// Register records a store under the given name.
func (s *Stores) Register(name string, store any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.m[name]; exists {
		return fmt.Errorf("store with name %q already registered", name)
	}
	s.m[name] = store
	return nil
}

// Get retrieves the store registered under the given name. The caller
// must type-assert the returned value.
func (s *Stores) Get(name string) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	store, exists := s.m[name]
	if !exists {
		return nil, fmt.Errorf("store with name %q not found", name)
	}
	return store, nil
}

// Remove deletes the store registered under the given name.
func (s *Stores) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.m[name]; !exists {
		return fmt.Errorf("store with name %q not found", name)
	}
	delete(s.m, name)
	return nil
}

// List returns the registered store names.
func (s *Stores) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.m))
	for name := range s.m {
		names = append(names, name)
	}
	return names
}

// RegisterStore records a typed store under the given name.
func RegisterStore[E any, K comparable](r *Stores, name string, st *Store[E, K]) error {
	return r.Register(name, st)
}

// GetStore retrieves a typed store by name. The registered store must
// hold exactly the requested entity and key types.
func GetStore[E any, K comparable](r *Stores, name string) (*Store[E, K], error) {
	v, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	st, ok := v.(*Store[E, K])
	if !ok {
		return nil, fmt.Errorf("store with name %q holds %T", name, v)
	}
	return st, nil
}

// New builds a typed store for E over the given adapter, resolving the
// entity mapping from the registry and registering one under family
// when the type is not yet mapped. The session may be nil for immediate
// writes. The record and key type parameters are inferred from the
// adapter, so callers name only the entity type:
//
//	store, err := storekit.New[User]("users", mem, sess)
func New[E any, T any, K comparable](family string, a adapter.EntryAdapter[T, K], sess *persister.Session[T, K]) (*Store[E, K], error) {
	meta, err := entity.Lookup[E]()
	switch {
	case err == nil:
		if family != "" && meta.Family != family {
			return nil, storeerrors.NewValidationError("",
				fmt.Sprintf("type %s is registered under family %q, not %q", meta.Type, meta.Family, family))
		}
	case errors.Is(err, storeerrors.ErrNoEntityMapping):
		meta, err = entity.Register[E](family)
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	p, err := persister.New[T, K](meta, a, sess)
	if err != nil {
		return nil, err
	}
	return NewStore[E, K](p)
}
