/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entity

import (
	"fmt"
	"reflect"
	"sync"

	storeerrors "github.com/suparena/storekit/errors"
)

// The registry associates Go types with their persistence mappings and
// keeps the reverse map from family names to mappings, so adapters and
// stores can resolve either way.

var (
	entityRegistry = make(map[reflect.Type]*PersistentEntity)
	familyRegistry = make(map[string]*PersistentEntity)
	mu             sync.RWMutex
)

// Register associates a Go type E with a store family and records the
// resulting mapping. Registering the same type again replaces the
// mapping; claiming a family already held by a different type is an
// error.
func Register[E any](family string) (*PersistentEntity, error) {
	var zero E
	t := reflect.TypeOf(&zero).Elem()

	m, err := Describe(t, family)
	if err != nil {
		return nil, err
	}

	mu.Lock()
	defer mu.Unlock()
	if held, ok := familyRegistry[family]; ok && held.Type != m.Type {
		return nil, storeerrors.NewValidationError("",
			fmt.Sprintf("family %q is already mapped to %s", family, held.Type))
	}
	if prior, ok := entityRegistry[m.Type]; ok && prior.Family != family {
		delete(familyRegistry, prior.Family)
	}
	entityRegistry[m.Type] = m
	familyRegistry[family] = m
	return m, nil
}

// MustRegister is Register with a panic on mapping errors, for package
// init blocks.
func MustRegister[E any](family string) *PersistentEntity {
	m, err := Register[E](family)
	if err != nil {
		panic(err)
	}
	return m
}

// Lookup retrieves the mapping for type E, if registered.
func Lookup[E any]() (*PersistentEntity, error) {
	var zero E
	t := reflect.TypeOf(&zero).Elem()
	return LookupType(t)
}

// LookupType retrieves the mapping for a reflect type, if registered.
func LookupType(t reflect.Type) (*PersistentEntity, error) {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	mu.RLock()
	defer mu.RUnlock()
	m, ok := entityRegistry[t]
	if !ok {
		return nil, storeerrors.ErrNoEntityMapping
	}
	return m, nil
}

// LookupFamily retrieves the mapping registered under a family name.
func LookupFamily(family string) (*PersistentEntity, error) {
	mu.RLock()
	defer mu.RUnlock()
	m, ok := familyRegistry[family]
	if !ok {
		return nil, storeerrors.ErrNoEntityMapping
	}
	return m, nil
}
