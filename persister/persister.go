/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package persister

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/suparena/storekit/adapter"
	"github.com/suparena/storekit/entity"
	storeerrors "github.com/suparena/storekit/errors"
)

// Core is the untyped persister surface. Entities travel as pointers to
// the mapped struct type; Read reports absence through its boolean
// instead of an error. The flush methods drive the batching session when
// one is attached and are no-ops otherwise.
type Core[K comparable] interface {
	Create(ctx context.Context, e any) (K, error)
	Read(ctx context.Context, key K) (any, bool, error)
	Update(ctx context.Context, e any) error
	Delete(ctx context.Context, e any) error
	DeleteKey(ctx context.Context, key K) error
	DeleteKeys(ctx context.Context, keys []K) error
	FindByIndex(ctx context.Context, property string, value any) ([]K, error)
	RelatedKeys(ctx context.Context, key K, association string) ([]K, error)
	Flush(ctx context.Context) error
	Discard()
	Staged() int
	Meta() *entity.PersistentEntity
}

// Persister drives the lifecycle of one entity type against one adapter:
// identifier assignment, property conversion, optimistic version checks
// and index maintenance. Writes go to the store immediately unless the
// persister was built with a batching session, in which case new records
// are staged until the session flushes.
type Persister[T any, K comparable] struct {
	meta    *entity.PersistentEntity
	adapter adapter.EntryAdapter[T, K]
	session *Session[T, K]
	props   adapter.PropertyIndexSource[K]
	assocs  adapter.AssociationIndexSource[T, K]
}

// New builds a persister for the mapped entity. The session may be nil,
// in which case every write is immediate.
func New[T any, K comparable](meta *entity.PersistentEntity, a adapter.EntryAdapter[T, K], sess *Session[T, K]) (*Persister[T, K], error) {
	if meta == nil {
		return nil, storeerrors.NewValidationError("", "nil entity mapping")
	}
	if a == nil {
		return nil, storeerrors.NewValidationError("", "nil adapter")
	}

	var zero K
	keyType := reflect.TypeOf(&zero).Elem()
	if !compatibleKey(meta.Identity, keyType) {
		return nil, storeerrors.NewValidationError(meta.Identity.Field,
			fmt.Sprintf("identity type %s does not match adapter key type %s", meta.Identity.Type, keyType))
	}

	p := &Persister[T, K]{meta: meta, adapter: a, session: sess}
	if src, ok := any(a).(adapter.PropertyIndexSource[K]); ok {
		p.props = src
	}
	if src, ok := any(a).(adapter.AssociationIndexSource[T, K]); ok {
		p.assocs = src
	}
	return p, nil
}

// Meta returns the entity mapping this persister serves.
func (p *Persister[T, K]) Meta() *entity.PersistentEntity {
	return p.meta
}

// Session returns the batching session, or nil for immediate persisters.
func (p *Persister[T, K]) Session() *Session[T, K] {
	return p.session
}

// Flush writes the session's staged records. Persisters without a
// session have nothing to flush.
func (p *Persister[T, K]) Flush(ctx context.Context) error {
	if p.session == nil {
		return nil
	}
	return p.session.Flush(ctx)
}

// Discard drops the session's staged records without writing them.
func (p *Persister[T, K]) Discard() {
	if p.session != nil {
		p.session.Discard()
	}
}

// Staged returns the number of records awaiting flush on the session.
func (p *Persister[T, K]) Staged() int {
	if p.session == nil {
		return 0
	}
	return p.session.Len()
}

// Create validates the entity, assigns an identifier if it carries none,
// converts it to a native record and writes or stages it. Versioned
// entities start at version 1. The final key is returned and written
// back to the entity.
func (p *Persister[T, K]) Create(ctx context.Context, e any) (K, error) {
	var zero K
	acc, err := entity.NewAccess(p.meta, e)
	if err != nil {
		return zero, err
	}

	key, err := p.keyOf(acc)
	if err != nil {
		return zero, err
	}

	staged := p.staging()
	if key == zero {
		generated, err := p.adapter.GenerateIdentifier(ctx, p.meta)
		switch {
		case err == nil:
			key = generated
			if err := acc.SetIdentifier(key); err != nil {
				return zero, err
			}
		case errors.Is(err, storeerrors.ErrStoreAssigned):
			if staged {
				return zero, storeerrors.NewValidationError(p.meta.Identity.Field,
					"store-assigned identifiers cannot be staged for batch writes")
			}
		default:
			return zero, err
		}
	}

	version := int64(0)
	if p.meta.Versioned() {
		version = 1
	}
	entry, err := p.entryFrom(acc, key, version)
	if err != nil {
		return zero, err
	}

	if staged {
		p.session.Stage(adapter.PendingWrite[T, K]{Meta: p.meta, Key: key, Entry: entry})
	} else {
		stored, err := p.adapter.StoreEntry(ctx, p.meta, key, entry)
		if err != nil {
			return zero, err
		}
		if stored != key {
			key = stored
			if err := acc.SetIdentifier(key); err != nil {
				return zero, err
			}
		}
	}

	if p.meta.Versioned() {
		if err := acc.SetVersion(1); err != nil {
			return zero, err
		}
	}

	if err := p.indexEntry(ctx, entry, key); err != nil {
		return key, err
	}
	return key, nil
}

// Read loads the record stored under key into a new entity instance.
// An absent record yields (nil, false, nil).
func (p *Persister[T, K]) Read(ctx context.Context, key K) (any, bool, error) {
	entry, found, err := p.adapter.RetrieveEntry(ctx, p.meta, key)
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}

	e := reflect.New(p.meta.Type).Interface()
	acc, err := entity.NewAccess(p.meta, e)
	if err != nil {
		return nil, false, err
	}
	if err := p.populate(acc, key, entry); err != nil {
		return nil, false, err
	}
	return e, true, nil
}

// Update replaces the stored record with the entity's current state.
// For versioned entities the stored version must equal the entity's
// version; on success the version advances by one, in the store and in
// the entity. A missing record is a NotFoundError, a version mismatch
// an OptimisticLockError, and in both cases the entity and the record
// are left unchanged.
func (p *Persister[T, K]) Update(ctx context.Context, e any) error {
	acc, err := entity.NewAccess(p.meta, e)
	if err != nil {
		return err
	}

	var zero K
	key, err := p.keyOf(acc)
	if err != nil {
		return err
	}
	if key == zero {
		return storeerrors.NewValidationError(p.meta.Identity.Field, "cannot update an entity without an identifier")
	}

	var prior, next int64
	var stored T
	var haveStored bool

	if p.meta.Versioned() || p.managesIndexes() {
		stored, haveStored, err = p.adapter.RetrieveEntry(ctx, p.meta, key)
		if err != nil {
			return err
		}
	}

	if p.meta.Versioned() {
		if !haveStored {
			return storeerrors.NewNotFoundError(p.meta.Family, key)
		}
		storedVersion, err := p.storedVersion(stored)
		if err != nil {
			return err
		}
		current, err := acc.Version()
		if err != nil {
			return err
		}
		if current != storedVersion {
			return storeerrors.NewOptimisticLockError(p.meta.Family, key, current, storedVersion)
		}
		prior = current
		next = current + 1
		acc.SetPriorVersion(prior)
	}

	entry, err := p.entryFrom(acc, key, next)
	if err != nil {
		return err
	}

	if err := p.adapter.UpdateEntry(ctx, p.meta, key, entry, prior); err != nil {
		return err
	}

	if p.meta.Versioned() {
		if err := acc.SetVersion(next); err != nil {
			return err
		}
	}

	if haveStored {
		if err := p.deindexEntry(ctx, stored, key); err != nil {
			return err
		}
	}
	return p.indexEntry(ctx, entry, key)
}

// Delete removes the entity's record. Deleting an absent record is a
// no-op.
func (p *Persister[T, K]) Delete(ctx context.Context, e any) error {
	acc, err := entity.NewAccess(p.meta, e)
	if err != nil {
		return err
	}

	var zero K
	key, err := p.keyOf(acc)
	if err != nil {
		return err
	}
	if key == zero {
		return storeerrors.NewValidationError(p.meta.Identity.Field, "cannot delete an entity without an identifier")
	}
	return p.DeleteKey(ctx, key)
}

// DeleteKey removes the record stored under key. Absent records are
// skipped silently.
func (p *Persister[T, K]) DeleteKey(ctx context.Context, key K) error {
	if p.managesIndexes() {
		stored, found, err := p.adapter.RetrieveEntry(ctx, p.meta, key)
		if err != nil {
			return err
		}
		if found {
			if err := p.deindexEntry(ctx, stored, key); err != nil {
				return err
			}
		}
	}
	return p.adapter.DeleteEntry(ctx, p.meta, key)
}

// DeleteKeys removes multiple records in one adapter call.
func (p *Persister[T, K]) DeleteKeys(ctx context.Context, keys []K) error {
	if len(keys) == 0 {
		return nil
	}
	if p.managesIndexes() {
		for _, key := range keys {
			stored, found, err := p.adapter.RetrieveEntry(ctx, p.meta, key)
			if err != nil {
				return err
			}
			if found {
				if err := p.deindexEntry(ctx, stored, key); err != nil {
					return err
				}
			}
		}
	}
	return p.adapter.DeleteEntries(ctx, p.meta, keys)
}

// FindByIndex returns the keys of records whose indexed property holds
// the given value. Only adapters that manage property indexes support
// lookups through the persister; stores with native indexing expose
// their own query surface instead.
func (p *Persister[T, K]) FindByIndex(ctx context.Context, property string, value any) ([]K, error) {
	prop, ok := p.meta.Property(property)
	if !ok || !prop.Indexed {
		return nil, storeerrors.NewValidationError(property, "not an indexed property")
	}
	if p.props == nil {
		return nil, storeerrors.NewStoreAccessError("index lookup", p.meta.Family,
			fmt.Errorf("backend does not expose property index lookups"))
	}
	idx := p.props.PropertyIndexer(p.meta, prop)
	if idx == nil {
		return nil, storeerrors.NewStoreAccessError("index lookup", p.meta.Family,
			fmt.Errorf("backend does not maintain an index for %s", property))
	}
	return idx.Query(ctx, value)
}

// RelatedKeys returns the keys recorded under the named association for
// the record stored under key.
func (p *Persister[T, K]) RelatedKeys(ctx context.Context, key K, association string) ([]K, error) {
	prop, ok := p.meta.Property(association)
	if !ok || prop.Assoc == "" {
		return nil, storeerrors.NewValidationError(association, "not an association property")
	}

	if p.assocs != nil {
		var entry T
		if ai := p.assocs.AssociationIndexer(p.meta, entry, prop); ai != nil {
			return ai.Related(ctx, key)
		}
	}

	entry, found, err := p.adapter.RetrieveEntry(ctx, p.meta, key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	raw, err := p.adapter.GetEntryValue(entry, prop)
	if err != nil {
		return nil, err
	}
	return keysOf[K](raw), nil
}

func (p *Persister[T, K]) staging() bool {
	return p.session != nil && p.session.Batching()
}

func (p *Persister[T, K]) managesIndexes() bool {
	return (p.props != nil && len(p.meta.Indexed()) > 0) ||
		(p.assocs != nil && len(p.meta.Associations()) > 0)
}

func (p *Persister[T, K]) keyOf(acc *entity.Access) (K, error) {
	var zero K
	raw, err := acc.Identifier()
	if err != nil {
		return zero, err
	}
	if raw == nil {
		return zero, nil
	}
	key, ok := raw.(K)
	if !ok {
		return zero, storeerrors.NewConversionError(p.meta.Identity.Name, raw,
			reflect.TypeOf(zero).String(), "identifier type does not match adapter key type")
	}
	return key, nil
}

func (p *Persister[T, K]) storedVersion(entry T) (int64, error) {
	raw, err := p.adapter.GetEntryValue(entry, p.meta.Version)
	if err != nil {
		return 0, err
	}
	if raw == nil {
		return 0, nil
	}
	v, ok := raw.(int64)
	if !ok {
		return 0, storeerrors.NewConversionError(p.meta.Version.Name, raw, "int64", "stored version is not an integer")
	}
	return v, nil
}

// entryFrom converts the entity into a native record. The identifier is
// written only when known; nil property values are omitted.
func (p *Persister[T, K]) entryFrom(acc *entity.Access, key K, version int64) (T, error) {
	var none T
	var zero K
	entry := p.adapter.CreateNewEntry(p.meta)

	for _, prop := range p.meta.Properties {
		switch {
		case prop.Identity:
			if key != zero {
				if err := p.adapter.SetEntryValue(entry, prop, any(key)); err != nil {
					return none, err
				}
			}
		case p.meta.Versioned() && prop == p.meta.Version:
			if err := p.adapter.SetEntryValue(entry, prop, version); err != nil {
				return none, err
			}
		default:
			v, err := acc.Get(prop)
			if err != nil {
				return none, err
			}
			if v == nil {
				continue
			}
			if err := p.adapter.SetEntryValue(entry, prop, v); err != nil {
				return none, err
			}
		}
	}
	return entry, nil
}

// populate copies a native record into the entity behind acc.
func (p *Persister[T, K]) populate(acc *entity.Access, key K, entry T) error {
	for _, prop := range p.meta.Properties {
		if prop.Identity {
			if err := acc.SetIdentifier(any(key)); err != nil {
				return err
			}
			continue
		}
		v, err := p.adapter.GetEntryValue(entry, prop)
		if err != nil {
			return err
		}
		if v == nil {
			continue
		}
		if err := acc.Set(prop, v); err != nil {
			return err
		}
	}
	return nil
}

func (p *Persister[T, K]) indexEntry(ctx context.Context, entry T, key K) error {
	if p.props != nil {
		for _, prop := range p.meta.Indexed() {
			idx := p.props.PropertyIndexer(p.meta, prop)
			if idx == nil {
				continue
			}
			v, err := p.adapter.GetEntryValue(entry, prop)
			if err != nil {
				return err
			}
			if v == nil {
				continue
			}
			if err := idx.Index(ctx, v, key); err != nil {
				return err
			}
		}
	}
	if p.assocs != nil {
		for _, prop := range p.meta.Associations() {
			ai := p.assocs.AssociationIndexer(p.meta, entry, prop)
			if ai == nil {
				continue
			}
			raw, err := p.adapter.GetEntryValue(entry, prop)
			if err != nil {
				return err
			}
			related := keysOf[K](raw)
			if len(related) == 0 {
				continue
			}
			if err := ai.Add(ctx, key, related); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Persister[T, K]) deindexEntry(ctx context.Context, entry T, key K) error {
	if p.props != nil {
		for _, prop := range p.meta.Indexed() {
			idx := p.props.PropertyIndexer(p.meta, prop)
			if idx == nil {
				continue
			}
			v, err := p.adapter.GetEntryValue(entry, prop)
			if err != nil {
				return err
			}
			if v == nil {
				continue
			}
			if err := idx.Deindex(ctx, v, key); err != nil {
				return err
			}
		}
	}
	if p.assocs != nil {
		for _, prop := range p.meta.Associations() {
			ai := p.assocs.AssociationIndexer(p.meta, entry, prop)
			if ai == nil {
				continue
			}
			raw, err := p.adapter.GetEntryValue(entry, prop)
			if err != nil {
				return err
			}
			related := keysOf[K](raw)
			if len(related) == 0 {
				continue
			}
			if err := ai.Remove(ctx, key, related); err != nil {
				return err
			}
		}
	}
	return nil
}

func keysOf[K comparable](raw any) []K {
	if raw == nil {
		return nil
	}
	if keys, ok := raw.([]K); ok {
		return keys
	}
	return nil
}

func compatibleKey(identity *entity.Property, keyType reflect.Type) bool {
	switch identity.Kind {
	case entity.KindString:
		return keyType.Kind() == reflect.String
	case entity.KindInt:
		return keyType.Kind() == reflect.Int64
	default:
		return false
	}
}
