/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package memory provides an in-memory EntryAdapter for tests and
// ephemeral stores.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/suparena/storekit/adapter"
	"github.com/suparena/storekit/entity"
	"github.com/suparena/storekit/errors"
)

// Record is the native representation of this backend.
type Record = map[string]any

// Key is the key type of this backend.
type Key = string

var (
	_ adapter.EntryAdapter[Record, Key]           = (*Adapter)(nil)
	_ adapter.BatchWriter[Record, Key]            = (*Adapter)(nil)
	_ adapter.PropertyIndexSource[Key]            = (*Adapter)(nil)
	_ adapter.AssociationIndexSource[Record, Key] = (*Adapter)(nil)
	_ adapter.Pinger                              = (*Adapter)(nil)
)

// Adapter keeps records in per-family maps guarded by one RWMutex. It
// batches writes, manages property and association indexes itself, and
// can be primed with injected errors for failure-path tests.
type Adapter struct {
	mu   sync.RWMutex
	data map[string]map[string]Record

	// family/property -> value -> set of keys
	propIdx map[string]map[string]map[string]bool
	// family/association -> owner -> set of related keys
	assocIdx map[string]map[string]map[string]bool

	storeErr    error
	retrieveErr error
	updateErr   error
	deleteErr   error
	batchErr    error
	pingErr     error
}

// New creates an empty in-memory adapter.
func New() *Adapter {
	return &Adapter{
		data:     make(map[string]map[string]Record),
		propIdx:  make(map[string]map[string]map[string]bool),
		assocIdx: make(map[string]map[string]map[string]bool),
	}
}

// WithStoreError makes StoreEntry return an error
func (a *Adapter) WithStoreError(err error) *Adapter {
	a.storeErr = err
	return a
}

// WithRetrieveError makes RetrieveEntry return an error
func (a *Adapter) WithRetrieveError(err error) *Adapter {
	a.retrieveErr = err
	return a
}

// WithUpdateError makes UpdateEntry return an error
func (a *Adapter) WithUpdateError(err error) *Adapter {
	a.updateErr = err
	return a
}

// WithDeleteError makes DeleteEntry and DeleteEntries return an error
func (a *Adapter) WithDeleteError(err error) *Adapter {
	a.deleteErr = err
	return a
}

// WithBatchError makes WriteBatch return an error before applying anything
func (a *Adapter) WithBatchError(err error) *Adapter {
	a.batchErr = err
	return a
}

// WithPingError makes Ping return an error
func (a *Adapter) WithPingError(err error) *Adapter {
	a.pingErr = err
	return a
}

// CreateNewEntry returns an empty record.
func (a *Adapter) CreateNewEntry(meta *entity.PersistentEntity) Record {
	return Record{}
}

// GetEntryValue reads one property from a record.
func (a *Adapter) GetEntryValue(entry Record, p *entity.Property) (any, error) {
	if entry == nil {
		return nil, errors.NewConversionError(p.Name, nil, p.Kind.String(), "nil record")
	}
	v, ok := entry[p.Name]
	if !ok || v == nil {
		return nil, nil
	}
	switch p.Kind {
	case entity.KindBytes:
		b, ok := v.([]byte)
		if !ok {
			return nil, errors.NewConversionError(p.Name, v, "bytes", "record value is not a byte slice")
		}
		out := make([]byte, len(b))
		copy(out, b)
		return out, nil
	case entity.KindKeyList:
		switch keys := v.(type) {
		case []string:
			out := make([]string, len(keys))
			copy(out, keys)
			return out, nil
		case []int64:
			out := make([]int64, len(keys))
			copy(out, keys)
			return out, nil
		default:
			return nil, errors.NewConversionError(p.Name, v, "key list", "record value is not a key list")
		}
	default:
		return v, nil
	}
}

// SetEntryValue writes one property into a record. Values are stored in
// semantic form.
func (a *Adapter) SetEntryValue(entry Record, p *entity.Property, value any) error {
	if entry == nil {
		return errors.NewConversionError(p.Name, value, p.Kind.String(), "nil record")
	}
	switch v := value.(type) {
	case []byte:
		out := make([]byte, len(v))
		copy(out, v)
		entry[p.Name] = out
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		entry[p.Name] = out
	case []int64:
		out := make([]int64, len(v))
		copy(out, v)
		entry[p.Name] = out
	default:
		entry[p.Name] = value
	}
	return nil
}

// RetrieveEntry loads a record copy by key.
func (a *Adapter) RetrieveEntry(ctx context.Context, meta *entity.PersistentEntity, key string) (Record, bool, error) {
	if a.retrieveErr != nil {
		return nil, false, a.retrieveErr
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	rec, ok := a.data[meta.Family][key]
	if !ok {
		return nil, false, nil
	}
	return copyRecord(rec), true, nil
}

// StoreEntry persists a new record. An occupied key is an
// AlreadyExistsError.
func (a *Adapter) StoreEntry(ctx context.Context, meta *entity.PersistentEntity, key string, entry Record) (string, error) {
	if a.storeErr != nil {
		return "", a.storeErr
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	fam := a.family(meta.Family)
	if _, exists := fam[key]; exists {
		return "", errors.NewAlreadyExistsError(meta.Family, key)
	}
	fam[key] = copyRecord(entry)
	return key, nil
}

// UpdateEntry replaces an existing record. With a prior version it
// compares and swaps under the adapter lock.
func (a *Adapter) UpdateEntry(ctx context.Context, meta *entity.PersistentEntity, key string, entry Record, prior int64) error {
	if a.updateErr != nil {
		return a.updateErr
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	fam := a.family(meta.Family)
	existing, ok := fam[key]
	if !ok {
		return errors.NewNotFoundError(meta.Family, key)
	}
	if meta.Versioned() && prior > 0 {
		stored, _ := existing[meta.Version.Name].(int64)
		if stored != prior {
			return errors.NewOptimisticLockError(meta.Family, key, prior, stored)
		}
	}
	fam[key] = copyRecord(entry)
	return nil
}

// DeleteEntry removes a record. Absent keys are a no-op.
func (a *Adapter) DeleteEntry(ctx context.Context, meta *entity.PersistentEntity, key string) error {
	if a.deleteErr != nil {
		return a.deleteErr
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.data[meta.Family], key)
	return nil
}

// DeleteEntries removes multiple records under one lock acquisition.
func (a *Adapter) DeleteEntries(ctx context.Context, meta *entity.PersistentEntity, keys []string) error {
	if a.deleteErr != nil {
		return a.deleteErr
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	for _, key := range keys {
		delete(a.data[meta.Family], key)
	}
	return nil
}

// GenerateIdentifier returns a UUID key.
func (a *Adapter) GenerateIdentifier(ctx context.Context, meta *entity.PersistentEntity) (string, error) {
	return newUUID(), nil
}

// WriteBatch applies staged records for one family under a single lock
// acquisition. Staged records overwrite occupied keys.
func (a *Adapter) WriteBatch(ctx context.Context, family string, writes []adapter.PendingWrite[Record, string], wc adapter.WriteConcern) error {
	if a.batchErr != nil {
		return a.batchErr
	}
	if err := ctx.Err(); err != nil {
		return errors.NewStoreAccessError("batch write", family, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	fam := a.family(family)
	for _, w := range writes {
		fam[w.Key] = copyRecord(w.Entry)
	}
	return nil
}

// Ping reports the injected connectivity state.
func (a *Adapter) Ping(ctx context.Context) error {
	return a.pingErr
}

// Count returns the number of records stored for a family.
func (a *Adapter) Count(family string) int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.data[family])
}

// Clear removes all records and indexes.
func (a *Adapter) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.data = make(map[string]map[string]Record)
	a.propIdx = make(map[string]map[string]map[string]bool)
	a.assocIdx = make(map[string]map[string]map[string]bool)
}

// family returns the records map for a family, creating it if needed.
// Callers hold the write lock.
func (a *Adapter) family(name string) map[string]Record {
	fam, ok := a.data[name]
	if !ok {
		fam = make(map[string]Record)
		a.data[name] = fam
	}
	return fam
}

func copyRecord(rec Record) Record {
	out := make(Record, len(rec))
	for k, v := range rec {
		switch t := v.(type) {
		case []byte:
			b := make([]byte, len(t))
			copy(b, t)
			out[k] = b
		case []string:
			s := make([]string, len(t))
			copy(s, t)
			out[k] = s
		case []int64:
			s := make([]int64, len(t))
			copy(s, t)
			out[k] = s
		default:
			out[k] = v
		}
	}
	return out
}

func newUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
