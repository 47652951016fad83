/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package bolt provides a bbolt-backed EntryAdapter. Records are stored
// as JSON documents, one bucket per family, with managed property and
// association indexes in companion buckets.
package bolt

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"reflect"
	"time"

	"github.com/google/uuid"
	bbolt "go.etcd.io/bbolt"

	"github.com/suparena/storekit/adapter"
	"github.com/suparena/storekit/entity"
	"github.com/suparena/storekit/errors"
)

// Entry is the native representation of this backend: a JSON-safe map.
// Timestamps are RFC3339 strings and byte slices base64 strings, so an
// entry survives the JSON round trip unchanged.
type Entry = map[string]any

// Key is the key type of this backend.
type Key = string

var (
	_ adapter.EntryAdapter[Entry, Key]           = (*Adapter)(nil)
	_ adapter.BatchWriter[Entry, Key]            = (*Adapter)(nil)
	_ adapter.PropertyIndexSource[Key]           = (*Adapter)(nil)
	_ adapter.AssociationIndexSource[Entry, Key] = (*Adapter)(nil)
	_ adapter.Pinger                             = (*Adapter)(nil)
)

// Adapter stores records in a bbolt database file. bbolt serializes
// writes, so version checks inside an update transaction are atomic.
type Adapter struct {
	db *bbolt.DB
}

// Open opens or creates the bolt database at path.
func Open(path string) (*Adapter, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.NewStoreAccessError("open", path, err)
	}
	return &Adapter{db: db}, nil
}

// Close releases the database file.
func (a *Adapter) Close() error {
	return a.db.Close()
}

// Ping verifies the database file is readable.
func (a *Adapter) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.NewStoreAccessError("ping", a.db.Path(), err)
	}
	return a.db.View(func(tx *bbolt.Tx) error { return nil })
}

// CreateNewEntry returns an empty record.
func (a *Adapter) CreateNewEntry(meta *entity.PersistentEntity) Entry {
	return Entry{}
}

// GetEntryValue reads one property, converting the JSON-safe stored
// form back to its semantic type.
func (a *Adapter) GetEntryValue(entry Entry, p *entity.Property) (any, error) {
	if entry == nil {
		return nil, errors.NewConversionError(p.Name, nil, p.Kind.String(), "nil record")
	}
	v, ok := entry[p.Name]
	if !ok || v == nil {
		return nil, nil
	}

	switch p.Kind {
	case entity.KindString:
		s, ok := v.(string)
		if !ok {
			return nil, errors.NewConversionError(p.Name, v, "string", "stored value is not a string")
		}
		return s, nil

	case entity.KindInt:
		n, ok := asInt64(v)
		if !ok {
			return nil, errors.NewConversionError(p.Name, v, "int64", "stored value is not an integer")
		}
		return n, nil

	case entity.KindFloat:
		f, ok := asFloat64(v)
		if !ok {
			return nil, errors.NewConversionError(p.Name, v, "float64", "stored value is not a number")
		}
		return f, nil

	case entity.KindBool:
		b, ok := v.(bool)
		if !ok {
			return nil, errors.NewConversionError(p.Name, v, "bool", "stored value is not a bool")
		}
		return b, nil

	case entity.KindTime:
		s, ok := v.(string)
		if !ok {
			return nil, errors.NewConversionError(p.Name, v, "time.Time", "stored value is not a timestamp string")
		}
		ts, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, errors.NewConversionError(p.Name, v, "time.Time", "not an RFC3339 timestamp")
		}
		return ts, nil

	case entity.KindBytes:
		s, ok := v.(string)
		if !ok {
			return nil, errors.NewConversionError(p.Name, v, "bytes", "stored value is not a base64 string")
		}
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, errors.NewConversionError(p.Name, v, "bytes", "not valid base64")
		}
		return b, nil

	case entity.KindKeyList:
		return keyListValue(p, v)

	default:
		return v, nil
	}
}

// SetEntryValue writes one property in its JSON-safe form.
func (a *Adapter) SetEntryValue(entry Entry, p *entity.Property, value any) error {
	if entry == nil {
		return errors.NewConversionError(p.Name, value, p.Kind.String(), "nil record")
	}

	switch p.Kind {
	case entity.KindTime:
		ts, ok := value.(time.Time)
		if !ok {
			return errors.NewConversionError(p.Name, value, "time.Time", "not a timestamp")
		}
		entry[p.Name] = ts.Format(time.RFC3339Nano)

	case entity.KindBytes:
		b, ok := value.([]byte)
		if !ok {
			return errors.NewConversionError(p.Name, value, "bytes", "not a byte slice")
		}
		entry[p.Name] = base64.StdEncoding.EncodeToString(b)

	case entity.KindInt:
		n, ok := asInt64(value)
		if !ok {
			return errors.NewConversionError(p.Name, value, "int64", "not an integer")
		}
		entry[p.Name] = n

	case entity.KindKeyList:
		switch keys := value.(type) {
		case []string:
			out := make([]string, len(keys))
			copy(out, keys)
			entry[p.Name] = out
		case []int64:
			out := make([]int64, len(keys))
			copy(out, keys)
			entry[p.Name] = out
		default:
			return errors.NewConversionError(p.Name, value, "key list", "not a key list")
		}

	default:
		entry[p.Name] = value
	}
	return nil
}

// RetrieveEntry loads and decodes the record stored under key.
func (a *Adapter) RetrieveEntry(ctx context.Context, meta *entity.PersistentEntity, key string) (Entry, bool, error) {
	var entry Entry
	found := false

	err := a.db.View(func(tx *bbolt.Tx) error {
		bkt := tx.Bucket([]byte(meta.Family))
		if bkt == nil {
			return nil
		}
		raw := bkt.Get([]byte(key))
		if raw == nil {
			return nil
		}
		if err := json.Unmarshal(raw, &entry); err != nil {
			return errors.NewConversionError(meta.Identity.Name, key, "record", "stored record is not valid JSON")
		}
		found = true
		return nil
	})
	if err != nil {
		if errors.IsConversion(err) {
			return nil, false, err
		}
		return nil, false, errors.NewStoreAccessError("retrieve", meta.Family, err)
	}
	return entry, found, nil
}

// StoreEntry persists a new record. An occupied key is an
// AlreadyExistsError.
func (a *Adapter) StoreEntry(ctx context.Context, meta *entity.PersistentEntity, key string, entry Entry) (string, error) {
	raw, err := json.Marshal(entry)
	if err != nil {
		return "", errors.NewConversionError(meta.Identity.Name, key, "record", "record cannot be encoded as JSON")
	}

	err = a.db.Update(func(tx *bbolt.Tx) error {
		bkt, err := tx.CreateBucketIfNotExists([]byte(meta.Family))
		if err != nil {
			return err
		}
		if bkt.Get([]byte(key)) != nil {
			return errors.NewAlreadyExistsError(meta.Family, key)
		}
		return bkt.Put([]byte(key), raw)
	})
	if err != nil {
		if errors.IsAlreadyExists(err) {
			return "", err
		}
		return "", errors.NewStoreAccessError("store", meta.Family, err)
	}
	return key, nil
}

// UpdateEntry replaces the record stored under key. The version check
// runs inside the write transaction, so it is atomic on this backend.
func (a *Adapter) UpdateEntry(ctx context.Context, meta *entity.PersistentEntity, key string, entry Entry, prior int64) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return errors.NewConversionError(meta.Identity.Name, key, "record", "record cannot be encoded as JSON")
	}

	err = a.db.Update(func(tx *bbolt.Tx) error {
		bkt := tx.Bucket([]byte(meta.Family))
		if bkt == nil {
			return errors.NewNotFoundError(meta.Family, key)
		}
		existing := bkt.Get([]byte(key))
		if existing == nil {
			return errors.NewNotFoundError(meta.Family, key)
		}
		if meta.Versioned() && prior > 0 {
			var stored Entry
			if err := json.Unmarshal(existing, &stored); err != nil {
				return errors.NewConversionError(meta.Identity.Name, key, "record", "stored record is not valid JSON")
			}
			found, _ := asInt64(stored[meta.Version.Name])
			if found != prior {
				return errors.NewOptimisticLockError(meta.Family, key, prior, found)
			}
		}
		return bkt.Put([]byte(key), raw)
	})
	if err != nil {
		if errors.IsNotFound(err) || errors.IsVersionMismatch(err) || errors.IsConversion(err) {
			return err
		}
		return errors.NewStoreAccessError("update", meta.Family, err)
	}
	return nil
}

// DeleteEntry removes a record along with its index entries. Absent
// keys are a no-op.
func (a *Adapter) DeleteEntry(ctx context.Context, meta *entity.PersistentEntity, key string) error {
	err := a.db.Update(func(tx *bbolt.Tx) error {
		bkt := tx.Bucket([]byte(meta.Family))
		if bkt == nil {
			return nil
		}
		return bkt.Delete([]byte(key))
	})
	if err != nil {
		return errors.NewStoreAccessError("delete", meta.Family, err)
	}
	return nil
}

// DeleteEntries removes multiple records in one transaction.
func (a *Adapter) DeleteEntries(ctx context.Context, meta *entity.PersistentEntity, keys []string) error {
	err := a.db.Update(func(tx *bbolt.Tx) error {
		bkt := tx.Bucket([]byte(meta.Family))
		if bkt == nil {
			return nil
		}
		for _, key := range keys {
			if err := bkt.Delete([]byte(key)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.NewStoreAccessError("delete batch", meta.Family, err)
	}
	return nil
}

// GenerateIdentifier returns a UUID key.
func (a *Adapter) GenerateIdentifier(ctx context.Context, meta *entity.PersistentEntity) (string, error) {
	return newUUID(), nil
}

// WriteBatch applies staged records for one family in one write
// transaction. An Unacknowledged concern skips the fsync for this
// batch, trading durability for throughput the way bulk loads do.
func (a *Adapter) WriteBatch(ctx context.Context, family string, writes []adapter.PendingWrite[Entry, string], wc adapter.WriteConcern) error {
	if err := ctx.Err(); err != nil {
		return errors.NewStoreAccessError("batch write", family, err)
	}

	encoded := make([][]byte, len(writes))
	for i, w := range writes {
		raw, err := json.Marshal(w.Entry)
		if err != nil {
			return errors.NewConversionError(w.Meta.Identity.Name, w.Key, "record", "record cannot be encoded as JSON")
		}
		encoded[i] = raw
	}

	if wc == adapter.Unacknowledged {
		a.db.NoSync = true
		defer func() { a.db.NoSync = false }()
	}

	err := a.db.Update(func(tx *bbolt.Tx) error {
		bkt, err := tx.CreateBucketIfNotExists([]byte(family))
		if err != nil {
			return err
		}
		for i, w := range writes {
			if err := bkt.Put([]byte(w.Key), encoded[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.NewStoreAccessError("batch write", family, err)
	}
	return nil
}

func keyListValue(p *entity.Property, v any) (any, error) {
	wantString := p.Type.Elem().Kind() == reflect.String

	switch keys := v.(type) {
	case []string:
		out := make([]string, len(keys))
		copy(out, keys)
		return out, nil
	case []int64:
		out := make([]int64, len(keys))
		copy(out, keys)
		return out, nil
	case []any:
		if wantString {
			out := make([]string, 0, len(keys))
			for _, raw := range keys {
				s, ok := raw.(string)
				if !ok {
					return nil, errors.NewConversionError(p.Name, v, "key list", "stored key is not a string")
				}
				out = append(out, s)
			}
			return out, nil
		}
		out := make([]int64, 0, len(keys))
		for _, raw := range keys {
			n, ok := asInt64(raw)
			if !ok {
				return nil, errors.NewConversionError(p.Name, v, "key list", "stored key is not an integer")
			}
			out = append(out, n)
		}
		return out, nil
	default:
		return nil, errors.NewConversionError(p.Name, v, "key list", "stored value is not a key list")
	}
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		if n == float64(int64(n)) {
			return int64(n), true
		}
		return 0, false
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func newUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
