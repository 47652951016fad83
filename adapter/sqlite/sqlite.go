/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package sqlite provides a relational EntryAdapter over database/sql
// with the modernc.org/sqlite driver. Tables and secondary indexes are
// derived from the entity mapping, and identifiers are assigned by the
// store through AUTOINCREMENT.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/suparena/storekit/adapter"
	"github.com/suparena/storekit/entity"
	"github.com/suparena/storekit/errors"
)

// Entry is the native representation of this backend: a column map
// holding driver-ready values. Timestamps are RFC3339 strings and key
// lists JSON strings, so an entry round-trips through a row unchanged.
type Entry = map[string]any

// Key is the key type of this backend.
type Key = int64

var (
	_ adapter.EntryAdapter[Entry, Key] = (*Adapter)(nil)
	_ adapter.Pinger                   = (*Adapter)(nil)
)

// Adapter stores records in a SQLite database file, one table per
// family. Version checks ride on the UPDATE statement itself, so they
// are atomic without a separate read.
type Adapter struct {
	db   *sql.DB
	path string

	mu    sync.Mutex
	ready map[string]bool // families whose schema has been applied
}

// Open opens or creates the SQLite database at path.
func Open(path string) (*Adapter, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.NewStoreAccessError("open", path, err)
	}
	// A single connection keeps writers serialized and avoids
	// SQLITE_BUSY under concurrent use.
	db.SetMaxOpenConns(1)
	return &Adapter{db: db, path: path, ready: make(map[string]bool)}, nil
}

// Close releases the database handle.
func (a *Adapter) Close() error {
	return a.db.Close()
}

// Ping verifies the database is reachable.
func (a *Adapter) Ping(ctx context.Context) error {
	if err := a.db.PingContext(ctx); err != nil {
		return errors.NewStoreAccessError("ping", a.path, err)
	}
	return nil
}

// CreateNewEntry returns an empty column map.
func (a *Adapter) CreateNewEntry(meta *entity.PersistentEntity) Entry {
	return Entry{}
}

// GetEntryValue reads one property, converting the column form back to
// its semantic type. Values scanned from a row arrive as int64, float64,
// string or []byte, so booleans and numbers are widened accordingly.
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
		switch n := v.(type) {
		case float64:
			return n, nil
		case int64:
			return float64(n), nil
		default:
			return nil, errors.NewConversionError(p.Name, v, "float64", "stored value is not a number")
		}

	case entity.KindBool:
		switch b := v.(type) {
		case bool:
			return b, nil
		case int64:
			return b != 0, nil
		default:
			return nil, errors.NewConversionError(p.Name, v, "bool", "stored value is not a bool")
		}

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
		b, ok := v.([]byte)
		if !ok {
			return nil, errors.NewConversionError(p.Name, v, "bytes", "stored value is not a byte slice")
		}
		return b, nil

	case entity.KindKeyList:
		s, ok := v.(string)
		if !ok {
			return nil, errors.NewConversionError(p.Name, v, "key list", "stored value is not a JSON string")
		}
		return decodeKeyList(p, s)

	default:
		return v, nil
	}
}

// SetEntryValue writes one property in its column form.
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

	case entity.KindInt:
		n, ok := asInt64(value)
		if !ok {
			return errors.NewConversionError(p.Name, value, "int64", "not an integer")
		}
		entry[p.Name] = n

	case entity.KindBytes:
		b, ok := value.([]byte)
		if !ok {
			return errors.NewConversionError(p.Name, value, "bytes", "not a byte slice")
		}
		out := make([]byte, len(b))
		copy(out, b)
		entry[p.Name] = out

	case entity.KindKeyList:
		switch value.(type) {
		case []string, []int64:
			raw, err := json.Marshal(value)
			if err != nil {
				return errors.NewConversionError(p.Name, value, "key list", "keys cannot be encoded as JSON")
			}
			entry[p.Name] = string(raw)
		default:
			return errors.NewConversionError(p.Name, value, "key list", "not a key list")
		}

	default:
		entry[p.Name] = value
	}
	return nil
}

// RetrieveEntry loads the row stored under key into a column map.
func (a *Adapter) RetrieveEntry(ctx context.Context, meta *entity.PersistentEntity, key int64) (Entry, bool, error) {
	if err := a.ensureFamily(ctx, meta); err != nil {
		return nil, false, err
	}
	table, idCol, err := tableIdents(meta)
	if err != nil {
		return nil, false, err
	}

	cols := make([]string, 0, len(meta.Properties))
	for _, p := range meta.Properties {
		col, err := quoteIdent(p.Name)
		if err != nil {
			return nil, false, err
		}
		cols = append(cols, col)
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?", strings.Join(cols, ", "), table, idCol)
	values := make([]any, len(meta.Properties))
	targets := make([]any, len(meta.Properties))
	for i := range values {
		targets[i] = &values[i]
	}

	err = a.db.QueryRowContext(ctx, query, key).Scan(targets...)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.NewStoreAccessError("retrieve", meta.Family, err)
	}

	entry := Entry{}
	for i, p := range meta.Properties {
		if values[i] == nil {
			continue
		}
		entry[p.Name] = values[i]
	}
	return entry, true, nil
}

// StoreEntry inserts a new row. A zero key omits the identity column so
// AUTOINCREMENT assigns one; the assigned key is returned. An occupied
// explicit key is an AlreadyExistsError.
func (a *Adapter) StoreEntry(ctx context.Context, meta *entity.PersistentEntity, key int64, entry Entry) (int64, error) {
	if err := a.ensureFamily(ctx, meta); err != nil {
		return 0, err
	}
	table, idCol, err := tableIdents(meta)
	if err != nil {
		return 0, err
	}

	var cols []string
	var args []any
	for _, p := range meta.Properties {
		if p.Identity {
			if key != 0 {
				cols = append(cols, idCol)
				args = append(args, key)
			}
			continue
		}
		col, err := quoteIdent(p.Name)
		if err != nil {
			return 0, err
		}
		cols = append(cols, col)
		args = append(args, entry[p.Name])
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.NewStoreAccessError("store", meta.Family, err)
	}
	defer tx.Rollback()

	if key != 0 {
		var one int
		err := tx.QueryRowContext(ctx, fmt.Sprintf("SELECT 1 FROM %s WHERE %s = ?", table, idCol), key).Scan(&one)
		if err == nil {
			return 0, errors.NewAlreadyExistsError(meta.Family, key)
		}
		if err != sql.ErrNoRows {
			return 0, errors.NewStoreAccessError("store", meta.Family, err)
		}
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), placeholders(len(cols)))
	if len(cols) == 0 {
		query = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", table)
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.NewStoreAccessError("store", meta.Family, err)
	}

	stored := key
	if key == 0 {
		id, err := res.LastInsertId()
		if err != nil {
			return 0, errors.NewStoreAccessError("store", meta.Family, err)
		}
		stored = id
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.NewStoreAccessError("store", meta.Family, err)
	}
	return stored, nil
}

// UpdateEntry replaces the row stored under key. When a prior version is
// given the UPDATE is filtered on it, and a miss is resolved by a second
// read into either a NotFoundError or an OptimisticLockError.
func (a *Adapter) UpdateEntry(ctx context.Context, meta *entity.PersistentEntity, key int64, entry Entry, prior int64) error {
	if err := a.ensureFamily(ctx, meta); err != nil {
		return err
	}
	table, idCol, err := tableIdents(meta)
	if err != nil {
		return err
	}

	var sets []string
	var args []any
	for _, p := range meta.Properties {
		if p.Identity {
			continue
		}
		col, err := quoteIdent(p.Name)
		if err != nil {
			return err
		}
		sets = append(sets, col+" = ?")
		args = append(args, entry[p.Name])
	}
	if len(sets) == 0 {
		var one int
		err := a.db.QueryRowContext(ctx, fmt.Sprintf("SELECT 1 FROM %s WHERE %s = ?", table, idCol), key).Scan(&one)
		if err == sql.ErrNoRows {
			return errors.NewNotFoundError(meta.Family, key)
		}
		if err != nil {
			return errors.NewStoreAccessError("update", meta.Family, err)
		}
		return nil
	}

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?", table, strings.Join(sets, ", "), idCol)
	args = append(args, key)

	versioned := meta.Versioned() && prior > 0
	var verCol string
	if versioned {
		verCol, err = quoteIdent(meta.Version.Name)
		if err != nil {
			return err
		}
		query += fmt.Sprintf(" AND %s = ?", verCol)
		args = append(args, prior)
	}

	res, err := a.db.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.NewStoreAccessError("update", meta.Family, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.NewStoreAccessError("update", meta.Family, err)
	}
	if n > 0 {
		return nil
	}

	if !versioned {
		return errors.NewNotFoundError(meta.Family, key)
	}

	// No row matched the key and prior version. Read the current version
	// to tell a missing record from a conflicting one.
	var found int64
	err = a.db.QueryRowContext(ctx, fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?", verCol, table, idCol), key).Scan(&found)
	if err == sql.ErrNoRows {
		return errors.NewNotFoundError(meta.Family, key)
	}
	if err != nil {
		return errors.NewStoreAccessError("update", meta.Family, err)
	}
	return errors.NewOptimisticLockError(meta.Family, key, prior, found)
}

// DeleteEntry removes the row stored under key. Absent keys are a no-op.
func (a *Adapter) DeleteEntry(ctx context.Context, meta *entity.PersistentEntity, key int64) error {
	if err := a.ensureFamily(ctx, meta); err != nil {
		return err
	}
	table, idCol, err := tableIdents(meta)
	if err != nil {
		return err
	}
	if _, err := a.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s = ?", table, idCol), key); err != nil {
		return errors.NewStoreAccessError("delete", meta.Family, err)
	}
	return nil
}

// DeleteEntries removes multiple rows in one transaction.
func (a *Adapter) DeleteEntries(ctx context.Context, meta *entity.PersistentEntity, keys []int64) error {
	if err := a.ensureFamily(ctx, meta); err != nil {
		return err
	}
	table, idCol, err := tableIdents(meta)
	if err != nil {
		return err
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewStoreAccessError("delete batch", meta.Family, err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", table, idCol)
	for _, key := range keys {
		if _, err := tx.ExecContext(ctx, query, key); err != nil {
			return errors.NewStoreAccessError("delete batch", meta.Family, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.NewStoreAccessError("delete batch", meta.Family, err)
	}
	return nil
}

// GenerateIdentifier reports that keys are assigned by the store during
// the insert.
func (a *Adapter) GenerateIdentifier(ctx context.Context, meta *entity.PersistentEntity) (int64, error) {
	return 0, errors.ErrStoreAssigned
}

// ensureFamily applies the family's schema once per adapter lifetime.
func (a *Adapter) ensureFamily(ctx context.Context, meta *entity.PersistentEntity) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ready[meta.Family] {
		return nil
	}

	stmts, err := schemaFor(meta)
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		if _, err := a.db.ExecContext(ctx, stmt); err != nil {
			return errors.NewStoreAccessError("create schema", meta.Family, err)
		}
	}
	a.ready[meta.Family] = true
	return nil
}

func tableIdents(meta *entity.PersistentEntity) (table, idCol string, err error) {
	table, err = quoteIdent(meta.Family)
	if err != nil {
		return "", "", err
	}
	idCol, err = quoteIdent(meta.Identity.Name)
	if err != nil {
		return "", "", err
	}
	return table, idCol, nil
}

func decodeKeyList(p *entity.Property, raw string) (any, error) {
	if p.Type.Elem().Kind() == reflect.String {
		var keys []string
		if err := json.Unmarshal([]byte(raw), &keys); err != nil {
			return nil, errors.NewConversionError(p.Name, raw, "key list", "stored value is not a JSON string array")
		}
		return keys, nil
	}
	var keys []int64
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		return nil, errors.NewConversionError(p.Name, raw, "key list", "stored value is not a JSON integer array")
	}
	return keys, nil
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	default:
		return 0, false
	}
}

func placeholders(n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = "?"
	}
	return strings.Join(ps, ", ")
}
