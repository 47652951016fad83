/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package sqlite

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/storekit/entity"
	storeerrors "github.com/suparena/storekit/errors"
)

type order struct {
	ID      int64     `store:"ID,id"`
	Ref     string    `store:"Ref,index"`
	Qty     int64     `store:"Qty"`
	Total   float64   `store:"Total"`
	Rush    bool      `store:"Rush"`
	Ver     int64     `store:"Ver,version"`
	Placed  time.Time `store:"Placed"`
	Payload []byte    `store:"Payload"`
	Items   []int64   `store:"Items,assoc=items"`
}

func orderMeta(t *testing.T) *entity.PersistentEntity {
	t.Helper()
	m, err := entity.Describe(reflect.TypeOf(order{}), "orders")
	require.NoError(t, err)
	return m
}

func openAdapter(t *testing.T) (*Adapter, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "store.db")
	a, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a, path
}

func orderEntry(t *testing.T, a *Adapter, meta *entity.PersistentEntity, o order) Entry {
	t.Helper()
	entry := a.CreateNewEntry(meta)
	set := func(name string, v any) {
		p, ok := meta.Property(name)
		require.True(t, ok, "property %s", name)
		require.NoError(t, a.SetEntryValue(entry, p, v))
	}
	if o.ID != 0 {
		set("ID", o.ID)
	}
	set("Ref", o.Ref)
	set("Qty", o.Qty)
	set("Total", o.Total)
	set("Rush", o.Rush)
	set("Ver", o.Ver)
	set("Placed", o.Placed)
	set("Payload", o.Payload)
	set("Items", o.Items)
	return entry
}

func TestSchemaFor(t *testing.T) {
	meta := orderMeta(t)
	stmts, err := schemaFor(meta)
	require.NoError(t, err)
	require.Len(t, stmts, 2)

	assert.Equal(t,
		`CREATE TABLE IF NOT EXISTS "orders" (`+
			`"ID" INTEGER PRIMARY KEY AUTOINCREMENT, "Ref" TEXT, "Qty" INTEGER, `+
			`"Total" REAL, "Rush" INTEGER, "Ver" INTEGER, "Placed" TEXT, `+
			`"Payload" BLOB, "Items" TEXT)`,
		stmts[0])
	assert.Equal(t, `CREATE INDEX IF NOT EXISTS "orders_Ref_idx" ON "orders" ("Ref")`, stmts[1])
}

func TestSchemaForRejectsStringIdentity(t *testing.T) {
	type named struct {
		Slug string `store:"Slug,id"`
	}
	meta, err := entity.Describe(reflect.TypeOf(named{}), "named")
	require.NoError(t, err)

	_, err = schemaFor(meta)
	assert.True(t, storeerrors.IsValidation(err), "expected ValidationError, got %v", err)
}

func TestSchemaForRejectsBadFamilyName(t *testing.T) {
	type row struct {
		ID int64 `store:"ID,id"`
	}
	meta, err := entity.Describe(reflect.TypeOf(row{}), "bad-name")
	require.NoError(t, err)

	_, err = schemaFor(meta)
	assert.True(t, storeerrors.IsValidation(err), "expected ValidationError, got %v", err)
}

func TestSchemaForRejectsUnmappableKind(t *testing.T) {
	type row struct {
		ID    int64          `store:"ID,id"`
		Extra map[string]int `store:"Extra"`
	}
	meta, err := entity.Describe(reflect.TypeOf(row{}), "rows")
	require.NoError(t, err)

	_, err = schemaFor(meta)
	assert.True(t, storeerrors.IsValidation(err), "expected ValidationError, got %v", err)
}

func TestStoreAssignsKeys(t *testing.T) {
	a, _ := openAdapter(t)
	meta := orderMeta(t)
	ctx := context.Background()

	first, err := a.StoreEntry(ctx, meta, 0, orderEntry(t, a, meta, order{Ref: "a", Ver: 1}))
	require.NoError(t, err)
	assert.Greater(t, first, int64(0))

	second, err := a.StoreEntry(ctx, meta, 0, orderEntry(t, a, meta, order{Ref: "b", Ver: 1}))
	require.NoError(t, err)
	assert.Greater(t, second, first)
}

func TestRoundTripSurvivesReopen(t *testing.T) {
	a, path := openAdapter(t)
	meta := orderMeta(t)
	ctx := context.Background()

	placed := time.Date(2025, 6, 2, 9, 15, 0, 500_000_000, time.UTC)
	key, err := a.StoreEntry(ctx, meta, 0, orderEntry(t, a, meta, order{
		Ref:     "ord-1",
		Qty:     3,
		Total:   42.5,
		Rush:    true,
		Ver:     1,
		Placed:  placed,
		Payload: []byte{0xde, 0xad},
		Items:   []int64{10, 11},
	}))
	require.NoError(t, err)

	require.NoError(t, a.Close())
	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, found, err := reopened.RetrieveEntry(ctx, meta, key)
	require.NoError(t, err)
	require.True(t, found)

	read := func(name string) any {
		p, _ := meta.Property(name)
		v, err := reopened.GetEntryValue(got, p)
		require.NoError(t, err, "GetEntryValue(%s)", name)
		return v
	}

	assert.Equal(t, key, read("ID"))
	assert.Equal(t, "ord-1", read("Ref"))
	assert.Equal(t, int64(3), read("Qty"))
	assert.Equal(t, 42.5, read("Total"))
	assert.Equal(t, true, read("Rush"))
	assert.Equal(t, int64(1), read("Ver"))
	assert.True(t, placed.Equal(read("Placed").(time.Time)))
	assert.Equal(t, []byte{0xde, 0xad}, read("Payload"))
	assert.Equal(t, []int64{10, 11}, read("Items"))
}

func TestRetrieveMissing(t *testing.T) {
	a, _ := openAdapter(t)
	meta := orderMeta(t)

	rec, found, err := a.RetrieveEntry(context.Background(), meta, 99)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, rec)
}

func TestStoreExplicitKey(t *testing.T) {
	a, _ := openAdapter(t)
	meta := orderMeta(t)
	ctx := context.Background()

	key, err := a.StoreEntry(ctx, meta, 7, orderEntry(t, a, meta, order{ID: 7, Ref: "a", Ver: 1}))
	require.NoError(t, err)
	assert.Equal(t, int64(7), key)

	_, err = a.StoreEntry(ctx, meta, 7, orderEntry(t, a, meta, order{ID: 7, Ref: "b", Ver: 1}))
	assert.True(t, storeerrors.IsAlreadyExists(err), "expected AlreadyExistsError, got %v", err)
}

func TestUpdateCompareAndSwap(t *testing.T) {
	a, _ := openAdapter(t)
	meta := orderMeta(t)
	ctx := context.Background()

	key, err := a.StoreEntry(ctx, meta, 0, orderEntry(t, a, meta, order{Ref: "v1", Ver: 1}))
	require.NoError(t, err)

	require.NoError(t, a.UpdateEntry(ctx, meta, key, orderEntry(t, a, meta, order{ID: key, Ref: "v2", Ver: 2}), 1))

	// The stored version is now 2; reusing the old prior must fail and
	// leave the row unchanged.
	err = a.UpdateEntry(ctx, meta, key, orderEntry(t, a, meta, order{ID: key, Ref: "stale", Ver: 2}), 1)
	require.Error(t, err)
	var lock *storeerrors.OptimisticLockError
	require.ErrorAs(t, err, &lock)
	assert.Equal(t, int64(1), lock.Expected)
	assert.Equal(t, int64(2), lock.Found)

	got, found, err := a.RetrieveEntry(ctx, meta, key)
	require.NoError(t, err)
	require.True(t, found)
	refProp, _ := meta.Property("Ref")
	ref, err := a.GetEntryValue(got, refProp)
	require.NoError(t, err)
	assert.Equal(t, "v2", ref)
}

func TestUpdateMissing(t *testing.T) {
	a, _ := openAdapter(t)
	meta := orderMeta(t)

	err := a.UpdateEntry(context.Background(), meta, 404, orderEntry(t, a, meta, order{ID: 404, Ver: 1}), 0)
	assert.True(t, storeerrors.IsNotFound(err), "expected NotFoundError, got %v", err)

	err = a.UpdateEntry(context.Background(), meta, 404, orderEntry(t, a, meta, order{ID: 404, Ver: 2}), 1)
	assert.True(t, storeerrors.IsNotFound(err), "expected NotFoundError, got %v", err)
}

func TestDeleteIdempotent(t *testing.T) {
	a, _ := openAdapter(t)
	meta := orderMeta(t)
	ctx := context.Background()

	key, err := a.StoreEntry(ctx, meta, 0, orderEntry(t, a, meta, order{Ref: "a", Ver: 1}))
	require.NoError(t, err)

	require.NoError(t, a.DeleteEntry(ctx, meta, key))
	assert.NoError(t, a.DeleteEntry(ctx, meta, key), "second delete should be a no-op")

	_, found, err := a.RetrieveEntry(ctx, meta, key)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDeleteEntries(t *testing.T) {
	a, _ := openAdapter(t)
	meta := orderMeta(t)
	ctx := context.Background()

	var keys []int64
	for _, ref := range []string{"a", "b", "c"} {
		key, err := a.StoreEntry(ctx, meta, 0, orderEntry(t, a, meta, order{Ref: ref, Ver: 1}))
		require.NoError(t, err)
		keys = append(keys, key)
	}

	require.NoError(t, a.DeleteEntries(ctx, meta, []int64{keys[0], keys[2], 999}))

	_, found, _ := a.RetrieveEntry(ctx, meta, keys[1])
	assert.True(t, found, "unlisted row should survive")
	_, found, _ = a.RetrieveEntry(ctx, meta, keys[0])
	assert.False(t, found, "listed row should be removed")
}

func TestGenerateIdentifierIsStoreAssigned(t *testing.T) {
	a, _ := openAdapter(t)
	meta := orderMeta(t)

	key, err := a.GenerateIdentifier(context.Background(), meta)
	assert.ErrorIs(t, err, storeerrors.ErrStoreAssigned)
	assert.Zero(t, key)
}

func TestPing(t *testing.T) {
	a, _ := openAdapter(t)
	assert.NoError(t, a.Ping(context.Background()))
}
