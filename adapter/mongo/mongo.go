/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package mongo provides a MongoDB-backed EntryAdapter. Records are
// documents keyed by _id, one collection per family, with secondary
// indexes created on the collections themselves. Batch flushes run as
// ordered InsertMany calls under the session's write concern.
package mongo

import (
	"context"
	"errors"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"github.com/suparena/storekit/adapter"
	"github.com/suparena/storekit/entity"
	storeerrors "github.com/suparena/storekit/errors"
)

// Entry is the native representation of this backend: a BSON document.
type Entry = bson.M

// Key is the key type of this backend.
type Key = string

var (
	_ adapter.EntryAdapter[Entry, Key] = (*Adapter)(nil)
	_ adapter.BatchWriter[Entry, Key]  = (*Adapter)(nil)
	_ adapter.Pinger                   = (*Adapter)(nil)
)

// Adapter stores records in one MongoDB database, one collection per
// family. Version checks ride on the replace filter, so they are atomic
// on the server side.
type Adapter struct {
	client *mongo.Client
	db     *mongo.Database

	mu      sync.Mutex
	indexed map[string]bool // families whose secondary indexes exist
}

// Connect dials the MongoDB deployment at uri and binds the adapter to
// the named database.
func Connect(ctx context.Context, uri, database string) (*Adapter, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, storeerrors.NewStoreAccessError("connect", database, err)
	}
	return &Adapter{
		client:  client,
		db:      client.Database(database),
		indexed: make(map[string]bool),
	}, nil
}

// Close disconnects from the deployment.
func (a *Adapter) Close() error {
	return a.client.Disconnect(context.Background())
}

// Ping verifies the deployment is reachable.
func (a *Adapter) Ping(ctx context.Context) error {
	if err := a.client.Ping(ctx, readpref.Primary()); err != nil {
		return storeerrors.NewStoreAccessError("ping", a.db.Name(), err)
	}
	return nil
}

// RetrieveEntry loads the document stored under key.
func (a *Adapter) RetrieveEntry(ctx context.Context, meta *entity.PersistentEntity, key string) (Entry, bool, error) {
	var doc Entry
	err := a.db.Collection(meta.Family).FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, storeerrors.NewStoreAccessError("retrieve", meta.Family, err)
	}
	return doc, true, nil
}

// StoreEntry inserts a new document under key. A duplicate key is an
// AlreadyExistsError.
func (a *Adapter) StoreEntry(ctx context.Context, meta *entity.PersistentEntity, key string, entry Entry) (string, error) {
	if err := a.ensureIndexes(ctx, meta); err != nil {
		return "", err
	}

	_, err := a.db.Collection(meta.Family).InsertOne(ctx, document(key, entry))
	if mongo.IsDuplicateKeyError(err) {
		return "", storeerrors.NewAlreadyExistsError(meta.Family, key)
	}
	if err != nil {
		return "", storeerrors.NewStoreAccessError("store", meta.Family, err)
	}
	return key, nil
}

// UpdateEntry replaces the document stored under key. When a prior
// version is given the replace filter carries it, and a miss is resolved
// by a second read into either a NotFoundError or an
// OptimisticLockError.
func (a *Adapter) UpdateEntry(ctx context.Context, meta *entity.PersistentEntity, key string, entry Entry, prior int64) error {
	if err := a.ensureIndexes(ctx, meta); err != nil {
		return err
	}

	filter := bson.M{"_id": key}
	versioned := meta.Versioned() && prior > 0
	if versioned {
		filter[meta.Version.Name] = prior
	}

	res, err := a.db.Collection(meta.Family).ReplaceOne(ctx, filter, document(key, entry))
	if err != nil {
		return storeerrors.NewStoreAccessError("update", meta.Family, err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	if !versioned {
		return storeerrors.NewNotFoundError(meta.Family, key)
	}

	// Nothing matched the key and prior version. Read the document back
	// to tell a missing record from a conflicting one.
	stored, found, rerr := a.RetrieveEntry(ctx, meta, key)
	if rerr != nil {
		return rerr
	}
	if !found {
		return storeerrors.NewNotFoundError(meta.Family, key)
	}
	raw, gerr := a.GetEntryValue(stored, meta.Version)
	if gerr != nil {
		return gerr
	}
	foundVer, _ := raw.(int64)
	return storeerrors.NewOptimisticLockError(meta.Family, key, prior, foundVer)
}

// DeleteEntry removes the document stored under key. Absent keys are a
// no-op.
func (a *Adapter) DeleteEntry(ctx context.Context, meta *entity.PersistentEntity, key string) error {
	if _, err := a.db.Collection(meta.Family).DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return storeerrors.NewStoreAccessError("delete", meta.Family, err)
	}
	return nil
}

// DeleteEntries removes multiple documents in one call.
func (a *Adapter) DeleteEntries(ctx context.Context, meta *entity.PersistentEntity, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	filter := bson.M{"_id": bson.M{"$in": keys}}
	if _, err := a.db.Collection(meta.Family).DeleteMany(ctx, filter); err != nil {
		return storeerrors.NewStoreAccessError("delete batch", meta.Family, err)
	}
	return nil
}

// GenerateIdentifier returns a UUID key.
func (a *Adapter) GenerateIdentifier(ctx context.Context, meta *entity.PersistentEntity) (string, error) {
	return newUUID(), nil
}

// WriteBatch inserts staged records with one ordered InsertMany under
// the requested write concern. Ordered inserts stop at the first
// failure, so everything from the failing record on is reported
// unprocessed through a BatchError.
func (a *Adapter) WriteBatch(ctx context.Context, family string, writes []adapter.PendingWrite[Entry, string], wc adapter.WriteConcern) error {
	if len(writes) == 0 {
		return nil
	}
	if err := a.ensureIndexes(ctx, writes[0].Meta); err != nil {
		return err
	}

	docs := make([]any, len(writes))
	keys := make([]string, len(writes))
	for i, w := range writes {
		docs[i] = document(w.Key, w.Entry)
		keys[i] = w.Key
	}

	coll := a.db.Collection(family, options.Collection().SetWriteConcern(concernOf(wc)))
	_, err := coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	if err == nil {
		return nil
	}

	var bwe mongo.BulkWriteException
	if errors.As(err, &bwe) && len(bwe.WriteErrors) > 0 {
		stop := orderedStop(len(writes), bwe.WriteErrors)
		return storeerrors.NewBatchError(family, keys[stop:], err)
	}
	return storeerrors.NewBatchError(family, keys, err)
}

// ensureIndexes creates the secondary indexes of a family once per
// adapter lifetime.
func (a *Adapter) ensureIndexes(ctx context.Context, meta *entity.PersistentEntity) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.indexed[meta.Family] {
		return nil
	}
	models := make([]mongo.IndexModel, 0, len(meta.Indexed()))
	for _, p := range meta.Indexed() {
		models = append(models, mongo.IndexModel{Keys: bson.D{{Key: p.Name, Value: 1}}})
	}
	if len(models) > 0 {
		if _, err := a.db.Collection(meta.Family).Indexes().CreateMany(ctx, models); err != nil {
			return storeerrors.NewStoreAccessError("create indexes", meta.Family, err)
		}
	}
	a.indexed[meta.Family] = true
	return nil
}

// document lays the record out for storage, keyed by _id.
func document(key string, entry Entry) bson.M {
	doc := make(bson.M, len(entry)+1)
	for k, v := range entry {
		doc[k] = v
	}
	doc["_id"] = key
	return doc
}

// concernOf maps the session's write concern to the driver's.
func concernOf(wc adapter.WriteConcern) *writeconcern.WriteConcern {
	switch wc {
	case adapter.Unacknowledged:
		return writeconcern.Unacknowledged()
	case adapter.Majority:
		return writeconcern.Majority()
	default:
		return writeconcern.W1()
	}
}

// orderedStop returns the index of the first record an ordered bulk
// write rejected; records before it were applied.
func orderedStop(total int, errs []mongo.BulkWriteError) int {
	stop := total
	for _, we := range errs {
		if we.Index < stop {
			stop = we.Index
		}
	}
	return stop
}
