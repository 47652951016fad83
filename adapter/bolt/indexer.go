/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package bolt

import (
	"context"
	"fmt"
	"time"

	bbolt "go.etcd.io/bbolt"

	"github.com/suparena/storekit/adapter"
	"github.com/suparena/storekit/entity"
	"github.com/suparena/storekit/errors"
)

// PropertyIndexer returns the managed reverse index for an indexed
// property. Index entries live in the bucket idx.<family>.<prop>, one
// nested bucket per term holding the owning keys.
func (a *Adapter) PropertyIndexer(meta *entity.PersistentEntity, p *entity.Property) adapter.PropertyIndexer[string] {
	return &propertyIndex{db: a.db, bucket: "idx." + meta.Family + "." + p.Name}
}

// AssociationIndexer returns the managed related-key set for an
// association property, kept in assoc.<family>.<prop> with one nested
// bucket per owning key.
func (a *Adapter) AssociationIndexer(meta *entity.PersistentEntity, entry Entry, p *entity.Property) adapter.AssociationIndexer[string] {
	return &associationIndex{db: a.db, bucket: "assoc." + meta.Family + "." + p.Name}
}

type propertyIndex struct {
	db     *bbolt.DB
	bucket string
}

func (ix *propertyIndex) Index(ctx context.Context, value any, key string) error {
	term := indexTerm(value)
	err := ix.db.Update(func(tx *bbolt.Tx) error {
		root, err := tx.CreateBucketIfNotExists([]byte(ix.bucket))
		if err != nil {
			return err
		}
		terms, err := root.CreateBucketIfNotExists([]byte(term))
		if err != nil {
			return err
		}
		return terms.Put([]byte(key), nil)
	})
	if err != nil {
		return errors.NewStoreAccessError("index", ix.bucket, err)
	}
	return nil
}

func (ix *propertyIndex) Deindex(ctx context.Context, value any, key string) error {
	term := indexTerm(value)
	err := ix.db.Update(func(tx *bbolt.Tx) error {
		root := tx.Bucket([]byte(ix.bucket))
		if root == nil {
			return nil
		}
		terms := root.Bucket([]byte(term))
		if terms == nil {
			return nil
		}
		return terms.Delete([]byte(key))
	})
	if err != nil {
		return errors.NewStoreAccessError("deindex", ix.bucket, err)
	}
	return nil
}

func (ix *propertyIndex) Query(ctx context.Context, value any) ([]string, error) {
	term := indexTerm(value)
	var keys []string
	err := ix.db.View(func(tx *bbolt.Tx) error {
		root := tx.Bucket([]byte(ix.bucket))
		if root == nil {
			return nil
		}
		terms := root.Bucket([]byte(term))
		if terms == nil {
			return nil
		}
		return terms.ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, errors.NewStoreAccessError("index query", ix.bucket, err)
	}
	return keys, nil
}

type associationIndex struct {
	db     *bbolt.DB
	bucket string
}

func (ix *associationIndex) Add(ctx context.Context, owner string, related []string) error {
	err := ix.db.Update(func(tx *bbolt.Tx) error {
		root, err := tx.CreateBucketIfNotExists([]byte(ix.bucket))
		if err != nil {
			return err
		}
		set, err := root.CreateBucketIfNotExists([]byte(owner))
		if err != nil {
			return err
		}
		for _, r := range related {
			if err := set.Put([]byte(r), nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.NewStoreAccessError("association add", ix.bucket, err)
	}
	return nil
}

func (ix *associationIndex) Remove(ctx context.Context, owner string, related []string) error {
	err := ix.db.Update(func(tx *bbolt.Tx) error {
		root := tx.Bucket([]byte(ix.bucket))
		if root == nil {
			return nil
		}
		set := root.Bucket([]byte(owner))
		if set == nil {
			return nil
		}
		for _, r := range related {
			if err := set.Delete([]byte(r)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.NewStoreAccessError("association remove", ix.bucket, err)
	}
	return nil
}

func (ix *associationIndex) Related(ctx context.Context, owner string) ([]string, error) {
	var keys []string
	err := ix.db.View(func(tx *bbolt.Tx) error {
		root := tx.Bucket([]byte(ix.bucket))
		if root == nil {
			return nil
		}
		set := root.Bucket([]byte(owner))
		if set == nil {
			return nil
		}
		return set.ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, errors.NewStoreAccessError("association query", ix.bucket, err)
	}
	return keys, nil
}

// indexTerm normalizes a property value for use as an index bucket
// name. Timestamps index by their UTC instant.
func indexTerm(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(v)
	}
}
