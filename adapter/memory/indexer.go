/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/suparena/storekit/adapter"
	"github.com/suparena/storekit/entity"
)

// PropertyIndexer returns the managed reverse index for an indexed
// property.
func (a *Adapter) PropertyIndexer(meta *entity.PersistentEntity, p *entity.Property) adapter.PropertyIndexer[string] {
	return &propertyIndex{a: a, bucket: meta.Family + "/" + p.Name}
}

// AssociationIndexer returns the managed related-key set for an
// association property.
func (a *Adapter) AssociationIndexer(meta *entity.PersistentEntity, entry Record, p *entity.Property) adapter.AssociationIndexer[string] {
	return &associationIndex{a: a, bucket: meta.Family + "/" + p.Name}
}

type propertyIndex struct {
	a      *Adapter
	bucket string
}

func (ix *propertyIndex) Index(ctx context.Context, value any, key string) error {
	ix.a.mu.Lock()
	defer ix.a.mu.Unlock()

	terms, ok := ix.a.propIdx[ix.bucket]
	if !ok {
		terms = make(map[string]map[string]bool)
		ix.a.propIdx[ix.bucket] = terms
	}
	term := indexTerm(value)
	keys, ok := terms[term]
	if !ok {
		keys = make(map[string]bool)
		terms[term] = keys
	}
	keys[key] = true
	return nil
}

func (ix *propertyIndex) Deindex(ctx context.Context, value any, key string) error {
	ix.a.mu.Lock()
	defer ix.a.mu.Unlock()

	term := indexTerm(value)
	keys := ix.a.propIdx[ix.bucket][term]
	delete(keys, key)
	if len(keys) == 0 {
		delete(ix.a.propIdx[ix.bucket], term)
	}
	return nil
}

func (ix *propertyIndex) Query(ctx context.Context, value any) ([]string, error) {
	ix.a.mu.RLock()
	defer ix.a.mu.RUnlock()

	keys := ix.a.propIdx[ix.bucket][indexTerm(value)]
	out := make([]string, 0, len(keys))
	for k := range keys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}

type associationIndex struct {
	a      *Adapter
	bucket string
}

func (ix *associationIndex) Add(ctx context.Context, owner string, related []string) error {
	ix.a.mu.Lock()
	defer ix.a.mu.Unlock()

	owners, ok := ix.a.assocIdx[ix.bucket]
	if !ok {
		owners = make(map[string]map[string]bool)
		ix.a.assocIdx[ix.bucket] = owners
	}
	set, ok := owners[owner]
	if !ok {
		set = make(map[string]bool)
		owners[owner] = set
	}
	for _, r := range related {
		set[r] = true
	}
	return nil
}

func (ix *associationIndex) Remove(ctx context.Context, owner string, related []string) error {
	ix.a.mu.Lock()
	defer ix.a.mu.Unlock()

	set := ix.a.assocIdx[ix.bucket][owner]
	for _, r := range related {
		delete(set, r)
	}
	if len(set) == 0 {
		delete(ix.a.assocIdx[ix.bucket], owner)
	}
	return nil
}

func (ix *associationIndex) Related(ctx context.Context, owner string) ([]string, error) {
	ix.a.mu.RLock()
	defer ix.a.mu.RUnlock()

	set := ix.a.assocIdx[ix.bucket][owner]
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}

// indexTerm normalizes a property value for use as an index key.
// Timestamps index by their UTC instant so equal times always land on
// the same term.
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
