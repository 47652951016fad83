/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package adapter

import (
	"context"

	"github.com/suparena/storekit/entity"
)

// PropertyIndexer maintains a reverse mapping from one property's values
// to the keys of the records holding them, for stores without native
// secondary indexing.
type PropertyIndexer[K comparable] interface {
	Index(ctx context.Context, value any, key K) error
	Deindex(ctx context.Context, value any, key K) error
	Query(ctx context.Context, value any) ([]K, error)
}

// AssociationIndexer maintains the set of related keys recorded for one
// association, keyed by the owning record.
type AssociationIndexer[K comparable] interface {
	Add(ctx context.Context, owner K, related []K) error
	Remove(ctx context.Context, owner K, related []K) error
	Related(ctx context.Context, owner K) ([]K, error)
}

// PropertyIndexSource is implemented by adapters that manage property
// indexes themselves rather than relying on the store. A nil indexer
// means the property needs no maintenance on this backend.
type PropertyIndexSource[K comparable] interface {
	PropertyIndexer(meta *entity.PersistentEntity, p *entity.Property) PropertyIndexer[K]
}

// AssociationIndexSource is the association counterpart of
// PropertyIndexSource. The native record is passed through for stores
// whose association placement depends on the record itself.
type AssociationIndexSource[T any, K comparable] interface {
	AssociationIndexer(meta *entity.PersistentEntity, entry T, p *entity.Property) AssociationIndexer[K]
}
