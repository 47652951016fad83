/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package persister

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/suparena/storekit/adapter"
	storeerrors "github.com/suparena/storekit/errors"
)

// Session buffers new records for adapters that accept grouped writes.
// Persisters built over the same session share one buffer, so records
// staged for several entity types flush together. Sessions are safe for
// concurrent staging; only one flush runs at a time.
type Session[T any, K comparable] struct {
	adapter adapter.EntryAdapter[T, K]
	batch   adapter.BatchWriter[T, K]
	concern adapter.WriteConcern

	mu      sync.Mutex
	pending []adapter.PendingWrite[T, K]

	flushMu sync.Mutex
}

// NewSession builds a session over an adapter. Adapters that do not
// implement BatchWriter yield an inert session whose persisters write
// immediately.
func NewSession[T any, K comparable](a adapter.EntryAdapter[T, K], wc adapter.WriteConcern) *Session[T, K] {
	s := &Session[T, K]{adapter: a, concern: wc}
	if b, ok := any(a).(adapter.BatchWriter[T, K]); ok {
		s.batch = b
	}
	return s
}

// Batching reports whether staged writes are supported on this backend.
func (s *Session[T, K]) Batching() bool {
	return s.batch != nil
}

// Concern returns the write concern flushes are performed under.
func (s *Session[T, K]) Concern() adapter.WriteConcern {
	return s.concern
}

// Stage appends one pending write to the buffer.
func (s *Session[T, K]) Stage(w adapter.PendingWrite[T, K]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, w)
}

// Len returns the number of records currently staged.
func (s *Session[T, K]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Discard drops every staged record without writing it.
func (s *Session[T, K]) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
}

// Flush writes the staged records, one batch call per family in staging
// order. A failed call puts its records back on the buffer along with
// every record not yet attempted, so the buffer always reflects exactly
// what remains unwritten; records from calls that already succeeded stay
// written. When the store reports partial acceptance through a
// BatchError, only the unprocessed records return to the buffer.
func (s *Session[T, K]) Flush(ctx context.Context) error {
	if s.batch == nil {
		return nil
	}

	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	writes := s.pending
	s.pending = nil
	s.mu.Unlock()

	if len(writes) == 0 {
		return nil
	}

	var order []string
	groups := make(map[string][]adapter.PendingWrite[T, K])
	for _, w := range writes {
		fam := w.Meta.Family
		if _, seen := groups[fam]; !seen {
			order = append(order, fam)
		}
		groups[fam] = append(groups[fam], w)
	}

	for i, fam := range order {
		if err := s.batch.WriteBatch(ctx, fam, groups[fam], s.concern); err != nil {
			s.restore(groups, order[i:], fam, err)
			return fmt.Errorf("flush %s: %w", fam, err)
		}
	}
	return nil
}

// restore puts unwritten records back on the buffer in their staging
// order, ahead of anything staged during the flush.
func (s *Session[T, K]) restore(groups map[string][]adapter.PendingWrite[T, K], remaining []string, failed string, err error) {
	var back []adapter.PendingWrite[T, K]
	for _, fam := range remaining {
		ws := groups[fam]
		if fam == failed {
			var batchErr *storeerrors.BatchError
			if errors.As(err, &batchErr) {
				ws = unprocessedOnly(ws, batchErr.Unprocessed)
			}
		}
		back = append(back, ws...)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(back, s.pending...)
}

func unprocessedOnly[T any, K comparable](ws []adapter.PendingWrite[T, K], unprocessed []string) []adapter.PendingWrite[T, K] {
	keep := make(map[string]bool, len(unprocessed))
	for _, k := range unprocessed {
		keep[k] = true
	}
	var out []adapter.PendingWrite[T, K]
	for _, w := range ws {
		if keep[fmt.Sprint(w.Key)] {
			out = append(out, w)
		}
	}
	return out
}
