/*
Package persister implements the entity lifecycle over any EntryAdapter.

A Persister binds one entity mapping to one adapter and carries records
through their states: create assigns an identifier and writes version 1,
read rebuilds an entity from the stored record, update performs the
optimistic version check before replacing the record, delete removes it
idempotently. Index maintenance runs after the store write on adapters
that manage their own indexes.

A Session adds write batching on top. Persisters built with a session
stage new records instead of writing them, and a flush pushes everything
out with one batch call per family:

	sess := persister.NewSession(a, adapter.Acknowledged)
	users, _ := persister.New(userMeta, a, sess)
	orders, _ := persister.New(orderMeta, a, sess)

	users.Create(ctx, &u1)
	orders.Create(ctx, &o1)
	if err := sess.Flush(ctx); err != nil {
	    // staged records are still buffered; retry or Discard
	}

A failed flush leaves the unwritten records on the buffer, so callers
decide between retrying and discarding. Updates and deletes are never
staged; they always hit the store directly.
*/
package persister
