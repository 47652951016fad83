/*
Package adapter defines the contract between StoreKit's entity persister
and each storage backend.

An EntryAdapter hides one store behind a small set of mechanical
operations: build an empty native record, move property values in and
out of it, and read, write, update or delete records keyed by
(family, key). Everything above that line, including identifier
assignment, optimistic version checks and write staging, belongs to the
persister; everything below it, including connections, serialization
and store error mapping, belongs to the adapter.

Optional capabilities are discovered by type assertion:

	BatchWriter              grouped writes for staged flushes
	PropertyIndexSource      adapter-managed property indexes
	AssociationIndexSource   adapter-managed association sets
	Pinger                   connectivity checks
	io.Closer                resource teardown

Concrete adapters live in the subpackages memory, bolt, sqlite, dynamo
and mongo. They are selected explicitly, or through configuration via
the parent storekit package.
*/
package adapter
