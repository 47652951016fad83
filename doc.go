/*
Package storekit maps Go structs onto keyed records across multiple
storage backends, with optimistic versioning, secondary index
maintenance and staged batch writes.

Entities declare their persistence through `store` struct tags; the
entity package turns a tagged type into a mapping, the persister drives
the record lifecycle against a backend adapter, and the typed Store
facade hides the backend's native record type behind *E values.

Key features:
  - Type-safe operations using Go generics
  - Multiple storage backends (memory, BoltDB, SQLite, DynamoDB, MongoDB)
  - Tag-driven entity mapping with optimistic version checks
  - Staged batch writes flushed per family through one session
  - Semantic error types for better error handling
  - Thread-safe store management

Basic usage:

	// Map a type and open a store over a backend adapter
	mem := memory.New()
	users, _ := storekit.New[User]("users", mem, nil)

	// Store and load
	key, _ := users.Put(ctx, &User{Name: "Mira"})
	u, _ := users.GetOne(ctx, key)

	// Register stores under names for lookup elsewhere
	stores := storekit.NewStores()
	storekit.RegisterStore(stores, "users", users)
	users, _ = storekit.GetStore[User, string](stores, "users")

For more information, see the documentation at https://github.com/suparena/storekit
*/
package storekit
