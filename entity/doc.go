/*
Package entity maps Go struct types to store records for StoreKit.

A mapping is declared with `store` struct tags and registered once per
type, typically in an init() function:

	type User struct {
	    ID        string    `store:"ID,id"`
	    Email     string    `store:"Email,index"`
	    Name      string    `store:"Name"`
	    Version   int64     `store:"Version,version"`
	    CreatedAt time.Time `store:"CreatedAt"`
	    Friends   []string  `store:"Friends,assoc=users"`
	    scratch   string    // unexported fields are never persisted
	}

	entity.MustRegister[User]("users")

Tag options:
  - id         marks the identity property (exactly one per entity)
  - version    marks the optimistic version counter (at most one)
  - index      flags the property for secondary index maintenance
  - assoc=F    declares a key list referencing family F
  - "-"        skips the field entirely

Fields without a tag are persisted under their Go names. The registry is
thread-safe and should be populated during initialization.

Access wraps one entity instance and moves property values in and out in
semantic form (string, int64, float64, bool, time.Time, []byte, key
slices); adapters convert between semantic values and each store's native
representation. Pointer fields are dereferenced on read and allocated on
write, so generated models with *string and *strfmt.DateTime fields map
without adaptation.
*/
package entity
