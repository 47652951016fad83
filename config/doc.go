/*
Package config selects and parameterizes a StoreKit backend.

Configuration is a small YAML document:

	backend: bolt
	path: /var/lib/app/store.db
	write_concern: acknowledged

The dynamo backend additionally takes per-family key templates for
single-table layouts:

	backend: dynamo
	table: app-data
	region: us-east-1
	patterns:
	  users:
	    pk: "USERS#{ID}"
	    sk: "PROFILE"

Environment variables overlay the file, so credentials stay out of
checked-in configuration: STOREKIT_BACKEND, STOREKIT_PATH, AWS_DDB_TABLE,
AWS_REGION, AWS_ACCESS_KEY, AWS_SECRET_KEY, MONGO_URI, MONGO_DATABASE
and STOREKIT_WRITE_CONCERN.

Load reads, overlays and validates in one step; storekit.Open turns the
result into a live backend handle.
*/
package config
