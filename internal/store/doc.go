// Package store defines the output-store contract shared by the delimited-file
// and Postgres backends. Implementations live in subpackages; this package
// must not import database drivers or concrete clients.
package store
