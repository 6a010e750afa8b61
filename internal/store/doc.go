// Package store groups the record store implementations. The postgres
// subpackage is the production store; the memory subpackage mirrors its
// merge policy for tests and DSN-less dev runs. Both satisfy the
// scrape.RecordStore port per record type; this package itself holds no
// code and must not import database drivers.
package store
