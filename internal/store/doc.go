// Package store defines interfaces for persistence dependencies of the import
// pipeline. Implementations live in the storage packages; this package must
// not import database drivers or concrete clients.
package store
