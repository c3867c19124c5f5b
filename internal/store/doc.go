// Package store provides SQLite-backed storage for lowered IR modules.
//
// Functions are content-addressed: a function row is keyed by the hash of
// its canonical encoding, so identical functions exported by several modules
// are stored once. Modules map names to function hashes.
//
// # Ordering
//
//   - Every module write takes the next seq (a logical clock), never a timestamp
//   - Listings use ORDER BY seq ASC, name ASC COLLATE BINARY
//   - A name exported by several modules resolves to the highest seq
//
// # Schema
//
// schema.sql is applied on every Open and records its version in the
// database's user_version. Connections run in WAL mode with foreign keys
// enforced and a 5 second busy timeout.
//
// Hashes are computed by ir.FunctionHash and ir.ModuleHash.
package store
