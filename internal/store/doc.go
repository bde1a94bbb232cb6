// Package store provides the SQLite-backed facts table used as a remote
// store by the fact repository.
//
// The store executes Query IR requests compiled by internal/querysql:
//   - Select: filtered, ordered, limited reads of whole fact rows
//   - Insert: one row, with the id and createdIn year assigned here
//   - Update: rows matching a filter, echoing the updated row
//
// # Critical Patterns
//
// Remote-assigned identity
//   - Inserts never trust a caller id; the store's IDGenerator assigns it
//   - UUIDv7 by default, so ids sort by creation time
//
// Deterministic results
//   - Every SELECT orders by the requested keys, then id COLLATE BINARY ASC
//
// Echoed rows
//   - Insert and Update use RETURNING so the caller receives the row exactly
//     as stored, never a locally patched copy
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
