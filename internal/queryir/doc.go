// Package queryir describes the requests the fact repository sends to a
// remote store, independently of the backend that answers them.
//
// ARCHITECTURE:
//
//	[repository.Client] -> [Query IR] -> [querysql -> SQLite]
//	                                  -> [mysqlstore -> GORM/MySQL]
//	                                  -> [httpapi.Client -> REST]
//
// The IR is deliberately small. It covers exactly what the remote store
// contract promises:
//   - Select: filter by equality, order by columns, limit the result count
//   - Insert: insert one row and return it
//   - Update: update rows matching a filter and return the updated row
//   - Predicates: Equals and And
//
// SEALED INTERFACES:
//
// Query and Predicate are sealed with marker methods so backends can use
// exhaustive type switches. Values are restricted to the scalar types a
// fact row holds: string, int, int64 and bool.
//
// ORDERING:
//
// Backends append "id ASC" after the requested ordering so rows with equal
// sort keys keep a stable order within one response.
package queryir
