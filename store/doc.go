// Package store implements the three keyed stores behind the tracker: current
// vessel snapshots, recent past tracks and rolling max speeds.
//
// Every store comes in an in-memory variant and a durable variant over a
// kvstore.Backend. Durable variants never mutate a decoded record that might
// still be referenced elsewhere; they decode a fresh copy, mutate it and put
// it back. Each store runs its own periodic sweep that enforces time-based
// eviction.
package store
