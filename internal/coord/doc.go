// Package coord implements the coordination store: the shared atomic
// set/counter/scalar state that decides when all chunks of a meeting have
// arrived and when all of them have been transcribed. All mutating operations
// used for control decisions execute as single SQL statements so concurrent
// workers never observe torn updates. The state is transient orchestration
// bookkeeping; the durable three-layer records live in internal/storage.
package coord
