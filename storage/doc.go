// Package storage provides durable key-value slots for persisting the
// courier event queue across process restarts.
//
// The queue layer serializes its pending records into a single value and
// mirrors that value into a [KV] slot on every mutation. Persistence is
// best-effort: the queue absorbs every storage error and degrades to
// in-memory-only behavior, so implementations simply return errors and
// never need retry logic of their own.
//
// Three implementations are provided:
//
//   - [MemoryStore]: process-local map, for tests and hosts that accept
//     losing the queue on restart
//   - [SQLStore]: a single-table slot store on database/sql, suitable for
//     embedded SQLite files or a shared Postgres instance
//   - [NATSStore]: a NATS JetStream KeyValue bucket, for hosts already
//     running NATS infrastructure
//
// Each queue instance writes under a unique key derived from its instance
// identifier and resolved transport mode, so independent emitter instances
// never contend on the same slot.
package storage
