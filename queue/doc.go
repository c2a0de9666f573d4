// Package queue provides the ordered pending-event store for the courier
// delivery queue.
//
// A [Store] holds the in-memory sequence of queued records and mirrors it
// into a [storage.KV] slot on every mutation so the queue survives a
// process restart. The mirror is best-effort: write failures are absorbed,
// reported through metrics, and the store degrades to in-memory-only
// behavior for that operation. The persisted copy is always a prefix of
// the in-memory queue, truncated to a configured maximum length.
//
// A store is locked to one record shape for its lifetime, fixed by the
// transport mode resolved at emitter construction: *types.PostRecord for
// ModePost queues, types.GetRecord for ModeGet queues.
//
// # Codecs
//
// [JSONCodec] is the default persisted format: one JSON array per slot,
// holding field objects (post) or query strings (get). [MsgpCodec] offers
// a compact MessagePack encoding for byte-oriented stores. Corrupted
// persisted state is discarded silently at load time; the queue starts
// empty rather than surfacing an error.
package queue
