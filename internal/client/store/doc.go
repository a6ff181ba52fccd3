// Package store provides the client's local persistence layer: a keyed record
// store used as a read-through cache for fetched records and as durable
// staging for drafts that have not been published yet.
//
// # Keys
//
// Rows are addressed by models.CacheKey, one record per key. Payloads are
// opaque bytes; ReadJSON and WriteJSON encode records as JSON.
//
// # Backends
//
//   - SQLStore over SQLite (modernc.org/sqlite) or PostgreSQL (pgx), schema
//     managed by embedded goose migrations
//   - S3Store over any S3-compatible bucket, one object per key
//   - Memory, for tests and ephemeral sessions
//
// Wrap a backend with Serialized to serialize physical writes per key.
//
// # Errors
//
// A missing row is ErrNotFound. Every backend failure wraps ErrLocalStore so
// callers can tell local failures from remote ones with errors.Is.
package store
