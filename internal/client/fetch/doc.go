// Package fetch is the client's data-fetching and local-cache layer.
//
// Every fetcher embeds a *Request, the staleness-tracked state machine that
// guarantees at most one fetch in flight per instance. On top of it:
//
//   - ListFetcher keeps a filterable, sortable, optionally paginated collection.
//   - ModelBackedFetcher reads a single record from the local store first and
//     then from the service, writing the fresh copy back.
//   - ModelBackedListFetcher does the same per item for collections.
//   - DraftPoster stages user edits locally and publishes them.
//   - Constructor memoizes all of the above by models.CacheKey.
//
// Observers register with Subscribe and are called after each state change,
// outside of any lock. Accessors return copies.
package fetch
