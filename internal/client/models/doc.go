// Package models defines the client-side records, drafts and cache keys shared
// by the fetch framework, the local store and the API client.
//
// # Records
//
// Every record fetched from the service is owned by an AddressName. Records
// that appear in collections implement Listable, which supplies the identity
// used for de-duplication and the strings, keys and dates used by filters and
// sort orders.
//
// # Keys
//
// A CacheKey (kind, address, optional id) identifies both one live fetcher in
// the process and one row in the local store.
package models
