// Package registry manages the ordered collection of Resume entities and the
// single-flight processing pointer.
//
// Entities persist in SQLite under the state directory so history survives
// restarts. The processing lifecycle runs as a two-phase commit:
// BeginPlaceholder inserts an optimistic placeholder and claims the pointer,
// Commit swaps it for the server-issued entity, and Abort marks it errored
// while keeping it visible in history. At most one entity can be referenced by
// the pointer at a time, and terminal statuses (completed, error) never
// regress to processing.
package registry
