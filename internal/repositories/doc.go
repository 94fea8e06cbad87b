// Package repositories implements the SQLite catalog.
//
// A [Catalog] owns the database handle. [Catalog.Store] returns repositories bound to the connection pool and
// [Catalog.InTx] runs a function against repositories bound to a single transaction, so the same repository
// code serves both autocommit writes and multi-statement units of work.
//
// Repositories:
//   - [UserRepository] : uploader and owner records
//   - [VideoRepository] : remote video metadata with field-wise merge
//   - [PlaylistRepository] and [PlaylistItemRepository] : playlists and their ordered items
//   - [LocalVideoRepository] : acquired media, insert-only
//   - [JobRepository] : configured jobs
//   - [OptionRepository] : key/value settings
//
// Every write is an upsert or insert-if-absent, so an interrupted synchronization can be repeated safely.
package repositories
