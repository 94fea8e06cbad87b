// Package tasks runs synchronization jobs: it mirrors remote feeds into the catalog, acquires local
// media for every playlist item and writes XSPF playlists that reference the local files.
//
// # Core Operations
//
// [Engine] exposes one method per pipeline stage:
//
//  1. [Engine.Sync] : Feed synchronization
//     - Walks every page of a playlist or favorites feed
//     - Looks up unknown uploaders outside any transaction
//     - Merges each page in one transaction (field-wise video patch, insert-if-absent items)
//
//  2. [Engine.AcquireAll] / [Engine.Acquire] : Media acquisition
//     - Reuses the best-ranked local file for the job's lookup table
//     - Probes for private videos, resolves download URLs, downloads with bounded retries
//     - Records content-state flags (private, no format) on the video
//
//  3. [Engine.Materialize] : Playlist manifests
//     - Renders the available acquisitions as XSPF and writes them atomically
//
//  4. [Engine.RunJob] / [Engine.RunJobs] : Job control
//     - Honors the disabled, no-sync, no-download and run-once job flags
//     - Applies the job's index range before acquiring
//
//  5. [Engine.Import] : Legacy import of per-playlist JSON records
//
// # Progress Reporting
//
// All operations accept an optional channel for [ProgressUpdate] values. Updates use select with
// default so a slow reader never blocks a run.
//
// # Concurrency
//
// Acquisitions within a job run on an errgroup bounded by the configured worker count. A keyed
// mutex allows one acquisition per video id at a time; item writes for one playlist are serialized
// through [repositories.Catalog.LockPlaylist]. No transaction spans a network call.
package tasks
