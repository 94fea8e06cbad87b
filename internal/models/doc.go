// Package models defines the catalog entities mirrored from the remote feed and the local
// records describing acquired media and configured jobs.
//
// Remote mirror:
//   - [User] : uploader or playlist owner
//   - [Video] : remote video metadata, merged field-wise through [VideoPatch]
//   - [Playlist] and [PlaylistItem] : ordered membership of videos in a remote playlist
//
// Local state:
//   - [LocalVideo] : one acquired media file in a specific [Format]
//   - [Job] : a named synchronization target with optional quality, range and export settings
//   - [Option] : persistent key/value settings
//
// Status fields are typed flag sets ([VideoStatus], [UserStatus], [JobStatus], [LocalStatus]) whose
// bit values are stable across catalog versions.
package models
