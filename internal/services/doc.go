// Package services implements the remote collaborators used by a synchronization run.
//
// # Feed Provider
//
// [GDataFeed] reads the GData v2 Atom API: playlist and favorites pages (followed through their "next"
// link), user entries, and the short byte probe that reveals private videos. Requests carry the
// "GData-Version: 2" header, pass through a token bucket from golang.org/x/time/rate and, when an API
// token is configured, an [oauth2] bearer token.
//
// Fields missing from an entry stay nil in [FeedEntry] so the catalog can merge partial payloads.
//
// # Video Resolver
//
// [ProxyResolver] asks an HTTP resolver proxy for the format-to-URL map of a video.
//
// # Downloader
//
// [HTTPDownloader] streams a media URL into a ".part" file and renames it when complete.
//
// # Error Handling
//
// Services use sentinel errors from the shared package:
//   - [shared.ErrAPIRequest] : feed request or decoding failed
//   - [shared.ErrUserSuspended] : user lookup answered 403 or 404
//   - [shared.ErrResolveFailed] : resolver proxy failed
//   - [shared.ErrDownloadFailed] : transfer failed or was truncated
package services
