package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig   = fmt.Errorf("configuration not found")
	ErrInvalidConfig   = fmt.Errorf("invalid configuration")
	ErrUnknownProfile  = fmt.Errorf("unknown quality profile")
	ErrInvalidRange    = fmt.Errorf("invalid index range")
	ErrJobNotFound     = fmt.Errorf("job not found")
	ErrJobExists       = fmt.Errorf("job already exists")
	ErrProtectedOption = fmt.Errorf("option is read-only")
	ErrOptionNotFound  = fmt.Errorf("option not found")

	// Catalog errors
	ErrUnknownSchemaVersion = fmt.Errorf("catalog was written by a newer version")
	ErrCatalogLocked        = fmt.Errorf("catalog is locked by another process")
	ErrPlaylistNotFound     = fmt.Errorf("playlist not found")
	ErrVideoNotFound        = fmt.Errorf("video not found")
	ErrUserNotFound         = fmt.Errorf("user not found")

	// Remote access errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrUserSuspended      = fmt.Errorf("user account is suspended")
	ErrResolveFailed      = fmt.Errorf("could not resolve video")
	ErrDownloadFailed     = fmt.Errorf("download failed")
	ErrTimeout            = fmt.Errorf("operation timed out")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
