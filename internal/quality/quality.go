// Package quality maps a named profile and a resolution ceiling to the ordered list of acceptable formats.
//
// A profile assigns one format code per vertical resolution. [Resolve] walks the profile from the
// highest resolution down and keeps every level at or below the ceiling, so the first entry of the
// result is always the preferred download.
package quality

import (
	"fmt"
	"maps"
	"slices"
	"sort"

	"github.com/desertthunder/youfeed/internal/models"
	"github.com/desertthunder/youfeed/internal/shared"
)

// Profile maps a vertical resolution to a format code.
type Profile map[int]models.Format

var builtin = map[string]Profile{
	"mixed-avc": {1080: 37, 720: 22, 480: 35, 360: 18, 240: 5},
	"avc":       {1080: 37, 720: 22, 360: 18},
	"webm":      {1080: 46, 720: 45, 480: 44, 360: 43},
	"flv":       {480: 35, 360: 34, 240: 5},
}

var extensions = map[models.Format]string{
	5:  "flv",
	18: "mp4",
	22: "mp4",
	34: "flv",
	35: "flv",
	37: "mp4",
	43: "webm",
	44: "webm",
	45: "webm",
	46: "webm",
}

var descriptions = map[models.Format]string{
	5:  "FLV 240p (Sorenson H.263)",
	18: "MP4 360p (H.264 Baseline)",
	22: "MP4 720p (H.264 High)",
	34: "FLV 360p (H.264 Main)",
	35: "FLV 480p (H.264 Main)",
	37: "MP4 1080p (H.264 High)",
	43: "WebM 360p (VP8)",
	44: "WebM 480p (VP8)",
	45: "WebM 720p (VP8)",
	46: "WebM 1080p (VP8)",
}

// Extension returns the file extension for a format, "mp4" when the code is unknown.
func Extension(f models.Format) string {
	if ext, ok := extensions[f]; ok {
		return ext
	}
	return "mp4"
}

// Describe returns a human readable label for a format.
func Describe(f models.Format) string {
	if d, ok := descriptions[f]; ok {
		return d
	}
	return fmt.Sprintf("format %d", f)
}

// Resolve returns the formats of profile for every level at or below ceiling, highest level first.
//
// exact is false when ceiling is not one of the profile's levels; the result is still valid and may be empty.
func Resolve(profile Profile, ceiling int) (formats []models.Format, exact bool) {
	levels := slices.Sorted(maps.Keys(profile))
	slices.Reverse(levels)

	formats = []models.Format{}
	for _, level := range levels {
		if level == ceiling {
			exact = true
		}
		if level <= ceiling {
			formats = append(formats, profile[level])
		}
	}
	return formats, exact
}

// Registry holds the built-in profiles plus any defined in configuration. Configured profiles
// replace built-ins of the same name.
type Registry struct {
	profiles map[string]Profile
}

// NewRegistry builds a registry from the built-in profiles and custom ones.
func NewRegistry(custom map[string]shared.ProfileConfig) (*Registry, error) {
	r := &Registry{profiles: make(map[string]Profile, len(builtin)+len(custom))}
	for name, p := range builtin {
		r.profiles[name] = maps.Clone(p)
	}

	for name, cfg := range custom {
		levels, err := cfg.Levels()
		if err != nil {
			return nil, fmt.Errorf("profile %s: %w", name, err)
		}
		p := make(Profile, len(levels))
		for level, code := range levels {
			p[level] = models.Format(code)
		}
		r.profiles[name] = p
	}
	return r, nil
}

// Get returns the named profile or [shared.ErrUnknownProfile].
func (r *Registry) Get(name string) (Profile, error) {
	p, ok := r.profiles[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrUnknownProfile, name)
	}
	return p, nil
}

// Names lists the registered profiles alphabetically.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.profiles))
	for name := range r.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve looks up the named profile and resolves ceiling against it.
func (r *Registry) Resolve(name string, ceiling int) ([]models.Format, bool, error) {
	p, err := r.Get(name)
	if err != nil {
		return nil, false, err
	}
	formats, exact := Resolve(p, ceiling)
	return formats, exact, nil
}
