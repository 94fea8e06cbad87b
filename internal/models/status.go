package models

import "strings"

type flagName[T ~uint32] struct {
	flag T
	name string
}

func flagString[T ~uint32](s T, names []flagName[T]) string {
	if s == 0 {
		return "none"
	}
	var parts []string
	for _, n := range names {
		if s&n.flag != 0 {
			parts = append(parts, n.name)
			s &^= n.flag
		}
	}
	if s != 0 {
		parts = append(parts, "unknown")
	}
	return strings.Join(parts, "|")
}

// VideoStatus records content-state discovered about a remote video.
type VideoStatus uint32

const (
	VideoPrivate  VideoStatus = 0x1 // remote reports the video as private
	VideoNoFormat VideoStatus = 0x2 // no offered format is acceptable for the lookup table
)

func (s VideoStatus) Has(f VideoStatus) bool {
	return s&f == f
}

func (s VideoStatus) With(f VideoStatus) VideoStatus {
	return s | f
}

func (s VideoStatus) Without(f VideoStatus) VideoStatus {
	return s &^ f
}

func (s VideoStatus) String() string {
	return flagString(s, []flagName[VideoStatus]{
		{VideoPrivate, "private"},
		{VideoNoFormat, "noformat"},
	})
}

// UserStatus records account state.
type UserStatus uint32

const UserSuspended UserStatus = 0x1

func (s UserStatus) Has(f UserStatus) bool {
	return s&f == f
}

func (s UserStatus) With(f UserStatus) UserStatus {
	return s | f
}

func (s UserStatus) Without(f UserStatus) UserStatus {
	return s &^ f
}

func (s UserStatus) String() string {
	return flagString(s, []flagName[UserStatus]{{UserSuspended, "suspended"}})
}

// JobStatus controls how a job runs.
//
// [JobDisabled] suppresses execution regardless of the other flags.
type JobStatus uint32

const (
	JobDisabled     JobStatus = 0x1
	JobNoDownload   JobStatus = 0x2
	JobNoSync       JobStatus = 0x4
	JobRunOnce      JobStatus = 0x100
	JobLegacyImport JobStatus = 0x200
)

func (s JobStatus) Has(f JobStatus) bool {
	return s&f == f
}

func (s JobStatus) With(f JobStatus) JobStatus {
	return s | f
}

func (s JobStatus) Without(f JobStatus) JobStatus {
	return s &^ f
}

func (s JobStatus) String() string {
	return flagString(s, []flagName[JobStatus]{
		{JobDisabled, "disabled"},
		{JobNoDownload, "nodownload"},
		{JobNoSync, "nosync"},
		{JobRunOnce, "runonce"},
		{JobLegacyImport, "legacy"},
	})
}

// LocalStatus marks where a local media record came from.
type LocalStatus uint32

const LocalImportedLegacy LocalStatus = 0x200

func (s LocalStatus) Has(f LocalStatus) bool {
	return s&f == f
}

func (s LocalStatus) With(f LocalStatus) LocalStatus {
	return s | f
}

func (s LocalStatus) Without(f LocalStatus) LocalStatus {
	return s &^ f
}

func (s LocalStatus) String() string {
	return flagString(s, []flagName[LocalStatus]{{LocalImportedLegacy, "legacy"}})
}
