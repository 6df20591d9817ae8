package lister

import (
	"strings"

	"github.com/justyntemme/nexus/internal/host"
)

// Entry is one row of a listing. Files carry resolved content; directories
// carry the handle needed to descend. A directory with a nil Handle is a
// placeholder: the name is known but access could not be established.
type Entry struct {
	Name   string
	Kind   host.Kind
	File   *host.File
	Handle host.Handle
}

// Placeholder returns a name-only directory entry.
func Placeholder(name string) Entry {
	return Entry{Name: name, Kind: host.KindDirectory}
}

// IsPlaceholder reports whether e is a directory without a live handle.
func (e Entry) IsPlaceholder() bool {
	return e.Kind == host.KindDirectory && e.Handle == nil
}

// Directory returns the entry's directory handle, if it has one.
func (e Entry) Directory() (host.DirectoryHandle, bool) {
	if e.Kind != host.KindDirectory || e.Handle == nil {
		return nil, false
	}
	d, ok := e.Handle.(host.DirectoryHandle)
	return d, ok
}

// MediaKind classifies a content type.
type MediaKind int

const (
	MediaNone MediaKind = iota
	MediaImage
	MediaVideo
	MediaAudio
)

func (k MediaKind) String() string {
	switch k {
	case MediaImage:
		return "image"
	case MediaVideo:
		return "video"
	case MediaAudio:
		return "audio"
	default:
		return "none"
	}
}

// MediaKindOf maps a content type to its media kind.
func MediaKindOf(contentType string) MediaKind {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return MediaImage
	case strings.HasPrefix(contentType, "video/"):
		return MediaVideo
	case strings.HasPrefix(contentType, "audio/"):
		return MediaAudio
	default:
		return MediaNone
	}
}

// IsMedia reports whether contentType passes the image/video/audio allow-list.
func IsMedia(contentType string) bool {
	return MediaKindOf(contentType) != MediaNone
}

// Media returns the media kind of a file entry, MediaNone for directories.
func (e Entry) Media() MediaKind {
	if e.Kind != host.KindFile || e.File == nil {
		return MediaNone
	}
	return MediaKindOf(e.File.Type)
}
