package search

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/justyntemme/nexus/internal/host"
	"github.com/justyntemme/nexus/internal/lister"
)

// SortBy selects the sort key.
type SortBy string

const (
	SortByName SortBy = "name"
	SortBySize SortBy = "size"
	SortByDate SortBy = "date"
	SortByType SortBy = "type"
)

// ParseSortBy validates a sort key.
func ParseSortBy(s string) (SortBy, error) {
	switch SortBy(strings.ToLower(s)) {
	case SortByName, SortBySize, SortByDate, SortByType:
		return SortBy(strings.ToLower(s)), nil
	}
	return "", fmt.Errorf("search: unknown sort key %q", s)
}

// Sort returns a sorted copy of entries. Equal keys keep their listing
// order. Directories count as size 0 and date 0, and sort by
// "directory-<name>" on type.
func Sort(entries []lister.Entry, by SortBy, asc bool) []lister.Entry {
	out := append([]lister.Entry(nil), entries...)
	slices.SortStableFunc(out, func(a, b lister.Entry) int {
		c := compareEntries(a, b, by)
		if !asc {
			return -c
		}
		return c
	})
	return out
}

func compareEntries(a, b lister.Entry, by SortBy) int {
	switch by {
	case SortBySize:
		return cmp.Compare(sizeOf(a), sizeOf(b))
	case SortByDate:
		return cmp.Compare(modOf(a), modOf(b))
	case SortByType:
		return compareText(typeKey(a), typeKey(b))
	default:
		return compareText(a.Name, b.Name)
	}
}

// compareText orders case-insensitively, then by raw bytes.
func compareText(a, b string) int {
	if c := strings.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

func sizeOf(e lister.Entry) int64 {
	if e.Kind == host.KindFile && e.File != nil {
		return e.File.Size
	}
	return 0
}

func modOf(e lister.Entry) int64 {
	if e.Kind == host.KindFile && e.File != nil {
		return e.File.ModTime.UnixMilli()
	}
	return 0
}

func typeKey(e lister.Entry) string {
	if e.Kind == host.KindFile && e.File != nil {
		return e.File.Type
	}
	return "directory-" + e.Name
}

// Stats counts the entries of a listing.
type Stats struct {
	Total       int
	Files       int
	Directories int
	Images      int
	Videos      int
	Audio       int
	// Bytes is the combined size of all files.
	Bytes int64
}

// Summarize counts entries by kind.
func Summarize(entries []lister.Entry) Stats {
	s := Stats{Total: len(entries)}
	for _, e := range entries {
		if e.Kind == host.KindDirectory {
			s.Directories++
			continue
		}
		s.Files++
		s.Bytes += sizeOf(e)
		switch e.Media() {
		case lister.MediaImage:
			s.Images++
		case lister.MediaVideo:
			s.Videos++
		case lister.MediaAudio:
			s.Audio++
		}
	}
	return s
}
