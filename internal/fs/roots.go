package fs

import (
	"os"
	"path/filepath"
	"strings"
)

// Root is a suggested starting location for the directory picker.
type Root struct {
	Name string
	Path string
}

// mediaFolders are the home subfolders offered first, when they exist.
var mediaFolders = []string{"Pictures", "Photos", "Videos", "Movies", "Music", "Downloads"}

// Roots returns the home media folders followed by mounted volumes.
func Roots() []Root {
	var roots []Root
	seen := make(map[string]bool)

	if home, err := os.UserHomeDir(); err == nil {
		roots = append(roots, Root{Name: "Home", Path: home})
		seen[home] = true
		for _, name := range mediaFolders {
			p := filepath.Join(home, name)
			if info, err := os.Stat(p); err == nil && info.IsDir() {
				roots = append(roots, Root{Name: name, Path: p})
				seen[p] = true
			}
		}
	}

	for _, r := range listVolumes() {
		if seen[r.Path] {
			continue
		}
		seen[r.Path] = true
		roots = append(roots, r)
	}
	return roots
}

// skipDirRoots contains top-level directories that never hold user media
var skipDirRoots = map[string]bool{
	"dev":        true,
	"proc":       true,
	"sys":        true,
	"run":        true,
	"snap":       true,
	"boot":       true,
	"lost+found": true,
}

// shouldSkipPath reports whether path lives under a system directory.
func shouldSkipPath(path string) bool {
	if len(path) < 2 || path[0] != '/' {
		return false
	}
	rest := path[1:]
	first := rest
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		first = rest[:i]
	}
	return skipDirRoots[first]
}
