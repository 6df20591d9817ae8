//go:build darwin

package fs

import (
	iofs "io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/charlievieth/fastwalk"
)

// listVolumes returns mounted volumes on macOS
func listVolumes() []Root {
	var roots []Root
	var mu sync.Mutex

	conf := &fastwalk.Config{Follow: true}
	err := fastwalk.Walk(conf, "/Volumes", func(fullPath string, d iofs.DirEntry, err error) error {
		if err != nil || fullPath == "/Volumes" {
			return nil
		}
		if filepath.Dir(fullPath) != "/Volumes" {
			if d.IsDir() {
				return fastwalk.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}

		name := d.Name()
		// The boot volume is a symlink to /
		if target, err := os.Readlink(fullPath); err == nil && target == "/" {
			mu.Lock()
			roots = append([]Root{{Name: name, Path: "/"}}, roots...)
			mu.Unlock()
			return fastwalk.SkipDir
		}
		if _, err := os.Stat(fullPath); err != nil {
			return fastwalk.SkipDir
		}

		mu.Lock()
		roots = append(roots, Root{Name: name, Path: fullPath})
		mu.Unlock()
		return fastwalk.SkipDir
	})

	if err != nil || len(roots) == 0 {
		return []Root{{Name: "Macintosh HD", Path: "/"}}
	}
	return roots
}
