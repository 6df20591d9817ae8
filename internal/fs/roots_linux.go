//go:build linux

package fs

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// virtualFS are filesystem types that never hold user files.
var virtualFS = map[string]bool{
	"tmpfs":    true,
	"devtmpfs": true,
	"cgroup":   true,
	"cgroup2":  true,
	"overlay":  true,
	"squashfs": true,
}

// listVolumes returns mounted filesystems from /proc/mounts
func listVolumes() []Root {
	file, err := os.Open("/proc/mounts")
	if err != nil {
		return []Root{{Name: "/ (Root)", Path: "/"}}
	}
	defer file.Close()
	return parseMounts(file)
}

func parseMounts(r io.Reader) []Root {
	roots := []Root{{Name: "/ (Root)", Path: "/"}}
	seen := map[string]bool{"/": true}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 {
			continue
		}
		mountPoint, fsType := fields[1], fields[2]
		if seen[mountPoint] || shouldSkipPath(mountPoint) || virtualFS[fsType] {
			continue
		}

		name := mountPoint
		if strings.HasPrefix(mountPoint, "/media/") || strings.HasPrefix(mountPoint, "/mnt/") {
			name = filepath.Base(mountPoint)
		} else if mountPoint == "/home" {
			name = "Home"
		}

		seen[mountPoint] = true
		roots = append(roots, Root{Name: name, Path: mountPoint})
	}
	return roots
}
