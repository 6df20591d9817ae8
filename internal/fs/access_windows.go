//go:build windows

package fs

import "os"

// readable reports whether the process may list the directory at path.
func readable(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	f.Close()
	return true
}
