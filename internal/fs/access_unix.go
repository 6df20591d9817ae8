//go:build !windows

package fs

import "golang.org/x/sys/unix"

// readable reports whether the process may list the directory at path.
func readable(path string) bool {
	return unix.Access(path, unix.R_OK|unix.X_OK) == nil
}
