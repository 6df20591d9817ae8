//go:build !linux && !darwin && !windows

package fs

func listVolumes() []Root {
	return []Root{{Name: "/ (Root)", Path: "/"}}
}
