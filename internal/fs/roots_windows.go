//go:build windows

package fs

import (
	"golang.org/x/sys/windows"
)

// listVolumes returns the logical drives with their volume labels.
func listVolumes() []Root {
	var roots []Root

	mask, err := windows.GetLogicalDrives()
	if err != nil {
		return roots
	}

	for i := 0; i < 26; i++ {
		if mask&(1<<uint(i)) == 0 {
			continue
		}
		letter := string(rune('A' + i))
		path := letter + `:\`

		pathPtr, err := windows.UTF16PtrFromString(path)
		if err != nil {
			continue
		}
		driveType := windows.GetDriveType(pathPtr)
		if driveType == windows.DRIVE_UNKNOWN || driveType == windows.DRIVE_NO_ROOT_DIR {
			continue
		}

		// Can block on disconnected network drives
		label := make([]uint16, windows.MAX_PATH+1)
		name := letter + ":"
		if err := windows.GetVolumeInformation(pathPtr, &label[0], uint32(len(label)), nil, nil, nil, nil, 0); err == nil {
			if v := windows.UTF16ToString(label); v != "" {
				name = v + " (" + letter + ":)"
			}
		}
		if name == letter+":" {
			switch driveType {
			case windows.DRIVE_REMOVABLE:
				name = "Removable (" + letter + ":)"
			case windows.DRIVE_CDROM:
				name = "CD/DVD (" + letter + ":)"
			case windows.DRIVE_REMOTE:
				name = "Network (" + letter + ":)"
			}
		}

		roots = append(roots, Root{Name: name, Path: path})
	}
	return roots
}
