//go:build !linux || !cgo

package preview

import (
	"fmt"
	"image"
)

// decodeHEIC is a stub where the HEIC decoder does not build
func decodeHEIC(data []byte) (image.Image, error) {
	return nil, fmt.Errorf("HEIC decoding not supported on this platform")
}

func heicSupported() bool {
	return false
}
