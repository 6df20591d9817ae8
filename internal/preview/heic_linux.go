//go:build linux && cgo

package preview

import (
	"bytes"
	"image"

	"github.com/jdeng/goheif"
)

// decodeHEIC decodes a HEIC/HEIF image
func decodeHEIC(data []byte) (image.Image, error) {
	return goheif.Decode(bytes.NewReader(data))
}

func heicSupported() bool {
	return true
}
