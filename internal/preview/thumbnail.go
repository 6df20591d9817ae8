package preview

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"strings"
	"time"

	_ "image/gif"
	_ "image/png"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/justyntemme/nexus/internal/debug"
	"github.com/justyntemme/nexus/internal/host"
	"github.com/justyntemme/nexus/internal/lister"
	"github.com/justyntemme/nexus/internal/metrics"
)

// ErrNoPreview is returned when no thumbnail can be produced: unsupported
// media, decode failure, or the bounded wait ran out.
var ErrNoPreview = errors.New("preview: no preview available")

const (
	DefaultTimeout   = 5 * time.Second
	DefaultMaxPixels = 256
	thumbQuality     = 80
)

// FrameExtractor grabs a still frame from a video.
type FrameExtractor interface {
	Frame(ctx context.Context, f *host.File) (image.Image, error)
}

// Options configures a Thumbnailer. Zero values select defaults.
type Options struct {
	Timeout      time.Duration
	MaxPixels    int
	CacheEntries int
	// Frames extracts video frames. Nil disables video thumbnails.
	Frames FrameExtractor
}

// Thumbnailer produces JPEG thumbnails for images and videos.
type Thumbnailer struct {
	timeout   time.Duration
	maxPixels int
	cache     *ThumbnailCache
	frames    FrameExtractor
}

func NewThumbnailer(opts Options) *Thumbnailer {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxPixels <= 0 {
		opts.MaxPixels = DefaultMaxPixels
	}
	if opts.CacheEntries <= 0 {
		opts.CacheEntries = 200
	}
	return &Thumbnailer{
		timeout:   opts.Timeout,
		maxPixels: opts.MaxPixels,
		cache:     NewThumbnailCache(opts.CacheEntries),
		frames:    opts.Frames,
	}
}


type thumbResult struct {
	data     []byte
	original image.Point
	err      error
}

// Generate returns a JPEG thumbnail of f. It waits at most the configured
// timeout; past that it gives up with ErrNoPreview and the decode is left
// to finish in the background.
func (t *Thumbnailer) Generate(ctx context.Context, f *host.File) ([]byte, error) {
	kind := lister.MediaKindOf(f.Type)
	if kind != lister.MediaImage && kind != lister.MediaVideo {
		return nil, fmt.Errorf("%w: %s has no visual content", ErrNoPreview, f.Type)
	}
	if kind == lister.MediaVideo && t.frames == nil {
		return nil, fmt.Errorf("%w: video frames disabled", ErrNoPreview)
	}

	key := CacheKey(f)
	if data, _, ok := t.cache.Get(key); ok {
		return data, nil
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	done := make(chan thumbResult, 1)
	go func() {
		data, original, err := t.render(ctx, f, kind)
		done <- thumbResult{data: data, original: original, err: err}
	}()

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			metrics.RecordThumbnailTimeout()
		}
		debug.Log(debug.PREVIEW, "thumbnail %q: gave up: %v", f.Name, ctx.Err())
		return nil, fmt.Errorf("%w: %w", ErrNoPreview, ctx.Err())
	case r := <-done:
		if r.err != nil {
			debug.Log(debug.PREVIEW, "thumbnail %q: %v", f.Name, r.err)
			return nil, fmt.Errorf("%w: %w", ErrNoPreview, r.err)
		}
		t.cache.Put(key, r.data, r.original)
		return r.data, nil
	}
}

func (t *Thumbnailer) render(ctx context.Context, f *host.File, kind lister.MediaKind) ([]byte, image.Point, error) {
	var img image.Image
	var err error
	if kind == lister.MediaVideo {
		img, err = t.frames.Frame(ctx, f)
	} else {
		img, err = decodeImage(f)
	}
	if err != nil {
		return nil, image.Point{}, err
	}

	original := img.Bounds().Size()
	thumb := scaleToFit(img, t.maxPixels)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: thumbQuality}); err != nil {
		return nil, image.Point{}, err
	}
	debug.Log(debug.PREVIEW, "thumbnail %q: %dx%d -> %dx%d", f.Name,
		original.X, original.Y, thumb.Bounds().Dx(), thumb.Bounds().Dy())
	return buf.Bytes(), original, nil
}

func decodeImage(f *host.File) (image.Image, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return nil, err
	}

	var img image.Image
	if isHEIC(f) {
		if !heicSupported() {
			return nil, fmt.Errorf("HEIC not supported")
		}
		img, err = decodeHEIC(data)
	} else {
		img, _, err = image.Decode(bytes.NewReader(data))
	}
	if err != nil {
		return nil, err
	}
	return applyOrientation(img, orientation(data)), nil
}

func isHEIC(f *host.File) bool {
	switch f.Type {
	case "image/heic", "image/heif", "image/heic-sequence", "image/heif-sequence":
		return true
	}
	name := strings.ToLower(f.Name)
	return strings.HasSuffix(name, ".heic") || strings.HasSuffix(name, ".heif")
}

// orientation reads the EXIF orientation tag, 1 when absent.
func orientation(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	v, err := tag.Int(0)
	if err != nil {
		return 1
	}
	return v
}

// applyOrientation transforms an image according to its EXIF orientation.
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

// scaleToFit scales src down so neither edge exceeds maxPixels.
func scaleToFit(src image.Image, maxPixels int) image.Image {
	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= maxPixels && height <= maxPixels {
		return src
	}

	newWidth, newHeight := maxPixels, maxPixels
	if width > height {
		newHeight = max(1, height*maxPixels/width)
	} else {
		newWidth = max(1, width*maxPixels/height)
	}

	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
	return dst
}
