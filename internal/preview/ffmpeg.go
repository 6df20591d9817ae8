package preview

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"os/exec"
	"strconv"

	"github.com/justyntemme/nexus/internal/debug"
	"github.com/justyntemme/nexus/internal/host"
)

// FFmpeg extracts video frames with the ffmpeg binary.
type FFmpeg struct {
	Path string
	// Offset is how many seconds into the video the frame is taken.
	Offset float64
}

// Available reports whether the ffmpeg binary can be found.
func (f FFmpeg) Available() bool {
	_, err := exec.LookPath(f.binary())
	return err == nil
}

func (f FFmpeg) binary() string {
	if f.Path == "" {
		return "ffmpeg"
	}
	return f.Path
}

// Frame decodes one frame of file. Files backed by a local path are read
// directly; anything else is streamed through stdin.
func (f FFmpeg) Frame(ctx context.Context, file *host.File) (image.Image, error) {
	bin, err := exec.LookPath(f.binary())
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}

	input := file.Path
	if input == "" {
		input = "pipe:0"
	}
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-ss", strconv.FormatFloat(f.Offset, 'f', 1, 64),
		"-i", input,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"pipe:1",
	}
	cmd := exec.CommandContext(ctx, bin, args...)

	if file.Path == "" {
		rc, err := file.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		cmd.Stdin = rc
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		debug.Log(debug.PREVIEW, "ffmpeg %q: %v: %s", file.Name, err, stderr.String())
		return nil, fmt.Errorf("ffmpeg: %w", err)
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg: no frame at %.1fs", f.Offset)
	}
	return jpeg.Decode(&stdout)
}
