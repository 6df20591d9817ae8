package fs

import (
	"context"
	"io"
	iofs "io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/justyntemme/nexus/internal/host"
)

// fileRef is a file handle. info is filled lazily.
type fileRef struct {
	path string
	name string
	info iofs.FileInfo
}

func (f *fileRef) Name() string    { return f.name }
func (f *fileRef) Kind() host.Kind { return host.KindFile }
func (f *fileRef) Path() string    { return f.path }

func (f *fileRef) File(ctx context.Context) (*host.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info := f.info
	if info == nil {
		var err error
		if info, err = os.Stat(f.path); err != nil {
			return nil, err
		}
	}
	contentType, err := DetectType(f.path)
	if err != nil {
		return nil, err
	}
	path := f.path
	return host.NewFile(f.name, contentType, info.Size(), info.ModTime(), path, func() (io.ReadCloser, error) {
		return os.Open(path)
	}), nil
}

// DetectType sniffs the content type of the file at path. Generic results
// fall back to the extension table. Parameters are stripped.
func DetectType(path string) (string, error) {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "", err
	}
	ct := stripParams(mt.String())
	if ct == "application/octet-stream" || ct == "text/plain" {
		if byExt := stripParams(mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))); byExt != "" {
			return byExt, nil
		}
	}
	return ct, nil
}

func stripParams(ct string) string {
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.TrimSpace(strings.ToLower(ct))
}

// acceptsType matches contentType against patterns like "image/*" or
// "video/mp4". No patterns accepts everything.
func acceptsType(accept []string, contentType string) bool {
	if len(accept) == 0 {
		return true
	}
	for _, pattern := range accept {
		pattern = strings.ToLower(strings.TrimSpace(pattern))
		if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
			if strings.HasPrefix(contentType, prefix+"/") {
				return true
			}
			continue
		}
		if pattern == contentType {
			return true
		}
	}
	return false
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, `~\`) {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}
